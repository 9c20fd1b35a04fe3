package questgen

import (
	"fmt"
	"testing"
	"time"

	"github.com/lingua-prep/backend/internal/models"
	"github.com/lingua-prep/backend/internal/progress"
)

// stubStore implements progress.Store with just enough behavior for
// assigner tests.
type stubStore struct {
	quests      map[int64]*models.Quest
	nextQuestID int64
	userState   models.UserProgress
}

func newStubStore() *stubStore {
	return &stubStore{quests: make(map[int64]*models.Quest), nextQuestID: 1}
}

func (s *stubStore) GetOrCreateProgress(userID int64) (*models.UserProgress, error) {
	cp := s.userState
	cp.UserID = userID
	return &cp, nil
}

func (s *stubStore) SaveProgress(p *models.UserProgress) error { return nil }

func (s *stubStore) CommitLesson(p *models.UserProgress, sessionID, languageCode string, achievements []string) error {
	return nil
}

func (s *stubStore) CommitQuestReward(q *models.Quest, p *models.UserProgress, achievements []string) error {
	return nil
}

func (s *stubStore) ListQuests(userID int64) ([]models.Quest, error) {
	var out []models.Quest
	for _, q := range s.quests {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *stubStore) GetQuest(userID, questID int64) (*models.Quest, error) {
	q, ok := s.quests[questID]
	if !ok || q.UserID != userID {
		return nil, fmt.Errorf("quest %d not found", questID)
	}
	cp := *q
	return &cp, nil
}

func (s *stubStore) InsertQuest(q *models.Quest) error {
	q.ID = s.nextQuestID
	s.nextQuestID++
	cp := *q
	s.quests[q.ID] = &cp
	return nil
}

func (s *stubStore) SaveQuestProgress(q *models.Quest) error { return nil }

func (s *stubStore) DeleteQuest(userID, questID int64) error { return nil }

func (s *stubStore) SeenQuestEvent(questID int64, eventID string) (bool, error) { return false, nil }

func (s *stubStore) DeleteExpiredQuests(cutoff time.Time) (int64, error) { return 0, nil }

func (s *stubStore) GetAchievements(userID int64) ([]string, error) { return nil, nil }

func (s *stubStore) LogEvent(userID int64, eventType string, xpAmount int64, metadata map[string]interface{}) error {
	return nil
}

func (s *stubStore) RecordPurchase(userID int64, receiptID, itemID string, cost int64) error {
	return nil
}

func (s *stubStore) DueSyncEntries(now time.Time, limit int) ([]progress.SyncEntry, error) {
	return nil, nil
}

func (s *stubStore) ResolveSyncEntry(entry progress.SyncEntry, synced bool, nextRetry time.Time) error {
	return nil
}

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func TestEnsureQuests_FillsEmptySlate(t *testing.T) {
	store := newStubStore()
	a := NewAssigner(store, stubClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}, nil)

	if err := a.EnsureQuests(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quests, _ := store.ListQuests(1)
	if len(quests) != questsPerSlate {
		t.Fatalf("expected %d quests, got %d", questsPerSlate, len(quests))
	}

	types := make(map[models.QuestType]bool)
	for _, q := range quests {
		if types[q.Type] {
			t.Errorf("duplicate quest type %s in one slate", q.Type)
		}
		types[q.Type] = true
		if q.ExpiresAt == nil {
			t.Error("assigned quests must carry an expiry")
		}
		if q.TargetValue <= 0 || q.CoinReward <= 0 || q.XPReward <= 0 {
			t.Errorf("quest has unset template values: %+v", q)
		}
	}
}

func TestEnsureQuests_FullSlateNoOp(t *testing.T) {
	store := newStubStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewAssigner(store, stubClock{now: now}, nil)

	a.EnsureQuests(1)
	before := len(store.quests)

	if err := a.EnsureQuests(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.quests) != before {
		t.Errorf("full slate must not grow: %d vs %d", len(store.quests), before)
	}
}

func TestEnsureQuests_ReplacesExpired(t *testing.T) {
	store := newStubStore()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	a := NewAssigner(store, stubClock{now: now}, nil)

	past := now.Add(-time.Hour)
	store.InsertQuest(&models.Quest{
		UserID: 1, Type: models.QuestLessonCount,
		TargetValue: 3, CoinReward: 30, XPReward: 20, ExpiresAt: &past,
	})

	if err := a.EnsureQuests(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quests, _ := store.ListQuests(1)
	active := 0
	for _, q := range quests {
		if !q.IsExpired(now) {
			active++
		}
	}
	if active != questsPerSlate {
		t.Errorf("expected %d active quests, got %d", questsPerSlate, active)
	}
}

func TestEnsureQuests_CustomQuestsFromLLM(t *testing.T) {
	store := newStubStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewAssigner(store, stubClock{now: now}, NewMockClient())

	// Occupy every template type so only custom quests can fill in.
	for _, qt := range []models.QuestType{
		models.QuestDailyStreak, models.QuestXPMilestone,
		models.QuestLessonCount, models.QuestSkillMastery,
	} {
		future := now.Add(24 * time.Hour)
		store.InsertQuest(&models.Quest{
			UserID: 1, Type: qt, CurrentProgress: 5, TargetValue: 10,
			CoinReward: 10, XPReward: 10, ExpiresAt: &future,
		})
	}
	// Complete three of them so the slate has one active quest.
	done := now
	for id := int64(1); id <= 3; id++ {
		store.quests[id].CompletedAt = &done
	}

	if err := a.EnsureQuests(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quests, _ := store.ListQuests(1)
	custom := 0
	for _, q := range quests {
		if q.Type == models.QuestCustom {
			custom++
		}
	}
	if custom == 0 {
		t.Error("expected custom quests from the generator")
	}
}

func TestNextMidnightUTC(t *testing.T) {
	at := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	got := nextMidnightUTC(at)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextMidnightUTC(%v) = %v, want %v", at, got, want)
	}

	// Midnight itself rolls to the next day.
	at = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := nextMidnightUTC(at); !got.Equal(at.Add(24 * time.Hour)) {
		t.Errorf("expected strictly-after midnight, got %v", got)
	}
}
