package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lingua-prep/backend/internal/models"
)

// memStore is an in-memory Store for controller tests. It mirrors the
// Postgres semantics: versioned saves, session replay detection, and
// one-shot quest rewards.
type memStore struct {
	progress     map[int64]*models.UserProgress
	quests       map[int64]*models.Quest
	nextQuestID  int64
	sessions     map[string]bool
	questEvents  map[string]bool
	achievements map[int64]map[string]bool
	purchases    []string
	events       []string
	outbox       []SyncEntry
	nextOutboxID int64
	failSaves    int
}

func newMemStore() *memStore {
	return &memStore{
		progress:     make(map[int64]*models.UserProgress),
		quests:       make(map[int64]*models.Quest),
		nextQuestID:  1,
		sessions:     make(map[string]bool),
		questEvents:  make(map[string]bool),
		achievements: make(map[int64]map[string]bool),
	}
}

func (m *memStore) GetOrCreateProgress(userID int64) (*models.UserProgress, error) {
	if p, ok := m.progress[userID]; ok {
		cp := *p
		return &cp, nil
	}
	p := &models.UserProgress{UserID: userID, Version: 1}
	m.progress[userID] = p
	cp := *p
	return &cp, nil
}

func (m *memStore) SaveProgress(p *models.UserProgress) error {
	if m.failSaves > 0 {
		m.failSaves--
		return fmt.Errorf("%w: user %d", ErrConflict, p.UserID)
	}
	stored, ok := m.progress[p.UserID]
	if !ok || stored.Version != p.Version {
		return fmt.Errorf("%w: user %d", ErrConflict, p.UserID)
	}
	p.Version++
	p.SyncPending = true
	cp := *p
	m.progress[p.UserID] = &cp

	payload, _ := json.Marshal(p)
	m.nextOutboxID++
	m.outbox = append(m.outbox, SyncEntry{ID: m.nextOutboxID, UserID: p.UserID, Payload: payload})
	return nil
}

func (m *memStore) CommitLesson(p *models.UserProgress, sessionID, languageCode string, achievements []string) error {
	key := fmt.Sprintf("%d/%s", p.UserID, sessionID)
	if m.sessions[key] {
		return fmt.Errorf("%w: session %s", ErrAlreadyCompleted, sessionID)
	}
	if err := m.SaveProgress(p); err != nil {
		return err
	}
	m.sessions[key] = true
	m.recordAchievements(p.UserID, achievements)
	return nil
}

func (m *memStore) CommitQuestReward(q *models.Quest, p *models.UserProgress, achievements []string) error {
	stored, ok := m.quests[q.ID]
	if !ok {
		return fmt.Errorf("%w: quest %d", ErrNotFound, q.ID)
	}
	if stored.CompletedAt != nil {
		return fmt.Errorf("%w: quest %d", ErrAlreadyCompleted, q.ID)
	}
	if err := m.SaveProgress(p); err != nil {
		return err
	}
	cp := *q
	m.quests[q.ID] = &cp
	m.recordAchievements(p.UserID, achievements)
	return nil
}

// recordAchievements lands awards only when the commit succeeded,
// mirroring the transactional Postgres behavior.
func (m *memStore) recordAchievements(userID int64, keys []string) {
	if len(keys) == 0 {
		return
	}
	if m.achievements[userID] == nil {
		m.achievements[userID] = make(map[string]bool)
	}
	for _, key := range keys {
		m.achievements[userID][key] = true
	}
}

func (m *memStore) ListQuests(userID int64) ([]models.Quest, error) {
	var out []models.Quest
	for _, q := range m.quests {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memStore) GetQuest(userID, questID int64) (*models.Quest, error) {
	q, ok := m.quests[questID]
	if !ok || q.UserID != userID {
		return nil, fmt.Errorf("%w: quest %d", ErrNotFound, questID)
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) InsertQuest(q *models.Quest) error {
	q.ID = m.nextQuestID
	m.nextQuestID++
	q.CreatedAt = time.Now()
	cp := *q
	m.quests[q.ID] = &cp
	return nil
}

func (m *memStore) SaveQuestProgress(q *models.Quest) error {
	stored, ok := m.quests[q.ID]
	if !ok {
		return fmt.Errorf("%w: quest %d", ErrNotFound, q.ID)
	}
	if stored.CompletedAt != nil {
		return fmt.Errorf("%w: quest %d", ErrAlreadyCompleted, q.ID)
	}
	cp := *q
	m.quests[q.ID] = &cp
	return nil
}

func (m *memStore) DeleteQuest(userID, questID int64) error {
	q, ok := m.quests[questID]
	if !ok || q.UserID != userID {
		return fmt.Errorf("%w: quest %d", ErrNotFound, questID)
	}
	delete(m.quests, questID)
	return nil
}

func (m *memStore) SeenQuestEvent(questID int64, eventID string) (bool, error) {
	key := fmt.Sprintf("%d/%s", questID, eventID)
	if m.questEvents[key] {
		return true, nil
	}
	m.questEvents[key] = true
	return false, nil
}

func (m *memStore) DeleteExpiredQuests(cutoff time.Time) (int64, error) {
	var n int64
	for id, q := range m.quests {
		if q.CompletedAt == nil && q.IsExpired(cutoff) {
			delete(m.quests, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetAchievements(userID int64) ([]string, error) {
	out := []string{}
	for key := range m.achievements[userID] {
		out = append(out, key)
	}
	return out, nil
}

func (m *memStore) LogEvent(userID int64, eventType string, xpAmount int64, metadata map[string]interface{}) error {
	m.events = append(m.events, eventType)
	return nil
}

func (m *memStore) RecordPurchase(userID int64, receiptID, itemID string, cost int64) error {
	m.purchases = append(m.purchases, itemID)
	return nil
}

func (m *memStore) DueSyncEntries(now time.Time, limit int) ([]SyncEntry, error) {
	if limit > len(m.outbox) {
		limit = len(m.outbox)
	}
	out := make([]SyncEntry, limit)
	copy(out, m.outbox[:limit])
	return out, nil
}

func (m *memStore) ResolveSyncEntry(entry SyncEntry, synced bool, nextRetry time.Time) error {
	for i, e := range m.outbox {
		if e.ID != entry.ID {
			continue
		}
		if synced {
			m.outbox = append(m.outbox[:i], m.outbox[i+1:]...)
			if p, ok := m.progress[entry.UserID]; ok && !m.hasQueued(entry.UserID) {
				p.SyncPending = false
			}
		} else {
			m.outbox[i].Attempts++
		}
		return nil
	}
	return nil
}

func (m *memStore) hasQueued(userID int64) bool {
	for _, e := range m.outbox {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

// fakeClock is a settable Clock for tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advanceDays(n int) {
	c.now = c.now.AddDate(0, 0, n)
}
