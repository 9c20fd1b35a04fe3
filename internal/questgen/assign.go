package questgen

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/lingua-prep/backend/internal/models"
	"github.com/lingua-prep/backend/internal/progress"
)

const (
	questsPerSlate = 3
	llmTimeout     = 30 * time.Second
)

// template is one entry in the curated quest pool.
type template struct {
	questType   models.QuestType
	description string
	target      int
	coinReward  int64
	xpReward    int64
	tier        string
}

// questPool holds the curated templates the assigner draws from.
// Descriptions are written for a classical-language learner.
var questPool = []template{
	{models.QuestLessonCount, "Complete 3 lessons today", 3, 30, 20, models.TierEasy},
	{models.QuestLessonCount, "Complete 7 lessons this week", 7, 60, 45, models.TierStandard},
	{models.QuestLessonCount, "Complete 15 lessons this week", 15, 120, 90, models.TierHard},
	{models.QuestXPMilestone, "Earn 100 XP", 100, 25, 15, models.TierEasy},
	{models.QuestXPMilestone, "Earn 350 XP", 350, 70, 50, models.TierStandard},
	{models.QuestXPMilestone, "Earn 1000 XP", 1000, 160, 110, models.TierHard},
	{models.QuestDailyStreak, "Reach a 3-day streak", 3, 40, 25, models.TierEasy},
	{models.QuestDailyStreak, "Reach a 7-day streak", 7, 90, 60, models.TierStandard},
	{models.QuestDailyStreak, "Reach a 14-day streak", 14, 180, 130, models.TierLegendary},
	{models.QuestSkillMastery, "Master 5 declension drills", 5, 50, 35, models.TierStandard},
	{models.QuestSkillMastery, "Master 10 verb conjugation drills", 10, 100, 70, models.TierHard},
}

// Assigner keeps each user's active quest slate topped up from the
// template pool, with an optional LLM-generated custom quest mixed in.
type Assigner struct {
	store progress.Store
	clock progress.Clock
	llm   LLMClient
	rng   *rand.Rand
}

// NewAssigner creates an assigner. llm may be nil, in which case no
// custom quests are generated and the slate comes entirely from the
// template pool.
func NewAssigner(store progress.Store, clock progress.Clock, llm LLMClient) *Assigner {
	if clock == nil {
		clock = progress.SystemClock()
	}
	return &Assigner{
		store: store,
		clock: clock,
		llm:   llm,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// EnsureQuests tops the user's slate back up to questsPerSlate active
// quests. Users with a full slate return immediately, so calling this
// on every quest read is cheap.
func (a *Assigner) EnsureQuests(userID int64) error {
	quests, err := a.store.ListQuests(userID)
	if err != nil {
		return fmt.Errorf("failed to list quests: %w", err)
	}

	// Completed quests free up a slate slot but still block their
	// template type until they expire, so a user cannot farm the same
	// quest twice in one cycle.
	now := a.clock.Now()
	active := 0
	slateTypes := make(map[models.QuestType]bool)
	for _, q := range quests {
		if q.IsExpired(now) {
			continue
		}
		slateTypes[q.Type] = true
		if q.CompletedAt == nil {
			active++
		}
	}
	if active >= questsPerSlate {
		return nil
	}

	need := questsPerSlate - active
	expiry := nextMidnightUTC(now).Add(6 * 24 * time.Hour)

	for _, tmpl := range a.pickTemplates(need, slateTypes) {
		q := &models.Quest{
			UserID:         userID,
			Type:           tmpl.questType,
			Description:    tmpl.description,
			TargetValue:    tmpl.target,
			CoinReward:     tmpl.coinReward,
			XPReward:       tmpl.xpReward,
			DifficultyTier: tmpl.tier,
			ExpiresAt:      &expiry,
		}
		if err := a.store.InsertQuest(q); err != nil {
			return fmt.Errorf("failed to insert quest: %w", err)
		}
		need--
	}

	if need > 0 && a.llm != nil {
		if err := a.assignCustomQuests(userID, need, expiry); err != nil {
			log.Printf("[questgen] custom quest generation failed for user %d: %v", userID, err)
		}
	}
	return nil
}

// pickTemplates draws up to n templates from the pool, at most one per
// quest type, skipping types the user already has active.
func (a *Assigner) pickTemplates(n int, taken map[models.QuestType]bool) []template {
	shuffled := make([]template, len(questPool))
	copy(shuffled, questPool)
	a.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	used := make(map[models.QuestType]bool, len(taken))
	for t := range taken {
		used[t] = true
	}

	var picked []template
	for _, tmpl := range shuffled {
		if len(picked) >= n {
			break
		}
		if used[tmpl.questType] {
			continue
		}
		used[tmpl.questType] = true
		picked = append(picked, tmpl)
	}
	return picked
}

// assignCustomQuests fills remaining slate slots with LLM-generated
// custom quests tailored to the user's current state.
func (a *Assigner) assignCustomQuests(userID int64, count int, expiry time.Time) error {
	p, err := a.store.GetOrCreateProgress(userID)
	if err != nil {
		return err
	}
	level, err := progress.LevelForXP(p.TotalXP)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), llmTimeout)
	defer cancel()

	resp, err := a.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt("la", level, p.CurrentStreak, count))
	if err != nil {
		return err
	}
	batch, err := ParseResponse(resp.Content)
	if err != nil {
		return err
	}

	for i, gen := range batch.Quests {
		if i >= count {
			break
		}
		q := &models.Quest{
			UserID:         userID,
			Type:           models.QuestCustom,
			Description:    fmt.Sprintf("%s: %s", gen.Title, gen.Description),
			TargetValue:    gen.TargetValue,
			CoinReward:     gen.RewardCoins,
			XPReward:       gen.RewardXP,
			DifficultyTier: models.TierStandard,
			ExpiresAt:      &expiry,
		}
		if err := a.store.InsertQuest(q); err != nil {
			return fmt.Errorf("failed to insert custom quest: %w", err)
		}
	}
	return nil
}

// nextMidnightUTC returns the first UTC midnight strictly after t.
func nextMidnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
