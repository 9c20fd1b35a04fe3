package progress

import (
	"fmt"
	"log"

	"github.com/lingua-prep/backend/internal/models"
)

// ── Quest Operations ────────────────────────────────────────

func (c *Controller) ListQuests(userID int64) ([]models.Quest, error) {
	quests, err := c.store.ListQuests(userID)
	if err != nil {
		return nil, err
	}
	if quests == nil {
		quests = []models.Quest{}
	}
	return quests, nil
}

// ApplyQuestProgress moves a quest forward by delta, clamped to the
// target. Reaching the target never auto-completes the quest; the
// reward is only paid out by an explicit CompleteQuest call.
func (c *Controller) ApplyQuestProgress(userID, questID int64, req models.QuestProgressRequest) (*models.QuestProgressResponse, error) {
	if req.Delta <= 0 {
		return nil, fmt.Errorf("%w: delta must be positive, got %d", ErrInvalidArgument, req.Delta)
	}

	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	q, err := c.store.GetQuest(userID, questID)
	if err != nil {
		return nil, err
	}
	if q.CompletedAt != nil {
		return nil, fmt.Errorf("%w: quest %d", ErrAlreadyCompleted, questID)
	}
	if q.IsExpired(c.clock.Now()) {
		return nil, fmt.Errorf("%w: quest %d has expired", ErrQuestNotReady, questID)
	}

	if req.EventID != "" {
		seen, err := c.store.SeenQuestEvent(q.ID, req.EventID)
		if err != nil {
			return nil, err
		}
		if seen {
			// Duplicate delivery of the same event is a no-op.
			return &models.QuestProgressResponse{
				Quest:       *q,
				Completable: q.CurrentProgress >= q.TargetValue,
			}, nil
		}
	}

	q.CurrentProgress = clampProgress(q.CurrentProgress+req.Delta, q.TargetValue)
	if err := c.store.SaveQuestProgress(q); err != nil {
		return nil, err
	}

	return &models.QuestProgressResponse{
		Quest:       *q,
		Completable: q.CurrentProgress >= q.TargetValue,
	}, nil
}

// CompleteQuest pays out a quest whose progress has reached its
// target. The reward is credited at most once even under concurrent
// completion attempts.
func (c *Controller) CompleteQuest(userID, questID int64) (*models.QuestReward, error) {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	q, err := c.store.GetQuest(userID, questID)
	if err != nil {
		return nil, err
	}
	if q.CompletedAt != nil {
		return nil, fmt.Errorf("%w: quest %d", ErrAlreadyCompleted, questID)
	}
	now := c.clock.Now()
	if q.IsExpired(now) {
		return nil, fmt.Errorf("%w: quest %d has expired", ErrQuestNotReady, questID)
	}
	if q.CurrentProgress < q.TargetValue {
		return nil, fmt.Errorf("%w: quest %d at %d/%d", ErrQuestNotReady, questID, q.CurrentProgress, q.TargetValue)
	}

	p, err := c.store.GetOrCreateProgress(userID)
	if err != nil {
		return nil, err
	}
	snap := *p

	prevLevel, err := LevelForXP(snap.TotalXP)
	if err != nil {
		return nil, err
	}

	if err := Credit(&snap, q.CoinReward); err != nil {
		return nil, err
	}
	snap.TotalXP += q.XPReward

	newLevel, err := LevelForXP(snap.TotalXP)
	if err != nil {
		return nil, err
	}
	coinsFromAch, unlocked, err := c.newAchievements(&snap, newLevel)
	if err != nil {
		return nil, err
	}

	q.CompletedAt = &now
	if err := c.store.CommitQuestReward(q, &snap, unlocked); err != nil {
		return nil, err
	}

	if err := c.store.LogEvent(userID, "quest_complete", q.XPReward, map[string]interface{}{
		"quest_id":    q.ID,
		"quest_type":  string(q.Type),
		"coin_reward": q.CoinReward,
	}); err != nil {
		log.Printf("[progress] failed to log quest completion for user %d: %v", userID, err)
	}

	reward := &models.QuestReward{
		QuestID:     q.ID,
		CoinsEarned: q.CoinReward + coinsFromAch,
		XPEarned:    q.XPReward,
		LeveledUp:   newLevel > prevLevel,
		NewLevel:    newLevel,
	}
	if len(unlocked) > 0 {
		reward.AchievementEarned = &unlocked[0]
	}
	return reward, nil
}

// AbandonQuest removes an active quest. Completed quests are part of
// the user's history and cannot be abandoned.
func (c *Controller) AbandonQuest(userID, questID int64) error {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	q, err := c.store.GetQuest(userID, questID)
	if err != nil {
		return err
	}
	if q.CompletedAt != nil {
		return fmt.Errorf("%w: quest %d is already completed", ErrNotFound, questID)
	}
	if err := c.store.DeleteQuest(userID, questID); err != nil {
		return err
	}
	if err := c.store.LogEvent(userID, "quest_abandon", 0, map[string]interface{}{
		"quest_id": questID,
	}); err != nil {
		log.Printf("[progress] failed to log quest abandon for user %d: %v", userID, err)
	}
	return nil
}

// SweepExpiredQuests deletes every uncompleted quest whose expiry has
// passed. Meant to run from a scheduler.
func (c *Controller) SweepExpiredQuests() (int64, error) {
	n, err := c.store.DeleteExpiredQuests(c.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[progress] swept %d expired quests", n)
	}
	return n, nil
}
