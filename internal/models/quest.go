package models

import "time"

// ── Quest Types ───────────────────────────────────────────

// QuestType classifies how a quest's progress is driven.
type QuestType string

const (
	QuestDailyStreak  QuestType = "daily_streak"
	QuestXPMilestone  QuestType = "xp_milestone"
	QuestLessonCount  QuestType = "lesson_count"
	QuestSkillMastery QuestType = "skill_mastery"
	QuestCustom       QuestType = "custom"
)

// ValidQuestType reports whether t is one of the known quest types.
func ValidQuestType(t QuestType) bool {
	switch t {
	case QuestDailyStreak, QuestXPMilestone, QuestLessonCount, QuestSkillMastery, QuestCustom:
		return true
	}
	return false
}

// ── Difficulty Tier Constants ─────────────────────────────

const (
	TierEasy      = "easy"
	TierStandard  = "standard"
	TierHard      = "hard"
	TierLegendary = "legendary"
)

// Quest is a bounded objective with a numeric target, an optional
// expiry, and a one-time reward.
type Quest struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Type            QuestType  `json:"quest_type"`
	Description     string     `json:"description"`
	CurrentProgress int        `json:"current_progress"`
	TargetValue     int        `json:"target_value"`
	CoinReward      int64      `json:"coin_reward"`
	XPReward        int64      `json:"xp_reward"`
	DifficultyTier  string     `json:"difficulty_tier,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsCompleted reports whether the quest's reward has been paid out.
// Progress reaching the target alone does not complete a quest; the
// host must invoke the complete operation.
func (q Quest) IsCompleted() bool {
	return q.CompletedAt != nil && q.CurrentProgress >= q.TargetValue
}

// IsExpired reports whether the quest is past its expiry. Expired
// quests are inert: they can no longer be progressed or completed.
func (q Quest) IsExpired(now time.Time) bool {
	return q.ExpiresAt != nil && now.After(*q.ExpiresAt)
}

type QuestsResponse struct {
	Quests []Quest `json:"quests"`
}

type QuestProgressResponse struct {
	Quest       Quest `json:"quest"`
	Completable bool  `json:"completable"`
}
