package models

import "time"

// ── Core Progress Record ──────────────────────────────────

// UserProgress is the single durable progress record for one user.
// It is mutated only through the progress controller so the engine
// invariants hold: coins never go negative, the level is always
// recomputed from total_xp, and the activity counters are monotonic.
type UserProgress struct {
	UserID                 int64      `json:"user_id"`
	Version                int64      `json:"version"`
	TotalXP                int64      `json:"total_xp"`
	Coins                  int64      `json:"coins"`
	CurrentStreak          int        `json:"current_streak"`
	LongestStreak          int        `json:"longest_streak"`
	LastActivityDate       *time.Time `json:"last_activity_date"`
	StreakFreezesAvailable int        `json:"streak_freezes_available"`
	LastBrokenStreak       int        `json:"last_broken_streak"`
	StreakBrokenAt         *time.Time `json:"streak_broken_at,omitempty"`
	WordsLearned           int64      `json:"words_learned"`
	LessonsCompleted       int64      `json:"lessons_completed"`
	MinutesStudied         int64      `json:"minutes_studied"`
	HintReveals            int        `json:"hint_reveals"`
	QuestionSkips          int        `json:"question_skips"`
	XPBoostUntil           *time.Time `json:"xp_boost_until,omitempty"`
	SyncPending            bool       `json:"sync_pending"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// ── Request Types ─────────────────────────────────────────

type CompleteLessonRequest struct {
	// SessionID identifies one logical learning session. Replaying the
	// same session id is rejected, so a client firing the completion
	// twice cannot double-credit XP.
	SessionID      string `json:"session_id"`
	LanguageCode   string `json:"language_code"`
	XPEarned       int64  `json:"xp_earned"`
	WordsLearned   int64  `json:"words_learned"`
	MinutesStudied int64  `json:"minutes_studied"`
	// ActivityDate ("2006-01-02") is set by clients replaying lessons
	// finished offline. Empty means "now".
	ActivityDate string `json:"activity_date,omitempty"`
}

type PurchaseRequest struct {
	ItemID string `json:"item_id"`
}

type QuestProgressRequest struct {
	Delta int `json:"delta"`
	// EventID dedupes replayed progress events. Optional.
	EventID string `json:"event_id,omitempty"`
}

// ── Response Types ────────────────────────────────────────

type ProgressResponse struct {
	UserID                 int64    `json:"user_id"`
	TotalXP                int64    `json:"total_xp"`
	Level                  int      `json:"level"`
	XPToNextLevel          int64    `json:"xp_to_next_level"`
	ProgressToNextLevel    float64  `json:"progress_to_next_level"`
	Coins                  int64    `json:"coins"`
	CurrentStreak          int      `json:"current_streak"`
	LongestStreak          int      `json:"longest_streak"`
	LastActivityDate       string   `json:"last_activity_date,omitempty"`
	StreakFreezesAvailable int      `json:"streak_freezes_available"`
	WordsLearned           int64    `json:"words_learned"`
	LessonsCompleted       int64    `json:"lessons_completed"`
	MinutesStudied         int64    `json:"minutes_studied"`
	HintReveals            int      `json:"hint_reveals"`
	QuestionSkips          int      `json:"question_skips"`
	XPBoostActive          bool     `json:"xp_boost_active"`
	SyncPending            bool     `json:"sync_pending"`
	Achievements           []string `json:"achievements"`
}

type LessonCompletionResult struct {
	XPEarned             int64    `json:"xp_earned"`
	TotalXP              int64    `json:"total_xp"`
	LeveledUp            bool     `json:"leveled_up"`
	PreviousLevel        int      `json:"previous_level"`
	NewLevel             int      `json:"new_level"`
	NewStreak            int      `json:"new_streak"`
	StreakExtended       bool     `json:"streak_extended"`
	FreezeConsumed       bool     `json:"freeze_consumed"`
	CoinsEarned          int64    `json:"coins_earned"`
	AchievementsUnlocked []string `json:"achievements_unlocked"`
}

type PurchaseResult struct {
	ItemID         string `json:"item_id"`
	ReceiptID      string `json:"receipt_id"`
	CoinsRemaining int64  `json:"coins_remaining"`
	Message        string `json:"message"`
}

type QuestReward struct {
	QuestID           int64   `json:"quest_id"`
	CoinsEarned       int64   `json:"coins_earned"`
	XPEarned          int64   `json:"xp_earned"`
	LeveledUp         bool    `json:"leveled_up"`
	NewLevel          int     `json:"new_level"`
	AchievementEarned *string `json:"achievement_earned,omitempty"`
}
