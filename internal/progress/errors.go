// Package progress implements the progress and gamification engine:
// XP and levels, daily streaks with freeze semantics, quests, the coin
// economy, and the single controller the host app calls for every
// mutation of a user's progress record.
package progress

import "errors"

// Engine error taxonomy. Every failure an operation can report is one
// of these, wrapped with detail, so hosts can branch with errors.Is
// instead of string matching.
var (
	// ErrInvalidArgument rejects bad input: negative XP, future
	// activity dates, unknown quest types, non-positive deltas.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientFunds means a coin debit exceeds the balance.
	// The balance is left untouched.
	ErrInsufficientFunds = errors.New("insufficient coins")

	// ErrQuestNotReady means a quest's progress has not reached its
	// target, or the quest has expired and become inert.
	ErrQuestNotReady = errors.New("quest not ready")

	// ErrAlreadyCompleted guards one-time operations: quest rewards
	// and lesson sessions are paid/counted at most once.
	ErrAlreadyCompleted = errors.New("already completed")

	// ErrNotFound means the quest or shop item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a concurrent mutation was detected by the
	// store's version check. The caller should reload and retry.
	ErrConflict = errors.New("concurrent modification")

	// ErrPersistence means the backing store rejected a write. No
	// partial mutation is observable: the in-memory change is
	// discarded along with the error.
	ErrPersistence = errors.New("persistence failure")
)
