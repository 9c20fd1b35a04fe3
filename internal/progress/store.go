package progress

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lingua-prep/backend/internal/models"
)

// Store is the durable record store behind the controller. The engine
// treats it as an abstract per-user record store: get a snapshot,
// mutate it in memory, put it back with a version check. Compound
// writes that must be atomic (lesson session + snapshot, quest reward
// + snapshot) are single store operations so no partial state is ever
// observable.
type Store interface {
	GetOrCreateProgress(userID int64) (*models.UserProgress, error)

	// SaveProgress persists the snapshot if its Version still matches
	// the stored row, bumping the version and queueing a remote-sync
	// outbox entry. Fails with ErrConflict on a version mismatch.
	SaveProgress(p *models.UserProgress) error

	// CommitLesson records a lesson session id, any newly earned
	// achievements, and the snapshot in one atomic write. A replayed
	// session id fails with ErrAlreadyCompleted and changes nothing.
	CommitLesson(p *models.UserProgress, sessionID, languageCode string, achievements []string) error

	// CommitQuestReward marks the quest completed and persists the
	// achievements and snapshot atomically. Fails with
	// ErrAlreadyCompleted if the quest was completed by an earlier
	// call.
	CommitQuestReward(q *models.Quest, p *models.UserProgress, achievements []string) error

	ListQuests(userID int64) ([]models.Quest, error)
	GetQuest(userID, questID int64) (*models.Quest, error)
	InsertQuest(q *models.Quest) error
	SaveQuestProgress(q *models.Quest) error
	DeleteQuest(userID, questID int64) error

	// SeenQuestEvent records a progress event id, reporting true if it
	// was already recorded (the delta must then be skipped).
	SeenQuestEvent(questID int64, eventID string) (bool, error)

	DeleteExpiredQuests(cutoff time.Time) (int64, error)

	GetAchievements(userID int64) ([]string, error)

	LogEvent(userID int64, eventType string, xpAmount int64, metadata map[string]interface{}) error
	RecordPurchase(userID int64, receiptID, itemID string, cost int64) error

	DueSyncEntries(now time.Time, limit int) ([]SyncEntry, error)
	ResolveSyncEntry(entry SyncEntry, synced bool, nextRetry time.Time) error
}

// SyncEntry is one queued remote-sync payload.
type SyncEntry struct {
	ID       int64
	UserID   int64
	Payload  []byte
	Attempts int
}

// ── Postgres Implementation ─────────────────────────────────

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const progressColumns = `user_id, version, total_xp, coins,
	current_streak, longest_streak, last_activity_date,
	streak_freezes_available, last_broken_streak, streak_broken_at,
	words_learned, lessons_completed, minutes_studied,
	hint_reveals, question_skips, xp_boost_until, sync_pending,
	created_at, updated_at`

func scanProgress(row *sql.Row) (*models.UserProgress, error) {
	var p models.UserProgress
	err := row.Scan(&p.UserID, &p.Version, &p.TotalXP, &p.Coins,
		&p.CurrentStreak, &p.LongestStreak, &p.LastActivityDate,
		&p.StreakFreezesAvailable, &p.LastBrokenStreak, &p.StreakBrokenAt,
		&p.WordsLearned, &p.LessonsCompleted, &p.MinutesStudied,
		&p.HintReveals, &p.QuestionSkips, &p.XPBoostUntil, &p.SyncPending,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetOrCreateProgress(userID int64) (*models.UserProgress, error) {
	_, err := s.db.Exec(
		`INSERT INTO user_progress (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert progress: %v", ErrPersistence, err)
	}

	p, err := scanProgress(s.db.QueryRow(
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		return nil, fmt.Errorf("%w: get progress: %v", ErrPersistence, err)
	}
	return p, nil
}

// saveProgressTx applies the versioned snapshot write plus the outbox
// entry inside an open transaction.
func saveProgressTx(tx *sql.Tx, p *models.UserProgress) error {
	result, err := tx.Exec(
		`UPDATE user_progress SET
		    version = version + 1,
		    total_xp = $3, coins = $4,
		    current_streak = $5, longest_streak = $6, last_activity_date = $7,
		    streak_freezes_available = $8, last_broken_streak = $9, streak_broken_at = $10,
		    words_learned = $11, lessons_completed = $12, minutes_studied = $13,
		    hint_reveals = $14, question_skips = $15, xp_boost_until = $16,
		    sync_pending = TRUE, updated_at = NOW()
		 WHERE user_id = $1 AND version = $2`,
		p.UserID, p.Version,
		p.TotalXP, p.Coins,
		p.CurrentStreak, p.LongestStreak, p.LastActivityDate,
		p.StreakFreezesAvailable, p.LastBrokenStreak, p.StreakBrokenAt,
		p.WordsLearned, p.LessonsCompleted, p.MinutesStudied,
		p.HintReveals, p.QuestionSkips, p.XPBoostUntil,
	)
	if err != nil {
		return fmt.Errorf("%w: update progress: %v", ErrPersistence, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: progress version %d is stale", ErrConflict, p.Version)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: marshal snapshot: %v", ErrPersistence, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO sync_outbox (user_id, payload) VALUES ($1, $2)`,
		p.UserID, payload,
	); err != nil {
		return fmt.Errorf("%w: enqueue sync: %v", ErrPersistence, err)
	}

	p.Version++
	p.SyncPending = true
	return nil
}

func (s *PostgresStore) SaveProgress(p *models.UserProgress) error {
	return s.inTx(func(tx *sql.Tx) error {
		return saveProgressTx(tx, p)
	})
}

func (s *PostgresStore) CommitLesson(p *models.UserProgress, sessionID, languageCode string, achievements []string) error {
	return s.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO lesson_sessions (user_id, session_id, language_code)
			 VALUES ($1, $2, $3)`,
			p.UserID, sessionID, languageCode,
		)
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				return fmt.Errorf("%w: lesson session %s was already counted", ErrAlreadyCompleted, sessionID)
			}
			return fmt.Errorf("%w: record session: %v", ErrPersistence, err)
		}
		if err := awardAchievementsTx(tx, p.UserID, achievements); err != nil {
			return err
		}
		return saveProgressTx(tx, p)
	})
}

func (s *PostgresStore) CommitQuestReward(q *models.Quest, p *models.UserProgress, achievements []string) error {
	return s.inTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(
			`UPDATE quests SET completed_at = $3
			 WHERE id = $1 AND user_id = $2 AND completed_at IS NULL`,
			q.ID, q.UserID, q.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: complete quest: %v", ErrPersistence, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("%w: quest %d reward was already paid", ErrAlreadyCompleted, q.ID)
		}
		if err := awardAchievementsTx(tx, p.UserID, achievements); err != nil {
			return err
		}
		return saveProgressTx(tx, p)
	})
}

// awardAchievementsTx inserts achievement rows inside the commit
// transaction, so an award is durable only when the snapshot carrying
// its coin credit is. A concurrent earner is resolved by the snapshot
// version check: the loser's inserts roll back with its transaction.
func awardAchievementsTx(tx *sql.Tx, userID int64, keys []string) error {
	for _, key := range keys {
		if _, err := tx.Exec(
			`INSERT INTO achievements (user_id, achievement) VALUES ($1, $2)
			 ON CONFLICT (user_id, achievement) DO NOTHING`,
			userID, key,
		); err != nil {
			return fmt.Errorf("%w: award achievement %s: %v", ErrPersistence, key, err)
		}
	}
	return nil
}

func (s *PostgresStore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

// ── Quests ──────────────────────────────────────────────────

const questColumns = `id, user_id, quest_type, description,
	current_progress, target_value, coin_reward, xp_reward,
	difficulty_tier, expires_at, completed_at, created_at`

func scanQuest(scan func(dest ...interface{}) error) (*models.Quest, error) {
	var q models.Quest
	var tier sql.NullString
	err := scan(&q.ID, &q.UserID, &q.Type, &q.Description,
		&q.CurrentProgress, &q.TargetValue, &q.CoinReward, &q.XPReward,
		&tier, &q.ExpiresAt, &q.CompletedAt, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.DifficultyTier = tier.String
	return &q, nil
}

func (s *PostgresStore) ListQuests(userID int64) ([]models.Quest, error) {
	rows, err := s.db.Query(
		`SELECT `+questColumns+` FROM quests
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list quests: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var quests []models.Quest
	for rows.Next() {
		q, err := scanQuest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan quest: %v", ErrPersistence, err)
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}

func (s *PostgresStore) GetQuest(userID, questID int64) (*models.Quest, error) {
	row := s.db.QueryRow(
		`SELECT `+questColumns+` FROM quests WHERE id = $1 AND user_id = $2`,
		questID, userID,
	)
	q, err := scanQuest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: quest %d", ErrNotFound, questID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get quest: %v", ErrPersistence, err)
	}
	return q, nil
}

func (s *PostgresStore) InsertQuest(q *models.Quest) error {
	var tier *string
	if q.DifficultyTier != "" {
		tier = &q.DifficultyTier
	}
	err := s.db.QueryRow(
		`INSERT INTO quests (user_id, quest_type, description, current_progress,
		    target_value, coin_reward, xp_reward, difficulty_tier, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		q.UserID, q.Type, q.Description, q.CurrentProgress,
		q.TargetValue, q.CoinReward, q.XPReward, tier, q.ExpiresAt,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert quest: %v", ErrPersistence, err)
	}
	return nil
}

func (s *PostgresStore) SaveQuestProgress(q *models.Quest) error {
	result, err := s.db.Exec(
		`UPDATE quests SET current_progress = $3
		 WHERE id = $1 AND user_id = $2 AND completed_at IS NULL`,
		q.ID, q.UserID, q.CurrentProgress,
	)
	if err != nil {
		return fmt.Errorf("%w: save quest progress: %v", ErrPersistence, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: quest %d", ErrNotFound, q.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteQuest(userID, questID int64) error {
	result, err := s.db.Exec(
		`DELETE FROM quests WHERE id = $1 AND user_id = $2`,
		questID, userID,
	)
	if err != nil {
		return fmt.Errorf("%w: delete quest: %v", ErrPersistence, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: quest %d", ErrNotFound, questID)
	}
	return nil
}

func (s *PostgresStore) SeenQuestEvent(questID int64, eventID string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO quest_events (quest_id, event_id) VALUES ($1, $2)
		 ON CONFLICT (quest_id, event_id) DO NOTHING`,
		questID, eventID,
	)
	if err != nil {
		return false, fmt.Errorf("%w: record quest event: %v", ErrPersistence, err)
	}
	rows, _ := result.RowsAffected()
	return rows == 0, nil
}

func (s *PostgresStore) DeleteExpiredQuests(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM quests
		 WHERE expires_at IS NOT NULL AND expires_at < $1 AND completed_at IS NULL`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired quests: %v", ErrPersistence, err)
	}
	return result.RowsAffected()
}

// ── Achievements ────────────────────────────────────────────

func (s *PostgresStore) GetAchievements(userID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT achievement FROM achievements WHERE user_id = $1 ORDER BY earned_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: get achievements: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var achievements []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("%w: scan achievement: %v", ErrPersistence, err)
		}
		achievements = append(achievements, a)
	}
	if achievements == nil {
		achievements = []string{}
	}
	return achievements, rows.Err()
}

// ── Event Log & Purchases ───────────────────────────────────

func (s *PostgresStore) LogEvent(userID int64, eventType string, xpAmount int64, metadata map[string]interface{}) error {
	var metaJSON *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err == nil {
			str := string(b)
			metaJSON = &str
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO progress_events (user_id, event_type, xp_amount, metadata)
		 VALUES ($1, $2, $3, $4)`,
		userID, eventType, xpAmount, metaJSON,
	)
	return err
}

func (s *PostgresStore) RecordPurchase(userID int64, receiptID, itemID string, cost int64) error {
	_, err := s.db.Exec(
		`INSERT INTO purchases (user_id, receipt_id, item_id, cost) VALUES ($1, $2, $3, $4)`,
		userID, receiptID, itemID, cost,
	)
	if err != nil {
		return fmt.Errorf("%w: record purchase: %v", ErrPersistence, err)
	}
	return nil
}

// ── Sync Outbox ─────────────────────────────────────────────

func (s *PostgresStore) DueSyncEntries(now time.Time, limit int) ([]SyncEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, payload, attempts FROM sync_outbox
		 WHERE next_retry_at <= $1
		 ORDER BY id
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: due sync entries: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Payload, &e.Attempts); err != nil {
			return nil, fmt.Errorf("%w: scan sync entry: %v", ErrPersistence, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) ResolveSyncEntry(entry SyncEntry, synced bool, nextRetry time.Time) error {
	if !synced {
		_, err := s.db.Exec(
			`UPDATE sync_outbox SET attempts = attempts + 1, next_retry_at = $2 WHERE id = $1`,
			entry.ID, nextRetry,
		)
		if err != nil {
			return fmt.Errorf("%w: defer sync entry: %v", ErrPersistence, err)
		}
		return nil
	}

	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM sync_outbox WHERE id = $1`, entry.ID); err != nil {
			return fmt.Errorf("%w: delete sync entry: %v", ErrPersistence, err)
		}
		// Clear the pending flag once the user's queue drains.
		var remaining int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM sync_outbox WHERE user_id = $1`, entry.UserID,
		).Scan(&remaining); err != nil {
			return fmt.Errorf("%w: count sync entries: %v", ErrPersistence, err)
		}
		if remaining == 0 {
			if _, err := tx.Exec(
				`UPDATE user_progress SET sync_pending = FALSE WHERE user_id = $1`,
				entry.UserID,
			); err != nil {
				return fmt.Errorf("%w: clear sync flag: %v", ErrPersistence, err)
			}
		}
		return nil
	})
}
