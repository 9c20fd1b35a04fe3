package database

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "lingua_user")
	password := getEnv("DB_PASSWORD", "lingua_password")
	dbname := getEnv("DB_NAME", "lingua_prep")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		username VARCHAR(50) UNIQUE,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS user_progress (
		user_id                  BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		version                  BIGINT NOT NULL DEFAULT 0,
		total_xp                 BIGINT NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
		coins                    BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
		current_streak           INT NOT NULL DEFAULT 0,
		longest_streak           INT NOT NULL DEFAULT 0,
		last_activity_date       DATE,
		streak_freezes_available INT NOT NULL DEFAULT 0,
		last_broken_streak       INT NOT NULL DEFAULT 0,
		streak_broken_at         TIMESTAMP WITH TIME ZONE,
		words_learned            BIGINT NOT NULL DEFAULT 0,
		lessons_completed        BIGINT NOT NULL DEFAULT 0,
		minutes_studied          BIGINT NOT NULL DEFAULT 0,
		hint_reveals             INT NOT NULL DEFAULT 0,
		question_skips           INT NOT NULL DEFAULT 0,
		xp_boost_until           TIMESTAMP WITH TIME ZONE,
		sync_pending             BOOLEAN NOT NULL DEFAULT FALSE,
		created_at               TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at               TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS lesson_sessions (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		session_id    VARCHAR(64) NOT NULL,
		language_code VARCHAR(20),
		completed_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(user_id, session_id)
	);

	CREATE TABLE IF NOT EXISTS quests (
		id               BIGSERIAL PRIMARY KEY,
		user_id          BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		quest_type       VARCHAR(30) NOT NULL,
		description      VARCHAR(300) NOT NULL,
		current_progress INT NOT NULL DEFAULT 0 CHECK (current_progress >= 0),
		target_value     INT NOT NULL CHECK (target_value > 0),
		coin_reward      BIGINT NOT NULL DEFAULT 0 CHECK (coin_reward >= 0),
		xp_reward        BIGINT NOT NULL DEFAULT 0 CHECK (xp_reward >= 0),
		difficulty_tier  VARCHAR(20),
		expires_at       TIMESTAMP WITH TIME ZONE,
		completed_at     TIMESTAMP WITH TIME ZONE,
		created_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS quest_events (
		id        BIGSERIAL PRIMARY KEY,
		quest_id  BIGINT NOT NULL REFERENCES quests(id) ON DELETE CASCADE,
		event_id  VARCHAR(64) NOT NULL,
		seen_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(quest_id, event_id)
	);

	CREATE TABLE IF NOT EXISTS progress_events (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		event_type  VARCHAR(50) NOT NULL,
		xp_amount   BIGINT NOT NULL DEFAULT 0,
		metadata    JSONB,
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS purchases (
		id           BIGSERIAL PRIMARY KEY,
		receipt_id   VARCHAR(36) NOT NULL UNIQUE,
		user_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_id      VARCHAR(50) NOT NULL,
		cost         BIGINT NOT NULL,
		purchased_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS achievements (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		achievement VARCHAR(100) NOT NULL,
		earned_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(user_id, achievement)
	);

	CREATE TABLE IF NOT EXISTS sync_outbox (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		payload       JSONB NOT NULL,
		attempts      INT NOT NULL DEFAULT 0,
		next_retry_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		created_at    TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_quests_user ON quests(user_id, completed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_quests_expiry ON quests(expires_at) WHERE expires_at IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON lesson_sessions(user_id, completed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_events_user ON progress_events(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_user ON purchases(user_id, purchased_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_achievements_user ON achievements(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_due ON sync_outbox(next_retry_at)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index failed: %w", err)
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// generateUsernameBase creates a lowercase alphanumeric base from a user's name.
func generateUsernameBase(name string) string {
	var result []byte
	for _, c := range strings.ToLower(name) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			result = append(result, byte(c))
		}
	}
	if len(result) == 0 {
		return "user"
	}
	if len(result) > 12 {
		result = result[:12]
	}
	return string(result)
}

// rng is a seeded random source for username generation.
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// GenerateUsername creates a unique username from a name by appending random
// digits. Caller should retry on a unique constraint violation.
func GenerateUsername(name string) string {
	base := generateUsernameBase(name)
	return fmt.Sprintf("%s%04d", base, rng.Intn(10000))
}
