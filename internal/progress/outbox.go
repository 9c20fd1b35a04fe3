package progress

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// RemoteSyncer pushes a user's progress payload to a remote backend.
type RemoteSyncer interface {
	Push(ctx context.Context, userID int64, payload []byte) error
}

// HTTPSyncer ships outbox payloads to a REST backend.
type HTTPSyncer struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSyncer(baseURL string) *HTTPSyncer {
	return &HTTPSyncer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSyncer) Push(ctx context.Context, userID int64, payload []byte) error {
	url := fmt.Sprintf("%s/v1/users/%d/progress", s.BaseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sync backend returned status %d", resp.StatusCode)
	}
	return nil
}

// ── Sync Pass ───────────────────────────────────────────────

// RunSyncPass drains due outbox entries to the remote backend.
// Entries that fail stay queued with exponential backoff. Returns the
// number of entries successfully synced.
func (c *Controller) RunSyncPass(ctx context.Context, limit int) int {
	if c.syncer == nil {
		return 0
	}
	now := c.clock.Now()
	entries, err := c.store.DueSyncEntries(now, limit)
	if err != nil {
		log.Printf("[sync] failed to load outbox entries: %v", err)
		return 0
	}

	synced := 0
	for _, entry := range entries {
		err := c.syncer.Push(ctx, entry.UserID, entry.Payload)
		if err != nil {
			retry := now.Add(syncBackoff(entry.Attempts + 1))
			log.Printf("[sync] push failed for user %d (attempt %d): %v", entry.UserID, entry.Attempts+1, err)
			if rerr := c.store.ResolveSyncEntry(entry, false, retry); rerr != nil {
				log.Printf("[sync] failed to reschedule outbox entry %d: %v", entry.ID, rerr)
			}
			continue
		}
		if err := c.store.ResolveSyncEntry(entry, true, time.Time{}); err != nil {
			log.Printf("[sync] failed to clear outbox entry %d: %v", entry.ID, err)
			continue
		}
		synced++
	}
	return synced
}

// syncBackoff doubles the retry delay per attempt, capped at an hour.
func syncBackoff(attempts int) time.Duration {
	d := time.Minute
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= time.Hour {
			return time.Hour
		}
	}
	return d
}
