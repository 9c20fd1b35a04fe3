package progress

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lingua-prep/backend/internal/models"
)

// Controller is the single entry point for every mutation of a user's
// progress record. All operations serialize per user, mutate a copy of
// the snapshot, and persist it in one versioned write, so callers
// never observe a partial mutation and two racing operations cannot
// lose each other's updates.
type Controller struct {
	store   Store
	streaks *Tracker
	clock   Clock
	syncer  RemoteSyncer

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewController creates the controller. A nil streaks tracker defaults
// to UTC day boundaries, a nil clock to the system clock, and a nil
// syncer disables remote sync (entries still queue in the outbox).
func NewController(store Store, streaks *Tracker, clock Clock, syncer RemoteSyncer) *Controller {
	if streaks == nil {
		streaks = NewTracker(nil)
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Controller{
		store:   store,
		streaks: streaks,
		clock:   clock,
		syncer:  syncer,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations for one user.
func (c *Controller) userLock(userID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[userID] = l
	}
	return l
}

// ── Load ────────────────────────────────────────────────────

func (c *Controller) LoadProgress(userID int64) (*models.ProgressResponse, error) {
	p, err := c.store.GetOrCreateProgress(userID)
	if err != nil {
		return nil, err
	}

	level, err := LevelForXP(p.TotalXP)
	if err != nil {
		return nil, err
	}
	toNext, _ := XPToNext(p.TotalXP)
	frac, _ := ProgressToNext(p.TotalXP)

	achievements, err := c.store.GetAchievements(userID)
	if err != nil {
		achievements = []string{}
	}

	now := c.clock.Now()
	resp := &models.ProgressResponse{
		UserID:                 p.UserID,
		TotalXP:                p.TotalXP,
		Level:                  level,
		XPToNextLevel:          toNext,
		ProgressToNextLevel:    frac,
		Coins:                  p.Coins,
		CurrentStreak:          p.CurrentStreak,
		LongestStreak:          p.LongestStreak,
		StreakFreezesAvailable: p.StreakFreezesAvailable,
		WordsLearned:           p.WordsLearned,
		LessonsCompleted:       p.LessonsCompleted,
		MinutesStudied:         p.MinutesStudied,
		HintReveals:            p.HintReveals,
		QuestionSkips:          p.QuestionSkips,
		XPBoostActive:          p.XPBoostUntil != nil && p.XPBoostUntil.After(now),
		SyncPending:            p.SyncPending,
		Achievements:           achievements,
	}
	if p.LastActivityDate != nil {
		resp.LastActivityDate = p.LastActivityDate.Format("2006-01-02")
	}
	return resp, nil
}

// ── Lesson Completion ───────────────────────────────────────

// CompleteLesson applies one finished learning session: XP, counters,
// streak, level detection, achievements, and quest progress. The
// session id makes it safe against replay — a second call for the
// same session fails with ErrAlreadyCompleted and changes nothing.
func (c *Controller) CompleteLesson(userID int64, req models.CompleteLessonRequest) (*models.LessonCompletionResult, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidArgument)
	}
	if req.LanguageCode == "" {
		return nil, fmt.Errorf("%w: language_code is required", ErrInvalidArgument)
	}
	if req.XPEarned < 0 {
		return nil, fmt.Errorf("%w: xp_earned must be non-negative, got %d", ErrInvalidArgument, req.XPEarned)
	}
	if req.WordsLearned < 0 || req.MinutesStudied < 0 {
		return nil, fmt.Errorf("%w: counters must be non-negative", ErrInvalidArgument)
	}

	now := c.clock.Now()
	activity := now
	if req.ActivityDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.ActivityDate, c.streaks.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: activity_date %q is not YYYY-MM-DD", ErrInvalidArgument, req.ActivityDate)
		}
		activity = parsed
	}

	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p, err := c.store.GetOrCreateProgress(userID)
	if err != nil {
		return nil, err
	}
	snap := *p

	prevLevel, err := LevelForXP(snap.TotalXP)
	if err != nil {
		return nil, err
	}

	xp := req.XPEarned
	if snap.XPBoostUntil != nil && snap.XPBoostUntil.After(now) {
		xp *= 2
	}

	snap.TotalXP += xp
	snap.LessonsCompleted++
	snap.WordsLearned += req.WordsLearned
	snap.MinutesStudied += req.MinutesStudied

	change, err := c.streaks.RecordActivity(&snap, now, activity)
	if err != nil {
		return nil, err
	}

	newLevel, err := LevelForXP(snap.TotalXP)
	if err != nil {
		return nil, err
	}

	coinsEarned, unlocked, err := c.newAchievements(&snap, newLevel)
	if err != nil {
		return nil, err
	}

	if err := c.store.CommitLesson(&snap, req.SessionID, req.LanguageCode, unlocked); err != nil {
		return nil, err
	}

	c.advanceQuestsForLesson(userID, xp, change.Streak, req.SessionID)

	if err := c.store.LogEvent(userID, "lesson_complete", xp, map[string]interface{}{
		"language_code": req.LanguageCode,
		"session_id":    req.SessionID,
		"base_xp":       req.XPEarned,
		"streak":        change.Streak,
	}); err != nil {
		log.Printf("[progress] failed to log lesson completion for user %d: %v", userID, err)
	}

	if unlocked == nil {
		unlocked = []string{}
	}
	return &models.LessonCompletionResult{
		XPEarned:             xp,
		TotalXP:              snap.TotalXP,
		LeveledUp:            newLevel > prevLevel,
		PreviousLevel:        prevLevel,
		NewLevel:             newLevel,
		NewStreak:            change.Streak,
		StreakExtended:       change.Extended,
		FreezeConsumed:       change.FreezeConsumed,
		CoinsEarned:          coinsEarned,
		AchievementsUnlocked: unlocked,
	}, nil
}

// newAchievements credits any newly qualified achievements onto the
// snapshot and returns the coin total plus the unlocked keys. The
// award rows themselves are written by the commit, in the same
// transaction as the snapshot, so a failed commit leaves neither the
// award nor its coins behind and a retry can still pay it.
func (c *Controller) newAchievements(snap *models.UserProgress, level int) (int64, []string, error) {
	earned, err := c.store.GetAchievements(snap.UserID)
	if err != nil {
		return 0, nil, err
	}
	have := make(map[string]bool, len(earned))
	for _, key := range earned {
		have[key] = true
	}

	var coins int64
	var unlocked []string
	for _, key := range CheckAchievements(snap, level) {
		if have[key] {
			continue
		}
		if def, ok := Achievements[key]; ok {
			snap.Coins += def.Coins
			coins += def.Coins
		}
		unlocked = append(unlocked, key)
	}
	return coins, unlocked, nil
}

// advanceQuestsForLesson moves matching quests forward after a lesson
// commit. Failures here never fail the lesson; they only log.
func (c *Controller) advanceQuestsForLesson(userID int64, xp int64, streak int, sessionID string) {
	quests, err := c.store.ListQuests(userID)
	if err != nil {
		log.Printf("[progress] failed to list quests for user %d: %v", userID, err)
		return
	}

	now := c.clock.Now()
	for i := range quests {
		q := &quests[i]
		if q.CompletedAt != nil || q.IsExpired(now) {
			continue
		}

		var delta int
		switch q.Type {
		case models.QuestLessonCount:
			delta = 1
		case models.QuestXPMilestone:
			delta = int(xp)
		case models.QuestDailyStreak:
			// Streak quests track the streak itself, not an increment.
			if streak > q.CurrentProgress {
				delta = streak - q.CurrentProgress
			}
		default:
			// skill_mastery and custom quests advance via explicit
			// progress calls from the host.
			continue
		}
		if delta <= 0 {
			continue
		}

		seen, err := c.store.SeenQuestEvent(q.ID, sessionID)
		if err != nil || seen {
			continue
		}

		q.CurrentProgress = clampProgress(q.CurrentProgress+delta, q.TargetValue)
		if err := c.store.SaveQuestProgress(q); err != nil {
			log.Printf("[progress] failed to advance quest %d: %v", q.ID, err)
		}
	}
}

// ── Purchases ───────────────────────────────────────────────

// PurchaseItem validates and applies a shop purchase atomically:
// debit, effect, and persist either all happen or none do.
func (c *Controller) PurchaseItem(userID int64, itemID string) (*models.PurchaseResult, error) {
	item, ok := Catalog[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: shop item %q", ErrNotFound, itemID)
	}

	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p, err := c.store.GetOrCreateProgress(userID)
	if err != nil {
		return nil, err
	}
	snap := *p
	now := c.clock.Now()

	if err := Debit(&snap, item.Cost); err != nil {
		return nil, err
	}
	// An effect failure discards the snapshot, and the debit with it.
	msg, err := applyEffect(&snap, item, now)
	if err != nil {
		return nil, err
	}

	if err := c.store.SaveProgress(&snap); err != nil {
		return nil, err
	}
	receiptID := uuid.NewString()
	if err := c.store.RecordPurchase(userID, receiptID, item.ID, item.Cost); err != nil {
		log.Printf("[progress] failed to record purchase %s for user %d: %v", item.ID, userID, err)
	}
	if err := c.store.LogEvent(userID, "purchase", 0, map[string]interface{}{
		"item_id":    item.ID,
		"cost":       item.Cost,
		"receipt_id": receiptID,
	}); err != nil {
		log.Printf("[progress] failed to log purchase for user %d: %v", userID, err)
	}

	return &models.PurchaseResult{
		ItemID:         item.ID,
		ReceiptID:      receiptID,
		CoinsRemaining: snap.Coins,
		Message:        msg,
	}, nil
}

func clampProgress(progress, target int) int {
	if progress > target {
		return target
	}
	return progress
}
