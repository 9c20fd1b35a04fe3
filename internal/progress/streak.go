package progress

import (
	"fmt"
	"time"

	"github.com/lingua-prep/backend/internal/models"
)

// Tracker applies the daily-streak rules to a progress snapshot.
//
// Dates are compared at calendar-day granularity in one fixed policy
// time zone, chosen by the host at construction, so a client's local
// clock can never shift a day boundary and double-count or break a
// streak by accident.
type Tracker struct {
	loc *time.Location
}

// NewTracker creates a streak tracker using loc as the policy time
// zone. A nil loc means UTC.
func NewTracker(loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{loc: loc}
}

// StreakChange describes what RecordActivity did to the streak.
type StreakChange struct {
	Streak         int
	Extended       bool
	FreezeConsumed bool
	Broken         bool
}

// dayOf truncates a timestamp to its calendar day in the policy zone,
// normalized to UTC midnight so day arithmetic is exact across DST.
func (t *Tracker) dayOf(ts time.Time) time.Time {
	y, m, d := ts.In(t.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// utcMidnight truncates an already-normalized stored day to UTC
// midnight without any zone conversion.
func utcMidnight(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordActivity advances the streak state on p for a qualifying
// activity at the given time.
//
//   - Same calendar day as the last activity: no-op.
//   - Next calendar day: streak increments.
//   - Exactly one missed day with a freeze available: one freeze is
//     consumed and the streak is preserved unchanged; the freeze
//     covers the missed day.
//   - Any longer gap, or no freeze: the streak resets to 1 and the
//     broken run is recorded so a streak repair can restore it.
//
// A future activity date is rejected so a client cannot advance a
// streak ahead of time.
func (t *Tracker) RecordActivity(p *models.UserProgress, now, activity time.Time) (StreakChange, error) {
	today := t.dayOf(activity)
	if today.After(t.dayOf(now)) {
		return StreakChange{}, fmt.Errorf("%w: activity date %s is in the future",
			ErrInvalidArgument, today.Format("2006-01-02"))
	}

	if p.LastActivityDate == nil {
		p.CurrentStreak = 1
		p.LastActivityDate = &today
		if p.CurrentStreak > p.LongestStreak {
			p.LongestStreak = p.CurrentStreak
		}
		return StreakChange{Streak: 1, Extended: true}, nil
	}

	// LastActivityDate is already a normalized UTC midnight (dayOf
	// output, and what the DATE column scans back as). Re-running it
	// through the policy zone would shift it a day west of UTC.
	last := utcMidnight(*p.LastActivityDate)
	if today.Equal(last) {
		// Already counted today.
		return StreakChange{Streak: p.CurrentStreak}, nil
	}
	if today.Before(last) {
		return StreakChange{}, fmt.Errorf("%w: activity date %s precedes last recorded day %s",
			ErrInvalidArgument, today.Format("2006-01-02"), last.Format("2006-01-02"))
	}

	change := StreakChange{}
	days := int(today.Sub(last).Hours() / 24)
	switch {
	case days == 1:
		p.CurrentStreak++
		change.Extended = true
	case days == 2 && p.StreakFreezesAvailable > 0:
		// One missed day covered by a freeze. The streak itself is
		// unchanged: the freeze forgives the gap, it does not count
		// the missed day as activity.
		p.StreakFreezesAvailable--
		change.FreezeConsumed = true
	default:
		p.LastBrokenStreak = p.CurrentStreak
		brokenAt := now
		p.StreakBrokenAt = &brokenAt
		p.CurrentStreak = 1
		change.Broken = true
	}

	p.LastActivityDate = &today
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	change.Streak = p.CurrentStreak
	return change, nil
}
