package progress

import "fmt"

// MaxLevel caps the level curve. XP keeps accumulating past the cap
// but no further levels are granted.
const MaxLevel = 100

// XPForLevel returns the cumulative XP threshold for reaching a level.
// Level 1 is 0 XP; each level band grows by 50 XP (100, 150, 200, ...)
// so the curve is strictly increasing up to the cap. XP exactly on a
// threshold counts as having reached that level.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	n := int64(level - 1)
	return 100*n + 25*n*(n-1)
}

// LevelForXP returns the level for a given XP total. Negative XP is
// rejected; any non-negative total yields a level of at least 1.
func LevelForXP(xp int64) (int, error) {
	if xp < 0 {
		return 0, fmt.Errorf("%w: xp must be non-negative, got %d", ErrInvalidArgument, xp)
	}
	level := 1
	for level < MaxLevel {
		if xp < XPForLevel(level+1) {
			return level, nil
		}
		level++
	}
	return MaxLevel, nil
}

// XPToNext returns the XP remaining until the next level. Zero at the
// level cap.
func XPToNext(xp int64) (int64, error) {
	level, err := LevelForXP(xp)
	if err != nil {
		return 0, err
	}
	if level >= MaxLevel {
		return 0, nil
	}
	remaining := XPForLevel(level+1) - xp
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ProgressToNext returns the fraction of the current level band that
// has been earned, in [0, 1). Exactly on a boundary is 0; the level
// cap reports 0.
func ProgressToNext(xp int64) (float64, error) {
	level, err := LevelForXP(xp)
	if err != nil {
		return 0, err
	}
	if level >= MaxLevel {
		return 0, nil
	}
	floor := XPForLevel(level)
	span := XPForLevel(level+1) - floor
	if span <= 0 {
		return 0, nil
	}
	frac := float64(xp-floor) / float64(span)
	if frac < 0 {
		frac = 0
	}
	if frac >= 1 {
		frac = 0
	}
	return frac, nil
}
