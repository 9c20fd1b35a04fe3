package progress

import (
	"fmt"
	"time"

	"github.com/lingua-prep/backend/internal/models"
)

// MaxStreakFreezes caps how many unused freezes a user can hold.
const MaxStreakFreezes = 3

// xpBoostDuration is how long one purchased 2x boost lasts.
const xpBoostDuration = 30 * time.Minute

// streakRepairWindow is how long after a break a streak can still be
// repaired.
const streakRepairWindow = 48 * time.Hour

// Catalog is the static shop catalog. Item ids are stable; costs are
// in coins.
var Catalog = map[string]models.ShopItem{
	"streak_freeze": {
		ID: "streak_freeze", Name: "Streak Freeze",
		Description: "Forgives one missed day without breaking your streak",
		Cost:        100, Effect: models.EffectStreakFreeze,
	},
	"streak_repair": {
		ID: "streak_repair", Name: "Streak Repair",
		Description: "Restores a streak broken within the last two days",
		Cost:        350, Effect: models.EffectStreakRepair,
	},
	"xp_boost_2x": {
		ID: "xp_boost_2x", Name: "Double XP Boost",
		Description: "Doubles lesson XP for 30 minutes",
		Cost:        150, Effect: models.EffectXPBoost2x,
	},
	"hint_reveal": {
		ID: "hint_reveal", Name: "Hint Reveal",
		Description: "Reveals a hint on a tricky form or construction",
		Cost:        40, Effect: models.EffectHintReveal,
	},
	"skip_question": {
		ID: "skip_question", Name: "Question Skip",
		Description: "Skips one question without ending your perfect run",
		Cost:        60, Effect: models.EffectSkipQuestion,
	},
	"laurel_wreath": {
		ID: "laurel_wreath", Name: "Laurel Wreath",
		Description: "A golden laurel frame for your profile",
		Cost:        500, Effect: models.EffectCosmetic,
	},
	"marble_bust": {
		ID: "marble_bust", Name: "Marble Bust",
		Description: "A classical marble bust avatar",
		Cost:        800, Effect: models.EffectCosmetic,
	},
}

// CatalogItems returns the catalog in a stable order for listing.
func CatalogItems() []models.ShopItem {
	ids := []string{
		"streak_freeze", "streak_repair", "xp_boost_2x",
		"hint_reveal", "skip_question", "laurel_wreath", "marble_bust",
	}
	items := make([]models.ShopItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, Catalog[id])
	}
	return items
}

// applyEffect grants an item's effect on the snapshot and returns a
// host-renderable message. It runs after the debit; on error the
// controller discards the snapshot, so the debit is rolled back with
// it and no coins are lost.
func applyEffect(p *models.UserProgress, item models.ShopItem, now time.Time) (string, error) {
	switch item.Effect {
	case models.EffectStreakFreeze:
		if p.StreakFreezesAvailable >= MaxStreakFreezes {
			return "", fmt.Errorf("%w: already holding the maximum of %d streak freezes",
				ErrInvalidArgument, MaxStreakFreezes)
		}
		p.StreakFreezesAvailable++
		return fmt.Sprintf("Streak freeze stored (%d held)", p.StreakFreezesAvailable), nil

	case models.EffectStreakRepair:
		if p.StreakBrokenAt == nil || p.LastBrokenStreak == 0 {
			return "", fmt.Errorf("%w: no broken streak to repair", ErrInvalidArgument)
		}
		if now.Sub(*p.StreakBrokenAt) > streakRepairWindow {
			return "", fmt.Errorf("%w: streak broke more than %d hours ago",
				ErrInvalidArgument, int(streakRepairWindow.Hours()))
		}
		// Reattach the broken run to whatever has been rebuilt since.
		p.CurrentStreak += p.LastBrokenStreak
		if p.CurrentStreak > p.LongestStreak {
			p.LongestStreak = p.CurrentStreak
		}
		restored := p.LastBrokenStreak
		p.LastBrokenStreak = 0
		p.StreakBrokenAt = nil
		return fmt.Sprintf("Streak repaired: %d days restored", restored), nil

	case models.EffectXPBoost2x:
		start := now
		if p.XPBoostUntil != nil && p.XPBoostUntil.After(now) {
			// Stacking extends the active boost.
			start = *p.XPBoostUntil
		}
		until := start.Add(xpBoostDuration)
		p.XPBoostUntil = &until
		return fmt.Sprintf("Double XP active until %s", until.Format(time.Kitchen)), nil

	case models.EffectHintReveal:
		p.HintReveals++
		return fmt.Sprintf("Hint reveal stored (%d held)", p.HintReveals), nil

	case models.EffectSkipQuestion:
		p.QuestionSkips++
		return fmt.Sprintf("Question skip stored (%d held)", p.QuestionSkips), nil

	case models.EffectCosmetic:
		// Ownership is the purchase record itself.
		return fmt.Sprintf("%s unlocked", item.Name), nil
	}

	return "", fmt.Errorf("%w: unknown item effect %q", ErrInvalidArgument, item.Effect)
}
