package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/lingua-prep/backend/internal/models"
)

func TestApplyEffect_StreakFreezeCapped(t *testing.T) {
	p := &models.UserProgress{StreakFreezesAvailable: MaxStreakFreezes}
	_, err := applyEffect(p, Catalog["streak_freeze"], time.Now())
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument at the freeze cap, got: %v", err)
	}
	if p.StreakFreezesAvailable != MaxStreakFreezes {
		t.Errorf("freeze count changed on a rejected purchase: %d", p.StreakFreezesAvailable)
	}
}

func TestApplyEffect_StreakRepairWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	brokenAt := now.Add(-12 * time.Hour)
	p := &models.UserProgress{
		CurrentStreak:    2,
		LongestStreak:    9,
		LastBrokenStreak: 9,
		StreakBrokenAt:   &brokenAt,
	}

	_, err := applyEffect(p, Catalog["streak_repair"], now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CurrentStreak != 11 {
		t.Errorf("expected restored streak 11, got %d", p.CurrentStreak)
	}
	if p.LongestStreak != 11 {
		t.Errorf("expected longest streak updated to 11, got %d", p.LongestStreak)
	}
	if p.LastBrokenStreak != 0 || p.StreakBrokenAt != nil {
		t.Error("expected broken-streak fields cleared after repair")
	}
}

func TestApplyEffect_StreakRepairExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	brokenAt := now.Add(-streakRepairWindow - time.Hour)
	p := &models.UserProgress{LastBrokenStreak: 5, StreakBrokenAt: &brokenAt}

	_, err := applyEffect(p, Catalog["streak_repair"], now)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument past the repair window, got: %v", err)
	}
}

func TestApplyEffect_StreakRepairNothingBroken(t *testing.T) {
	p := &models.UserProgress{CurrentStreak: 4}
	_, err := applyEffect(p, Catalog["streak_repair"], time.Now())
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument with no broken streak, got: %v", err)
	}
}

func TestApplyEffect_XPBoostStacks(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := &models.UserProgress{}

	if _, err := applyEffect(p, Catalog["xp_boost_2x"], now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := *p.XPBoostUntil
	if !first.Equal(now.Add(xpBoostDuration)) {
		t.Errorf("expected boost until %v, got %v", now.Add(xpBoostDuration), first)
	}

	if _, err := applyEffect(p, Catalog["xp_boost_2x"], now.Add(5*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.XPBoostUntil.Equal(first.Add(xpBoostDuration)) {
		t.Errorf("stacked boost should extend the active window, got %v", p.XPBoostUntil)
	}
}

func TestApplyEffect_Consumables(t *testing.T) {
	p := &models.UserProgress{}
	now := time.Now()

	applyEffect(p, Catalog["hint_reveal"], now)
	applyEffect(p, Catalog["hint_reveal"], now)
	applyEffect(p, Catalog["skip_question"], now)

	if p.HintReveals != 2 {
		t.Errorf("expected 2 hint reveals, got %d", p.HintReveals)
	}
	if p.QuestionSkips != 1 {
		t.Errorf("expected 1 question skip, got %d", p.QuestionSkips)
	}
}

func TestCatalogItems_StableOrder(t *testing.T) {
	items := CatalogItems()
	if len(items) != len(Catalog) {
		t.Fatalf("expected %d items, got %d", len(Catalog), len(items))
	}
	if items[0].ID != "streak_freeze" {
		t.Errorf("expected streak_freeze first, got %s", items[0].ID)
	}
	for _, item := range items {
		if item.Cost <= 0 {
			t.Errorf("item %s has non-positive cost %d", item.ID, item.Cost)
		}
	}
}
