package progress

import (
	"errors"
	"testing"

	"github.com/lingua-prep/backend/internal/models"
)

func TestDebit_Success(t *testing.T) {
	p := &models.UserProgress{Coins: 200}
	if err := Debit(p, 150); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Coins != 50 {
		t.Errorf("expected 50 coins, got %d", p.Coins)
	}
}

func TestDebit_InsufficientLeavesBalance(t *testing.T) {
	p := &models.UserProgress{Coins: 100}
	err := Debit(p, 150)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got: %v", err)
	}
	if p.Coins != 100 {
		t.Errorf("balance must be untouched on a rejected debit, got %d", p.Coins)
	}
}

func TestDebit_NonPositiveRejected(t *testing.T) {
	p := &models.UserProgress{Coins: 100}
	for _, amount := range []int64{0, -5} {
		if err := Debit(p, amount); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Debit(%d): expected ErrInvalidArgument, got: %v", amount, err)
		}
	}
}

func TestCredit_NegativeRejected(t *testing.T) {
	p := &models.UserProgress{Coins: 10}
	if err := Credit(p, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got: %v", err)
	}
	if err := Credit(p, 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Coins != 50 {
		t.Errorf("expected 50 coins, got %d", p.Coins)
	}
}
