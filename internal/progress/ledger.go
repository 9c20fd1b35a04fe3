package progress

import (
	"fmt"

	"github.com/lingua-prep/backend/internal/models"
)

// Coin ledger operations. Both mutate the in-memory snapshot only; the
// controller persists the whole record in a single versioned write, so
// a rejected debit or a failure after it never leaves a partial
// balance behind.

// Debit removes coins from the balance. Fails with ErrInsufficientFunds
// if the balance cannot cover the amount, leaving it untouched.
func Debit(p *models.UserProgress, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit amount must be positive, got %d", ErrInvalidArgument, amount)
	}
	if p.Coins < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, p.Coins, amount)
	}
	p.Coins -= amount
	return nil
}

// Credit adds coins to the balance.
func Credit(p *models.UserProgress, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: credit amount must be non-negative, got %d", ErrInvalidArgument, amount)
	}
	p.Coins += amount
	return nil
}
