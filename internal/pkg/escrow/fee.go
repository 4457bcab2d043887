package escrow

import (
	"fmt"
	"math/bits"

	"github.com/vreid/escrow/internal/pkg/ledger"
)

const MaxFeeBps = 10_000

type Split struct {
	Pool   uint64 `json:"pool"`
	Fee    uint64 `json:"fee"`
	Winner uint64 `json:"winner"`
}

func ValidateFeeBps(feeBps uint64) error {
	if feeBps > MaxFeeBps {
		return fmt.Errorf("%w: %d > %d", ErrInvalidFee, feeBps, MaxFeeBps)
	}

	return nil
}

// ComputeFee returns floor(feeBps * pool / 10000). The product is taken in
// 128 bits, so only the pool itself can overflow.
func ComputeFee(feeBps uint64, stake uint64) (uint64, uint64, error) {
	err := ValidateFeeBps(feeBps)
	if err != nil {
		return 0, 0, err
	}

	pool, err := ledger.Mul(stake, 2) //nolint:mnd
	if err != nil {
		return 0, 0, fmt.Errorf("%w: pool: %w", ErrInternal, err)
	}

	hi, lo := bits.Mul64(feeBps, pool)
	fee, _ := bits.Div64(hi, lo, MaxFeeBps)

	return pool, fee, nil
}

// SettlementSplit divides an escrow that must hold exactly two stakes.
func SettlementSplit(feeBps uint64, stake uint64, escrowBalance uint64) (Split, error) {
	pool, fee, err := ComputeFee(feeBps, stake)
	if err != nil {
		return Split{}, err
	}

	if escrowBalance != pool {
		return Split{}, fmt.Errorf("%w: escrow holds %d, expected %d", ErrInternal, escrowBalance, pool)
	}

	winner, err := ledger.Sub(escrowBalance, fee)
	if err != nil {
		return Split{}, fmt.Errorf("%w: winner amount: %w", ErrInternal, err)
	}

	return Split{
		Pool:   pool,
		Fee:    fee,
		Winner: winner,
	}, nil
}

// Halve splits a balance between two players; the remainder is 0 or 1.
func Halve(balance uint64) (uint64, uint64) {
	half := balance / 2 //nolint:mnd

	return half, balance - half*2 //nolint:mnd
}
