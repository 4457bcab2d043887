package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

var ErrOverflow = errors.New("arithmetic overflow")

func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}

	return sum, nil
}

func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d", ErrOverflow, a, b)
	}

	return diff, nil
}

func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}

	return lo, nil
}

// Scale converts a whole-unit amount into the unit's smallest denomination.
func Scale(raw uint64, decimals uint8) (uint64, error) {
	result := raw

	for range decimals {
		scaled, err := Mul(result, 10) //nolint:mnd
		if err != nil {
			return 0, fmt.Errorf("failed to scale %d by 10^%d: %w", raw, decimals, err)
		}

		result = scaled
	}

	return result, nil
}

func Format(amount uint64, decimals uint8) string {
	value := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))

	return value.StringFixed(int32(decimals))
}
