package ledger_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/escrow/internal/pkg/ledger"
)

func TestScale(t *testing.T) {
	t.Parallel()

	scaled, err := ledger.Scale(5, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), scaled)

	scaled, err = ledger.Scale(5, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), scaled)

	_, err = ledger.Scale(math.MaxUint64/10+1, 1)
	require.ErrorIs(t, err, ledger.ErrOverflow)

	_, err = ledger.Scale(1, 20)
	require.ErrorIs(t, err, ledger.ErrOverflow)
}

func TestCheckedArithmetic(t *testing.T) {
	t.Parallel()

	_, err := ledger.Add(math.MaxUint64, 1)
	require.ErrorIs(t, err, ledger.ErrOverflow)

	_, err = ledger.Sub(1, 2)
	require.ErrorIs(t, err, ledger.ErrOverflow)

	_, err = ledger.Mul(math.MaxUint64, 2)
	require.ErrorIs(t, err, ledger.ErrOverflow)

	product, err := ledger.Mul(100, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), product)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.50", ledger.Format(150, 2))
	assert.Equal(t, "100", ledger.Format(100, 0))
	assert.Equal(t, "0.000000001", ledger.Format(1, 9))
	assert.Equal(t, "18446744073.709551615", ledger.Format(math.MaxUint64, 9))
}

func TestDeriveAddress(t *testing.T) {
	t.Parallel()

	a := ledger.DeriveAddress("battle", []ledger.Identity{"alice"}, 1)

	assert.Equal(t, a, ledger.DeriveAddress("battle", []ledger.Identity{"alice"}, 1))
	assert.NotEqual(t, a, ledger.DeriveAddress("battle", []ledger.Identity{"alice"}, 2))
	assert.NotEqual(t, a, ledger.DeriveAddress("token_account", []ledger.Identity{"alice"}, 1))
	assert.NotEqual(t, a, ledger.DeriveAddress("battle", []ledger.Identity{"bob"}, 1))

	// length prefixes keep shifted boundaries apart
	assert.NotEqual(t,
		ledger.DeriveAddress("battle", []ledger.Identity{"ab", "c"}, 1),
		ledger.DeriveAddress("battle", []ledger.Identity{"a", "bc"}, 1))

	assert.NotEqual(t, ledger.FundingAccount("alice", "STAKE"), ledger.FundingAccount("alice", "OTHER"))
}
