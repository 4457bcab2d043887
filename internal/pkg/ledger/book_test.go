package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/escrow/internal/pkg/common"
	"github.com/vreid/escrow/internal/pkg/ledger"
	bolt "go.etcd.io/bbolt"
)

const (
	authority = ledger.Identity("mint-authority")
	unitID    = ledger.UnitID("STAKE")
)

func openDatabase(t *testing.T) *common.DatabaseService {
	t.Helper()

	databaseService, err := common.OpenDatabase(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = databaseService.Shutdown()
	})

	return databaseService
}

func update(t *testing.T, databaseService *common.DatabaseService, fn func(book *ledger.Book) error) error {
	t.Helper()

	return databaseService.DB.Update(func(tx *bolt.Tx) error {
		book, err := ledger.NewBook(tx)
		require.NoError(t, err)

		return fn(book)
	})
}

func setupBook(t *testing.T) *common.DatabaseService {
	t.Helper()

	databaseService := openDatabase(t)

	err := update(t, databaseService, func(book *ledger.Book) error {
		err := book.RegisterUnit(ledger.Unit{ID: unitID, Decimals: 2, Authority: authority})
		if err != nil {
			return err
		}

		_, err = book.Mint(authority, unitID, "alice", 1000)

		return err
	})
	require.NoError(t, err)

	return databaseService
}

func balanceOf(t *testing.T, databaseService *common.DatabaseService, owner ledger.Identity) uint64 {
	t.Helper()

	var balance uint64

	err := update(t, databaseService, func(book *ledger.Book) error {
		var err error

		balance, err = book.Balance(owner, unitID)

		return err
	})
	require.NoError(t, err)

	return balance
}

func TestRegisterUnit(t *testing.T) {
	t.Parallel()

	databaseService := setupBook(t)

	err := update(t, databaseService, func(book *ledger.Book) error {
		return book.RegisterUnit(ledger.Unit{ID: unitID, Decimals: 9, Authority: "someone"})
	})
	require.ErrorIs(t, err, ledger.ErrUnitExists)

	err = update(t, databaseService, func(book *ledger.Book) error {
		return book.RegisterUnit(ledger.Unit{ID: " ", Authority: authority})
	})
	require.ErrorIs(t, err, ledger.ErrInvalidUnit)
}

func TestMint(t *testing.T) {
	t.Parallel()

	databaseService := setupBook(t)

	assert.Equal(t, uint64(1000), balanceOf(t, databaseService, "alice"))
	assert.Equal(t, uint64(0), balanceOf(t, databaseService, "nobody"))

	err := update(t, databaseService, func(book *ledger.Book) error {
		_, err := book.Mint("alice", unitID, "alice", 1)

		return err
	})
	require.ErrorIs(t, err, ledger.ErrMintUnauthorized)

	err = update(t, databaseService, func(book *ledger.Book) error {
		_, err := book.Mint(authority, "MISSING", "alice", 1)

		return err
	})
	require.ErrorIs(t, err, ledger.ErrUnitNotFound)

	for _, owner := range []ledger.Identity{"", "  "} {
		err = update(t, databaseService, func(book *ledger.Book) error {
			_, err := book.Mint(authority, unitID, owner, 1)

			return err
		})
		require.ErrorIs(t, err, ledger.ErrInvalidOwner)
		assert.Equal(t, uint64(0), balanceOf(t, databaseService, owner))
	}

	err = update(t, databaseService, func(book *ledger.Book) error {
		_, err := book.OpenAccount("orphan", unitID, "")

		return err
	})
	require.ErrorIs(t, err, ledger.ErrInvalidOwner)
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	databaseService := setupBook(t)

	err := update(t, databaseService, func(book *ledger.Book) error {
		bob, err := book.EnsureFundingAccount("bob", unitID)
		if err != nil {
			return err
		}

		return book.Transfer(ledger.FundingAccount("alice", unitID), bob, 250)
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(750), balanceOf(t, databaseService, "alice"))
	assert.Equal(t, uint64(250), balanceOf(t, databaseService, "bob"))

	err = update(t, databaseService, func(book *ledger.Book) error {
		return book.Transfer(ledger.FundingAccount("bob", unitID), ledger.FundingAccount("alice", unitID), 251)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	err = update(t, databaseService, func(book *ledger.Book) error {
		return book.Transfer(ledger.FundingAccount("bob", unitID), ledger.FundingAccount("alice", unitID), 0)
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(750), balanceOf(t, databaseService, "alice"))
	assert.Equal(t, uint64(250), balanceOf(t, databaseService, "bob"))
}

func TestTransferUnitMismatch(t *testing.T) {
	t.Parallel()

	databaseService := setupBook(t)

	err := update(t, databaseService, func(book *ledger.Book) error {
		err := book.RegisterUnit(ledger.Unit{ID: "OTHER", Authority: authority})
		if err != nil {
			return err
		}

		other, err := book.EnsureFundingAccount("alice", "OTHER")
		if err != nil {
			return err
		}

		return book.Transfer(ledger.FundingAccount("alice", unitID), other, 1)
	})
	require.ErrorIs(t, err, ledger.ErrUnitMismatch)
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	t.Parallel()

	databaseService := setupBook(t)

	err := update(t, databaseService, func(book *ledger.Book) error {
		bob, err := book.EnsureFundingAccount("bob", unitID)
		if err != nil {
			return err
		}

		err = book.Transfer(ledger.FundingAccount("alice", unitID), bob, 600)
		if err != nil {
			return err
		}

		return book.Transfer(ledger.FundingAccount("alice", unitID), bob, 600)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, uint64(1000), balanceOf(t, databaseService, "alice"))
	assert.Equal(t, uint64(0), balanceOf(t, databaseService, "bob"))
}

func TestClose(t *testing.T) {
	t.Parallel()

	databaseService := setupBook(t)
	escrowID := ledger.DeriveAddress("token_account", []ledger.Identity{"alice"}, 7)

	var residual uint64

	err := update(t, databaseService, func(book *ledger.Book) error {
		_, err := book.OpenAccount(escrowID, unitID, ledger.Identity(escrowID))
		if err != nil {
			return err
		}

		_, err = book.OpenAccount(escrowID, unitID, ledger.Identity(escrowID))
		require.ErrorIs(t, err, ledger.ErrAccountExists)

		err = book.Transfer(ledger.FundingAccount("alice", unitID), escrowID, 300)
		if err != nil {
			return err
		}

		bob, err := book.EnsureFundingAccount("bob", unitID)
		if err != nil {
			return err
		}

		residual, err = book.Close(escrowID, bob)
		if err != nil {
			return err
		}

		_, err = book.Account(escrowID)
		require.ErrorIs(t, err, ledger.ErrAccountNotFound)

		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(300), residual)
	assert.Equal(t, uint64(700), balanceOf(t, databaseService, "alice"))
	assert.Equal(t, uint64(300), balanceOf(t, databaseService, "bob"))
}
