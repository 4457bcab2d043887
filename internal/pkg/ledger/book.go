package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vreid/escrow/internal/pkg/common"
	bolt "go.etcd.io/bbolt"
)

var (
	ErrUnitsBucketNotFound    = errors.New("ledger units bucket doesn't exist")
	ErrAccountsBucketNotFound = errors.New("ledger accounts bucket doesn't exist")

	ErrUnitNotFound      = errors.New("value unit not found")
	ErrUnitExists        = errors.New("value unit already registered")
	ErrInvalidUnit       = errors.New("invalid value unit")
	ErrInvalidOwner      = errors.New("invalid account owner")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrUnitMismatch      = errors.New("account value unit mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMintUnauthorized  = errors.New("caller is not the unit authority")
)

// Book applies ledger operations inside a single bbolt transaction. Nothing it
// writes is visible until the surrounding transaction commits.
type Book struct {
	units    *bolt.Bucket
	accounts *bolt.Bucket
}

func NewBook(tx *bolt.Tx) (*Book, error) {
	units := tx.Bucket([]byte(common.LedgerUnitsBucket))
	if units == nil {
		return nil, ErrUnitsBucketNotFound
	}

	accounts := tx.Bucket([]byte(common.LedgerAccountsBucket))
	if accounts == nil {
		return nil, ErrAccountsBucketNotFound
	}

	return &Book{
		units:    units,
		accounts: accounts,
	}, nil
}

func (b *Book) RegisterUnit(unit Unit) error {
	if strings.TrimSpace(string(unit.ID)) == "" || unit.Authority == "" {
		return fmt.Errorf("%w: id and authority are required", ErrInvalidUnit)
	}

	if b.units.Get([]byte(unit.ID)) != nil {
		return fmt.Errorf("%w: %s", ErrUnitExists, unit.ID)
	}

	return b.put(b.units, []byte(unit.ID), unit)
}

func (b *Book) Unit(id UnitID) (Unit, error) {
	var unit Unit

	payload := b.units.Get([]byte(id))
	if payload == nil {
		return unit, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}

	err := json.Unmarshal(payload, &unit)
	if err != nil {
		return unit, fmt.Errorf("failed to unmarshal unit %s: %w", id, err)
	}

	return unit, nil
}

func (b *Book) OpenAccount(id AccountID, unit UnitID, owner Identity) (Account, error) {
	if strings.TrimSpace(string(owner)) == "" {
		return Account{}, fmt.Errorf("%w: owner is required", ErrInvalidOwner)
	}

	if b.accounts.Get([]byte(id)) != nil {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountExists, id)
	}

	_, err := b.Unit(unit)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		ID:    id,
		Unit:  unit,
		Owner: owner,
	}

	err = b.put(b.accounts, []byte(id), account)
	if err != nil {
		return Account{}, err
	}

	return account, nil
}

// EnsureFundingAccount returns the owner's associated account for unit,
// opening it when missing.
func (b *Book) EnsureFundingAccount(owner Identity, unit UnitID) (AccountID, error) {
	id := FundingAccount(owner, unit)

	_, err := b.Account(id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, ErrAccountNotFound) {
		return "", err
	}

	_, err = b.OpenAccount(id, unit, owner)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (b *Book) Account(id AccountID) (Account, error) {
	var account Account

	payload := b.accounts.Get([]byte(id))
	if payload == nil {
		return account, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}

	err := json.Unmarshal(payload, &account)
	if err != nil {
		return account, fmt.Errorf("failed to unmarshal account %s: %w", id, err)
	}

	return account, nil
}

// Balance reports the owner's funding balance; a missing account holds zero.
func (b *Book) Balance(owner Identity, unit UnitID) (uint64, error) {
	account, err := b.Account(FundingAccount(owner, unit))
	if errors.Is(err, ErrAccountNotFound) {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	return account.Balance, nil
}

func (b *Book) Mint(authority Identity, unitID UnitID, to Identity, amount uint64) (Account, error) {
	unit, err := b.Unit(unitID)
	if err != nil {
		return Account{}, err
	}

	if unit.Authority != authority {
		return Account{}, fmt.Errorf("%w: %s", ErrMintUnauthorized, authority)
	}

	if strings.TrimSpace(string(to)) == "" {
		return Account{}, fmt.Errorf("%w: mint recipient is required", ErrInvalidOwner)
	}

	id, err := b.EnsureFundingAccount(to, unitID)
	if err != nil {
		return Account{}, err
	}

	account, err := b.Account(id)
	if err != nil {
		return Account{}, err
	}

	account.Balance, err = Add(account.Balance, amount)
	if err != nil {
		return Account{}, fmt.Errorf("failed to mint to %s: %w", to, err)
	}

	err = b.put(b.accounts, []byte(id), account)
	if err != nil {
		return Account{}, err
	}

	return account, nil
}

// Transfer moves amount between two accounts of the same unit. A zero amount
// succeeds without touching either balance.
func (b *Book) Transfer(from AccountID, to AccountID, amount uint64) error {
	source, err := b.Account(from)
	if err != nil {
		return fmt.Errorf("failed to load source account: %w", err)
	}

	destination, err := b.Account(to)
	if err != nil {
		return fmt.Errorf("failed to load destination account: %w", err)
	}

	if source.Unit != destination.Unit {
		return fmt.Errorf("%w: %s != %s", ErrUnitMismatch, source.Unit, destination.Unit)
	}

	if amount == 0 || from == to {
		return nil
	}

	if source.Balance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, source.Balance, amount)
	}

	source.Balance -= amount

	destination.Balance, err = Add(destination.Balance, amount)
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}

	err = b.put(b.accounts, []byte(from), source)
	if err != nil {
		return err
	}

	return b.put(b.accounts, []byte(to), destination)
}

// Close sweeps any residual balance to recipient and deletes the account.
func (b *Book) Close(id AccountID, recipient AccountID) (uint64, error) {
	account, err := b.Account(id)
	if err != nil {
		return 0, err
	}

	residual := account.Balance

	err = b.Transfer(id, recipient, residual)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep %s: %w", id, err)
	}

	err = b.accounts.Delete([]byte(id))
	if err != nil {
		return 0, fmt.Errorf("failed to delete account %s: %w", id, err)
	}

	return residual, nil
}

func (b *Book) put(bucket *bolt.Bucket, key []byte, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	err = bucket.Put(key, payload)
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}

	return nil
}
