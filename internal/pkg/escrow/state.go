package escrow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vreid/escrow/internal/pkg/common"
	"github.com/vreid/escrow/internal/pkg/ledger"
	bolt "go.etcd.io/bbolt"
)

var (
	ErrConfigBucketNotFound   = errors.New("config bucket doesn't exist")
	ErrBattlesBucketNotFound  = errors.New("battles bucket doesn't exist")
	ErrReceiptsBucketNotFound = errors.New("receipts bucket doesn't exist")
)

var configKey = []byte("admin")

// Txn is the unit of work for one lifecycle operation: battle records,
// configuration, receipts and ledger moves all share one bbolt transaction.
type Txn struct {
	Book *ledger.Book

	config   *bolt.Bucket
	battles  *bolt.Bucket
	receipts *bolt.Bucket
}

func NewTxn(tx *bolt.Tx) (*Txn, error) {
	book, err := ledger.NewBook(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	config := tx.Bucket([]byte(common.EscrowConfigBucket))
	if config == nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, ErrConfigBucketNotFound)
	}

	battles := tx.Bucket([]byte(common.EscrowBattlesBucket))
	if battles == nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, ErrBattlesBucketNotFound)
	}

	receipts := tx.Bucket([]byte(common.EscrowReceiptsBucket))
	if receipts == nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, ErrReceiptsBucketNotFound)
	}

	return &Txn{
		Book:     book,
		config:   config,
		battles:  battles,
		receipts: receipts,
	}, nil
}

func (t *Txn) HasConfig() bool {
	return t.config.Get(configKey) != nil
}

func (t *Txn) Config() (Config, error) {
	var config Config

	err := get(t.config, configKey, &config)
	if errors.Is(err, errMissing) {
		return config, ErrConfigNotFound
	}

	return config, err
}

func (t *Txn) PutConfig(config Config) error {
	return put(t.config, configKey, config)
}

func (t *Txn) Battle(address ledger.AccountID) (Battle, error) {
	var battle Battle

	err := get(t.battles, []byte(address), &battle)
	if errors.Is(err, errMissing) {
		return battle, fmt.Errorf("%w: %s", ErrBattleNotFound, address)
	}

	return battle, err
}

func (t *Txn) HasBattle(address ledger.AccountID) bool {
	return t.battles.Get([]byte(address)) != nil
}

func (t *Txn) PutBattle(battle Battle) error {
	return put(t.battles, []byte(battle.Address), battle)
}

func (t *Txn) DeleteBattle(address ledger.AccountID) error {
	err := t.battles.Delete([]byte(address))
	if err != nil {
		return fmt.Errorf("%w: failed to delete battle %s: %w", ErrInternal, address, err)
	}

	return nil
}

func (t *Txn) Receipt(id string) (Receipt, error) {
	var receipt Receipt

	err := get(t.receipts, []byte(id), &receipt)
	if errors.Is(err, errMissing) {
		return receipt, fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
	}

	return receipt, err
}

func (t *Txn) PutReceipt(receipt Receipt) error {
	return put(t.receipts, []byte(receipt.ID), receipt)
}

var errMissing = errors.New("missing key")

func get(bucket *bolt.Bucket, key []byte, value any) error {
	payload := bucket.Get(key)
	if payload == nil {
		return errMissing
	}

	err := json.Unmarshal(payload, value)
	if err != nil {
		return fmt.Errorf("%w: failed to unmarshal %s: %w", ErrInternal, key, err)
	}

	return nil
}

func put(bucket *bolt.Bucket, key []byte, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal %s: %w", ErrInternal, key, err)
	}

	err = bucket.Put(key, payload)
	if err != nil {
		return fmt.Errorf("%w: failed to put %s: %w", ErrInternal, key, err)
	}

	return nil
}
