package escrow

import (
	"fmt"
	"math"

	"github.com/vreid/escrow/internal/pkg/ledger"
)

type Status uint8

const (
	StatusPending Status = iota
	StatusInProgress
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	}

	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = StatusPending
	case "in_progress":
		*s = StatusInProgress
	case "completed":
		*s = StatusCompleted
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInternal, text)
	}

	return nil
}

// Result is the outcome code reported by the winner.
type Result uint8

const (
	ResultPlayerOne Result = 0
	ResultPlayerTwo Result = 1
)

func ParseResult(code int64) (Result, error) {
	if code < 0 || code > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBattleResult, code)
	}

	return Result(code), nil
}

type Config struct {
	Admin      ledger.Identity `json:"admin"`
	ValueUnit  ledger.UnitID   `json:"value_unit"`
	FeeBps     uint64          `json:"fee_bps"`
	StakePrice uint64          `json:"stake_price"`
}

type ConfigView struct {
	Config

	Decimals          uint8  `json:"decimals"`
	StakePriceDisplay string `json:"stake_price_display"`
}

type Battle struct {
	BattleID  uint64          `json:"battle_id"`
	PlayerOne ledger.Identity `json:"player_one"`
	PlayerTwo ledger.Identity `json:"player_two,omitempty"`
	Winner    ledger.Identity `json:"winner,omitempty"`
	Status    Status          `json:"status"`

	ValueUnit ledger.UnitID    `json:"value_unit"`
	Stake     uint64           `json:"stake"`
	Address   ledger.AccountID `json:"address"`
	Escrow    ledger.AccountID `json:"escrow"`
}

type ReceiptKind string

const (
	ReceiptSettlement      ReceiptKind = "settlement"
	ReceiptRefund          ReceiptKind = "refund"
	ReceiptAdminWithdrawal ReceiptKind = "admin_withdrawal"
)

type PayoutRole string

const (
	RoleWinner    PayoutRole = "winner"
	RoleFee       PayoutRole = "fee"
	RoleRefund    PayoutRole = "refund"
	RoleSplit     PayoutRole = "split"
	RoleRemainder PayoutRole = "remainder"
)

type Payout struct {
	Role      PayoutRole       `json:"role"`
	Recipient ledger.Identity  `json:"recipient"`
	Account   ledger.AccountID `json:"account"`
	Amount    uint64           `json:"amount"`
}

type Receipt struct {
	ID        string           `json:"id"`
	Kind      ReceiptKind      `json:"kind"`
	BattleID  uint64           `json:"battle_id"`
	PlayerOne ledger.Identity  `json:"player_one"`
	PlayerTwo ledger.Identity  `json:"player_two,omitempty"`
	Winner    ledger.Identity  `json:"winner,omitempty"`
	ValueUnit ledger.UnitID    `json:"value_unit"`
	Escrow    ledger.AccountID `json:"escrow"`
	Pool      uint64           `json:"pool"`
	Fee       uint64           `json:"fee"`
	Payouts   []Payout         `json:"payouts"`
	Timestamp int64            `json:"timestamp"`

	Signature string `json:"signature,omitempty"`
}

// Outcome is the final state of a battle together with its receipt.
type Outcome struct {
	Battle  Battle  `json:"battle"`
	Receipt Receipt `json:"receipt"`
}

type EventKind string

const (
	EventBattleCreated   EventKind = "battle_created"
	EventBattleJoined    EventKind = "battle_joined"
	EventBattleSettled   EventKind = "battle_settled"
	EventBattleRefunded  EventKind = "battle_refunded"
	EventBattleWithdrawn EventKind = "battle_admin_withdrawn"
	EventConfigUpdated   EventKind = "config_updated"
)

type Event struct {
	Kind      EventKind `json:"kind"`
	Battle    *Battle   `json:"battle,omitempty"`
	Receipt   *Receipt  `json:"receipt,omitempty"`
	Config    *Config   `json:"config,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

type InitializeRequest struct {
	ValueUnit ledger.UnitID `json:"value_unit"`
	FeeBps    uint64        `json:"fee_bps"`
	Price     uint64        `json:"price"`
}

type FeeBpsRequest struct {
	FeeBps uint64 `json:"fee_bps"`
}

type StakePriceRequest struct {
	Price uint64 `json:"price"`
}

type ValueUnitRequest struct {
	ValueUnit ledger.UnitID `json:"value_unit"`
}

type CreateBattleRequest struct {
	BattleID uint64 `json:"battle_id"`
}

// ResultRequest carries the result code wider than Result so that
// out-of-range codes decode and fail as invalid results.
type ResultRequest struct {
	Result int64 `json:"result"`
}

type AdminWithdrawRequest struct {
	PlayerTwo ledger.Identity `json:"player_two"`
}
