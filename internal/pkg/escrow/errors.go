package escrow

import (
	"errors"
	"net/http"

	"github.com/vreid/escrow/internal/pkg/ledger"
)

var (
	ErrInvalidBattleResult = errors.New("invalid battle result")
	ErrInvalidBattleID     = errors.New("invalid battle id")
	ErrInvalidBattleStatus = errors.New("invalid battle status")
	ErrInvalidWithdrawal   = errors.New("invalid withdrawal")
	ErrInternal            = errors.New("internal error")
	ErrUnauthorized        = errors.New("unauthorized")

	ErrBattleNotFound     = errors.New("battle not found")
	ErrConfigNotFound     = errors.New("configuration not initialized")
	ErrInvalidFee         = errors.New("fee basis points out of range")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrReceiptNotFound    = errors.New("receipt not found")
)

type Code uint32

const (
	CodeInvalidBattleResult Code = 6000
	CodeInvalidBattleID     Code = 6001
	CodeInvalidBattleStatus Code = 6002
	CodeInvalidWithdrawal   Code = 6003
	CodeInternalError       Code = 6004
	CodeUnauthorized        Code = 6005

	CodeBattleNotFound     Code = 6100
	CodeConfigNotFound     Code = 6101
	CodeInvalidFee         Code = 6102
	CodeInvalidParticipant Code = 6103
	CodeInsufficientFunds  Code = 6104
	CodeUnknownValueUnit   Code = 6105
	CodeAccountNotFound    Code = 6106
	CodeReceiptNotFound    Code = 6107
)

type errorKind struct {
	err    error
	code   Code
	kind   string
	status int
}

// Order matters: an internal error wrapping a ledger error must classify as
// internal, so the escrow sentinels are matched first.
var errorKinds = []errorKind{
	{ErrInvalidBattleResult, CodeInvalidBattleResult, "InvalidBattleResult", http.StatusBadRequest},
	{ErrInvalidBattleID, CodeInvalidBattleID, "InvalidBattleId", http.StatusBadRequest},
	{ErrInvalidBattleStatus, CodeInvalidBattleStatus, "InvalidBattleStatus", http.StatusConflict},
	{ErrInvalidWithdrawal, CodeInvalidWithdrawal, "InvalidWithdrawal", http.StatusForbidden},
	{ErrInternal, CodeInternalError, "InternalError", http.StatusInternalServerError},
	{ErrUnauthorized, CodeUnauthorized, "Unauthorized", http.StatusForbidden},
	{ErrBattleNotFound, CodeBattleNotFound, "BattleNotFound", http.StatusNotFound},
	{ErrConfigNotFound, CodeConfigNotFound, "ConfigNotFound", http.StatusNotFound},
	{ErrInvalidFee, CodeInvalidFee, "InvalidFee", http.StatusBadRequest},
	{ErrInvalidParticipant, CodeInvalidParticipant, "InvalidParticipant", http.StatusBadRequest},
	{ledger.ErrInsufficientFunds, CodeInsufficientFunds, "InsufficientFunds", http.StatusUnprocessableEntity},
	{ledger.ErrUnitNotFound, CodeUnknownValueUnit, "UnknownValueUnit", http.StatusBadRequest},
	{ledger.ErrAccountNotFound, CodeAccountNotFound, "AccountNotFound", http.StatusNotFound},
	{ErrReceiptNotFound, CodeReceiptNotFound, "ReceiptNotFound", http.StatusNotFound},
}

var internalKind = errorKind{ErrInternal, CodeInternalError, "InternalError", http.StatusInternalServerError}

func classify(err error) errorKind {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			return kind
		}
	}

	return internalKind
}

func CodeOf(err error) Code {
	return classify(err).code
}

// ErrorFromCode returns the sentinel error for a wire code.
func ErrorFromCode(code Code) error {
	for _, kind := range errorKinds {
		if kind.code == code {
			return kind.err
		}
	}

	return ErrInternal
}

type ErrorResponse struct {
	Code    Code   `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (r *ErrorResponse) Error() string {
	return r.Kind + ": " + r.Message
}

func (r *ErrorResponse) Unwrap() error {
	return ErrorFromCode(r.Code)
}

func NewErrorResponse(err error) (int, ErrorResponse) {
	kind := classify(err)

	message := err.Error()
	if kind.code == CodeInternalError && !errors.Is(err, ErrInternal) {
		message = "internal error"
	}

	return kind.status, ErrorResponse{
		Code:    kind.code,
		Kind:    kind.kind,
		Message: message,
	}
}
