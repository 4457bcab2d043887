package escrow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func NewReceipt(kind ReceiptKind, battle Battle, now time.Time) (Receipt, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: failed to generate receipt ID: %w", ErrInternal, err)
	}

	return Receipt{
		ID:        id.String(),
		Kind:      kind,
		BattleID:  battle.BattleID,
		PlayerOne: battle.PlayerOne,
		PlayerTwo: battle.PlayerTwo,
		Winner:    battle.Winner,
		ValueUnit: battle.ValueUnit,
		Escrow:    battle.Escrow,
		Payouts:   []Payout{},
		Timestamp: now.Unix(),
	}, nil
}

func ComputeSignature(receipt Receipt, signatureSecret []byte) (string, error) {
	receipt.Signature = ""

	marshaledReceipt, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal receipt: %w", err)
	}

	h := hmac.New(sha256.New, signatureSecret)
	h.Write(marshaledReceipt)

	return hex.EncodeToString(h.Sum(nil)), nil
}

func SignReceipt(receipt Receipt, signatureSecret []byte) (Receipt, error) {
	signature, err := ComputeSignature(receipt, signatureSecret)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	receipt.Signature = signature

	return receipt, nil
}

func VerifyReceipt(receipt Receipt, signatureSecret []byte) bool {
	signature, err := ComputeSignature(receipt, signatureSecret)
	if err != nil {
		return false
	}

	return hmac.Equal([]byte(receipt.Signature), []byte(signature))
}
