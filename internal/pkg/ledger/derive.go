package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"github.com/vreid/escrow/internal/pkg/common"
)

const associatedTag = "associated"

// Deriver maps seed material to an account address.
type Deriver func(tag string, keys []Identity, battleID uint64) AccountID

// DeriveAddress hashes length-prefixed seed parts so that no two distinct
// seed tuples share an encoding.
func DeriveAddress(tag string, keys []Identity, battleID uint64) AccountID {
	h := sha256.New()

	writeSeed(h, []byte(tag))

	for _, key := range keys {
		writeSeed(h, []byte(key))
	}

	h.Write(common.Uint64ToBytes(battleID))

	return AccountID(hex.EncodeToString(h.Sum(nil)))
}

func FundingAccount(owner Identity, unit UnitID) AccountID {
	return DeriveAddress(associatedTag, []Identity{owner, Identity(unit)}, 0)
}

func writeSeed(h hash.Hash, part []byte) {
	h.Write(common.Uint64ToBytes(uint64(len(part))))
	h.Write(part)
}
