package ledger

// Identity is an opaque participant key. The zero value means unset.
type Identity string

type AccountID string

type UnitID string

type Unit struct {
	ID        UnitID   `json:"id"`
	Decimals  uint8    `json:"decimals"`
	Authority Identity `json:"authority"`
}

type Account struct {
	ID      AccountID `json:"id"`
	Unit    UnitID    `json:"unit"`
	Owner   Identity  `json:"owner"`
	Balance uint64    `json:"balance"`
}

type RegisterUnitRequest struct {
	ID       UnitID `json:"id"`
	Decimals uint8  `json:"decimals"`
}

type MintRequest struct {
	Owner  Identity `json:"owner"`
	Amount uint64   `json:"amount"`
}

type BalanceResponse struct {
	Owner   Identity  `json:"owner"`
	Unit    UnitID    `json:"unit"`
	Account AccountID `json:"account"`
	Amount  uint64    `json:"amount"`
	Display string    `json:"display"`
}
