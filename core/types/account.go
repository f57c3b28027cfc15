package types

import "math/big"

// Account tracks the native balances held by a single address. BalanceBNB is
// the base currency participants contribute with; BalanceTAKO is the sale
// token delivered on claim. Both are wei-style integers in the smallest
// denomination.
type Account struct {
	Nonce       uint64   `json:"nonce"`
	BalanceBNB  *big.Int `json:"balanceBNB"`
	BalanceTAKO *big.Int `json:"balanceTAKO"`
}

// Clone returns a deep copy of the account with all balance pointers
// materialised.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{BalanceBNB: big.NewInt(0), BalanceTAKO: big.NewInt(0)}
	}
	clone := &Account{
		Nonce:       a.Nonce,
		BalanceBNB:  big.NewInt(0),
		BalanceTAKO: big.NewInt(0),
	}
	if a.BalanceBNB != nil {
		clone.BalanceBNB = new(big.Int).Set(a.BalanceBNB)
	}
	if a.BalanceTAKO != nil {
		clone.BalanceTAKO = new(big.Int).Set(a.BalanceTAKO)
	}
	return clone
}
