package presale

import (
	"encoding/hex"
	"math/big"

	"takochain/core/types"
)

const (
	EventTypePurchased     = "presale.purchased"
	EventTypeClaimed       = "presale.claimed"
	EventTypeClaimsEnabled = "presale.claims_enabled"
	EventTypeTokensSwept   = "presale.tokens_swept"
	EventTypeFundsSwept    = "presale.funds_swept"
)

// NewPurchasedEvent returns the canonical event payload for an accepted
// purchase: the buyer, the base currency contributed and the tokens granted.
func NewPurchasedEvent(buyer [20]byte, amount, tokens *big.Int) *types.Event {
	return &types.Event{Type: EventTypePurchased, Attributes: map[string]string{
		"buyer":  hex.EncodeToString(buyer[:]),
		"amount": formatAmount(amount),
		"tokens": formatAmount(tokens),
	}}
}

// NewClaimedEvent returns the canonical event payload emitted when a
// participant withdraws their full claimable balance.
func NewClaimedEvent(buyer [20]byte, tokens *big.Int) *types.Event {
	return &types.Event{Type: EventTypeClaimed, Attributes: map[string]string{
		"buyer":  hex.EncodeToString(buyer[:]),
		"tokens": formatAmount(tokens),
	}}
}

// NewClaimsEnabledEvent returns the event payload emitted the first time the
// claim gate transitions to open.
func NewClaimsEnabledEvent(owner [20]byte) *types.Event {
	return &types.Event{Type: EventTypeClaimsEnabled, Attributes: map[string]string{
		"owner": hex.EncodeToString(owner[:]),
	}}
}

// NewTokensSweptEvent returns the event payload emitted when the owner sweeps
// the vault's remaining sale tokens.
func NewTokensSweptEvent(owner [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTokensSwept, Attributes: map[string]string{
		"owner":  hex.EncodeToString(owner[:]),
		"amount": formatAmount(amount),
	}}
}

// NewFundsSweptEvent returns the event payload emitted when the owner sweeps
// the raised base currency.
func NewFundsSweptEvent(owner [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeFundsSwept, Attributes: map[string]string{
		"owner":  hex.EncodeToString(owner[:]),
		"amount": formatAmount(amount),
	}}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
