package presale

import (
	"fmt"
	"math/big"
	"strings"
)

// BaseToken is the ticker of the base currency contributed by participants.
const BaseToken = "BNB"

// SaleToken is the ticker of the token sold during the presale.
const SaleToken = "TAKO"

// SaleConfig carries the immutable parameters fixed when the sale is deployed.
//
// All monetary values are expressed in the smallest denomination of the
// respective asset (i.e. wei-style integers). The sale window is a closed
// interval: a purchase at exactly StartTime or EndTime is accepted.
type SaleConfig struct {
	Token           string
	Rate            *big.Int
	StartTime       int64
	EndTime         int64
	MinContribution *big.Int
	MaxContribution *big.Int
	Cap             *big.Int
}

// Clone produces a deep copy of the configuration.
func (c *SaleConfig) Clone() *SaleConfig {
	if c == nil {
		return nil
	}
	clone := &SaleConfig{
		Token:     c.Token,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
	}
	if c.Rate != nil {
		clone.Rate = new(big.Int).Set(c.Rate)
	}
	if c.MinContribution != nil {
		clone.MinContribution = new(big.Int).Set(c.MinContribution)
	}
	if c.MaxContribution != nil {
		clone.MaxContribution = new(big.Int).Set(c.MaxContribution)
	}
	if c.Cap != nil {
		clone.Cap = new(big.Int).Set(c.Cap)
	}
	return clone
}

// Normalize ensures all pointer fields are non-nil and the token ticker is in
// canonical form. The method returns the receiver to allow chaining.
func (c *SaleConfig) Normalize() *SaleConfig {
	if c == nil {
		return nil
	}
	c.Token = strings.ToUpper(strings.TrimSpace(c.Token))
	if c.Token == "" {
		c.Token = SaleToken
	}
	if c.Rate == nil {
		c.Rate = big.NewInt(0)
	}
	if c.MinContribution == nil {
		c.MinContribution = big.NewInt(0)
	}
	if c.MaxContribution == nil {
		c.MaxContribution = big.NewInt(0)
	}
	if c.Cap == nil {
		c.Cap = big.NewInt(0)
	}
	return c
}

// Validate performs static validation of the sale parameters.
func (c *SaleConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("presale: nil sale config")
	}
	if _, err := NormalizeToken(c.Token); err != nil {
		return err
	}
	if c.Rate == nil || c.Rate.Sign() <= 0 {
		return fmt.Errorf("presale: rate must be positive")
	}
	if c.EndTime < c.StartTime {
		return fmt.Errorf("presale: sale window end precedes start")
	}
	if c.MinContribution == nil || c.MinContribution.Sign() < 0 {
		return fmt.Errorf("presale: minimum contribution must be non-negative")
	}
	if c.MaxContribution == nil || c.MaxContribution.Cmp(c.MinContribution) < 0 {
		return fmt.Errorf("presale: maximum contribution below minimum")
	}
	if c.Cap == nil || c.Cap.Sign() <= 0 {
		return fmt.Errorf("presale: cap must be positive")
	}
	return nil
}

// Participant records the cumulative position of a single contributor. The
// record is created lazily on the first accepted purchase and never deleted;
// Claimable drains to zero on claim while Contributed only ever grows.
type Participant struct {
	Address     [20]byte
	Contributed *big.Int
	Claimable   *big.Int
}

// Clone returns a deep copy of the participant record so callers can safely
// mutate the copy without affecting the stored instance.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	clone := &Participant{Address: p.Address, Contributed: big.NewInt(0), Claimable: big.NewInt(0)}
	if p.Contributed != nil {
		clone.Contributed = new(big.Int).Set(p.Contributed)
	}
	if p.Claimable != nil {
		clone.Claimable = new(big.Int).Set(p.Claimable)
	}
	return clone
}

// SaleTotals aggregates the sale-wide counters. Both values are monotonically
// non-decreasing for the lifetime of the sale.
type SaleTotals struct {
	Raised     *big.Int
	TokensSold *big.Int
}

// Clone returns a deep copy of the totals.
func (t *SaleTotals) Clone() *SaleTotals {
	if t == nil {
		return nil
	}
	clone := &SaleTotals{Raised: big.NewInt(0), TokensSold: big.NewInt(0)}
	if t.Raised != nil {
		clone.Raised = new(big.Int).Set(t.Raised)
	}
	if t.TokensSold != nil {
		clone.TokensSold = new(big.Int).Set(t.TokensSold)
	}
	return clone
}

// Receipt summarises an accepted purchase.
type Receipt struct {
	Buyer  [20]byte
	Amount *big.Int
	Tokens *big.Int
}

// NormalizeToken ensures the provided ticker matches a supported asset ("BNB"
// or "TAKO") and returns the canonical uppercase form.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	switch trimmed {
	case BaseToken, SaleToken:
		return trimmed, nil
	default:
		return "", fmt.Errorf("unsupported presale token: %s", symbol)
	}
}
