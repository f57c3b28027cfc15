package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"takochain/native/presale"
)

// Default sale constants: a 1–15 BNB band per participant and a 100,000 TAKO
// cap, both scaled by 1e18.
const (
	defaultMinContribution = "1000000000000000000"
	defaultMaxContribution = "15000000000000000000"
	defaultCap             = "100000000000000000000000"
	defaultRate            = 1000
)

type Config struct {
	RPCAddress string `toml:"RPCAddress"`
	DataDir    string `toml:"DataDir"`
	Env        string `toml:"Env"`

	Sale    SaleSection      `toml:"sale"`
	Genesis []GenesisAccount `toml:"genesis"`
}

// SaleSection carries the immutable sale parameters as they appear in the TOML
// file. Monetary values are decimal strings in wei to avoid TOML integer
// overflow.
type SaleSection struct {
	Token           string `toml:"Token"`
	Owner           string `toml:"Owner"`
	Rate            int64  `toml:"Rate"`
	StartTime       int64  `toml:"StartTime"`
	EndTime         int64  `toml:"EndTime"`
	MinContribution string `toml:"MinContribution"`
	MaxContribution string `toml:"MaxContribution"`
	Cap             string `toml:"Cap"`
}

// GenesisAccount funds an address with an opening base-currency balance on
// first boot.
type GenesisAccount struct {
	Address    string `toml:"Address"`
	BalanceBNB string `toml:"BalanceBNB"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = "localhost:8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./takodata"
	}
	if strings.TrimSpace(c.Sale.Token) == "" {
		c.Sale.Token = presale.SaleToken
	}
	if c.Sale.Rate == 0 {
		c.Sale.Rate = defaultRate
	}
	if strings.TrimSpace(c.Sale.MinContribution) == "" {
		c.Sale.MinContribution = defaultMinContribution
	}
	if strings.TrimSpace(c.Sale.MaxContribution) == "" {
		c.Sale.MaxContribution = defaultMaxContribution
	}
	if strings.TrimSpace(c.Sale.Cap) == "" {
		c.Sale.Cap = defaultCap
	}
}

// Validate checks the loaded configuration for the mistakes an operator could
// plausibly make: malformed addresses, inverted windows, unparseable amounts.
func (c *Config) Validate() error {
	if _, err := ParseAddress(c.Sale.Owner); err != nil {
		return fmt.Errorf("config: sale owner: %w", err)
	}
	saleCfg, err := c.SaleConfig()
	if err != nil {
		return err
	}
	if err := saleCfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for i, acct := range c.Genesis {
		if _, err := ParseAddress(acct.Address); err != nil {
			return fmt.Errorf("config: genesis account %d: %w", i, err)
		}
		if _, err := parseAmount(acct.BalanceBNB); err != nil {
			return fmt.Errorf("config: genesis account %d balance: %w", i, err)
		}
	}
	return nil
}

// SaleConfig converts the TOML section into the engine's sale parameters.
func (c *Config) SaleConfig() (*presale.SaleConfig, error) {
	min, err := parseAmount(c.Sale.MinContribution)
	if err != nil {
		return nil, fmt.Errorf("config: minimum contribution: %w", err)
	}
	max, err := parseAmount(c.Sale.MaxContribution)
	if err != nil {
		return nil, fmt.Errorf("config: maximum contribution: %w", err)
	}
	saleCap, err := parseAmount(c.Sale.Cap)
	if err != nil {
		return nil, fmt.Errorf("config: cap: %w", err)
	}
	return (&presale.SaleConfig{
		Token:           c.Sale.Token,
		Rate:            big.NewInt(c.Sale.Rate),
		StartTime:       c.Sale.StartTime,
		EndTime:         c.Sale.EndTime,
		MinContribution: min,
		MaxContribution: max,
		Cap:             saleCap,
	}).Normalize(), nil
}

// OwnerAddress returns the parsed administrator address.
func (c *Config) OwnerAddress() ([20]byte, error) {
	return ParseAddress(c.Sale.Owner)
}

// ParseAddress decodes a 0x-prefixed or bare 40-character hex address.
func ParseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return addr, fmt.Errorf("address required")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid hex address %q", s)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("address must be %d bytes, got %d", len(addr), len(raw))
	}
	copy(addr[:], raw)
	if addr == ([20]byte{}) {
		return addr, fmt.Errorf("zero address not allowed")
	}
	return addr, nil
}

func parseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", s)
	}
	return v, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	// The default file still needs an owner and a sale window before the
	// daemon will start; surface that instead of running unconfigured.
	return cfg, fmt.Errorf("config: wrote default config to %s; set sale.Owner, sale.StartTime and sale.EndTime", path)
}
