package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
RPCAddress = "localhost:9001"
DataDir = "/tmp/tako"

[sale]
Owner = "0x0101010101010101010101010101010101010101"
StartTime = 100
EndTime = 200
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "localhost:9001" {
		t.Fatalf("unexpected RPC address %q", cfg.RPCAddress)
	}
	saleCfg, err := cfg.SaleConfig()
	if err != nil {
		t.Fatalf("sale config: %v", err)
	}
	if saleCfg.Rate.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected default rate 1000, got %s", saleCfg.Rate)
	}
	min, _ := new(big.Int).SetString("1000000000000000000", 10)
	if saleCfg.MinContribution.Cmp(min) != 0 {
		t.Fatalf("expected default min contribution, got %s", saleCfg.MinContribution)
	}
	owner, err := cfg.OwnerAddress()
	if err != nil {
		t.Fatalf("owner address: %v", err)
	}
	if owner[0] != 0x01 {
		t.Fatalf("unexpected owner %x", owner)
	}
}

func TestLoadRejectsMissingOwner(t *testing.T) {
	body := `
[sale]
StartTime = 100
EndTime = 200
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected error for missing owner")
	}
}

func TestLoadRejectsInvertedWindow(t *testing.T) {
	body := `
[sale]
Owner = "0x0101010101010101010101010101010101010101"
StartTime = 200
EndTime = 100
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected error for inverted sale window")
	}
}

func TestLoadRejectsMalformedAmount(t *testing.T) {
	body := validConfig + `
MinContribution = "one"
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := Load(path); err == nil {
		t.Fatal("expected default config creation to demand an owner")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("0x0101010101010101010101010101010101010101"); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
	if _, err := ParseAddress("0101010101010101010101010101010101010101"); err != nil {
		t.Fatalf("bare hex address rejected: %v", err)
	}
	for _, bad := range []string{"", "0x1234", "0xzz01010101010101010101010101010101010101", "0x0000000000000000000000000000000000000000"} {
		if _, err := ParseAddress(bad); err == nil {
			t.Fatalf("expected rejection of %q", bad)
		}
	}
}

func TestGenesisValidation(t *testing.T) {
	body := validConfig + `
[[genesis]]
Address = "0x4242424242424242424242424242424242424242"
BalanceBNB = "20000000000000000000"
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Genesis) != 1 {
		t.Fatalf("expected one genesis account, got %d", len(cfg.Genesis))
	}

	bad := validConfig + `
[[genesis]]
Address = "not-an-address"
BalanceBNB = "1"
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected error for malformed genesis address")
	}
}
