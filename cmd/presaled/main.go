package main

import (
	"flag"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"takochain/config"
	"takochain/native/presale"
	"takochain/observability"
	"takochain/observability/logging"
	"takochain/rpc"
	"takochain/state"
	"takochain/storage"
)

const envVar = "TAKO_ENV"

func newAmount(s string) (*big.Int, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return big.NewInt(0), true
	}
	return new(big.Int).SetString(trimmed, 10)
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))
	logger := logging.Setup("presaled", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	saleCfg, err := cfg.SaleConfig()
	if err != nil {
		logger.Error("invalid sale parameters", slog.Any("error", err))
		os.Exit(1)
	}
	owner, err := cfg.OwnerAddress()
	if err != nil {
		logger.Error("invalid owner address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.String("dir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)

	// First boot: place the sale allocation in the vault so claims can settle
	// and fund any genesis accounts.
	seeded, err := manager.CreditVault(saleCfg.Token, saleCfg.Cap)
	if err != nil {
		logger.Error("failed to seed vault", slog.Any("error", err))
		os.Exit(1)
	}
	if seeded {
		logger.Info("vault seeded with sale allocation",
			slog.String("token", saleCfg.Token),
			slog.String("allocation", saleCfg.Cap.String()))
	}
	for _, acct := range cfg.Genesis {
		addr, err := config.ParseAddress(acct.Address)
		if err != nil {
			logger.Error("invalid genesis address", slog.String("address", acct.Address), slog.Any("error", err))
			os.Exit(1)
		}
		balance, ok := newAmount(acct.BalanceBNB)
		if !ok {
			logger.Error("invalid genesis balance", slog.String("address", acct.Address))
			os.Exit(1)
		}
		funded, err := manager.SeedAccount(addr, balance)
		if err != nil {
			logger.Error("failed to fund genesis account", slog.String("address", acct.Address), slog.Any("error", err))
			os.Exit(1)
		}
		if funded {
			logger.Info("genesis account funded", slog.String("address", acct.Address))
		}
	}

	engine, err := presale.NewEngine(saleCfg)
	if err != nil {
		logger.Error("failed to build presale engine", slog.Any("error", err))
		os.Exit(1)
	}
	engine.SetState(manager)
	engine.SetOwner(owner)
	engine.SetVault(state.VaultAddress(saleCfg.Token))
	engine.SetEmitter(observability.NewEventRecorder(logger))

	logger.Info("presale ledger ready",
		slog.String("token", saleCfg.Token),
		slog.Int64("start", saleCfg.StartTime),
		slog.Int64("end", saleCfg.EndTime),
		slog.String("rate", saleCfg.Rate.String()),
		slog.String("cap", saleCfg.Cap.String()))

	server := rpc.NewServer(engine, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
