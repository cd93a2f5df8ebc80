package main

import (
	"fmt"
	"log/slog"
	"os"

	"finance-ledger/internal/config"
	"finance-ledger/internal/database"
	"finance-ledger/internal/ledger"
	"finance-ledger/internal/logging"
	"finance-ledger/internal/router"
	"finance-ledger/internal/util"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(log)

	if cfg.JWT.Secret == "" {
		secret, err := util.RandomString(32)
		if err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.JWT.Secret = secret
		log.Warn("jwt.secret is not set, tokens will not survive a restart")
	}
	if cfg.Security.EncryptionKey == "" {
		log.Warn("security.encryption_key is empty, audit logs are stored in plain text")
	}
	if err := os.MkdirAll(cfg.Backup.Dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	svc := ledger.NewService(db,
		ledger.WithLogger(log),
		ledger.WithOpeningBalanceCategory(cfg.Ledger.OpeningBalanceCategory),
	)

	r := router.SetupRouter(cfg, db, svc, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	log.Info("server listening", slog.String("addr", addr), slog.String("driver", cfg.Database.Driver))
	return r.Run(addr)
}
