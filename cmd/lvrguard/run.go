package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lvrguard/internal/api"
	"lvrguard/internal/bank"
	"lvrguard/internal/chain"
	"lvrguard/internal/config"
	"lvrguard/internal/hook"
	"lvrguard/internal/notify"
	"lvrguard/internal/oracle"
	"lvrguard/internal/registry"
	"lvrguard/internal/storage"
	"lvrguard/internal/storage/postgres"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the auction engine and API server",
		RunE:  runEngine,
	}

	runCmd.Flags().String("listen", ":8080", "API listen address")
	runCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	runCmd.Flags().String("oracle-address", "", "price oracle contract address")
	runCmd.Flags().String("registry-address", "", "operator registry contract address")
	runCmd.Flags().String("registry-id", "", "operator registry id (bytes32 hex)")
	runCmd.Flags().String("treasury-key", "", "treasury private key path for payouts")
	runCmd.Flags().String("owner", "", "engine owner address")
	runCmd.Flags().String("pool-manager", "", "trusted pool manager address")
	runCmd.Flags().String("fee-recipient", "", "protocol fee recipient address")
	runCmd.Flags().Uint64("threshold-bps", 50, "deviation trigger threshold in basis points")
	runCmd.Flags().Uint64("fee-bps", 0, "protocol fee in basis points")
	runCmd.Flags().Duration("auction-duration", time.Minute, "bidding window duration")
	runCmd.Flags().Duration("void-grace", time.Hour, "grace after window end before voiding is allowed")
	runCmd.Flags().String("min-operator-stake", "0", "minimum registry stake for authorization (wei)")
	runCmd.Flags().StringSlice("operator", nil, "operator addresses to authorize on startup (comma-separated)")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for settlement history")
	runCmd.Flags().String("redis-url", "", "Redis URL for event publishing")
	runCmd.Flags().String("redis-channel", "lvrguard.events", "Redis pub/sub channel")
	runCmd.Flags().String("journal", "./data/events.jsonl", "event journal JSONL path")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().String("log-file", "", "optional rotating log file path")

	return runCmd
}

func runEngine(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Owner == "" {
		return fmt.Errorf("owner address is required")
	}
	if cfg.PoolManager == "" {
		return fmt.Errorf("pool manager address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chainClient *chain.Client
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
	}

	var priceSource oracle.Source
	if chainClient != nil && cfg.OracleAddress != "" {
		priceSource, err = oracle.NewEthSource(chainClient, common.HexToAddress(cfg.OracleAddress))
		if err != nil {
			return fmt.Errorf("oracle adapter: %w", err)
		}
	} else {
		logger.Warn("no price oracle configured, swap-time detection disabled")
	}

	var operatorRegistry registry.Registry
	if chainClient != nil && cfg.RegistryAddress != "" {
		operatorRegistry, err = registry.NewEthRegistry(chainClient, common.HexToAddress(cfg.RegistryAddress))
		if err != nil {
			return fmt.Errorf("registry adapter: %w", err)
		}
	}

	var payer bank.Payer
	if chainClient != nil && cfg.TreasuryKeyPath != "" {
		ethPayer, err := bank.NewEthPayer(chainClient, cfg.TreasuryKeyPath, logger)
		if err != nil {
			return err
		}
		balance, err := chainClient.BalanceAt(ctx, ethPayer.From())
		if err != nil {
			return fmt.Errorf("treasury balance: %w", err)
		}
		logger.Info("treasury payer ready",
			zap.String("from", ethPayer.From().Hex()),
			zap.String("balance_wei", balance.String()),
		)
		payer = ethPayer
	} else {
		logger.Warn("no treasury key configured, payouts run against in-memory payer")
		payer = bank.NewMemory()
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
	}

	hub := api.NewHub(logger)
	sinks := []hook.Notifier{hub}
	if cfg.JournalPath != "" {
		sinks = append(sinks, notify.NewJournalSink(storage.NewJournal(cfg.JournalPath), logger))
	}
	if cfg.RedisURL != "" {
		redisSink, err := notify.NewRedisSink(cfg.RedisURL, cfg.RedisChannel, logger)
		if err != nil {
			return fmt.Errorf("redis sink: %w", err)
		}
		defer redisSink.Close()
		sinks = append(sinks, redisSink)
	}
	if store != nil {
		sinks = append(sinks, notify.NewRecorder(store, logger))
	}

	minStake, ok := new(big.Int).SetString(cfg.MinOperatorStake, 10)
	if !ok {
		return fmt.Errorf("invalid min-operator-stake: %s", cfg.MinOperatorStake)
	}

	owner := common.HexToAddress(cfg.Owner)
	engine, err := hook.New(hook.Config{
		Owner:                 owner,
		PoolManager:           common.HexToAddress(cfg.PoolManager),
		FeeRecipient:          common.HexToAddress(cfg.FeeRecipient),
		DeviationThresholdBps: cfg.ThresholdBps,
		ProtocolFeeBps:        cfg.FeeBps,
		AuctionDuration:       cfg.AuctionDuration,
		VoidGrace:             cfg.VoidGrace,
		RegistryID:            common.HexToHash(cfg.RegistryID),
		MinOperatorStake:      minStake,
	}, hook.Deps{
		Oracle:   priceSource,
		Registry: operatorRegistry,
		Payer:    payer,
		Notifier: notify.NewFanout(sinks...),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	for _, addr := range cfg.Operators {
		if err := engine.AuthorizeOperator(ctx, owner, common.HexToAddress(addr)); err != nil {
			return fmt.Errorf("authorize operator %s: %w", addr, err)
		}
	}

	logger.Info("engine start",
		zap.String("listen", cfg.ListenAddr),
		zap.String("owner", cfg.Owner),
		zap.String("pool_manager", cfg.PoolManager),
		zap.Uint64("threshold_bps", cfg.ThresholdBps),
		zap.Uint64("fee_bps", cfg.FeeBps),
		zap.Duration("auction_duration", cfg.AuctionDuration),
		zap.Int("operators", len(cfg.Operators)),
		zap.Bool("postgres", store != nil),
		zap.Bool("redis", cfg.RedisURL != ""),
	)

	server := api.NewServer(engine, store, hub, logger)
	return server.Serve(ctx, cfg.ListenAddr)
}
