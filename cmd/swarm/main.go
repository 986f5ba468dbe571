package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"SwarmFund/internal/agent"
	"SwarmFund/internal/config"
	"SwarmFund/internal/coordinator"
	"SwarmFund/internal/gateway"
	"SwarmFund/internal/ledger"
	"SwarmFund/internal/model"
	"SwarmFund/internal/optimizer"
	"SwarmFund/internal/oracle"
	"SwarmFund/internal/recorder"
	"SwarmFund/internal/taskqueue"
	"SwarmFund/internal/tracker"

	"github.com/shopspring/decimal"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] SwarmFund starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init payment oracle
	var orc oracle.Oracle
	if cfg.Oracle.BaseURL != "" {
		orc = oracle.NewHTTPOracle(cfg.Oracle.BaseURL, cfg.Oracle.APIKey, cfg.Proxy)
	} else {
		orc = oracle.NewSimulatedOracle(cfg.Timing.OracleLatency, cfg.Oracle.FailureRate)
	}
	log.Printf("[INFO] payment oracle: %s", orc.Name())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Files.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Files.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init ledger
	led, err := ledger.Open(cfg.Files.LedgerFile)
	if err != nil {
		log.Fatalf("[FATAL] open ledger: %v", err)
	}

	// Init funds gateway
	gw := gateway.New(led, rec, decimal.NewFromFloat(cfg.Capital.SignupBonus))

	// Init task queue over the configured strategies
	weights := make(map[model.StrategyKind]float64, len(cfg.Strategies))
	kinds := make([]model.StrategyKind, 0, len(cfg.Strategies))
	for kind, w := range cfg.Weights() {
		weights[model.StrategyKind(kind)] = w
		kinds = append(kinds, model.StrategyKind(kind))
	}
	queue := taskqueue.New(kinds)

	// Init performance tracker and allocation optimizer
	trk := tracker.New(cfg.Timing.PeriodWindow)
	opt := optimizer.New(cfg.Economics.DampingFactor)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init coordinator
	coord := coordinator.New(coordinator.Options{
		TotalCapital:       decimal.NewFromFloat(cfg.Capital.Total),
		Weights:            weights,
		AgentsPerStrategy:  cfg.Agents.PerStrategy,
		MaxAgents:          cfg.Agents.Max,
		SpawnThreshold:     decimal.NewFromFloat(cfg.Agents.SpawnThreshold),
		PlatformFeeRate:    cfg.Economics.PlatformFeeRate,
		ReinvestRatio:      cfg.Economics.ReinvestRatio,
		InvestIdleFraction: cfg.Economics.InvestIdleFraction,
		InvestIdleFloor:    decimal.NewFromFloat(cfg.Economics.InvestIdleFloor),
		MonitorCron:        cfg.Schedule.MonitorCron,
		ReinvestCron:       cfg.Schedule.ReinvestCron,
		MonitorRetry:       cfg.Timing.MonitorRetry,
		ReinvestRetry:      cfg.Timing.ReinvestRetry,
		IdlePoll:           cfg.Timing.IdlePoll,
		GracePeriod:        cfg.Timing.GracePeriod,
		TaskBatchSize:      cfg.Tasks.BatchSize,
		TaskLowWater:       cfg.Tasks.LowWater,
		SnapshotFile:       cfg.Files.SnapshotFile,
		AllocationFile:     cfg.Files.AllocationFile,
		Executor:           agent.NewSimulatedExecutor(orc, cfg.Oracle.FailureRate, cfg.Timing.CallTimeout),
	}, led, queue, trk, opt, rec)

	if err := coord.Start(ctx); err != nil {
		log.Fatalf("[FATAL] start coordinator: %v", err)
	}

	// Poll the funds inbox for incoming user deposits
	go gw.WatchInbox(ctx, cfg.Files.InboxFile, cfg.Timing.InboxPoll)
	log.Printf("[INFO] funds inbox polling started: %s", cfg.Files.InboxFile)

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing monitor cycle now")
		go coord.RunMonitorNow()
	}

	log.Println("[INFO] SwarmFund is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	if err := coord.Stop(); err != nil {
		log.Printf("[ERROR] stop coordinator: %v", err)
	}
	cancel()
	log.Println("[INFO] SwarmFund stopped")
}
