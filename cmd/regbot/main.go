package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"registration-bot/config"
	"registration-bot/internal/booking"
	"registration-bot/internal/client"
	"registration-bot/internal/clock"
	"registration-bot/internal/journal"
	"registration-bot/internal/orchestrator"
	"registration-bot/internal/smscode"
)

const (
	relayCodeAttempts       = 60
	interactiveCodeAttempts = 3
)

func main() {
	configPath := "./config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration",
			zap.String("path", configPath), zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	logger.Info("configuration loaded", zap.String("path", configPath))

	svc, err := client.New(cfg.Service, logger)
	if err != nil {
		logger.Fatal("failed to create service client", zap.Error(err))
	}

	var jrnl *journal.Journal
	if cfg.Journal.Path != "" {
		jrnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("failed to open run journal",
				zap.String("path", cfg.Journal.Path), zap.Error(err))
		}
		defer jrnl.Close()
	}

	wallClock := clock.Real()
	var acquirer smscode.Acquirer
	codeAttempts := interactiveCodeAttempts
	if cfg.PhoneRelayAddr != "" {
		acquirer = smscode.NewRelay(cfg.PhoneRelayAddr,
			cfg.SMS.ServiceMarker, cfg.SMS.CodeMarker,
			time.Duration(cfg.SMS.RecencySeconds)*time.Second,
			wallClock, logger)
		codeAttempts = relayCodeAttempts
	} else {
		acquirer = smscode.NewInteractive(os.Stdin, os.Stdout)
	}

	selector := booking.NewSelector(cfg.SelectionPolicy(),
		booking.NewConsolePrompter(os.Stdin, os.Stdout), logger)

	orch := orchestrator.New(orchestrator.Params{
		Config:       cfg,
		Remote:       svc,
		Selector:     selector,
		Acquirer:     acquirer,
		CodeAttempts: codeAttempts,
		Clock:        wallClock,
		Journal:      jrnl,
		Logger:       logger,
	})

	// SIGINT/SIGTERM cancel the run; an indefinite Polling wait is
	// intentional otherwise.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutdown signal received, aborting run")
		cancel()
	}()

	state, err := orch.Run(ctx)
	if err != nil {
		logger.Error("run ended abnormally",
			zap.Stringer("state", state), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("run finished", zap.Stringer("state", state))
	if state != orchestrator.StateSucceeded {
		os.Exit(1)
	}
}

// newLogger tees human-readable progress to stdout and a JSON debug trace
// to a per-run log file.
func newLogger() (*zap.Logger, error) {
	logFile, err := os.Create(fmt.Sprintf("reg_%d.log", time.Now().Unix()))
	if err != nil {
		return nil, err
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(logFile), zap.DebugLevel),
	)
	return zap.New(core), nil
}
