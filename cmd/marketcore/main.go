// Command marketcore runs the coordinator (session, distributor, queue,
// persistence, broadcast, publisher, matching engine) and an operator
// console on top of it, adapted from the teacher's fixclient.Repl.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"marketcore/coordinator"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/config.yaml", "path to the coordinator YAML config")
	fixSettingsPath := flag.String("fix-settings", "configs/fix.cfg", "path to the QuickFIX session settings file")
	flag.Parse()

	cfg, err := coordinator.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketcore: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "marketcore: invalid configuration: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketcore: logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	coord, err := coordinator.New(*cfg, logger)
	if err != nil {
		logger.Error("marketcore: failed to build coordinator", zap.Error(err))
		return 1
	}
	defer coord.Close()

	settingsFile, err := os.Open(*fixSettingsPath)
	if err != nil {
		logger.Error("marketcore: failed to open FIX settings", zap.Error(err))
		return 1
	}
	defer settingsFile.Close()

	fixSettings, err := quickfix.ParseSettings(settingsFile)
	if err != nil {
		logger.Error("marketcore: failed to parse FIX settings", zap.Error(err))
		return 1
	}
	storeFactory := quickfix.NewFileStoreFactory(fixSettings)
	logFactory, err := quickfix.NewFileLogFactory(fixSettings)
	if err != nil {
		logger.Error("marketcore: failed to build FIX log factory", zap.Error(err))
		return 1
	}

	console := newConsole(coord, coordinator.SessionSettings{
		Settings:     fixSettings,
		StoreFactory: storeFactory,
		LogFactory:   logFactory,
	})
	return console.run(context.Background())
}

func newLogger(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		var lvl zap.AtomicLevel
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = lvl
		}
	}
	return cfg.Build()
}
