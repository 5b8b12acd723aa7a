package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/contract_approval/backend/internal/config"
)

func main() {
	var root = &cobra.Command{
		Use:           "contractctl",
		Short:         "Operate the contract approval assistant",
		SilenceUsage:  true,
	}

	root.AddCommand(policyCMD(), customerCMD(), chatCMD(), authCMD(), migrateCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the same settings as the server. Logs go to stderr so
// command output stays clean.
func loadConfig(verbose bool) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Str("service", "contractctl").Logger()
	return cfg, logger, nil
}
