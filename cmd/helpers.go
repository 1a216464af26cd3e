package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mj1618/autoshare/internal/config"
	"github.com/mj1618/autoshare/internal/logging"
	"github.com/mj1618/autoshare/internal/platform"
	"github.com/mj1618/autoshare/internal/platform/adbdev"
	"github.com/mj1618/autoshare/internal/service"
)

const defaultConfigPath = "autoshare.yaml"

// setup loads config and wires a logger and a device-backed service.
// Every command that touches a device goes through here.
func setup(cmd *cobra.Command) (*service.Service, *platform.Provider, config.Config, *slog.Logger, error) {
	// .env is optional; environment overrides still apply without it.
	_ = godotenv.Load()

	path, _ := rootCmd.PersistentFlags().GetString("config")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, nil, config.Config{}, nil, err
	}

	dev := adbdev.New(adbdev.Options{
		Serial:        cfg.Device,
		WatchInterval: cfg.WatchInterval(),
		Logger:        log,
	})
	provider := dev.Provider()
	svc := service.New(cfg, provider, log, service.LogNotifier{Log: log})
	return svc, provider, cfg, log, nil
}
