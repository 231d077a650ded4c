// Package root contains the root command for the application
package root

import (
	"fmt"

	"fjacquet/budget-sync/internal/config"
	"fjacquet/budget-sync/internal/container"
	"fjacquet/budget-sync/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags shared by every command
type CommonFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

var (
	// Log is the shared logger instance for commands. It is replaced once
	// configuration is loaded.
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "budget-sync",
		Short: "Sync budget categories and amounts from a CSV or Excel file into YNAB.",
		Long: `budget-sync drives the YNAB web app to create missing category groups and
categories and to set budgeted amounts from a CSV or Excel file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}

	// SharedFlags holds the persistent flag values
	SharedFlags = CommonFlags{}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default searches $HOME/.budget-sync, .budget-sync and .)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format (text or json)")
}

// LoadConfig reads the configuration and applies the persistent flag overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.InitializeConfig(SharedFlags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.LogFormat != "" {
		cfg.Log.Format = SharedFlags.LogFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewContainer loads the configuration and wires the application.
func NewContainer() (*container.Container, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return container.NewContainer(cfg)
}
