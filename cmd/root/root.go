// Package root contains the root command for the application
package root

import (
	"errors"
	"sync"

	"fjacquet/anapay2zaim/internal/config"
	"fjacquet/anapay2zaim/internal/container"
	"fjacquet/anapay2zaim/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to all commands
type CommonFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

var (
	// Log is the shared logger instance for commands
	Log logging.Logger = logging.Nop()

	// AppContainer is built by Bootstrap before any sub-command runs
	AppContainer *container.Container

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "anapay2zaim",
		Short: "Register ANA Pay payment notifications as Zaim expenses.",
		Long: `anapay2zaim reads ANA Pay payment notification mails from an IMAP mailbox,
extracts amount, merchant and time, maps the merchant to a Zaim genre and category
and registers each payment exactly once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to anapay2zaim!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return Bootstrap()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if AppContainer == nil {
				return nil
			}
			return AppContainer.Close()
		},
	}

	// SharedFlags holds the persistent flag values
	SharedFlags = CommonFlags{}

	initOnce sync.Once
)

// Init initializes the root command and all flags
func Init() {
	initOnce.Do(func() {
		Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default: config.yaml in $HOME/.anapay2zaim, .anapay2zaim or .)")
		Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
		Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format (text, json)")
	})
}

// Bootstrap loads the configuration, applies flag overrides and builds the container.
func Bootstrap(opts ...container.Option) error {
	cfg, err := config.InitializeConfig(SharedFlags.ConfigFile)
	if err != nil {
		return err
	}

	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.LogFormat != "" {
		cfg.Log.Format = SharedFlags.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, err := container.NewContainer(cfg, opts...)
	if err != nil {
		return err
	}
	AppContainer = c
	Log = c.GetLogger()
	return nil
}

// GetContainer returns the container built by Bootstrap.
func GetContainer() (*container.Container, error) {
	if AppContainer == nil {
		return nil, errors.New("application not initialized")
	}
	return AppContainer, nil
}
