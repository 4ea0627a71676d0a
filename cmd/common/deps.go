// Package common provides shared utilities for command implementations.
package common

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/K11E3R/moroccan-education-API/internal/config"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

// ConfigFileKey is the viper key the root --config flag is bound to.
const ConfigFileKey = "config"

// CommandDeps holds common dependencies for all commands.
type CommandDeps struct {
	Logger logger.Interface
	Config *config.Config
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// NewCommandDeps loads the configuration from the global viper instance
// and creates the logger.
func NewCommandDeps() (CommandDeps, error) {
	v := viper.GetViper()
	if err := config.InitViper(v, v.GetString(ConfigFileKey)); err != nil {
		return CommandDeps{}, fmt.Errorf("init config: %w", err)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}

	deps := CommandDeps{
		Logger: log,
		Config: cfg,
	}

	if validateErr := deps.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate deps: %w", validateErr)
	}

	return deps, nil
}

// BindFlags binds command flags to config keys. Only flags set on the
// command line override the other configuration sources.
func BindFlags(cmd *cobra.Command, bindings map[string]string) error {
	for key, name := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag --%s", name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}
