package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/tcmerge/internal/config"
	"github.com/lherron/tcmerge/internal/reconcile"
)

// buildOptions loads configuration and applies flag overrides.
func buildOptions(cmd *cobra.Command) (reconcile.Options, error) {
	cfg, err := config.Load()
	if err != nil {
		return reconcile.Options{}, fmt.Errorf("failed to load config: %w", err)
	}

	if taskDir := cmd.Flag("task-dir").Value.String(); taskDir != "" {
		cfg.TaskDir = taskDir
	}
	if stateDir := cmd.Flag("state-dir").Value.String(); stateDir != "" {
		cfg.StateDir = stateDir
	}

	return reconcile.Options{
		TaskDir:  cfg.TaskDir,
		StateDir: cfg.StateDir,
		Keep:     cfg.Keep,
	}, nil
}
