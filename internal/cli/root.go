package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tcmerge",
	Short: "Reconcile taskwarrior sync-conflict databases",
	Long: `tcmerge merges Syncthing sync-conflict copies of the taskchampion
database back into the primary copy. Edits from every copy are unioned at
the operation-log level, field conflicts resolve last-writer-wins, and
deleted tasks stay deleted. Consumed conflict files are backed up and then
removed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("task-dir", "", "Taskwarrior data directory (overrides TCMERGE_TASK_DIR)")
	rootCmd.PersistentFlags().String("state-dir", "", "Backup directory (overrides TCMERGE_STATE_DIR)")
}
