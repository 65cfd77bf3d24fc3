package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/tcmerge/internal/reconcile"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge pending sync-conflict copies into the primary database",
	Long: `Merge all sync-conflict copies found in the task directory into the
primary database.

The primary is replaced atomically; every consumed input is backed up into
the state directory first, and conflict copies are deleted only after the
merged database has been written. With no conflict copies present this is a
no-op.

Examples:
  tcmerge merge                   # merge everything in the default task dir
  tcmerge merge --dry-run         # report what would change, touch nothing
  tcmerge merge --report out.json # also write the run report as JSON
`,
	RunE: runMerge,
}

var (
	mergeDryRun     bool
	mergeKeep       int
	mergeJSON       bool
	mergeReportPath string
)

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "Do not actually make changes, only report what would happen")
	mergeCmd.Flags().IntVar(&mergeKeep, "keep", 0, "Backup directories to retain (overrides TCMERGE_KEEP)")
	mergeCmd.Flags().BoolVar(&mergeJSON, "json", false, "Output the run report as JSON")
	mergeCmd.Flags().StringVar(&mergeReportPath, "report", "", "Write the run report as JSON to a path")
}

func runMerge(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	opts.DryRun = mergeDryRun
	if mergeKeep > 0 {
		opts.Keep = mergeKeep
	}

	report, err := reconcile.Run(opts)
	if err != nil {
		return err
	}

	if mergeReportPath != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := os.WriteFile(mergeReportPath, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if mergeJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Print(renderReport(report))
	return nil
}

// renderReport formats a run report for humans.
func renderReport(r *reconcile.Report) string {
	var sb strings.Builder

	if len(r.Conflicts) == 0 {
		fmt.Fprintf(&sb, "no conflict copies found for %s\n", r.Primary)
		return sb.String()
	}

	verb := "merged"
	if r.DryRun {
		verb = "would merge"
	}
	fmt.Fprintf(&sb, "%s %d conflict cop%s into %s\n", verb, len(r.Conflicts), plural(len(r.Conflicts), "y", "ies"), r.Primary)
	fmt.Fprintf(&sb, "  operations: %d in, %d merged (%d duplicates)\n", r.InputOps, r.MergedOps, r.Duplicates)
	fmt.Fprintf(&sb, "  tasks: %d (%d pending)\n", r.Tasks, r.Pending)
	if len(r.Anomalies) > 0 {
		fmt.Fprintf(&sb, "  anomalies: %d (see warnings)\n", len(r.Anomalies))
	}
	if r.BackupDir != "" {
		fmt.Fprintf(&sb, "  backup: %s\n", r.BackupDir)
	}
	if r.DryRun && r.Diff != "" {
		sb.WriteString("\n")
		sb.WriteString(r.Diff)
	}
	return sb.String()
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
