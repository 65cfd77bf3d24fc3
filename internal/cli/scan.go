package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/tcmerge/internal/conflicts"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List sync-conflict copies without merging them",
	RunE:  runScan,
}

var scanJSON bool

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}

	disc, err := conflicts.Discover(opts.TaskDir)
	if err != nil {
		return err
	}

	if scanJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(disc)
	}

	if len(disc.Conflicts) == 0 {
		fmt.Printf("no conflict copies found for %s\n", disc.Primary)
		return nil
	}
	for _, cf := range disc.Conflicts {
		fmt.Printf("%s  %s  %s\n", cf.Timestamp.Format(time.RFC3339), cf.Device, cf.Path)
	}
	return nil
}
