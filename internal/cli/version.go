package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current tcmerge version
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tcmerge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tcmerge %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
