package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lherron/tcmerge/internal/conflicts"
	"github.com/lherron/tcmerge/internal/reconcile"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the task directory and merge conflict copies as they appear",
	Long: `Watch the task directory and run a merge whenever the synchronization
layer drops a new sync-conflict copy. Events are debounced so a batch of
copies arriving together is merged in one run.`,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "Delay after the last event before merging")
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(opts.TaskDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", opts.TaskDir, err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	// Catch anything already waiting before the watch started.
	mergeAndWarn(opts)

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !conflicts.MatchName(filepath.Base(event.Name)) {
				continue
			}
			debounce.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "warning: watch error: %v\n", err)

		case <-debounce.C:
			mergeAndWarn(opts)

		case <-sig:
			return nil
		}
	}
}

func mergeAndWarn(opts reconcile.Options) {
	report, err := reconcile.Run(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: merge failed: %v\n", err)
		return
	}
	if report.Merged {
		fmt.Print(renderReport(report))
	}
}
