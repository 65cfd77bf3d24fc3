// Package reconcile runs the full merge pipeline: discover conflict copies,
// load every input, merge and project, back up the consumed files, replace
// the primary atomically, and retire the conflict copies.
//
// All failure paths before the write leave every input untouched; conflict
// files are only deleted after the primary has been successfully replaced.
package reconcile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/lherron/tcmerge/internal/conflicts"
	"github.com/lherron/tcmerge/internal/domain"
	"github.com/lherron/tcmerge/internal/history"
	"github.com/lherron/tcmerge/internal/lockfile"
	"github.com/lherron/tcmerge/internal/merge"
	"github.com/lherron/tcmerge/internal/oplog"
	"github.com/lherron/tcmerge/internal/store"
)

// Options configures one merge run.
type Options struct {
	TaskDir  string
	StateDir string
	Keep     int  // backup directories to retain; history.DefaultKeep if zero
	DryRun   bool // compute and report, but write and delete nothing

	Now      func() time.Time // test seam; time.Now if nil
	Warnings io.Writer        // non-fatal diagnostics; os.Stderr if nil
}

// Report summarizes a merge run.
type Report struct {
	Primary    string           `json:"primary"`
	Conflicts  []string         `json:"conflicts"`
	Skipped    []string         `json:"skipped,omitempty"` // conflict files that vanished mid-run
	InputOps   int              `json:"input_ops"`
	MergedOps  int              `json:"merged_ops"`
	Duplicates int              `json:"duplicates"`
	Tasks      int              `json:"tasks"`
	Pending    int              `json:"pending"`
	Anomalies  []domain.Anomaly `json:"anomalies,omitempty"`
	Diff       string           `json:"diff,omitempty"` // projection diff, primary vs merged
	BackupDir  string           `json:"backup_dir,omitempty"`
	DryRun     bool             `json:"dry_run"`
	Merged     bool             `json:"merged"` // false when there was nothing to do
}

// Run executes the pipeline and returns a report of what happened (or, in
// dry-run mode, what would have happened).
func Run(opts Options) (*Report, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Warnings == nil {
		opts.Warnings = os.Stderr
	}

	disc, err := conflicts.Discover(opts.TaskDir)
	if err != nil {
		return nil, err
	}

	report := &Report{Primary: disc.Primary, DryRun: opts.DryRun}
	archive := &history.Archive{StateDir: opts.StateDir}

	if len(disc.Conflicts) == 0 {
		// Nothing to merge; still honor backup retention.
		if !opts.DryRun {
			if _, err := archive.Prune(opts.Keep); err != nil {
				fmt.Fprintf(opts.Warnings, "warning: %v\n", err)
			}
		}
		return report, nil
	}

	lock, err := lockfile.Acquire(disc.Primary + ".lock")
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	primary, err := store.Read(disc.Primary, 0)
	if err != nil {
		return nil, err
	}

	logs := []oplog.Log{{Replica: 0, Ops: primary.Log}}
	var consumed []string
	for i, cf := range disc.Conflicts {
		rep, err := store.Read(cf.Path, i+1)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Fprintf(opts.Warnings, "warning: conflict file vanished, skipping: %s\n", cf.Path)
				report.Skipped = append(report.Skipped, cf.Path)
				continue
			}
			return nil, err
		}
		logs = append(logs, oplog.Log{Replica: rep.ID, Ops: rep.Log})
		consumed = append(consumed, cf.Path)
		report.Conflicts = append(report.Conflicts, cf.Path)
	}

	if len(consumed) == 0 {
		return report, nil
	}

	result, err := merge.Merge(logs...)
	if err != nil {
		return nil, err
	}
	proj := merge.Project(result.Ops)

	report.InputOps = result.InputOps
	report.MergedOps = len(result.Ops)
	report.Duplicates = result.Duplicates
	report.Tasks = len(proj.Tasks)
	report.Pending = len(proj.Pending())
	report.Anomalies = proj.Anomalies
	report.Diff = projectionDiff(merge.Project(primary.Log), proj)

	for _, anomaly := range proj.Anomalies {
		fmt.Fprintf(opts.Warnings, "warning: %s\n", anomaly)
	}

	if opts.DryRun {
		return report, nil
	}

	backupDir, err := archive.Backup(opts.Now(), append([]string{disc.Primary}, consumed...))
	if err != nil {
		return nil, err
	}
	report.BackupDir = backupDir

	if err := store.Write(disc.Primary, result.Ops, proj.Tasks, primary.SyncMeta); err != nil {
		return nil, err
	}
	report.Merged = true

	// The merge is durable; failing to retire a conflict copy only means
	// it gets picked up again by a later (idempotent) run.
	for _, path := range consumed {
		if err := os.Remove(path); err != nil {
			fmt.Fprintf(opts.Warnings, "warning: failed to remove consumed conflict file %s: %v\n", path, err)
		}
	}

	if _, err := archive.Prune(opts.Keep); err != nil {
		fmt.Fprintf(opts.Warnings, "warning: %v\n", err)
	}

	return report, nil
}

// projectionDiff renders a unified diff between two projections, one line
// per task, for dry-run reports.
func projectionDiff(before, after *merge.Projection) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(summarize(before)),
		B:        difflib.SplitLines(summarize(after)),
		FromFile: "primary",
		ToFile:   "merged",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

func summarize(proj *merge.Projection) string {
	var sb strings.Builder
	for _, id := range proj.TaskIDs() {
		task := proj.Tasks[id]
		status := task.Get("status")
		if status == "" {
			status = "?"
		}
		fmt.Fprintf(&sb, "%s\t%s\t%s\n", id, status, task.Get("description"))
	}
	return sb.String()
}
