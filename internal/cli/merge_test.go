package cli

import (
	"strings"
	"testing"

	"github.com/lherron/tcmerge/internal/reconcile"
)

func TestRenderReportNoConflicts(t *testing.T) {
	out := renderReport(&reconcile.Report{Primary: "/tasks/taskchampion.sqlite3"})
	if !strings.Contains(out, "no conflict copies found") {
		t.Errorf("Unexpected output: %q", out)
	}
}

func TestRenderReportMerged(t *testing.T) {
	out := renderReport(&reconcile.Report{
		Primary:    "/tasks/taskchampion.sqlite3",
		Conflicts:  []string{"/tasks/a", "/tasks/b"},
		InputOps:   10,
		MergedOps:  8,
		Duplicates: 2,
		Tasks:      3,
		Pending:    2,
		BackupDir:  "/state/2024-03-01_12-00-00",
		Merged:     true,
	})

	for _, want := range []string{
		"merged 2 conflict copies",
		"10 in, 8 merged (2 duplicates)",
		"3 (2 pending)",
		"/state/2024-03-01_12-00-00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderReportDryRun(t *testing.T) {
	out := renderReport(&reconcile.Report{
		Primary:   "/tasks/taskchampion.sqlite3",
		Conflicts: []string{"/tasks/a"},
		DryRun:    true,
		Diff:      "--- primary\n+++ merged\n",
	})
	if !strings.Contains(out, "would merge 1 conflict copy") {
		t.Errorf("Dry run phrasing wrong:\n%s", out)
	}
	if !strings.Contains(out, "+++ merged") {
		t.Errorf("Dry run should include the diff:\n%s", out)
	}
}
