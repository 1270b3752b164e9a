package activity

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/briangreenhill/ridgeline/internal/effort"
)

func TestCLIAnalyzeAndStats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.gpx")
	if err := os.WriteFile(path, []byte(morningRun), 0644); err != nil {
		t.Fatalf("Error writing gpx: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("Error writing notes: %v", err)
	}

	svc := newTestService(t)
	analyzer := newTestAnalyzer(nil)

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cli := NewCLI(&out, discardLogger(), svc, analyzer, effort.Format{}, ":0", args)
		if err := cli.Run(args); err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
		return out.String()
	}

	out := run("analyze", "--save", path)
	if !strings.Contains(out, "Morning Run (run)") || !strings.Contains(out, "Activity saved successfully") {
		t.Errorf("unexpected analyze output:\n%s", out)
	}

	out = run("stats", "--by", "type")
	if !strings.Contains(out, "run") || !strings.Contains(out, "1") {
		t.Errorf("unexpected stats output:\n%s", out)
	}

	out = run("batch", dir)
	if !strings.Contains(out, "Analyzed 1 activities, 0 failed, 0 unreadable") {
		t.Errorf("unexpected batch output:\n%s", out)
	}
}

func TestCLIAnalyzeRejectsDirectory(t *testing.T) {
	var out bytes.Buffer
	args := []string{"analyze", t.TempDir()}
	cli := NewCLI(&out, discardLogger(), nil, newTestAnalyzer(nil), effort.Format{}, ":0", args)

	if err := cli.Run(args); err == nil {
		t.Errorf("Expected an error analyzing a directory")
	}
}
