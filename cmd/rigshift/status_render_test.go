package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"rigshift/internal/jobstore"
	"rigshift/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Service", statusError, "unreachable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Service:", "[ERROR] unreachable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Model", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	results := []preflight.Result{
		{Name: "State directory", Passed: true, Detail: "/tmp/state"},
		{Name: "Model file", Passed: false, Detail: "missing"},
		{Name: "Job service", Passed: false, Detail: "unreachable", Optional: true},
	}
	lines := preflightLines(results, false)
	if len(lines) != 5 {
		t.Fatalf("expected header plus 3 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[2], "[OK] /tmp/state") {
		t.Fatalf("expected ok line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[ERROR] missing") {
		t.Fatalf("expected error line, got %q", lines[3])
	}
	if !strings.Contains(lines[4], "[WARN] unreachable") {
		t.Fatalf("expected optional failure as warning, got %q", lines[4])
	}
}

func TestJobStatusKind(t *testing.T) {
	cases := map[jobstore.Status]statusKind{
		jobstore.StatusQueued:     statusInfo,
		jobstore.StatusRunning:    statusInfo,
		jobstore.StatusDone:       statusOK,
		jobstore.StatusDownloaded: statusOK,
		jobstore.StatusError:      statusError,
		jobstore.Status("odd"):    statusWarn,
	}
	for status, want := range cases {
		if got := jobStatusKind(status); got != want {
			t.Fatalf("jobStatusKind(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
