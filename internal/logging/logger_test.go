package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rigshift/internal/config"
	"rigshift/internal/logging"
	"rigshift/internal/services"
)

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello", logging.String("joint", "Hip"))

	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "rigshift-*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one run log, got %v", matches)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("run log is not JSON: %v (%q)", err, content)
	}
	if record["msg"] != "hello" || record["joint"] != "Hip" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestConsoleLoggerFormatsComponentAndSubject(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "jobs")
	logger.Info("status changed", logging.String(logging.FieldJobID, "0123456789abcdef"), logging.String("status", "running"))

	line := buf.String()
	if !strings.Contains(line, "INFO  jobs: status changed [job 01234567]") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "status=running") {
		t.Fatalf("missing attribute: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestJSONLoggerQuotesAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", logging.Error(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["level"] != "warn" || record["error"] != "boom" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithSessionID(context.Background(), "sess-1")
	ctx = services.WithFrame(ctx, 7)
	ctx = services.WithRequestID(ctx, "req-9")

	logging.WithContext(ctx, logger).Info("frame")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldSessionID] != "sess-1" || record[logging.FieldFrame] != float64(7) || record[logging.FieldCorrelationID] != "req-9" {
		t.Fatalf("context fields missing: %v", record)
	}
}

func TestWithSessionStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WithSession(logger, "abc").With(logging.Joint("Head")).Info("bound")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldSessionID] != "abc" || record[logging.FieldJoint] != "Head" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestTeeHandlerWritesAll(t *testing.T) {
	var a, b bytes.Buffer
	first, _ := logging.New(logging.Options{Format: "json", Writer: &a})
	second, _ := logging.New(logging.Options{Format: "console", Writer: &b, Level: "error"})

	logging.NewComponentLogger(nil, "ignored").Info("discarded")

	tee := logging.TeeHandler(first.Handler(), nil, second.Handler())
	teed := logging.NewComponentLogger(slog.New(tee), "tee")
	teed.Info("info line")
	teed.Error("error line")

	if strings.Count(a.String(), "\n") != 2 {
		t.Fatalf("json handler should see both records, got %q", a.String())
	}
	if strings.Count(b.String(), "\n") != 1 || !strings.Contains(b.String(), "error line") {
		t.Fatalf("console handler should only see the error, got %q", b.String())
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New(logging.Options{Format: "json", Writer: &buf})
	logging.WarnWithContext(logger, "unresolved joint", "joint_unresolved", logging.Joint("LeftToeBase"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := record[key]; !ok {
			t.Fatalf("missing %s in %v", key, record)
		}
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "rigshift-old.log")
	current := filepath.Join(dir, "rigshift-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		stale := time.Now().AddDate(0, 0, -10)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "rigshift-*.log",
		Exclude: []string{current},
	})
	if removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
	if logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: dir}) != 0 {
		t.Fatal("zero retention must not prune")
	}
}

func TestProgressSampler(t *testing.T) {
	s := logging.NewProgressSampler(25)
	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{0, "running", true},
		{10, "running", false},
		{26, "running", true},
		{30, "running", false},
		{-1, "done", true},
		{-1, "done", false},
		{120, "done", true},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d: got %v want %v", i, got, step.want)
		}
	}
	s.Reset()
	if !s.ShouldLog(0, "running") {
		t.Fatal("expected emit after reset")
	}
}
