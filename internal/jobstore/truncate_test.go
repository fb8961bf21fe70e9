package jobstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenTruncatesExtraRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")

	store, err := OpenPath(ctx, path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		_, err := store.db.ExecContext(ctx, `INSERT INTO jobs (job_id, filename, status, created_at, updated_at)
			VALUES (?, 'rig.glb', 'queued', ?, ?)`,
			id, base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339Nano), base.Format(time.RFC3339Nano))
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	store.Close()

	store, err = OpenPath(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	var count int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row after truncation, got %d", count)
	}
	job, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if job.JobID != "first" {
		t.Fatalf("expected first-created job kept, got %q", job.JobID)
	}
}
