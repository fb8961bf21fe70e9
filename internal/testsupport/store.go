package testsupport

import (
	"context"
	"testing"

	"rigshift/internal/config"
	"rigshift/internal/jobstore"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedJob stores a job with the given id and status.
func SeedJob(t testing.TB, store *jobstore.Store, id string, status jobstore.Status) *jobstore.Job {
	t.Helper()

	job := &jobstore.Job{
		JobID:             id,
		Filename:          "rig.glb",
		Status:            status,
		R2ETETASeconds:    -1,
		StudentETASeconds: -1,
	}
	if err := store.Replace(context.Background(), job); err != nil {
		t.Fatalf("store.Replace: %v", err)
	}
	return job
}
