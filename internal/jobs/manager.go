package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"rigshift/internal/jobstore"
	"rigshift/internal/logging"
	"rigshift/internal/services"
)

// ErrJobPending is returned by Submit while another job is tracked.
var ErrJobPending = errors.New("a job is already pending; delete it first")

// ErrWatchLocked means another process is already polling the job.
var ErrWatchLocked = errors.New("another rigshift process is watching the job")

// StatusQueryFailed is the message recorded when a status refresh fails.
const StatusQueryFailed = "status query failed"

// Manager applies the single-job policy on top of a Service.
type Manager struct {
	service      Service
	store        *jobstore.Store
	downloadDir  string
	lockPath     string
	pollInterval time.Duration
	logger       *slog.Logger
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	DownloadDir  string
	LockPath     string
	PollInterval time.Duration
	Logger       *slog.Logger
}

// NewManager builds a manager around service and store.
func NewManager(service Service, store *jobstore.Store, opts ManagerOptions) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Manager{
		service:      service,
		store:        store,
		downloadDir:  opts.DownloadDir,
		lockPath:     opts.LockPath,
		pollInterval: opts.PollInterval,
		logger:       logging.NewComponentLogger(opts.Logger, "jobs"),
	}
}

// Current returns the tracked job.
func (m *Manager) Current(ctx context.Context) (*jobstore.Job, error) {
	return m.store.Current(ctx)
}

// Submit uploads the rig at path and starts tracking the new job.
func (m *Manager) Submit(ctx context.Context, path string) (*jobstore.Job, error) {
	if existing, err := m.store.Current(ctx); err == nil {
		return existing, fmt.Errorf("%w (job %s is %s)", ErrJobPending, existing.JobID, existing.Status)
	} else if !errors.Is(err, services.ErrNotFound) {
		return nil, err
	}

	res, err := m.service.Upload(ctx, path)
	if err != nil {
		return nil, err
	}
	job := &jobstore.Job{
		JobID:             res.JobID,
		Filename:          filepath.Base(path),
		Status:            jobstore.ParseStatus(res.Status),
		R2ETETASeconds:    -1,
		StudentETASeconds: -1,
	}
	if job.Status == "" {
		job.Status = jobstore.StatusQueued
	}
	if err := m.store.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("record job %s: %w", job.JobID, err)
	}
	m.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("file", job.Filename),
		logging.String("status", string(job.Status)),
	)
	return job, nil
}

// Refresh pulls the current status from the service. A failed query marks
// the job as errored locally and returns the query error.
func (m *Manager) Refresh(ctx context.Context) (*jobstore.Job, error) {
	job, err := m.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	if job.Status == jobstore.StatusDownloaded {
		return job, nil
	}

	res, queryErr := m.service.Status(services.WithJobID(ctx, job.JobID), job.JobID)
	if queryErr != nil {
		job.Status = jobstore.StatusError
		job.Message = StatusQueryFailed
		if err := m.store.Update(ctx, job); err != nil {
			return job, errors.Join(queryErr, err)
		}
		logging.WarnWithContext(m.logger, "job status query failed", "job_status",
			logging.String(logging.FieldJobID, job.JobID),
			logging.Error(queryErr),
			logging.String(logging.FieldErrorHint, "check the service URL and that the job still exists"),
		)
		return job, queryErr
	}

	job.Status = jobstore.ParseStatus(res.Status)
	job.Message = res.Message
	job.R2ETETASeconds = res.R2ETETASeconds
	job.StudentETASeconds = res.StudentETASeconds
	if res.Filename != "" {
		job.Filename = res.Filename
	}
	if err := m.store.Update(ctx, job); err != nil {
		return job, err
	}
	return job, nil
}

// Download fetches and extracts the result of a finished job, records the
// model path, and marks the job downloaded.
func (m *Manager) Download(ctx context.Context) (*jobstore.Job, error) {
	job, err := m.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	if job.Status != jobstore.StatusDone {
		return job, services.Wrap(services.ErrValidation, "jobs", "download",
			fmt.Sprintf("job %s is %s, not done", job.JobID, job.Status), nil)
	}

	root := filepath.Join(m.downloadDir, job.JobID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return job, fmt.Errorf("create %s: %w", root, err)
	}
	archive := filepath.Join(root, fmt.Sprintf("job-%s-result.zip", job.JobID))
	size, err := m.service.Download(services.WithJobID(ctx, job.JobID), job.JobID, archive)
	if err != nil {
		return job, err
	}
	files, err := Extract(archive, root)
	if err != nil {
		return job, err
	}
	model, err := FindModel(root)
	if err != nil {
		return job, err
	}

	job.Status = jobstore.StatusDownloaded
	job.ResultDir = root
	job.ModelPath = model
	if err := m.store.Update(ctx, job); err != nil {
		return job, err
	}
	m.logger.Info("job result downloaded",
		logging.String(logging.FieldJobID, job.JobID),
		logging.Int64("bytes", size),
		logging.Int("files", len(files)),
		logging.String("model", model),
	)
	return job, nil
}

// Delete removes the job on the service, then forgets it locally. The local
// record survives a failed remote delete.
func (m *Manager) Delete(ctx context.Context) (*jobstore.Job, error) {
	job, err := m.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.service.Delete(services.WithJobID(ctx, job.JobID), job.JobID); err != nil {
		return job, err
	}
	if _, err := m.store.Clear(ctx); err != nil {
		return job, err
	}
	m.logger.Info("job deleted", logging.String(logging.FieldJobID, job.JobID))
	return job, nil
}

// Watch refreshes the job every poll interval until it reaches a terminal
// status or ctx ends. onUpdate sees every refreshed record. Only one process
// may watch at a time.
func (m *Manager) Watch(ctx context.Context, onUpdate func(*jobstore.Job)) (*jobstore.Job, error) {
	if m.lockPath != "" {
		lock := flock.New(m.lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire watch lock: %w", err)
		}
		if !ok {
			return nil, ErrWatchLocked
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				m.logger.Warn("failed to release watch lock", logging.Error(err))
			}
		}()
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		job, err := m.Refresh(ctx)
		if job != nil && onUpdate != nil {
			onUpdate(job)
		}
		if err != nil {
			return job, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
