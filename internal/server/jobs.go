package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Job is a snapshot of a background tagging or matching run.
type Job struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     JobStatus  `json:"status"`
	Processed  int        `json:"processed"`
	Total      int        `json:"total"`
	Message    string     `json:"message,omitempty"`
	Result     int        `json:"result"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// jobFunc does the work of a job, reporting progress through the callback.
type jobFunc func(ctx context.Context, progress func(current, total int, message string)) (int, error)

// jobRegistry tracks jobs started by the server. Jobs run under a context
// that is canceled when the server shuts down.
type jobRegistry struct {
	mu      sync.Mutex
	byID    map[string]*Job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	metrics *metrics
	log     *zap.Logger
}

func newJobRegistry(m *metrics, log *zap.Logger) *jobRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	return &jobRegistry{byID: make(map[string]*Job), ctx: ctx, cancel: cancel, metrics: m, log: log}
}

// start runs fn in the background and returns the job's initial snapshot.
func (r *jobRegistry) start(kind string, total int, fn jobFunc) Job {
	j := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    JobRunning,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.byID[j.ID] = j
	snapshot := *j
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		last := 0
		progress := func(current, total int, message string) {
			r.mu.Lock()
			j.Processed, j.Total, j.Message = current, total, message
			r.mu.Unlock()
			r.metrics.processed.Add(float64(current - last))
			last = current
		}
		result, err := fn(r.ctx, progress)
		r.finish(j, result, err)
	}()
	return snapshot
}

func (r *jobRegistry) finish(j *Job, result int, err error) {
	now := time.Now().UTC()
	r.mu.Lock()
	j.Result = result
	j.FinishedAt = &now
	switch {
	case err == nil:
		j.Status = JobDone
	case errors.Is(err, context.Canceled):
		j.Status = JobCanceled
		j.Error = err.Error()
	default:
		j.Status = JobFailed
		j.Error = err.Error()
	}
	status := j.Status
	r.mu.Unlock()

	r.metrics.jobs.WithLabelValues(j.Kind, string(status)).Inc()
	if err != nil && status == JobFailed {
		r.log.Warn("job failed", zap.String("job", j.ID), zap.String("kind", j.Kind), zap.Error(err))
	} else {
		r.log.Info("job finished", zap.String("job", j.ID), zap.String("kind", j.Kind), zap.String("status", string(status)))
	}
}

// get returns a snapshot of the job with the given ID.
func (r *jobRegistry) get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// stop cancels running jobs and waits for them to return or ctx to expire.
func (r *jobRegistry) stop(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
