// Package export implements the asynchronous export job manager:
// token issuance, a bounded worker pool over the render pipeline,
// long-poll status waiting, TTL reclamation and cancellation.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/logger"
)

var (
	// ErrNotFound marks an unknown, deleted or expired token
	ErrNotFound = errors.New("export job not found")
	// ErrCapacityExceeded marks a submission rejected by admission control
	ErrCapacityExceeded = errors.New("export capacity exceeded")
	// ErrNotReady marks a result fetch before the job finished
	ErrNotReady = errors.New("export job not ready")
	// ErrRenderFailed marks a result fetch on a failed job
	ErrRenderFailed = errors.New("export render failed")
)

// RenderFunc executes the full render pipeline for an export request
type RenderFunc func(ctx context.Context, req Request) (data []byte, contentType string, err error)

// ValidateFunc checks a request before admission; it must reject
// everything the renderer would reject so invalid input never occupies
// a job slot
type ValidateFunc func(req Request) error

// Options bound the manager's resources
type Options struct {
	Workers       int           // concurrent renders
	MaxJobs       int           // registry capacity, admission bound
	TTL           time.Duration // result lifetime after completion
	SweepInterval time.Duration
}

// Manager owns the job registry and the export worker pool
type Manager struct {
	opts     Options
	render   RenderFunc
	validate ValidateFunc
	log      *zap.Logger

	sem *semaphore.Weighted

	reg *registry

	ctx    context.Context
	stop   context.CancelFunc
	doneCh chan struct{}
}

// NewManager creates and starts a manager. Close must be called to
// stop the TTL sweeper and in-flight renders.
func NewManager(opts Options, render RenderFunc, validate ValidateFunc) *Manager {
	ctx, stop := context.WithCancel(context.Background())

	m := &Manager{
		opts:     opts,
		render:   render,
		validate: validate,
		log:      logger.Named("export"),
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		reg:      newRegistry(),
		ctx:      ctx,
		stop:     stop,
		doneCh:   make(chan struct{}),
	}

	go m.sweeper()
	return m
}

// Close cancels all jobs and stops the sweeper
func (m *Manager) Close() {
	m.stop()
	<-m.doneCh

	for _, job := range m.reg.all() {
		m.reg.remove(job.Token)
	}
}

// Submit validates a request, admits it against the capacity bound and
// schedules it, returning the job token. Validation failures are
// returned synchronously without creating a job.
func (m *Manager) Submit(req Request) (string, error) {
	if m.validate != nil {
		if err := m.validate(req); err != nil {
			return "", err
		}
	}

	job := &Job{
		Token:     uuid.NewString(),
		CreatedAt: time.Now(),
	}
	job.status = StatusQueued

	jobCtx, cancel := context.WithCancel(m.ctx)
	job.cancel = cancel

	if !m.reg.insert(job, m.opts.MaxJobs) {
		cancel()
		return "", fmt.Errorf("%w: %d jobs in flight", ErrCapacityExceeded, m.opts.MaxJobs)
	}

	m.log.Info("export submitted",
		zap.String("token", job.Token),
		zap.Int("zoom", req.Zoom),
		zap.String("format", req.Format))

	go m.run(jobCtx, job, req)
	return job.Token, nil
}

// run drives one job from Queued to Ready or Failed. Every code path
// out of Rendering reaches a terminal status.
func (m *Manager) run(ctx context.Context, job *Job, req Request) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		// deleted while queued, or manager shutdown
		m.finish(job, nil, "", err)
		return
	}
	defer m.sem.Release(1)

	job.mu.Lock()
	if job.deleted {
		job.mu.Unlock()
		return
	}
	job.status = StatusRendering
	job.mu.Unlock()

	var (
		data        []byte
		contentType string
		err         error
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("render panic: %v", r)
			}
		}()
		data, contentType, err = m.render(ctx, req)
	}()

	m.finish(job, data, contentType, err)
}

func (m *Manager) finish(job *Job, data []byte, contentType string, err error) {
	job.mu.Lock()
	if job.deleted {
		job.mu.Unlock()
		return
	}

	job.expiresAt = time.Now().Add(m.opts.TTL)
	if err != nil {
		job.status = StatusFailed
		job.errDetail = err.Error()
	} else {
		job.status = StatusReady
		job.result = data
		job.contentType = contentType
	}
	status := job.status
	job.mu.Unlock()

	if err != nil {
		m.log.Warn("export failed", zap.String("token", job.Token), zap.Error(err))
	} else {
		m.log.Info("export ready", zap.String("token", job.Token), zap.Int("bytes", len(data)))
	}

	m.reg.notify(job.Token, status)
}

// Status returns the current job state
func (m *Manager) Status(token string) (Snapshot, error) {
	job := m.lookup(token)
	if job == nil {
		return Snapshot{}, ErrNotFound
	}
	return job.snapshot(), nil
}

// Result returns the rendered payload of a Ready job
func (m *Manager) Result(token string) ([]byte, string, error) {
	job := m.lookup(token)
	if job == nil {
		return nil, "", ErrNotFound
	}

	job.mu.Lock()
	defer job.mu.Unlock()

	switch job.status {
	case StatusReady:
		return job.result, job.contentType, nil
	case StatusFailed:
		return nil, "", fmt.Errorf("%w: %s", ErrRenderFailed, job.errDetail)
	default:
		return nil, "", ErrNotReady
	}
}

// Delete removes a job and releases its result immediately, canceling
// an in-flight render on a best-effort basis
func (m *Manager) Delete(token string) error {
	job := m.lookup(token)
	if job == nil {
		return ErrNotFound
	}

	job.mu.Lock()
	job.deleted = true
	job.result = nil
	cancel := job.cancel
	job.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.reg.remove(token)

	m.log.Info("export deleted", zap.String("token", token))
	return nil
}

// WaitReady blocks the caller (never a worker) until the job reaches a
// terminal status or the wait elapses, and returns the status current
// at that moment. Always returns within max(wait, ctx deadline).
func (m *Manager) WaitReady(ctx context.Context, token string, wait time.Duration) (Snapshot, error) {
	snap, err := m.Status(token)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Status == StatusReady || snap.Status == StatusFailed {
		return snap, nil
	}

	ch := m.reg.addWaiter(token)
	defer m.reg.removeWaiter(token, ch)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ch:
	case <-timer.C:
	case <-ctx.Done():
	}

	// the job may have been deleted while we waited
	return m.Status(token)
}

// lookup resolves a token, treating expired entries as gone
func (m *Manager) lookup(token string) *Job {
	job := m.reg.get(token)
	if job == nil {
		return nil
	}
	if job.expired(time.Now()) {
		m.reg.remove(token)
		return nil
	}
	return job
}

// sweeper reclaims expired jobs to bound memory use
func (m *Manager) sweeper() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, job := range m.reg.all() {
				if job.expired(now) {
					m.reg.remove(job.Token)
					m.log.Debug("export expired", zap.String("token", job.Token))
				}
			}
		}
	}
}
