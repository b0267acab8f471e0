package export

import "sync"

// registry is the process-wide token → job map plus the long-poll
// waiter lists. The RWMutex guards only map membership; job state has
// its own per-job lock, so concurrent operations on different tokens
// do not serialize on job work, and sweeps never hold the write lock
// while rendering happens.
type registry struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	waiters map[string][]chan Status
}

func newRegistry() *registry {
	return &registry{
		jobs:    make(map[string]*Job),
		waiters: make(map[string][]chan Status),
	}
}

// insert adds a job unless the capacity bound is reached. Tokens are
// UUIDs; a duplicate would indicate a broken generator, so it is
// rejected rather than overwritten.
func (r *registry) insert(job *Job, maxJobs int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.jobs) >= maxJobs {
		return false
	}
	if _, exists := r.jobs[job.Token]; exists {
		return false
	}
	r.jobs[job.Token] = job
	return true
}

func (r *registry) get(token string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[token]
}

// all returns a snapshot of current jobs for iteration outside the lock
func (r *registry) all() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out
}

// remove deletes a job and wakes any waiters so they re-check status
func (r *registry) remove(token string) {
	r.mu.Lock()
	delete(r.jobs, token)
	waiters := r.waiters[token]
	delete(r.waiters, token)
	r.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

// addWaiter registers a completion channel for a token
func (r *registry) addWaiter(token string) chan Status {
	ch := make(chan Status, 1)
	r.mu.Lock()
	r.waiters[token] = append(r.waiters[token], ch)
	r.mu.Unlock()
	return ch
}

// removeWaiter unregisters a waiter; safe to call after notify
func (r *registry) removeWaiter(token string, ch chan Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	waiters := r.waiters[token]
	for i, c := range waiters {
		if c == ch {
			r.waiters[token] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(r.waiters[token]) == 0 {
		delete(r.waiters, token)
	}
}

// notify wakes all waiters of a token with the terminal status
func (r *registry) notify(token string, status Status) {
	r.mu.Lock()
	waiters := r.waiters[token]
	delete(r.waiters, token)
	r.mu.Unlock()

	for _, ch := range waiters {
		select {
		case ch <- status:
		default:
		}
		close(ch)
	}
}
