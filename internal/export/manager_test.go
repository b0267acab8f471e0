package export

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testOptions() Options {
	return Options{
		Workers:       2,
		MaxJobs:       8,
		TTL:           time.Minute,
		SweepInterval: 10 * time.Millisecond,
	}
}

func instantRender(ctx context.Context, req Request) ([]byte, string, error) {
	return []byte("image-bytes"), "image/png", nil
}

func testRequest() Request {
	return Request{
		BBox:   [4]float64{17.0, 48.0, 17.2, 48.2},
		Zoom:   13,
		Format: "png",
		Scale:  1,
	}
}

func TestLifecycle(t *testing.T) {
	m := NewManager(testOptions(), instantRender, nil)
	defer m.Close()

	token, err := m.Submit(testRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	snap, err := m.WaitReady(context.Background(), token, 5*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if snap.Status != StatusReady {
		t.Fatalf("status = %s, want ready", snap.Status)
	}

	data, contentType, err := m.Result(token)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if string(data) != "image-bytes" || contentType != "image/png" {
		t.Errorf("result = %q, %q", data, contentType)
	}

	if err := m.Delete(token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := m.Result(token); !errors.Is(err, ErrNotFound) {
		t.Errorf("result after delete = %v, want ErrNotFound", err)
	}
	if err := m.Delete(token); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestTokenUniqueness(t *testing.T) {
	opts := testOptions()
	opts.MaxJobs = 10001
	opts.Workers = 8
	m := NewManager(opts, instantRender, nil)
	defer m.Close()

	const n = 10000
	tokens := make(map[string]bool, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := m.Submit(testRequest())
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			mu.Lock()
			tokens[token] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(tokens) != n {
		t.Errorf("%d distinct tokens from %d submissions", len(tokens), n)
	}
}

func TestCapacityExceeded(t *testing.T) {
	opts := testOptions()
	opts.MaxJobs = 2
	opts.Workers = 1

	block := make(chan struct{})
	m := NewManager(opts, func(ctx context.Context, req Request) ([]byte, string, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return []byte("x"), "image/png", nil
	}, nil)
	defer m.Close()
	defer close(block)

	for i := 0; i < 2; i++ {
		if _, err := m.Submit(testRequest()); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if _, err := m.Submit(testRequest()); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("third submit = %v, want ErrCapacityExceeded", err)
	}
}

func TestValidationRejectsWithoutJob(t *testing.T) {
	invalid := errors.New("bad bbox")
	m := NewManager(testOptions(), instantRender, func(req Request) error { return invalid })
	defer m.Close()

	token, err := m.Submit(testRequest())
	if !errors.Is(err, invalid) {
		t.Fatalf("submit = %v, want validation error", err)
	}
	if token != "" {
		t.Error("token issued for invalid request")
	}
}

func TestFailedRenderSurfacesToPoller(t *testing.T) {
	boom := errors.New("compositing fault")
	m := NewManager(testOptions(), func(ctx context.Context, req Request) ([]byte, string, error) {
		return nil, "", boom
	}, nil)
	defer m.Close()

	token, err := m.Submit(testRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap, err := m.WaitReady(context.Background(), token, 5*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if snap.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", snap.Status)
	}
	if _, _, err := m.Result(token); !errors.Is(err, ErrRenderFailed) {
		t.Errorf("result = %v, want ErrRenderFailed", err)
	}
}

func TestExpiry(t *testing.T) {
	opts := testOptions()
	opts.TTL = 20 * time.Millisecond
	opts.SweepInterval = 5 * time.Millisecond

	m := NewManager(opts, instantRender, nil)
	defer m.Close()

	token, err := m.Submit(testRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := m.WaitReady(context.Background(), token, 5*time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := m.Status(token); errors.Is(err, ErrNotFound) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expired job still reachable")
}

func TestDeleteCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	m := NewManager(testOptions(), func(ctx context.Context, req Request) ([]byte, string, error) {
		close(started)
		<-ctx.Done()
		return nil, "", ctx.Err()
	}, nil)
	defer m.Close()

	token, err := m.Submit(testRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	<-started
	if err := m.Delete(token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Status(token); !errors.Is(err, ErrNotFound) {
		t.Errorf("status after delete = %v, want ErrNotFound", err)
	}
}

func TestWaitReadyBounded(t *testing.T) {
	block := make(chan struct{})
	m := NewManager(testOptions(), func(ctx context.Context, req Request) ([]byte, string, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return []byte("x"), "image/png", nil
	}, nil)
	defer m.Close()
	defer close(block)

	token, err := m.Submit(testRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	start := time.Now()
	snap, err := m.WaitReady(context.Background(), token, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("wait took %v, want bounded by the poll window", elapsed)
	}
	if snap.Status != StatusQueued && snap.Status != StatusRendering {
		t.Errorf("status = %s, want queued or rendering", snap.Status)
	}
}
