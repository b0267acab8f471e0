package export

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/feature"
)

// Status is an export job lifecycle state
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRendering Status = "rendering"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// Request carries the parameters of one export job
type Request struct {
	BBox     [4]float64 `json:"bbox"` // minLon, minLat, maxLon, maxLat
	Zoom     int        `json:"zoom"`
	Format   string     `json:"format"`
	Scale    float64    `json:"scale"`
	Features Toggles    `json:"features"`
}

// Toggles extends the render toggles with the user overlay collection
type Toggles struct {
	feature.Toggles
	FeatureCollection *geojson.FeatureCollection `json:"featureCollection"`
}

// Job is one registry entry. All field access after construction goes
// through the per-job mutex; the registry map itself is guarded
// separately, so operations on different tokens never contend.
type Job struct {
	Token     string
	CreatedAt time.Time

	mu          sync.Mutex
	status      Status
	result      []byte
	contentType string
	errDetail   string
	expiresAt   time.Time
	cancel      context.CancelFunc
	deleted     bool
}

// Snapshot is an immutable view of a job's state
type Snapshot struct {
	Token     string
	Status    Status
	ErrDetail string
	ExpiresAt time.Time
}

func (j *Job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		Token:     j.Token,
		Status:    j.status,
		ErrDetail: j.errDetail,
		ExpiresAt: j.expiresAt,
	}
}

func (j *Job) expired(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return !j.expiresAt.IsZero() && now.After(j.expiresAt)
}
