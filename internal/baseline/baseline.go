package baseline

import (
	"context"
	"time"

	"perfrunner/internal/metrics"

	"github.com/google/uuid"
)

// Baseline is a named, versioned record of a prior run's key percentiles and
// error rate, keyed by endpoint identity. It is read-only during a run and
// only replaced by an explicit Save.
type Baseline struct {
	Name        string    `json:"name"`
	Version     int       `json:"version"`
	EndpointKey string    `json:"endpoint_key"`
	RecordedAt  time.Time `json:"recorded_at"`

	P50MS     float64 `json:"p50_ms"`
	P95MS     float64 `json:"p95_ms"`
	P99MS     float64 `json:"p99_ms"`
	ErrorRate float64 `json:"error_rate"`
}

// FromSnapshot lifts a finalized run into a baseline record, bumping the
// version past the previous one.
func FromSnapshot(endpointKey string, snap metrics.Snapshot, prev *Baseline) Baseline {
	version := 1
	name := uuid.New().String()
	if prev != nil {
		version = prev.Version + 1
		name = prev.Name
	}
	return Baseline{
		Name:        name,
		Version:     version,
		EndpointKey: endpointKey,
		RecordedAt:  time.Now().UTC(),
		P50MS:       snap.P50MS,
		P95MS:       snap.P95MS,
		P99MS:       snap.P99MS,
		ErrorRate:   snap.ErrorRate,
	}
}

// Store is the external collaborator holding baselines. Load returns
// (nil, nil) when no baseline exists for the key. Implementations own the
// storage format; the engine only moves Baseline values through this
// interface.
type Store interface {
	Load(ctx context.Context, endpointKey string) (*Baseline, error)
	Save(ctx context.Context, endpointKey string, snap metrics.Snapshot) (*Baseline, error)
}
