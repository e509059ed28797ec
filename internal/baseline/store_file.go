package baseline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"perfrunner/internal/metrics"

	"github.com/sirupsen/logrus"
)

// FileStore keeps one JSON file per endpoint under a directory. The default
// store for local runs and single-agent CI jobs.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(endpointKey string) string {
	sum := sha1.Sum([]byte(endpointKey))
	return filepath.Join(s.dir, "baseline_"+hex.EncodeToString(sum[:])+".json")
}

// Load reads the endpoint's baseline file. A missing file is not an error.
func (s *FileStore) Load(_ context.Context, endpointKey string) (*Baseline, error) {
	raw, err := os.ReadFile(s.path(endpointKey))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline for %q: %w", endpointKey, err)
	}

	var base Baseline
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, fmt.Errorf("corrupt baseline file for %q: %w", endpointKey, err)
	}
	return &base, nil
}

// Save writes the new baseline, replacing any previous version.
func (s *FileStore) Save(ctx context.Context, endpointKey string, snap metrics.Snapshot) (*Baseline, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create baseline directory: %w", err)
	}

	prev, err := s.Load(ctx, endpointKey)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", endpointKey).
			Warn("Could not read previous baseline, starting at version 1")
		prev = nil
	}

	base := FromSnapshot(endpointKey, snap, prev)
	raw, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode baseline: %w", err)
	}

	if err := os.WriteFile(s.path(endpointKey), raw, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write baseline for %q: %w", endpointKey, err)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": endpointKey,
		"version":  base.Version,
		"file":     s.path(endpointKey),
	}).Info("Baseline saved")

	return &base, nil
}
