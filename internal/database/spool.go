package database

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"energy-bench/internal/report"
)

// SpoolArtifact preserves an export that could not reach the database so it
// can be replayed later.
type SpoolArtifact struct {
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	RunID     string    `json:"run_id"`

	Rows     []report.Row `json:"rows"`
	Metadata *RunMetadata `json:"metadata,omitempty"`
}

func DefaultSpoolDir() string {
	if v := strings.TrimSpace(os.Getenv("ENERGY_BENCH_SPOOL_DIR")); v != "" {
		return v
	}
	return "spool"
}

// BuildSpoolArtifact constructs a spool artifact from compiled rows.
func BuildSpoolArtifact(runID string, rows []report.Row, meta *RunMetadata) *SpoolArtifact {
	return &SpoolArtifact{
		Version:   1,
		CreatedAt: time.Now(),
		RunID:     runID,
		Rows:      rows,
		Metadata:  meta,
	}
}

// WriteSpoolArtifact writes a gzip-compressed JSON artifact to disk
// atomically and returns the final file path.
func WriteSpoolArtifact(dir string, artifact *SpoolArtifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("spool artifact is nil")
	}
	if dir == "" {
		dir = DefaultSpoolDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	runID := artifact.RunID
	if runID == "" {
		runID = "norun"
	}
	name := fmt.Sprintf("report_%s_%s.json.gz",
		runID, artifact.CreatedAt.UTC().Format("20060102T150405Z"))
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	gz := gzip.NewWriter(tmp)
	enc := json.NewEncoder(gz)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifact); err != nil {
		_ = gz.Close()
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	ok = true
	return finalPath, nil
}
