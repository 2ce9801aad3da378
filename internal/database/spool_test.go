package database

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"energy-bench/internal/report"
)

func TestWriteSpoolArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	artifact := BuildSpoolArtifact("lab_none_1700000000",
		[]report.Row{{Mode: "warmup", Language: "C", Benchmark: "fib", Time: 200, Pkg: 30}},
		&RunMetadata{RunID: "lab_none_1700000000", Hostname: "bench-node"})

	path, err := WriteSpoolArtifact(dir, artifact)
	if err != nil {
		t.Fatalf("WriteSpoolArtifact: %v", err)
	}
	if !strings.Contains(path, "report_lab_none_1700000000_") {
		t.Errorf("path = %q", path)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	gz, err := gzip.NewReader(file)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}

	var decoded SpoolArtifact
	if err := json.NewDecoder(gz).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RunID != artifact.RunID || len(decoded.Rows) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Rows[0].Pkg != 30 {
		t.Errorf("Pkg = %v", decoded.Rows[0].Pkg)
	}
	if decoded.Metadata == nil || decoded.Metadata.Hostname != "bench-node" {
		t.Errorf("metadata = %+v", decoded.Metadata)
	}
}

func TestWriteSpoolArtifactNil(t *testing.T) {
	if _, err := WriteSpoolArtifact(t.TempDir(), nil); err == nil {
		t.Error("nil artifact expected error")
	}
}

func TestWriteSpoolArtifactLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	artifact := BuildSpoolArtifact("run", nil, nil)
	artifact.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := WriteSpoolArtifact(dir, artifact); err != nil {
		t.Fatalf("WriteSpoolArtifact: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp.") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestConfigFromEnvIncomplete(t *testing.T) {
	for _, v := range []string{"ENERGY_BENCH_DB_HOST", "ENERGY_BENCH_DB_TOKEN", "ENERGY_BENCH_DB_ORG", "ENERGY_BENCH_DB_BUCKET"} {
		t.Setenv(v, "")
	}
	t.Setenv("ENERGY_BENCH_DB_HOST", "http://localhost:8086")

	if _, err := ConfigFromEnv(); err == nil {
		t.Error("partial configuration expected error")
	}
}

func TestConfigFromEnvComplete(t *testing.T) {
	t.Setenv("ENERGY_BENCH_DB_HOST", "http://localhost:8086")
	t.Setenv("ENERGY_BENCH_DB_TOKEN", "token")
	t.Setenv("ENERGY_BENCH_DB_ORG", "org")
	t.Setenv("ENERGY_BENCH_DB_BUCKET", "bucket")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Bucket != "bucket" || cfg.Org != "org" {
		t.Errorf("cfg = %+v", cfg)
	}
}
