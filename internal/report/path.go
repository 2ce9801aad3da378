package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InvalidResultPathError is returned when a results directory does not
// follow the <env>_<workload>_<timestamp>/<mode>/<language>/<benchmark>
// convention.
type InvalidResultPathError struct {
	Path   string
	Reason string
}

func (e *InvalidResultPathError) Error() string {
	return fmt.Sprintf("result path %q: %s", e.Path, e.Reason)
}

// PathInfo is the run identity derived from a results directory path.
type PathInfo struct {
	Environment string
	Workload    string
	Timestamp   string
	Mode        string
	Language    string
	Benchmark   string
}

// RunID names the timestamped run directory this leaf belongs to.
func (p PathInfo) RunID() string {
	return fmt.Sprintf("%s_%s_%s", p.Environment, p.Workload, p.Timestamp)
}

// SplitEnergyPath derives the run identity from a benchmark leaf directory.
// The run directory is the fourth segment from the end and encodes
// environment, workload and timestamp separated by the first two underscores.
func SplitEnergyPath(result string) (PathInfo, error) {
	path := strings.TrimRight(filepath.Clean(result), string(os.PathSeparator))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		path = filepath.Dir(path)
	}

	parts := strings.Split(path, string(os.PathSeparator))
	if len(parts) < 4 {
		return PathInfo{}, &InvalidResultPathError{Path: result, Reason: "expected <env>_<workload>_<time>/<mode>/<language>/<benchmark>"}
	}

	runDir := parts[len(parts)-4]
	runParts := strings.SplitN(runDir, "_", 3)
	if len(runParts) != 3 {
		return PathInfo{}, &InvalidResultPathError{Path: result, Reason: fmt.Sprintf("run directory %q does not match <env>_<workload>_<time>", runDir)}
	}

	return PathInfo{
		Environment: runParts[0],
		Workload:    runParts[1],
		Timestamp:   runParts[2],
		Mode:        parts[len(parts)-3],
		Language:    parts[len(parts)-2],
		Benchmark:   parts[len(parts)-1],
	}, nil
}
