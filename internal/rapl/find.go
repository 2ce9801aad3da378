package rapl

import (
	"fmt"
	"path/filepath"
)

// AmbiguousArtifactError is returned when a directory does not contain
// exactly one matching raw measurement artifact.
type AmbiguousArtifactError struct {
	Dir     string
	Pattern string
	Matches int
}

func (e *AmbiguousArtifactError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no %s measurement found in %s", e.Pattern, e.Dir)
	}
	return fmt.Sprintf("found %d %s measurements in %s, want exactly one", e.Matches, e.Pattern, e.Dir)
}

var raplPatterns = []string{"Intel_[0-9][0-9]*.csv", "AMD_[0-9][0-9]*.csv"}

// FindFile locates the single raw RAPL CSV in a directory. Zero or multiple
// matches yield an AmbiguousArtifactError before any decoding is attempted.
func FindFile(dir string) (string, error) {
	var files []string
	for _, pattern := range raplPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", err
		}
		files = append(files, matches...)
	}

	if len(files) != 1 {
		return "", &AmbiguousArtifactError{Dir: dir, Pattern: "RAPL", Matches: len(files)}
	}
	return files[0], nil
}
