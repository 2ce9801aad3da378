package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"energy-bench/internal/logging"

	"gopkg.in/yaml.v3"
)

// Load reads a benchmark spec from a YAML file. The path "-" reads from
// standard input.
func Load(path string) (*BenchmarkSpec, error) {
	logger := logging.GetLogger()

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		logger.WithField("filepath", path).WithError(err).Error("Failed to read benchmark file")
		return nil, err
	}

	return Parse(data)
}

// Parse decodes and validates a benchmark spec, expanding ${VAR} environment
// references first.
func Parse(data []byte) (*BenchmarkSpec, error) {
	expanded := expandEnvVars(string(data))

	var spec BenchmarkSpec
	if err := yaml.Unmarshal([]byte(expanded), &spec); err != nil {
		return nil, fmt.Errorf("parsing benchmark spec: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid benchmark spec: %w", err)
	}
	return &spec, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

// Validate checks the invariants every benchmark must satisfy before any
// command executes.
func (s *BenchmarkSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("benchmark name is required")
	}
	if strings.ContainsAny(s.Name, " \t\n") {
		return fmt.Errorf("benchmark name %q must not contain whitespace", s.Name)
	}
	if s.Language == "" {
		return fmt.Errorf("benchmark language is required")
	}
	if len(s.Dependencies) == 0 {
		return fmt.Errorf("benchmark must specify at least one dependency")
	}
	return nil
}

// Validate checks the per-run numeric parameters.
func (p RunParams) Validate() error {
	if p.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", p.Iterations)
	}
	if p.Frequency < 500 {
		return fmt.Errorf("perf frequency must be at least 500ms, got %d", p.Frequency)
	}
	if p.Sleep < 0 {
		return fmt.Errorf("sleep seconds must not be negative, got %d", p.Sleep)
	}
	if p.Niceness < -20 || p.Niceness > 19 {
		return fmt.Errorf("niceness must be in [-20, 19], got %d", p.Niceness)
	}
	return nil
}
