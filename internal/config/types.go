package config

import "time"

// BenchmarkSpec describes one benchmark: what to build, how to feed it and
// what it is expected to print. The name doubles as the results subtree name.
type BenchmarkSpec struct {
	Name         string   `yaml:"name"`
	Language     string   `yaml:"language"`
	Dependencies []string `yaml:"dependencies"`

	Description    string   `yaml:"description,omitempty"`
	Options        []string `yaml:"options,omitempty"`
	Code           string   `yaml:"code,omitempty"`
	Args           []string `yaml:"args,omitempty"`
	Stdin          string   `yaml:"stdin,omitempty"`
	ExpectedStdout string   `yaml:"expected_stdout,omitempty"`
}

// RunParams are the per-run numeric knobs shared by every measurement of a
// batch.
type RunParams struct {
	Iterations int
	Frequency  int // perf sampling interval in milliseconds
	Sleep      int // seconds to settle between successful runs
	Niceness   int
}

func (p RunParams) SleepDuration() time.Duration {
	return time.Duration(p.Sleep) * time.Second
}

// DatabaseConfig holds the InfluxDB export target, populated from the
// environment.
type DatabaseConfig struct {
	Host   string
	Token  string
	Org    string
	Bucket string
}
