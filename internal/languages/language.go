package languages

// Paths locates everything an implementation needs on disk for one benchmark.
// BaseDir is the workspace root holding shared artifacts such as the RAPL
// interface library, BenchmarkDir the per-benchmark scratch directory.
type Paths struct {
	BaseDir      string
	BenchmarkDir string
	Source       string
	Target       string
}

// Implementation describes how one language builds, measures and cleans a
// benchmark. Commands are returned as shell fragments because they run inside
// a nix-shell invocation, not directly through exec.
type Implementation interface {
	// Name is the canonical directory name used in the results tree.
	Name() string
	// Aliases are the benchmark-facing names resolving to this
	// implementation, all lower case.
	Aliases() []string
	// SourceFile is the file name the benchmark code is written to.
	SourceFile() string
	// TargetFile is the build output, relative to the benchmark directory.
	TargetFile() string
	BuildCommand(p Paths) string
	MeasureCommand(p Paths) string
	CleanCommand(p Paths) string
}

// Preparer is implemented by languages that need extra scaffolding written
// next to the source before the build runs.
type Preparer interface {
	Prepare(p Paths) error
}
