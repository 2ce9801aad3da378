package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"energy-bench/internal/config"
	"energy-bench/internal/languages"
	"energy-bench/internal/logging"
	"energy-bench/internal/rapl"
	"energy-bench/internal/report"
)

const defaultNixCommit = "https://github.com/NixOS/nixpkgs/archive/52e3095f6d812b91b22fb7ad0bfc1ab416453634.tar.gz"

// runFunc executes one argv, wiring the given stdin and stdout, and returns
// whatever the process wrote to stderr. Injected so tests can intercept every
// command a session issues.
type runFunc func(argv []string, stdin io.Reader, stdout io.Writer) ([]byte, error)

func execRun(argv []string, stdin io.Reader, stdout io.Writer) ([]byte, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Session drives one benchmark through build, measure, verify and clean
// inside a pinned nix-shell environment.
type Session struct {
	spec    *config.BenchmarkSpec
	impl    languages.Implementation
	baseDir string
	warmup  bool
	params  config.RunParams

	perfEvents []string
	run        runFunc
	logger     *logrus.Logger
}

// New prepares a session's scratch directory and persists the benchmark's
// stdin and expected stdout so large payloads don't stay in memory.
func New(spec *config.BenchmarkSpec, impl languages.Implementation, baseDir string, warmup bool, params config.RunParams) (*Session, error) {
	if params.Iterations < 1 {
		return nil, fmt.Errorf("iterations can't be lower than 1")
	}

	s := &Session{
		spec:    spec,
		impl:    impl,
		baseDir: baseDir,
		warmup:  warmup,
		params:  params,
		run:     execRun,
		logger:  logging.GetLogger(),
	}

	if err := os.MkdirAll(s.benchmarkDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating benchmark directory: %w", err)
	}
	if err := os.WriteFile(s.scratchPath("input"), []byte(spec.Stdin), 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.scratchPath("expected"), []byte(spec.ExpectedStdout), 0o644); err != nil {
		return nil, err
	}
	return s, nil
}

// Mode names the warmup axis the way the results tree spells it.
func (s *Session) Mode() string {
	if s.warmup {
		return "warmup"
	}
	return "no-warmup"
}

func (s *Session) String() string {
	return fmt.Sprintf("[%s %s] [%s] [%d iters] [nice %d] [perf %d/s]",
		s.impl.Name(), s.spec.Name, s.Mode(), s.params.Iterations, s.params.Niceness, s.params.Frequency)
}

func (s *Session) benchmarkDir() string {
	return filepath.Join(s.baseDir, s.impl.Name(), s.spec.Name)
}

func (s *Session) scratchPath(name string) string {
	return filepath.Join(s.benchmarkDir(), name)
}

func (s *Session) paths() languages.Paths {
	dir := s.benchmarkDir()
	return languages.Paths{
		BaseDir:      s.baseDir,
		BenchmarkDir: dir,
		Source:       filepath.Join(dir, s.impl.SourceFile()),
		Target:       filepath.Join(dir, s.impl.TargetFile()),
	}
}

// raplWrapper prefixes the command with the environment the RAPL interface
// library needs. The nix flag variables are mangled into search paths so the
// library resolves both at build and at load time.
func (s *Session) raplWrapper(command string) string {
	iterations := 1
	if s.warmup {
		iterations = s.params.Iterations
	}
	env := strings.Join([]string{
		fmt.Sprintf(`LIBRARY_PATH=%s:$(echo $NIX_LDFLAGS | sed 's/-rpath //g; s/-L//g' | tr ' ' ':'):$LIBRARY_PATH`, s.baseDir),
		fmt.Sprintf(`LD_LIBRARY_PATH=%s:$(echo $NIX_LDFLAGS | sed 's/-rpath //g; s/-L//g' | tr ' ' ':'):$LD_LIBRARY_PATH`, s.baseDir),
		fmt.Sprintf(`CPATH=%s:$(echo $NIX_CFLAGS_COMPILE | sed -e 's/-frandom-seed=[^ ]*//g' -e 's/-isystem/ /g' | tr -s ' ' | sed 's/ /:/g'):$CPATH`, s.baseDir),
		fmt.Sprintf("RAPL_ITERATIONS=%d", iterations),
		fmt.Sprintf("RAPL_OUTPUT=%s", s.benchmarkDir()),
	}, " ")
	return env + " " + command
}

func (s *Session) perfWrapper(command string) string {
	perfPath := filepath.Join(s.benchmarkDir(), "perf.json")
	return fmt.Sprintf("perf stat --all-cpus -I %d --json --output %s -e %s %s",
		s.params.Frequency, perfPath, strings.Join(s.availablePerfEvents(), ","), command)
}

func (s *Session) niceWrapper(command string) string {
	if s.params.Niceness == 0 {
		return command
	}
	return fmt.Sprintf("nice -n %d %s", s.params.Niceness, command)
}

func (s *Session) nixWrapper(command string) []string {
	argv := []string{"nix-shell", "--no-build-output", "--quiet", "--packages"}
	argv = append(argv, s.spec.Dependencies...)
	argv = append(argv, "-I", "nixpkgs="+defaultNixCommit, "--run", command)
	return argv
}

// wrapCommand layers the wrappers around a shell fragment. Measuring needs
// sudo because of rapl and perf.
func (s *Session) wrapCommand(command string, measuring bool) ([]string, error) {
	if len(s.spec.Dependencies) == 0 {
		return nil, fmt.Errorf("benchmark must specify at least one nix dependency")
	}

	if measuring {
		command = s.perfWrapper(command)
		command = s.niceWrapper(command)
		command = s.raplWrapper(command)
		command = "sudo -E " + command
	} else {
		command = s.raplWrapper(command)
	}
	return s.nixWrapper(command), nil
}

// availablePerfEvents intersects the preferred counters with what perf on
// this host exposes, keeping perf's own listing order. Detection failures
// fall back to the two counters every host has.
func (s *Session) availablePerfEvents() []string {
	if s.perfEvents != nil {
		return s.perfEvents
	}

	fallback := []string{"cpu-clock", "cycles"}
	var listing bytes.Buffer
	if _, err := s.run([]string{"perf", "list", "--json", "--no-desc"}, nil, &listing); err != nil {
		s.logger.WithError(err).Warn("Failed to list perf events, falling back to defaults")
		s.perfEvents = fallback
		return s.perfEvents
	}

	var available []struct {
		EventName string `json:"EventName"`
	}
	if err := json.Unmarshal(listing.Bytes(), &available); err != nil {
		s.logger.WithError(err).Warn("Failed to decode perf event listing, falling back to defaults")
		s.perfEvents = fallback
		return s.perfEvents
	}

	requested := make(map[string]bool, len(report.RequestedEvents))
	for _, event := range report.RequestedEvents {
		requested[event] = true
	}
	var captured []string
	for _, event := range available {
		if requested[event.EventName] {
			captured = append(captured, event.EventName)
		}
	}
	if len(captured) == 0 {
		captured = fallback
	}
	s.perfEvents = captured
	return s.perfEvents
}

// Build writes the benchmark source, runs any language scaffolding hook and
// compiles inside the nix shell. Any stderr output fails the build.
func (s *Session) Build() error {
	if s.spec.Code == "" {
		return fmt.Errorf("benchmark doesn't have any source code")
	}

	p := s.paths()
	if err := os.WriteFile(p.Source, []byte(s.spec.Code), 0o644); err != nil {
		return err
	}
	if preparer, ok := s.impl.(languages.Preparer); ok {
		if err := preparer.Prepare(p); err != nil {
			return fmt.Errorf("preparing benchmark scaffolding: %w", err)
		}
	}

	command := s.impl.BuildCommand(p)
	if len(s.spec.Options) > 0 {
		command += " " + strings.Join(s.spec.Options, " ")
	}
	argv, err := s.wrapCommand(command, false)
	if err != nil {
		return err
	}

	stderr, err := s.run(argv, nil, io.Discard)
	if err != nil {
		return &BuildError{Stderr: string(stderr), Err: err}
	}
	if len(stderr) > 0 {
		return &BuildError{Stderr: string(stderr)}
	}
	return nil
}

// Measure runs the built benchmark under perf and the RAPL interface, feeding
// the persisted stdin and capturing stdout for later verification.
func (s *Session) Measure() error {
	p := s.paths()
	command := s.impl.MeasureCommand(p)
	if len(s.spec.Args) > 0 {
		command += " " + strings.Join(s.spec.Args, " ")
	}
	argv, err := s.wrapCommand(command, true)
	if err != nil {
		return err
	}

	input, err := os.Open(s.scratchPath("input"))
	if err != nil {
		return &MeasureError{Err: err}
	}
	defer input.Close()

	output, err := os.Create(s.scratchPath("output"))
	if err != nil {
		return &MeasureError{Err: err}
	}
	defer output.Close()

	stderr, err := s.run(argv, input, output)
	if err != nil {
		return &MeasureError{Stderr: string(stderr), Err: err}
	}
	if len(stderr) > 0 {
		return &MeasureError{Stderr: string(stderr)}
	}
	return nil
}

// Verify checks that the captured output is exactly iterations repetitions of
// the expected stdout. An empty expectation skips verification.
func (s *Session) Verify(iterations int) error {
	expected, err := os.ReadFile(s.scratchPath("expected"))
	if err != nil {
		return fmt.Errorf("failed to verify: %w", err)
	}
	if len(expected) == 0 {
		return nil
	}

	output, err := os.Open(s.scratchPath("output"))
	if err != nil {
		return fmt.Errorf("failed to verify: %w", err)
	}
	defer output.Close()

	chunk := make([]byte, len(expected))
	for i := 1; i <= iterations; i++ {
		if _, err := io.ReadFull(output, chunk); err != nil {
			return &VerificationError{Iteration: i, Reason: "lengths not matching"}
		}
		if !bytes.Equal(chunk, expected) {
			return &VerificationError{Iteration: i, Reason: "unequal"}
		}
	}

	var trailing [1]byte
	if n, _ := output.Read(trailing[:]); n > 0 {
		return &VerificationError{Reason: "more output than expected"}
	}
	return nil
}

// Clean runs the language's cleanup command and removes the scratch files.
// Scratch removal happens even when the command fails.
func (s *Session) Clean() error {
	defer s.RemoveScratch()

	argv, err := s.wrapCommand(s.impl.CleanCommand(s.paths()), false)
	if err != nil {
		return err
	}
	stderr, err := s.run(argv, nil, io.Discard)
	if err != nil {
		return &CleanError{Stderr: string(stderr), Err: err}
	}
	if len(stderr) > 0 {
		return &CleanError{Stderr: string(stderr)}
	}
	return nil
}

// RemoveScratch drops the persisted stdin, expectation and captured output.
func (s *Session) RemoveScratch() {
	for _, name := range []string{"input", "expected", "output"} {
		if err := os.Remove(s.scratchPath(name)); err != nil && !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("file", name).Warn("Failed to remove scratch file")
		}
	}
}

func (s *Session) resultsDir(environment, workload string, timestamp int64) (string, error) {
	dir := filepath.Join(s.baseDir,
		fmt.Sprintf("%s_%s_%d", environment, workload, timestamp),
		s.Mode(), s.impl.Name(), s.spec.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// MoveRapl moves the single raw RAPL measurement into the results tree.
func (s *Session) MoveRapl(environment, workload string, timestamp int64) error {
	src, err := rapl.FindFile(s.benchmarkDir())
	if err != nil {
		return err
	}
	dir, err := s.resultsDir(environment, workload, timestamp)
	if err != nil {
		return err
	}
	return os.Rename(src, filepath.Join(dir, filepath.Base(src)))
}

// MovePerf moves the perf stat output into the results tree.
func (s *Session) MovePerf(environment, workload string, timestamp int64) error {
	src := filepath.Join(s.benchmarkDir(), "perf.json")
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("benchmark didn't generate a valid perf measurement: %w", err)
	}
	dir, err := s.resultsDir(environment, workload, timestamp)
	if err != nil {
		return err
	}
	return os.Rename(src, filepath.Join(dir, "perf.json"))
}

// RemoveRawArtifacts drops any leftover raw measurements so a failed run
// can't contaminate the next one.
func (s *Session) RemoveRawArtifacts() {
	leftovers := []string{filepath.Join(s.benchmarkDir(), "perf.json")}
	for _, pattern := range []string{"Intel_[0-9][0-9]*.csv", "AMD_[0-9][0-9]*.csv"} {
		matches, _ := filepath.Glob(filepath.Join(s.benchmarkDir(), pattern))
		leftovers = append(leftovers, matches...)
	}
	for _, path := range leftovers {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("file", path).Warn("Failed to remove raw artifact")
		}
	}
}
