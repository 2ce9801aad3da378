package runner

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"energy-bench/internal/config"
	"energy-bench/internal/environment"
	"energy-bench/internal/languages"
	"energy-bench/internal/logging"
	"energy-bench/internal/session"
	"energy-bench/internal/workload"
)

// Options configures a measurement batch.
type Options struct {
	BaseDir   string
	Params    config.RunParams
	Modes     []bool // warmup flags
	Workloads []workload.Workload
	Env       *environment.Controller

	// StopOnError aborts the batch after the first failed run instead of
	// continuing with the remaining combinations.
	StopOnError bool
}

// RunResult records the outcome of one (benchmark, workload, mode) run.
type RunResult struct {
	Benchmark string
	Language  string
	Mode      string
	Workload  string
	Duration  time.Duration
	Err       error
}

func (r RunResult) Failed() bool { return r.Err != nil }

// measurementSession is the slice of session behavior the runner drives,
// split out so tests can substitute the command execution.
type measurementSession interface {
	Build() error
	Measure() error
	Verify(iterations int) error
	Clean() error
	RemoveScratch()
	RemoveRawArtifacts()
	MoveRapl(environment, workload string, timestamp int64) error
	MovePerf(environment, workload string, timestamp int64) error
	Mode() string
	String() string
}

type sessionFactory func(spec *config.BenchmarkSpec, impl languages.Implementation, baseDir string, warmup bool, params config.RunParams) (measurementSession, error)

// Runner executes every combination of benchmark, workload and warmup mode
// in randomized order so systematic drift doesn't bias one cell.
type Runner struct {
	opts   Options
	logger *logrus.Logger

	newSession sessionFactory
	sleep      func(time.Duration)
	now        func() time.Time
}

func New(opts Options) *Runner {
	return &Runner{
		opts:   opts,
		logger: logging.GetLogger(),
		newSession: func(spec *config.BenchmarkSpec, impl languages.Implementation, baseDir string, warmup bool, params config.RunParams) (measurementSession, error) {
			return session.New(spec, impl, baseDir, warmup, params)
		},
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Run measures every benchmark under every workload and mode. The shared
// timestamp groups all results of the batch under one results directory.
func (r *Runner) Run(ctx context.Context, specs []*config.BenchmarkSpec) []RunResult {
	timestamp := r.now().Unix()

	shuffledSpecs := append([]*config.BenchmarkSpec(nil), specs...)
	rand.Shuffle(len(shuffledSpecs), func(i, j int) {
		shuffledSpecs[i], shuffledSpecs[j] = shuffledSpecs[j], shuffledSpecs[i]
	})
	modes := append([]bool(nil), r.opts.Modes...)
	rand.Shuffle(len(modes), func(i, j int) { modes[i], modes[j] = modes[j], modes[i] })
	workloads := append([]workload.Workload(nil), r.opts.Workloads...)
	rand.Shuffle(len(workloads), func(i, j int) { workloads[i], workloads[j] = workloads[j], workloads[i] })

	var results []RunResult
	for _, spec := range shuffledSpecs {
		impl, err := languages.Lookup(spec.Language)
		if err != nil {
			results = append(results, RunResult{Benchmark: spec.Name, Language: spec.Language, Err: err})
			if r.opts.StopOnError {
				return results
			}
			continue
		}

		for _, work := range workloads {
			for _, warmup := range modes {
				if ctx.Err() != nil {
					r.logger.Warn("Batch interrupted")
					return results
				}
				result := r.runOne(ctx, spec, impl, work, warmup, timestamp)
				results = append(results, result)
				if result.Failed() {
					r.logger.WithFields(logrus.Fields{
						"benchmark": result.Benchmark,
						"language":  result.Language,
						"mode":      result.Mode,
						"workload":  result.Workload,
					}).WithError(result.Err).Error("Run failed")
					if r.opts.StopOnError {
						return results
					}
				}
				r.sleep(r.opts.Params.SleepDuration())
			}
		}
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, spec *config.BenchmarkSpec, impl languages.Implementation, work workload.Workload, warmup bool, timestamp int64) RunResult {
	started := r.now()
	result := RunResult{
		Benchmark: spec.Name,
		Language:  impl.Name(),
		Workload:  work.Name(),
	}

	s, err := r.newSession(spec, impl, r.opts.BaseDir, warmup, r.opts.Params)
	if err != nil {
		result.Err = err
		return result
	}
	result.Mode = s.Mode()
	defer s.RemoveRawArtifacts()

	result.Err = r.measure(ctx, s, work)
	result.Duration = r.now().Sub(started)
	if result.Err != nil {
		return result
	}

	if err := s.MoveRapl(r.opts.Env.Name(), work.Name(), timestamp); err != nil {
		result.Err = err
		return result
	}
	if err := s.MovePerf(r.opts.Env.Name(), work.Name(), timestamp); err != nil {
		result.Err = err
	}
	return result
}

// measure walks one run through build, workload, environment and the
// iteration loop. Teardown happens in reverse order and keeps the first
// error while logging the rest.
func (r *Runner) measure(ctx context.Context, s measurementSession, work workload.Workload) (err error) {
	r.logger.WithField("run", s.String()).Info("Starting measurement")

	keepFirst := func(e error, msg string) {
		if e == nil {
			return
		}
		if err == nil {
			err = e
		} else {
			r.logger.WithError(e).Warn(msg)
		}
	}

	if buildErr := s.Build(); buildErr != nil {
		s.RemoveScratch()
		return buildErr
	}
	defer func() { keepFirst(s.Clean(), "Failed to clean benchmark") }()

	if enterErr := work.Enter(ctx); enterErr != nil {
		return enterErr
	}
	defer func() { keepFirst(work.Exit(ctx), "Failed to stop workload") }()

	if enterErr := r.opts.Env.Enter(); enterErr != nil {
		return enterErr
	}
	defer func() { keepFirst(r.opts.Env.Exit(), "Failed to restore environment") }()

	if s.Mode() == "warmup" {
		if measureErr := s.Measure(); measureErr != nil {
			return measureErr
		}
		return s.Verify(r.opts.Params.Iterations)
	}

	for i := 0; i < r.opts.Params.Iterations; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if measureErr := s.Measure(); measureErr != nil {
			return measureErr
		}
		if verifyErr := s.Verify(1); verifyErr != nil {
			return verifyErr
		}
	}
	return nil
}
