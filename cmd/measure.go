package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"energy-bench/internal/config"
	"energy-bench/internal/environment"
	"energy-bench/internal/host"
	"energy-bench/internal/logging"
	"energy-bench/internal/runner"
	"energy-bench/internal/sysfs"
	"energy-bench/internal/workload"
)

var measureOpts struct {
	iterations int
	frequency  int
	sleep      int

	warmup   bool
	noWarmup bool

	prod  bool
	light bool
	lab   bool

	workloads []string
	trial     bool
	stop      bool
}

var measureCmd = &cobra.Command{
	Use:   "measure [files...]",
	Short: "Perform measurements on benchmark files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMeasure(cmd.Context(), args)
	},
}

func init() {
	flags := measureCmd.Flags()
	flags.IntVarP(&measureOpts.iterations, "iterations", "i", 1, "Number of measurement iterations")
	flags.IntVarP(&measureOpts.frequency, "frequency", "f", 500, "Perf measurement frequency in milliseconds")
	flags.IntVarP(&measureOpts.sleep, "sleep", "s", 60, "Seconds to sleep between each successful measurement")
	flags.BoolVar(&measureOpts.warmup, "warmup", false, "Perform measure iterations inside the benchmark")
	flags.BoolVar(&measureOpts.noWarmup, "no-warmup", false, "Perform measure iterations around the benchmark")
	flags.BoolVar(&measureOpts.prod, "prod", false, "Enter the 'production' environment right before measuring")
	flags.BoolVar(&measureOpts.light, "light", false, "Enter the 'lightweight' environment right before measuring")
	flags.BoolVar(&measureOpts.lab, "lab", false, "Enter the 'lab' environment right before measuring")
	flags.StringSliceVar(&measureOpts.workloads, "workloads", nil, "Workload names to enter before measuring (can be combined with an environment)")
	flags.BoolVar(&measureOpts.trial, "trial", false, "Perform trial run measurement")
	flags.BoolVar(&measureOpts.stop, "stop", false, "Abort the batch after the first failed run")

	rootCmd.AddCommand(measureCmd)
}

func trialRunPath() string {
	return filepath.Join(baseDir, "trial-run.yml")
}

func selectPolicy() (environment.Policy, error) {
	selected := 0
	for _, flag := range []bool{measureOpts.prod, measureOpts.light, measureOpts.lab} {
		if flag {
			selected++
		}
	}
	if selected > 1 {
		return nil, fmt.Errorf("only one of --prod, --light and --lab can be active")
	}
	switch {
	case measureOpts.lab:
		return environment.Lab{}, nil
	case measureOpts.light:
		return environment.Lightweight{}, nil
	case measureOpts.prod:
		return environment.Production{}, nil
	default:
		return nil, nil
	}
}

func selectModes() []bool {
	var modes []bool
	if measureOpts.warmup {
		modes = append(modes, true)
	}
	if measureOpts.noWarmup {
		modes = append(modes, false)
	}
	if len(modes) == 0 {
		modes = []bool{true, false}
	}
	return modes
}

func runMeasure(ctx context.Context, files []string) error {
	logger := logging.GetLogger()

	policy, err := selectPolicy()
	if err != nil {
		return err
	}
	env := environment.NewController(sysfs.NewStore("/"), policy)

	params := config.RunParams{
		Iterations: measureOpts.iterations,
		Frequency:  measureOpts.frequency,
		Sleep:      measureOpts.sleep,
		Niceness:   env.Niceness(),
	}
	if err := params.Validate(); err != nil {
		return err
	}

	if err := host.VerifyPerfAccess(); err != nil {
		return fmt.Errorf("perf preflight failed: %w", err)
	}

	workloads := []workload.Workload{workload.None{}}
	seen := map[string]bool{"none": true}
	for _, name := range measureOpts.workloads {
		w, err := workload.Lookup(name)
		if err != nil {
			return err
		}
		if seen[w.Name()] {
			continue
		}
		seen[w.Name()] = true
		workloads = append(workloads, w)
	}

	if measureOpts.trial {
		files = append([]string{trialRunPath()}, files...)
	}

	specs := make([]*config.BenchmarkSpec, 0, len(files))
	for _, file := range files {
		logger.WithField("file", file).Info("Loading benchmark file")
		spec, err := config.Load(file)
		if err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
		specs = append(specs, spec)
	}

	r := runner.New(runner.Options{
		BaseDir:     baseDir,
		Params:      params,
		Modes:       selectModes(),
		Workloads:   workloads,
		Env:         env,
		StopOnError: measureOpts.stop,
	})
	results := r.Run(ctx, specs)

	failures := 0
	for _, result := range results {
		if result.Failed() {
			failures++
		}
	}
	logger.WithField("runs", len(results)).WithField("failures", failures).Info("Measurement batch finished")
	if failures > 0 {
		return fmt.Errorf("%d of %d runs failed", failures, len(results))
	}
	return nil
}
