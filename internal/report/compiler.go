package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"energy-bench/internal/logging"
	"energy-bench/internal/rapl"

	"github.com/sirupsen/logrus"
)

// TrialBenchmark is the reserved benchmark name measuring pure harness
// overhead. Its rows become the correction baseline instead of report rows.
const TrialBenchmark = "trial-run"

// Row is one compiled measurement row.
type Row struct {
	Mode      string  `csv:"Mode" json:"Mode"`
	Language  string  `csv:"Language" json:"Language"`
	Benchmark string  `csv:"Benchmark" json:"Benchmark"`
	Time      float64 `csv:"Time (ms)" json:"Time (ms)"`
	Pkg       float64 `csv:"Pkg (J)" json:"Pkg (J)"`
	Core      float64 `csv:"Core (J)" json:"Core (J)"`
	Uncore    float64 `csv:"Uncore (J)" json:"Uncore (J)"`
	Dram      float64 `csv:"Dram (J)" json:"Dram (J)"`
}

// AvgRow is one averaged measurement row, grouped per language and mode.
type AvgRow struct {
	Language string  `csv:"Language" json:"Language"`
	Mode     string  `csv:"Mode" json:"Mode"`
	Time     float64 `csv:"Avg. Time (ms)" json:"Avg. Time (ms)"`
	Pkg      float64 `csv:"Avg. Pkg (J)" json:"Avg. Pkg (J)"`
	Core     float64 `csv:"Avg. Core (J)" json:"Avg. Core (J)"`
	Uncore   float64 `csv:"Avg. Uncore (J)" json:"Avg. Uncore (J)"`
	Dram     float64 `csv:"Avg. Dram (J)" json:"Avg. Dram (J)"`
}

// Compiler turns on-disk measurement trees into tabular reports.
type Compiler struct {
	SkipRows     int
	IncludeTrial bool

	logger *logrus.Logger
}

func NewCompiler(skipRows int) *Compiler {
	return &Compiler{
		SkipRows:     skipRows,
		IncludeTrial: true,
		logger:       logging.GetLogger(),
	}
}

func (c *Compiler) readSamples(dir string) ([]rapl.Sample, error) {
	path, err := rapl.FindFile(dir)
	if err != nil {
		return nil, err
	}
	return rapl.DecodeFile(path, c.SkipRows)
}

func meanSample(samples []rapl.Sample) rapl.Sample {
	var mean rapl.Sample
	if len(samples) == 0 {
		return mean
	}
	for _, s := range samples {
		mean.Time += s.Time
		mean.Pkg += s.Pkg
		mean.Core += s.Core
		mean.Uncore += s.Uncore
		mean.Dram += s.Dram
	}
	n := float64(len(samples))
	mean.Time /= n
	mean.Pkg /= n
	mean.Core /= n
	mean.Uncore /= n
	mean.Dram /= n
	return mean
}

func rowFromSample(info PathInfo, s rapl.Sample) Row {
	return Row{
		Mode:      info.Mode,
		Language:  info.Language,
		Benchmark: info.Benchmark,
		Time:      s.Time,
		Pkg:       s.Pkg,
		Core:      s.Core,
		Uncore:    s.Uncore,
		Dram:      s.Dram,
	}
}

// Compile decodes every leaf into per-row samples, subtracts the trial-run
// baseline where one exists for the row's mode, and appends the unscaled
// trial rows as a visible reference.
func (c *Compiler) Compile(dirs []string) ([]Row, error) {
	var rows []Row
	var trials []Row

	for _, dir := range dirs {
		info, err := SplitEnergyPath(dir)
		if err != nil {
			return nil, err
		}
		samples, err := c.readSamples(dir)
		if err != nil {
			return nil, err
		}

		if info.Benchmark == TrialBenchmark {
			trials = append(trials, rowFromSample(info, meanSample(samples)))
			continue
		}
		for _, s := range samples {
			rows = append(rows, rowFromSample(info, s))
		}
	}

	applyTrialCorrection(rows, trials)
	if c.IncludeTrial {
		rows = append(rows, trials...)
	}
	return rows, nil
}

// applyTrialCorrection subtracts the per-mode baseline from every row,
// scaled by the ratio of the row's elapsed time to the baseline's. A
// baseline with zero elapsed time cannot scale anything and is skipped.
func applyTrialCorrection(rows []Row, trials []Row) {
	for _, trial := range trials {
		if trial.Time == 0 {
			continue
		}
		for i := range rows {
			if rows[i].Mode != trial.Mode {
				continue
			}
			scale := rows[i].Time / trial.Time
			rows[i].Pkg -= trial.Pkg * scale
			rows[i].Core -= trial.Core * scale
			rows[i].Uncore -= trial.Uncore * scale
			rows[i].Dram -= trial.Dram * scale
		}
	}
}

// AverageRapl compiles one mean row per leaf, applies the trial correction
// and groups the result per (language, mode). Trial leaves come back as one
// "trial-run" reference row per mode.
func (c *Compiler) AverageRapl(dirs []string) ([]AvgRow, error) {
	var compiled []Row
	var trials []Row

	for _, dir := range dirs {
		info, err := SplitEnergyPath(dir)
		if err != nil {
			return nil, err
		}
		samples, err := c.readSamples(dir)
		if err != nil {
			return nil, err
		}

		row := rowFromSample(info, meanSample(samples))
		if info.Benchmark == TrialBenchmark {
			trials = append(trials, row)
			continue
		}
		compiled = append(compiled, row)
	}

	applyTrialCorrection(compiled, trials)

	out := groupMeanRapl(compiled)
	if c.IncludeTrial {
		for i := range trials {
			trials[i].Language = TrialBenchmark
		}
		out = append(out, groupMeanRapl(trials)...)
	}
	return out, nil
}

func groupMeanRapl(rows []Row) []AvgRow {
	type key struct{ language, mode string }
	sums := make(map[key]*AvgRow)
	counts := make(map[key]int)

	for _, row := range rows {
		k := key{row.Language, row.Mode}
		sum, ok := sums[k]
		if !ok {
			sum = &AvgRow{Language: row.Language, Mode: row.Mode}
			sums[k] = sum
		}
		sum.Time += row.Time
		sum.Pkg += row.Pkg
		sum.Core += row.Core
		sum.Uncore += row.Uncore
		sum.Dram += row.Dram
		counts[k]++
	}

	keys := make([]key, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].language != keys[j].language {
			return keys[i].language < keys[j].language
		}
		return keys[i].mode < keys[j].mode
	})

	out := make([]AvgRow, 0, len(keys))
	for _, k := range keys {
		sum := sums[k]
		n := float64(counts[k])
		out = append(out, AvgRow{
			Language: sum.Language,
			Mode:     sum.Mode,
			Time:     sum.Time / n,
			Pkg:      sum.Pkg / n,
			Core:     sum.Core / n,
			Uncore:   sum.Uncore / n,
			Dram:     sum.Dram / n,
		})
	}
	return out
}

// PerfRow is one averaged perf counter row per (language, mode).
type PerfRow struct {
	Language       string  `csv:"Language" json:"Language"`
	Mode           string  `csv:"Mode" json:"Mode"`
	Time           float64 `csv:"Avg. Time (ms)" json:"Avg. Time (ms)"`
	CacheMisses    float64 `csv:"Avg. cache-misses" json:"Avg. cache-misses"`
	BranchMisses   float64 `csv:"Avg. branch-misses" json:"Avg. branch-misses"`
	LLCLoadsMisses float64 `csv:"Avg. LLC-loads-misses" json:"Avg. LLC-loads-misses"`
	ThermalMargin  float64 `csv:"Avg. msr/cpu_thermal_margin/" json:"Avg. msr/cpu_thermal_margin/"`
	CPUClock       float64 `csv:"Avg. cpu-clock" json:"Avg. cpu-clock"`
	Cycles         float64 `csv:"Avg. cycles" json:"Avg. cycles"`
	C3Residency    float64 `csv:"Avg. cstate_core/c3-residency/" json:"Avg. cstate_core/c3-residency/"`
	C6Residency    float64 `csv:"Avg. cstate_core/c6-residency/" json:"Avg. cstate_core/c6-residency/"`
	C7Residency    float64 `csv:"Avg. cstate_core/c7-residency/" json:"Avg. cstate_core/c7-residency/"`
}

func (r *PerfRow) counters() map[string]*float64 {
	return map[string]*float64{
		"cache-misses":               &r.CacheMisses,
		"branch-misses":              &r.BranchMisses,
		"LLC-loads-misses":           &r.LLCLoadsMisses,
		"msr/cpu_thermal_margin/":    &r.ThermalMargin,
		"cpu-clock":                  &r.CPUClock,
		"cycles":                     &r.Cycles,
		"cstate_core/c3-residency/":  &r.C3Residency,
		"cstate_core/c6-residency/":  &r.C6Residency,
		"cstate_core/c7-residency/":  &r.C7Residency,
	}
}

// AveragePerf builds one mean counter row per leaf from its perf artifact,
// subtracts the per-mode trial baseline scaled by elapsed time, and groups
// the result per (language, mode).
func (c *Compiler) AveragePerf(dirs []string) ([]PerfRow, error) {
	var compiled []PerfRow
	var trials []PerfRow

	for _, dir := range dirs {
		info, err := SplitEnergyPath(dir)
		if err != nil {
			return nil, err
		}

		perfPath := filepath.Join(dir, "perf.json")
		if _, err := os.Stat(perfPath); err != nil {
			return nil, fmt.Errorf("no perf measurements found in %s", dir)
		}
		data, err := ParsePerfFile(perfPath)
		if err != nil {
			return nil, err
		}

		samples, err := c.readSamples(dir)
		if err != nil {
			return nil, err
		}

		row := PerfRow{Mode: info.Mode, Language: info.Language, Time: meanSample(samples).Time}
		for event, ptr := range row.counters() {
			*ptr = meanValue(data[event])
		}

		if info.Benchmark == TrialBenchmark {
			row.Language = TrialBenchmark
			trials = append(trials, row)
			continue
		}
		compiled = append(compiled, row)
	}

	applyPerfTrialCorrection(compiled, trials)

	out := groupMeanPerf(compiled)
	if c.IncludeTrial {
		out = append(out, groupMeanPerf(trials)...)
	}
	return out, nil
}

func meanValue(samples []PerfSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.Value
	}
	return sum / float64(len(samples))
}

func applyPerfTrialCorrection(rows []PerfRow, trials []PerfRow) {
	baselines := groupMeanPerf(trials)
	byMode := make(map[string]PerfRow, len(baselines))
	for _, baseline := range baselines {
		byMode[baseline.Mode] = baseline
	}

	for i := range rows {
		baseline, ok := byMode[rows[i].Mode]
		if !ok || baseline.Time <= 0 || rows[i].Time <= 0 {
			continue
		}
		scale := rows[i].Time / baseline.Time
		trialCounters := baseline.counters()
		for event, ptr := range rows[i].counters() {
			*ptr -= *trialCounters[event] * scale
		}
	}
}

func groupMeanPerf(rows []PerfRow) []PerfRow {
	type key struct{ language, mode string }
	sums := make(map[key]*PerfRow)
	counts := make(map[key]int)

	for i := range rows {
		k := key{rows[i].Language, rows[i].Mode}
		sum, ok := sums[k]
		if !ok {
			sum = &PerfRow{Language: rows[i].Language, Mode: rows[i].Mode}
			sums[k] = sum
		}
		sum.Time += rows[i].Time
		sumCounters := sum.counters()
		for event, ptr := range rows[i].counters() {
			*sumCounters[event] += *ptr
		}
		counts[k]++
	}

	keys := make([]key, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].language != keys[j].language {
			return keys[i].language < keys[j].language
		}
		return keys[i].mode < keys[j].mode
	})

	out := make([]PerfRow, 0, len(keys))
	for _, k := range keys {
		row := *sums[k]
		n := float64(counts[k])
		row.Time /= n
		for _, ptr := range row.counters() {
			*ptr /= n
		}
		out = append(out, row)
	}
	return out
}
