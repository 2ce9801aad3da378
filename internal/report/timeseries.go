package report

import (
	"path/filepath"
)

// Series is one normalized metric series plus its raw values. Times is only
// populated for perf series and counts seconds from the first sample.
type Series struct {
	Values []float64 `json:"values"`
	Raw    []float64 `json:"raw"`
	Times  []float64 `json:"times,omitempty"`
}

// Timeseries is the presentation-layer payload for one measurement leaf:
// every RAPL domain and captured perf event as an independently normalized
// series.
type Timeseries struct {
	Mode      string            `json:"mode"`
	Language  string            `json:"language"`
	Benchmark string            `json:"benchmark"`
	Rapl      map[string]Series `json:"rapl"`
	Perf      map[string]Series `json:"perf"`
}

// Timeseries loads one leaf's RAPL and perf artifacts into normalized series
// for interactive consumers. No rendering happens here.
func (c *Compiler) Timeseries(dir string) (*Timeseries, error) {
	info, err := SplitEnergyPath(dir)
	if err != nil {
		return nil, err
	}

	samples, err := c.readSamples(dir)
	if err != nil {
		return nil, err
	}

	raplSeries := map[string][]float64{
		"Pkg":    make([]float64, 0, len(samples)),
		"Core":   make([]float64, 0, len(samples)),
		"Uncore": make([]float64, 0, len(samples)),
		"Dram":   make([]float64, 0, len(samples)),
		"Time":   make([]float64, 0, len(samples)),
	}
	for _, s := range samples {
		raplSeries["Pkg"] = append(raplSeries["Pkg"], s.Pkg)
		raplSeries["Core"] = append(raplSeries["Core"], s.Core)
		raplSeries["Uncore"] = append(raplSeries["Uncore"], s.Uncore)
		raplSeries["Dram"] = append(raplSeries["Dram"], s.Dram)
		raplSeries["Time"] = append(raplSeries["Time"], s.Time/1000)
	}

	out := &Timeseries{
		Mode:      info.Mode,
		Language:  info.Language,
		Benchmark: info.Benchmark,
		Rapl:      make(map[string]Series, len(raplSeries)),
		Perf:      make(map[string]Series),
	}
	for name, raw := range raplSeries {
		out.Rapl[name] = Series{Values: Normalize(raw), Raw: raw}
	}

	perfData, err := ParsePerfFile(filepath.Join(dir, "perf.json"))
	if err != nil {
		return nil, err
	}
	for event, eventSamples := range perfData {
		if len(eventSamples) == 0 {
			continue
		}
		raw := make([]float64, len(eventSamples))
		for i, s := range eventSamples {
			raw[i] = s.Value
		}
		times := UnwrapIntervals(eventSamples)
		for i := len(times) - 1; i >= 0; i-- {
			times[i] -= times[0]
		}
		out.Perf[event] = Series{Values: Normalize(raw), Raw: raw, Times: times}
	}

	return out, nil
}
