package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// RequestedEvents is the enumerated perf event set a measurement asks for.
// Report columns follow this order.
var RequestedEvents = []string{
	"cache-misses",
	"branch-misses",
	"LLC-loads-misses",
	"msr/cpu_thermal_margin/",
	"cpu-clock",
	"cycles",
	"cstate_core/c3-residency/",
	"cstate_core/c6-residency/",
	"cstate_core/c7-residency/",
}

var (
	trailingCommaPattern = regexp.MustCompile(`,\s*}`)
	numberCommaPattern   = regexp.MustCompile(`(\d+),(\d+)`)
)

// PerfSample is one sampling interval of one event.
type PerfSample struct {
	Event    string
	Interval float64
	Value    float64
}

// ParsePerfFile reads a perf JSON-lines artifact, keyed by requested event.
// perf emits malformed trailing commas and thousands-separator commas inside
// numbers; both are repaired before decoding. Lines that still fail to parse
// are skipped.
func ParsePerfFile(path string) (map[string][]PerfSample, error) {
	samples := make(map[string][]PerfSample, len(RequestedEvents))
	for _, event := range RequestedEvents {
		samples[event] = nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading perf file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := trailingCommaPattern.ReplaceAllString(scanner.Text(), "}")
		line = numberCommaPattern.ReplaceAllString(line, "$1.$2")

		var data map[string]any
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}

		eventName, _ := data["event"].(string)
		for _, key := range RequestedEvents {
			if strings.Contains(eventName, key) {
				samples[key] = append(samples[key], PerfSample{
					Event:    eventName,
					Interval: toFloat(data["interval"]),
					Value:    toFloat(data["counter-value"]),
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading perf file %s: %w", path, err)
	}

	return samples, nil
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// UnwrapIntervals reconstructs a strictly increasing elapsed-time sequence
// from the monotonically resetting interval counter perf reports.
func UnwrapIntervals(samples []PerfSample) []float64 {
	unwrapped := make([]float64, 0, len(samples))
	offset := 0.0
	last := -1.0
	haveLast := false

	for _, sample := range samples {
		if haveLast && sample.Interval < last {
			offset += last
		}
		unwrapped = append(unwrapped, sample.Interval+offset)
		last = sample.Interval
		haveLast = true
	}
	return unwrapped
}

// Normalize rescales a series to [0,1] via min-max. A zero-range series is
// passed through unchanged.
func Normalize(series []float64) []float64 {
	if len(series) == 0 {
		return series
	}

	min, max := series[0], series[0]
	for _, v := range series[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max <= min {
		return series
	}

	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = (v - min) / (max - min)
	}
	return out
}
