package rapl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// UnsupportedVendorError is returned for RAPL files whose filename encodes a
// vendor other than Intel or AMD.
type UnsupportedVendorError struct {
	Vendor string
}

func (e *UnsupportedVendorError) Error() string {
	return fmt.Sprintf("unsupported CPU vendor: %s", e.Vendor)
}

// MalformedRaplFileError is returned for RAPL files that cannot be decoded.
type MalformedRaplFileError struct {
	Path   string
	Reason string
}

func (e *MalformedRaplFileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed RAPL file: %s", e.Reason)
	}
	return fmt.Sprintf("malformed RAPL file %s: %s", e.Path, e.Reason)
}

// Sample is one decoded measurement row: elapsed time in milliseconds and
// absolute energy deltas per domain in Joules.
type Sample struct {
	Time   float64
	Pkg    float64
	Core   float64
	Uncore float64
	Dram   float64
}

// Multiplier derives the fixed-point energy scale factor from the hardware
// power-unit register value embedded in the filename.
func Multiplier(powerUnit int) float64 {
	return math.Pow(0.5, float64((powerUnit>>8)&0x1F))
}

const counterWrap = 1 << 32

// Diff computes a wraparound-safe difference of two 32-bit energy counter
// readings, scaled to Joules.
func Diff(current, previous, multiplier float64) float64 {
	if current < previous {
		return (current + counterWrap - previous) * multiplier
	}
	return (current - previous) * multiplier
}

// ParseFilename extracts the vendor and power unit from a raw measurement
// filename like "Intel_658947.csv".
func ParseFilename(path string) (string, int, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return "", 0, &MalformedRaplFileError{Path: path, Reason: "filename does not encode a power unit"}
	}

	var vendor string
	switch base[:idx] {
	case "Intel":
		vendor = "intel"
	case "AMD":
		vendor = "amd"
	default:
		return "", 0, &UnsupportedVendorError{Vendor: base[:idx]}
	}

	powerUnit, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return "", 0, &MalformedRaplFileError{Path: path, Reason: "filename does not encode a power unit"}
	}
	return vendor, powerUnit, nil
}

// DecodeFile reads one RAPL CSV and returns its samples. The first row is a
// header; skipRows additional leading rows are dropped after it.
func DecodeFile(path string, skipRows int) ([]Sample, error) {
	vendor, powerUnit, err := ParseFilename(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &MalformedRaplFileError{Path: path, Reason: err.Error()}
	}

	if len(records) <= 1+skipRows {
		return nil, &MalformedRaplFileError{Path: path, Reason: fmt.Sprintf("no data rows after skipping %d rows", skipRows)}
	}

	samples, err := Decode(vendor, powerUnit, records[1+skipRows:])
	if err != nil {
		var malformed *MalformedRaplFileError
		if errors.As(err, &malformed) {
			malformed.Path = path
		}
		return nil, err
	}
	return samples, nil
}

// Decode converts raw counter rows into energy samples using the
// vendor-specific column layout.
func Decode(vendor string, powerUnit int, rows [][]string) ([]Sample, error) {
	multiplier := Multiplier(powerUnit)

	minColumns := 10
	if vendor == "amd" {
		minColumns = 6
	} else if vendor != "intel" {
		return nil, &UnsupportedVendorError{Vendor: vendor}
	}

	samples := make([]Sample, 0, len(rows))
	for i, row := range rows {
		if len(row) < minColumns {
			return nil, &MalformedRaplFileError{Reason: fmt.Sprintf("row %d has %d columns, need at least %d", i, len(row), minColumns)}
		}

		cols := make([]float64, len(row))
		for j, field := range row {
			val, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, &MalformedRaplFileError{Reason: fmt.Sprintf("row %d column %d: %v", i, j, err)}
			}
			cols[j] = val
		}

		sample := Sample{Time: cols[1] - cols[0]}
		switch vendor {
		case "intel":
			sample.Core = Diff(cols[3], cols[2], multiplier)
			sample.Uncore = Diff(cols[5], cols[4], multiplier)
			sample.Pkg = Diff(cols[7], cols[6], multiplier)
			sample.Dram = Diff(cols[9], cols[8], multiplier)
		case "amd":
			sample.Core = Diff(cols[3], cols[2], multiplier)
			sample.Pkg = Diff(cols[5], cols[4], multiplier)
			if len(cols) >= 8 {
				sample.Dram = Diff(cols[7], cols[6], multiplier)
			}
		}
		samples = append(samples, sample)
	}
	return samples, nil
}
