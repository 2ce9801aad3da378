package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/jszwec/csvutil"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (r Row) rounded() Row {
	r.Time = round2(r.Time)
	r.Pkg = round2(r.Pkg)
	r.Core = round2(r.Core)
	r.Uncore = round2(r.Uncore)
	r.Dram = round2(r.Dram)
	return r
}

func (r AvgRow) rounded() AvgRow {
	r.Time = round2(r.Time)
	r.Pkg = round2(r.Pkg)
	r.Core = round2(r.Core)
	r.Uncore = round2(r.Uncore)
	r.Dram = round2(r.Dram)
	return r
}

func (r PerfRow) rounded() PerfRow {
	r.Time = round2(r.Time)
	for _, ptr := range r.counters() {
		*ptr = round2(*ptr)
	}
	return r
}

// WriteRows emits compiled rows, rounding to two decimals at this point and
// not earlier so correction and aggregation never compound rounding error.
func WriteRows(w io.Writer, rows []Row, format string) error {
	rounded := make([]Row, len(rows))
	for i, row := range rows {
		rounded[i] = row.rounded()
	}
	return marshalRows(w, rounded, format)
}

// WriteAvgRows emits averaged RAPL rows.
func WriteAvgRows(w io.Writer, rows []AvgRow, format string) error {
	rounded := make([]AvgRow, len(rows))
	for i, row := range rows {
		rounded[i] = row.rounded()
	}
	return marshalRows(w, rounded, format)
}

// WritePerfRows emits averaged perf rows.
func WritePerfRows(w io.Writer, rows []PerfRow, format string) error {
	rounded := make([]PerfRow, len(rows))
	for i, row := range rows {
		rounded[i] = row.rounded()
	}
	return marshalRows(w, rounded, format)
}

func marshalRows(w io.Writer, rows any, format string) error {
	switch format {
	case FormatJSON:
		data, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	case FormatCSV, "":
		data, err := csvutil.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
