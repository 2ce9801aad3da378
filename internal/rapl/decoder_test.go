package rapl

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMultiplier(t *testing.T) {
	tests := []struct {
		powerUnit int
		want      float64
	}{
		{0, 1},
		{1 << 8, 0.5},
		{16 << 8, math.Pow(0.5, 16)},
		{0xA1003, math.Pow(0.5, 16)},
	}
	for _, tt := range tests {
		if got := Multiplier(tt.powerUnit); got != tt.want {
			t.Errorf("Multiplier(%#x) = %v, want %v", tt.powerUnit, got, tt.want)
		}
	}
}

func TestDiffWraparound(t *testing.T) {
	// Counter wrapped between the two readings.
	got := Diff(10, 4294967290, 1)
	if got != 16 {
		t.Errorf("Diff(10, 4294967290, 1) = %v, want 16", got)
	}

	if got := Diff(100, 40, 0.5); got != 30 {
		t.Errorf("Diff(100, 40, 0.5) = %v, want 30", got)
	}

	// A wrapped diff must never go negative.
	if got := Diff(0, math.MaxUint32, 1); got < 0 {
		t.Errorf("Diff(0, MaxUint32, 1) = %v, want non-negative", got)
	}
}

func TestParseFilename(t *testing.T) {
	vendor, powerUnit, err := ParseFilename("/results/fib/Intel_658947.csv")
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	if vendor != "intel" || powerUnit != 658947 {
		t.Errorf("got (%q, %d), want (intel, 658947)", vendor, powerUnit)
	}

	vendor, _, err = ParseFilename("AMD_65555.csv")
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	if vendor != "amd" {
		t.Errorf("vendor = %q, want amd", vendor)
	}

	_, _, err = ParseFilename("Sparc_12.csv")
	var unsupported *UnsupportedVendorError
	if !errors.As(err, &unsupported) {
		t.Errorf("ParseFilename(Sparc) = %v, want UnsupportedVendorError", err)
	}

	_, _, err = ParseFilename("Intel_abc.csv")
	var malformed *MalformedRaplFileError
	if !errors.As(err, &malformed) {
		t.Errorf("ParseFilename(Intel_abc) = %v, want MalformedRaplFileError", err)
	}
}

func TestDecodeIntel(t *testing.T) {
	rows := [][]string{
		// start, end, core prev/cur, uncore prev/cur, pkg prev/cur, dram prev/cur
		{"1000", "1250", "100", "140", "10", "12", "200", "260", "5", "9"},
	}
	samples, err := Decode("intel", 0, rows)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}

	s := samples[0]
	if s.Time != 250 {
		t.Errorf("Time = %v, want 250", s.Time)
	}
	if s.Core != 40 || s.Uncore != 2 || s.Pkg != 60 || s.Dram != 4 {
		t.Errorf("sample = %+v", s)
	}
}

func TestDecodeAMDColumnLayouts(t *testing.T) {
	// Six columns: no uncore, no dram.
	rows := [][]string{{"0", "100", "10", "30", "50", "90"}}
	samples, err := Decode("amd", 0, rows)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s := samples[0]
	if s.Core != 20 || s.Pkg != 40 {
		t.Errorf("sample = %+v", s)
	}
	if s.Uncore != 0 || s.Dram != 0 {
		t.Errorf("six column AMD file must yield zero uncore and dram, got %+v", s)
	}

	// Eight columns: dram comes from columns 6 and 7.
	rows = [][]string{{"0", "100", "10", "30", "50", "90", "3", "7"}}
	samples, err = Decode("amd", 0, rows)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if samples[0].Dram != 4 {
		t.Errorf("Dram = %v, want 4", samples[0].Dram)
	}
	if samples[0].Uncore != 0 {
		t.Errorf("Uncore = %v, want 0", samples[0].Uncore)
	}
}

func TestDecodeMalformed(t *testing.T) {
	var malformed *MalformedRaplFileError

	_, err := Decode("intel", 0, [][]string{{"0", "1", "2"}})
	if !errors.As(err, &malformed) {
		t.Errorf("short row = %v, want MalformedRaplFileError", err)
	}

	_, err = Decode("intel", 0, [][]string{
		{"0", "1", "a", "b", "c", "d", "e", "f", "g", "h"},
	})
	if !errors.As(err, &malformed) {
		t.Errorf("non-numeric row = %v, want MalformedRaplFileError", err)
	}

	var unsupported *UnsupportedVendorError
	if _, err := Decode("sparc", 0, nil); !errors.As(err, &unsupported) {
		t.Errorf("Decode(sparc) = %v, want UnsupportedVendorError", err)
	}
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Intel_256.csv")
	content := "start,end,c0,c1,u0,u1,p0,p1,d0,d1\n" +
		"1000,1100,0,20,0,4,0,40,0,8\n" +
		"1100,1200,20,40,4,8,40,80,8,16\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	samples, err := DecodeFile(path, 0)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	// Power unit 256 encodes a 0.5 multiplier.
	if samples[0].Core != 10 || samples[0].Pkg != 20 {
		t.Errorf("sample = %+v", samples[0])
	}

	// Skipping past every data row is an error.
	if _, err := DecodeFile(path, 2); err == nil {
		t.Error("DecodeFile with all rows skipped expected error")
	}

	samples, err = DecodeFile(path, 1)
	if err != nil {
		t.Fatalf("DecodeFile skip=1: %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("got %d samples after skip, want 1", len(samples))
	}
}

func TestFindFile(t *testing.T) {
	dir := t.TempDir()

	var ambiguous *AmbiguousArtifactError
	if _, err := FindFile(dir); !errors.As(err, &ambiguous) {
		t.Fatalf("FindFile(empty) = %v, want AmbiguousArtifactError", err)
	}
	if ambiguous.Matches != 0 {
		t.Errorf("Matches = %d, want 0", ambiguous.Matches)
	}

	if err := os.WriteFile(filepath.Join(dir, "Intel_658947.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, err := FindFile(dir)
	if err != nil {
		t.Fatalf("FindFile: %v", err)
	}
	if filepath.Base(path) != "Intel_658947.csv" {
		t.Errorf("FindFile = %s", path)
	}

	if err := os.WriteFile(filepath.Join(dir, "AMD_65555.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := FindFile(dir); !errors.As(err, &ambiguous) {
		t.Fatalf("FindFile(two files) = %v, want AmbiguousArtifactError", err)
	}
	if ambiguous.Matches != 2 {
		t.Errorf("Matches = %d, want 2", ambiguous.Matches)
	}
}
