package sysfs

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	store := NewStore(root)
	store.SetWriteFunc(func(path, value string) error {
		return os.WriteFile(path, []byte(value), 0o644)
	})
	return store, root
}

func writeNode(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseCPUList(t *testing.T) {
	tests := []struct {
		content string
		want    []int
	}{
		{"0-3,7", []int{0, 1, 2, 3, 7}},
		{"", []int{}},
		{"5", []int{5}},
		{"0,2,4", []int{0, 2, 4}},
		{"0-1,1-2", []int{0, 1, 2}},
	}

	for _, tt := range tests {
		got, err := ParseCPUList(tt.content)
		if err != nil {
			t.Fatalf("ParseCPUList(%q): %v", tt.content, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseCPUList(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestParseCPUListInvalid(t *testing.T) {
	for _, content := range []string{"a", "3-1", "0-x"} {
		if _, err := ParseCPUList(content); err == nil {
			t.Errorf("ParseCPUList(%q) expected error", content)
		}
	}
}

func TestVendor(t *testing.T) {
	store, root := newTestStore(t)

	writeNode(t, root, "proc/cpuinfo", "vendor_id\t: GenuineIntel")
	vendor, err := store.Vendor()
	if err != nil {
		t.Fatalf("Vendor: %v", err)
	}
	if vendor != "intel" {
		t.Errorf("Vendor = %q, want intel", vendor)
	}

	writeNode(t, root, "proc/cpuinfo", "vendor_id\t: AuthenticAMD")
	vendor, err = store.Vendor()
	if err != nil {
		t.Fatalf("Vendor: %v", err)
	}
	if vendor != "amd" {
		t.Errorf("Vendor = %q, want amd", vendor)
	}

	writeNode(t, root, "proc/cpuinfo", "vendor_id\t: SomethingElse")
	_, err = store.Vendor()
	var unknown *UnknownVendorError
	if !errors.As(err, &unknown) {
		t.Errorf("Vendor = %v, want UnknownVendorError", err)
	}
}

func TestListCPUs(t *testing.T) {
	store, root := newTestStore(t)
	writeNode(t, root, "sys/devices/system/cpu/online", "0-3")
	writeNode(t, root, "sys/devices/system/cpu/offline", "")

	online, err := store.ListCPUs("online")
	if err != nil {
		t.Fatalf("ListCPUs(online): %v", err)
	}
	if !reflect.DeepEqual(online, []int{0, 1, 2, 3}) {
		t.Errorf("online = %v", online)
	}

	offline, err := store.ListCPUs("offline")
	if err != nil {
		t.Fatalf("ListCPUs(offline): %v", err)
	}
	if len(offline) != 0 {
		t.Errorf("offline = %v, want empty", offline)
	}

	if _, err := store.ListCPUs("bogus"); err == nil {
		t.Error("ListCPUs(bogus) expected error")
	}
}

func TestEnabledMissingOnlineFile(t *testing.T) {
	store, _ := newTestStore(t)

	// CPU 0 has no online toggle and is always enabled.
	enabled, err := store.CPU(0).Enabled()
	if err != nil {
		t.Fatalf("Enabled: %v", err)
	}
	if !enabled {
		t.Error("Enabled = false, want true for missing online file")
	}
}

func TestSetEnabledCPU0NoOp(t *testing.T) {
	store, _ := newTestStore(t)
	calls := 0
	store.SetWriteFunc(func(path, value string) error {
		calls++
		return nil
	})

	if err := store.CPU(0).SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if calls != 0 {
		t.Errorf("SetEnabled(0) performed %d writes, want 0", calls)
	}
}

func TestSetGovernorUnsupported(t *testing.T) {
	store, root := newTestStore(t)
	writeNode(t, root, "sys/devices/system/cpu/cpu1/cpufreq/scaling_available_governors", "performance powersave")

	err := store.CPU(1).SetGovernor("ondemand")
	var unsupported *UnsupportedGovernorError
	if !errors.As(err, &unsupported) {
		t.Fatalf("SetGovernor = %v, want UnsupportedGovernorError", err)
	}
	if unsupported.CPU != 1 || unsupported.Governor != "ondemand" {
		t.Errorf("unexpected error detail: %+v", unsupported)
	}

	if err := store.CPU(1).SetGovernor("powersave"); err != nil {
		t.Fatalf("SetGovernor(powersave): %v", err)
	}
	governor, err := store.CPU(1).Governor()
	if err != nil {
		t.Fatalf("Governor: %v", err)
	}
	if governor != "powersave" {
		t.Errorf("Governor = %q, want powersave", governor)
	}
}

func TestSetFrequencyOutOfRange(t *testing.T) {
	store, root := newTestStore(t)
	writeNode(t, root, "sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_min_freq", "800000")
	writeNode(t, root, "sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq", "3600000")

	err := store.CPU(0).SetMinFreq(100)
	var outOfRange *FrequencyOutOfRangeError
	if !errors.As(err, &outOfRange) {
		t.Fatalf("SetMinFreq = %v, want FrequencyOutOfRangeError", err)
	}

	if err := store.CPU(0).SetMaxFreq(4000000); !errors.As(err, &outOfRange) {
		t.Fatalf("SetMaxFreq = %v, want FrequencyOutOfRangeError", err)
	}

	if err := store.CPU(0).SetMinFreq(800000); err != nil {
		t.Fatalf("SetMinFreq(800000): %v", err)
	}
	freq, err := store.CPU(0).MinFreq()
	if err != nil {
		t.Fatalf("MinFreq: %v", err)
	}
	if freq != 800000 {
		t.Errorf("MinFreq = %d, want 800000", freq)
	}
}

func TestHyperthreadSibling(t *testing.T) {
	store, root := newTestStore(t)
	writeNode(t, root, "proc/cpuinfo", "vendor_id\t: GenuineIntel")
	writeNode(t, root, "sys/devices/system/cpu/cpu0/topology/thread_siblings_list", "0,1")
	writeNode(t, root, "sys/devices/system/cpu/cpu1/topology/thread_siblings_list", "0,1")

	sibling, err := store.CPU(0).HyperthreadSibling()
	if err != nil {
		t.Fatalf("HyperthreadSibling(0): %v", err)
	}
	if sibling {
		t.Error("CPU 0 reported as sibling, want primary")
	}

	sibling, err = store.CPU(1).HyperthreadSibling()
	if err != nil {
		t.Fatalf("HyperthreadSibling(1): %v", err)
	}
	if !sibling {
		t.Error("CPU 1 not reported as sibling")
	}

	// No topology node means no sibling information.
	sibling, err = store.CPU(5).HyperthreadSibling()
	if err != nil {
		t.Fatalf("HyperthreadSibling(5): %v", err)
	}
	if sibling {
		t.Error("CPU 5 reported as sibling without topology node")
	}
}

func TestHyperthreadSiblingAMDFormat(t *testing.T) {
	store, root := newTestStore(t)
	writeNode(t, root, "proc/cpuinfo", "vendor_id\t: AuthenticAMD")
	writeNode(t, root, "sys/devices/system/cpu/cpu3/topology/thread_siblings_list", "2-3")

	sibling, err := store.CPU(3).HyperthreadSibling()
	if err != nil {
		t.Fatalf("HyperthreadSibling: %v", err)
	}
	if !sibling {
		t.Error("CPU 3 not reported as sibling with dash-separated list")
	}
}

func TestTurbo(t *testing.T) {
	store, root := newTestStore(t)
	writeNode(t, root, "proc/cpuinfo", "vendor_id\t: GenuineIntel")
	writeNode(t, root, "sys/devices/system/cpu/intel_pstate/no_turbo", "0")

	enabled, err := store.TurboEnabled()
	if err != nil {
		t.Fatalf("TurboEnabled: %v", err)
	}
	if !enabled {
		t.Error("TurboEnabled = false, want true")
	}

	if err := store.SetTurbo(false); err != nil {
		t.Fatalf("SetTurbo: %v", err)
	}
	enabled, err = store.TurboEnabled()
	if err != nil {
		t.Fatalf("TurboEnabled: %v", err)
	}
	if enabled {
		t.Error("TurboEnabled = true after disabling")
	}
}

func TestTurboAMDNoOp(t *testing.T) {
	store, root := newTestStore(t)
	writeNode(t, root, "proc/cpuinfo", "vendor_id\t: AuthenticAMD")

	enabled, err := store.TurboEnabled()
	if err != nil {
		t.Fatalf("TurboEnabled: %v", err)
	}
	if enabled {
		t.Error("TurboEnabled = true on AMD")
	}
	if err := store.SetTurbo(true); err != nil {
		t.Fatalf("SetTurbo on AMD should be a no-op, got %v", err)
	}
}

func TestAslr(t *testing.T) {
	store, root := newTestStore(t)
	writeNode(t, root, "proc/sys/kernel/randomize_va_space", "2")

	mode, err := store.Aslr()
	if err != nil {
		t.Fatalf("Aslr: %v", err)
	}
	if mode != 2 {
		t.Errorf("Aslr = %d, want 2", mode)
	}

	if err := store.SetAslr(0); err != nil {
		t.Fatalf("SetAslr: %v", err)
	}
	mode, err = store.Aslr()
	if err != nil {
		t.Fatalf("Aslr: %v", err)
	}
	if mode != 0 {
		t.Errorf("Aslr = %d, want 0", mode)
	}

	if err := store.SetAslr(3); err == nil {
		t.Error("SetAslr(3) expected error")
	}
}
