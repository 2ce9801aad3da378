package sysfs

import "fmt"

// UnknownVendorError is returned when /proc/cpuinfo carries neither the
// Intel nor the AMD vendor signature.
type UnknownVendorError struct{}

func (e *UnknownVendorError) Error() string {
	return "unknown CPU vendor"
}

// MissingSysNodeError is returned when a required sysfs or procfs node is
// absent.
type MissingSysNodeError struct {
	Path string
}

func (e *MissingSysNodeError) Error() string {
	return fmt.Sprintf("missing sys node: %s", e.Path)
}

// UnsupportedGovernorError is returned when a requested scaling governor is
// not in the CPU's available-governor list.
type UnsupportedGovernorError struct {
	CPU       int
	Governor  string
	Available []string
}

func (e *UnsupportedGovernorError) Error() string {
	return fmt.Sprintf("governor %q not available on CPU %d, found: %v", e.Governor, e.CPU, e.Available)
}

// FrequencyOutOfRangeError is returned when a requested scaling frequency
// falls outside the CPU's hardware bounds.
type FrequencyOutOfRangeError struct {
	CPU   int
	Freq  int
	HwMin int
	HwMax int
}

func (e *FrequencyOutOfRangeError) Error() string {
	return fmt.Sprintf("requested frequency %d on CPU %d outside hardware limits [%d, %d]", e.Freq, e.CPU, e.HwMin, e.HwMax)
}
