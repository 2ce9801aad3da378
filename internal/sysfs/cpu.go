package sysfs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// CPU addresses one logical CPU's sysfs attributes.
type CPU struct {
	store *Store
	id    int
}

func (s *Store) CPU(id int) CPU {
	return CPU{store: s, id: id}
}

func (c CPU) ID() int {
	return c.id
}

func (c CPU) node(parts ...string) string {
	elems := append([]string{cpuDir, fmt.Sprintf("cpu%d", c.id)}, parts...)
	return filepath.Join(elems...)
}

// Enabled reports whether the CPU is online. A missing online toggle implies
// the CPU is always enabled, which is the case for CPU 0.
func (c CPU) Enabled() (bool, error) {
	content, err := c.store.readFile(c.node("online"))
	if err != nil {
		var missing *MissingSysNodeError
		if errors.As(err, &missing) {
			return true, nil
		}
		return false, err
	}
	return content == "1", nil
}

// SetEnabled brings the CPU online or offline. CPU 0 cannot be toggled and
// the call is a no-op for it.
func (c CPU) SetEnabled(enable bool) error {
	if c.id == 0 {
		return nil
	}
	value := "0"
	if enable {
		value = "1"
	}
	return c.store.writeFile(c.node("online"), value)
}

// HyperthreadSibling reports whether this CPU is a secondary hardware thread,
// meaning its id appears anywhere but first in its thread-sibling list. AMD
// formats the list with dashes, Intel with commas.
func (c CPU) HyperthreadSibling() (bool, error) {
	content, err := c.store.readFile(c.node("topology", "thread_siblings_list"))
	if err != nil {
		var missing *MissingSysNodeError
		if errors.As(err, &missing) {
			return false, nil
		}
		return false, err
	}

	vendor, err := c.store.Vendor()
	if err != nil {
		return false, err
	}

	sep := ","
	if vendor == "amd" {
		sep = "-"
	}

	siblings := strings.Split(content, sep)
	for _, sibling := range siblings[1:] {
		id, err := strconv.Atoi(strings.TrimSpace(sibling))
		if err != nil {
			continue
		}
		if id == c.id {
			return true, nil
		}
	}
	return false, nil
}

func (c CPU) Governor() (string, error) {
	return c.store.readFile(c.node("cpufreq", "scaling_governor"))
}

func (c CPU) AvailableGovernors() ([]string, error) {
	content, err := c.store.readFile(c.node("cpufreq", "scaling_available_governors"))
	if err != nil {
		return nil, err
	}
	return strings.Fields(content), nil
}

func (c CPU) SetGovernor(governor string) error {
	available, err := c.AvailableGovernors()
	if err != nil {
		return err
	}
	found := false
	for _, g := range available {
		if g == governor {
			found = true
			break
		}
	}
	if !found {
		return &UnsupportedGovernorError{CPU: c.id, Governor: governor, Available: available}
	}
	return c.store.writeFile(c.node("cpufreq", "scaling_governor"), governor)
}

func (c CPU) MinFreq() (int, error) {
	return c.store.readInt(c.node("cpufreq", "scaling_min_freq"))
}

func (c CPU) MaxFreq() (int, error) {
	return c.store.readInt(c.node("cpufreq", "scaling_max_freq"))
}

// HwMinFreq returns the hardware minimum frequency in kHz.
func (c CPU) HwMinFreq() (int, error) {
	return c.store.readInt(c.node("cpufreq", "cpuinfo_min_freq"))
}

// HwMaxFreq returns the hardware maximum frequency in kHz.
func (c CPU) HwMaxFreq() (int, error) {
	return c.store.readInt(c.node("cpufreq", "cpuinfo_max_freq"))
}

func (c CPU) SetMinFreq(freq int) error {
	if err := c.checkFreqBounds(freq); err != nil {
		return err
	}
	return c.store.writeFile(c.node("cpufreq", "scaling_min_freq"), strconv.Itoa(freq))
}

func (c CPU) SetMaxFreq(freq int) error {
	if err := c.checkFreqBounds(freq); err != nil {
		return err
	}
	return c.store.writeFile(c.node("cpufreq", "scaling_max_freq"), strconv.Itoa(freq))
}

func (c CPU) checkFreqBounds(freq int) error {
	hwMin, err := c.HwMinFreq()
	if err != nil {
		return err
	}
	hwMax, err := c.HwMaxFreq()
	if err != nil {
		return err
	}
	if freq < hwMin || freq > hwMax {
		return &FrequencyOutOfRangeError{CPU: c.id, Freq: freq, HwMin: hwMin, HwMax: hwMax}
	}
	return nil
}
