package environment

import (
	"fmt"

	"energy-bench/internal/sysfs"
)

// Policy is the machine configuration an environment applies after taking a
// snapshot.
type Policy interface {
	Name() string
	Niceness() int
	Apply(store *sysfs.Store) error
}

// Production approximates a typically deployed machine: full ASLR, turbo on,
// every core online at its hardware frequency range under the performance
// governor.
type Production struct{}

func (Production) Name() string  { return "production" }
func (Production) Niceness() int { return 0 }

func (Production) Apply(store *sysfs.Store) error {
	if err := store.SetAslr(2); err != nil {
		return err
	}
	if err := store.SetTurbo(true); err != nil {
		return err
	}

	present, err := store.ListCPUs("present")
	if err != nil {
		return err
	}
	for _, id := range present {
		if err := store.CPU(id).SetEnabled(true); err != nil {
			return fmt.Errorf("enabling CPU %d: %w", id, err)
		}
	}

	for _, id := range present {
		cpu := store.CPU(id)
		if err := cpu.SetGovernor("performance"); err != nil {
			return err
		}
		hwMin, err := cpu.HwMinFreq()
		if err != nil {
			return err
		}
		hwMax, err := cpu.HwMaxFreq()
		if err != nil {
			return err
		}
		if err := cpu.SetMinFreq(hwMin); err != nil {
			return err
		}
		if err := cpu.SetMaxFreq(hwMax); err != nil {
			return err
		}
	}
	return nil
}

// Lightweight snapshots and restores without changing anything. It isolates
// the overhead cost of the control mechanism itself.
type Lightweight struct{}

func (Lightweight) Name() string  { return "lightweight" }
func (Lightweight) Niceness() int { return 0 }

func (Lightweight) Apply(store *sysfs.Store) error { return nil }

// Lab approximates a controlled, minimal-noise machine: ASLR off, turbo off,
// hyperthread siblings offline, at most four cores kept online and pinned to
// the lowest clock under the powersave governor.
type Lab struct{}

const labMaxCores = 4

func (Lab) Name() string  { return "lab" }
func (Lab) Niceness() int { return -20 }

func (Lab) Apply(store *sysfs.Store) error {
	if err := store.SetAslr(0); err != nil {
		return err
	}
	if err := store.SetTurbo(false); err != nil {
		return err
	}

	online, err := store.ListCPUs("online")
	if err != nil {
		return err
	}

	var remaining []int
	for _, id := range online {
		sibling, err := store.CPU(id).HyperthreadSibling()
		if err != nil {
			return err
		}
		if sibling {
			if err := store.CPU(id).SetEnabled(false); err != nil {
				return fmt.Errorf("disabling sibling CPU %d: %w", id, err)
			}
			continue
		}
		remaining = append(remaining, id)
	}

	for i, id := range remaining {
		cpu := store.CPU(id)
		if i >= labMaxCores {
			if err := cpu.SetEnabled(false); err != nil {
				return fmt.Errorf("disabling CPU %d: %w", id, err)
			}
			continue
		}
		if err := cpu.SetGovernor("powersave"); err != nil {
			return err
		}
		hwMin, err := cpu.HwMinFreq()
		if err != nil {
			return err
		}
		if err := cpu.SetMinFreq(hwMin); err != nil {
			return err
		}
		if err := cpu.SetMaxFreq(hwMin); err != nil {
			return err
		}
	}
	return nil
}
