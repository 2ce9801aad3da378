package environment

import (
	"errors"
	"fmt"

	"energy-bench/internal/sysfs"
)

// CPUState is the recorded state of one logical CPU. Governor and frequency
// fields are only meaningful while the CPU was enabled at capture time.
type CPUState struct {
	ID       int
	Enabled  bool
	Governor string
	MinFreq  int
	MaxFreq  int
}

// Snapshot captures the machine state an environment mutates, so it can be
// restored on exit regardless of what happened in between.
type Snapshot struct {
	Aslr  int
	Turbo bool
	CPUs  []CPUState
}

// Capture records ASLR, turbo and the per-CPU state of every present CPU.
func Capture(store *sysfs.Store) (*Snapshot, error) {
	aslr, err := store.Aslr()
	if err != nil {
		return nil, fmt.Errorf("reading ASLR mode: %w", err)
	}

	turbo, err := store.TurboEnabled()
	if err != nil {
		return nil, fmt.Errorf("reading turbo state: %w", err)
	}

	present, err := store.ListCPUs("present")
	if err != nil {
		return nil, fmt.Errorf("listing present CPUs: %w", err)
	}

	snap := &Snapshot{Aslr: aslr, Turbo: turbo}
	for _, id := range present {
		cpu := store.CPU(id)
		enabled, err := cpu.Enabled()
		if err != nil {
			return nil, fmt.Errorf("reading CPU %d online state: %w", id, err)
		}

		state := CPUState{ID: id, Enabled: enabled}
		if enabled {
			// Governor and frequency nodes can be absent on virtual
			// machines; leave the zero values and skip them on restore.
			if governor, err := cpu.Governor(); err == nil {
				state.Governor = governor
			}
			if freq, err := cpu.MinFreq(); err == nil {
				state.MinFreq = freq
			}
			if freq, err := cpu.MaxFreq(); err == nil {
				state.MaxFreq = freq
			}
		}
		snap.CPUs = append(snap.CPUs, state)
	}

	return snap, nil
}

// Restore writes every recorded attribute back. It visits every CPU in the
// snapshot even when earlier restores fail, and returns the joined errors.
func Restore(store *sysfs.Store, snap *Snapshot) error {
	var errs []error

	for _, state := range snap.CPUs {
		cpu := store.CPU(state.ID)
		if err := cpu.SetEnabled(state.Enabled); err != nil {
			errs = append(errs, fmt.Errorf("restoring CPU %d online state: %w", state.ID, err))
			continue
		}
		if !state.Enabled {
			continue
		}
		if state.Governor != "" {
			if err := cpu.SetGovernor(state.Governor); err != nil {
				errs = append(errs, fmt.Errorf("restoring CPU %d governor: %w", state.ID, err))
			}
		}
		if state.MinFreq > 0 {
			if err := cpu.SetMinFreq(state.MinFreq); err != nil {
				errs = append(errs, fmt.Errorf("restoring CPU %d min frequency: %w", state.ID, err))
			}
		}
		if state.MaxFreq > 0 {
			if err := cpu.SetMaxFreq(state.MaxFreq); err != nil {
				errs = append(errs, fmt.Errorf("restoring CPU %d max frequency: %w", state.ID, err))
			}
		}
	}

	if err := store.SetAslr(snap.Aslr); err != nil {
		errs = append(errs, fmt.Errorf("restoring ASLR mode: %w", err))
	}
	if err := store.SetTurbo(snap.Turbo); err != nil {
		errs = append(errs, fmt.Errorf("restoring turbo state: %w", err))
	}

	return errors.Join(errs...)
}
