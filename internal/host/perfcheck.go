package host

import (
	"fmt"

	"github.com/elastic/go-perf"
)

// VerifyPerfAccess opens a throwaway cpu-clock counter on the calling thread
// to prove the kernel will hand out perf events before a batch starts. A
// paranoid perf_event_paranoid setting or a missing PMU fails here instead of
// midway through a measurement.
func VerifyPerfAccess() error {
	attr := &perf.Attr{}
	perf.CPUClock.Configure(attr)

	event, err := perf.Open(attr, perf.CallingThread, perf.AnyCPU, nil)
	if err != nil {
		return fmt.Errorf("failed to open perf event, check perf_event_paranoid: %w", err)
	}
	defer event.Close()

	if err := event.Enable(); err != nil {
		return fmt.Errorf("failed to enable perf event: %w", err)
	}
	if err := event.Disable(); err != nil {
		return fmt.Errorf("failed to disable perf event: %w", err)
	}
	if _, err := event.ReadCount(); err != nil {
		return fmt.Errorf("failed to read perf counter: %w", err)
	}
	return nil
}
