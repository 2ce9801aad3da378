package workload

import (
	"context"
	"fmt"
	"strings"
)

// Workload is the background-load axis of a measurement. Enter starts the
// load before a run, Exit tears it down afterwards.
type Workload interface {
	Name() string
	Enter(ctx context.Context) error
	Exit(ctx context.Context) error
}

// None is the idle baseline.
type None struct{}

func (None) Name() string                    { return "none" }
func (None) Enter(ctx context.Context) error { return nil }
func (None) Exit(ctx context.Context) error  { return nil }

// Lookup resolves a workload by name.
func Lookup(name string) (Workload, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return None{}, nil
	case "stress":
		return NewStress(), nil
	default:
		return nil, fmt.Errorf("%s not a known workload", name)
	}
}
