package environment

import (
	"fmt"

	"energy-bench/internal/logging"
	"energy-bench/internal/sysfs"

	"github.com/sirupsen/logrus"
)

// Controller scopes a machine configuration around a measured workload.
// Enter snapshots then applies the policy; Exit restores the snapshot
// unconditionally. A nil policy makes the controller a no-op baseline.
type Controller struct {
	store  *sysfs.Store
	policy Policy
	snap   *Snapshot
	logger *logrus.Logger
}

func NewController(store *sysfs.Store, policy Policy) *Controller {
	return &Controller{
		store:  store,
		policy: policy,
		logger: logging.GetLogger(),
	}
}

func (c *Controller) Name() string {
	if c.policy == nil {
		return "none"
	}
	return c.policy.Name()
}

// Niceness returns the process niceness the active policy asks for.
func (c *Controller) Niceness() int {
	if c.policy == nil {
		return 0
	}
	return c.policy.Niceness()
}

// Enter captures a snapshot and applies the policy. When the apply phase
// fails partway through, the already mutated state is rolled back to the
// snapshot before the error surfaces.
func (c *Controller) Enter() error {
	if c.policy == nil {
		return nil
	}

	snap, err := Capture(c.store)
	if err != nil {
		return fmt.Errorf("capturing environment snapshot: %w", err)
	}
	c.snap = snap

	c.logger.WithFields(logrus.Fields{
		"environment": c.policy.Name(),
		"cpus":        len(snap.CPUs),
	}).Info("Entering environment")

	if err := c.policy.Apply(c.store); err != nil {
		if rerr := Restore(c.store, snap); rerr != nil {
			c.logger.WithError(rerr).Warn("Failed to roll back after apply failure")
		}
		c.snap = nil
		return fmt.Errorf("applying %s environment: %w", c.policy.Name(), err)
	}
	return nil
}

// Exit restores the recorded snapshot. It is safe to call after a failed
// Enter, in which case it does nothing.
func (c *Controller) Exit() error {
	if c.policy == nil || c.snap == nil {
		return nil
	}

	snap := c.snap
	c.snap = nil

	c.logger.WithField("environment", c.policy.Name()).Info("Restoring environment")
	if err := Restore(c.store, snap); err != nil {
		return fmt.Errorf("restoring %s environment: %w", c.policy.Name(), err)
	}
	return nil
}
