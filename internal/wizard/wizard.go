// Package wizard drives the multi-step onboarding flow. The controller
// owns an ordered list of step descriptors; each step brings its own
// validity predicate and, optionally, a commit action that persists the
// step server-side. Advancing is atomic with the save: if the commit
// fails, the visible step does not move.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrBusy is returned while a previous transition is still in
	// flight (e.g. a double-clicked Next).
	ErrBusy = errors.New("wizard: transition already in flight")
	// ErrStepInvalid is returned when Next is invoked while the active
	// step's validity predicate is false. UIs normally disable the
	// control instead of hitting this.
	ErrStepInvalid = errors.New("wizard: step input incomplete")
	// ErrFinished is returned from Next/Back after the final step
	// committed.
	ErrFinished = errors.New("wizard: flow already finished")
)

// Step describes one wizard step. Validate gates the Next control;
// Commit persists the step and may be nil for purely local steps. The
// final step's Commit is the completion action (it marks onboarding
// complete server-side and navigates away).
type Step struct {
	Name     string
	Validate func() bool
	Commit   func(ctx context.Context) error
}

// Controller is the step state machine. All methods are safe for
// concurrent use; the busy latch guarantees at most one in-flight
// commit.
type Controller struct {
	steps []Step
	log   *slog.Logger

	mu       sync.Mutex
	index    int
	busy     bool
	finished bool
}

// NewController builds a controller positioned at the identity's
// current onboarding step. startStep is 1-based as reported by the
// backend and is clamped into the valid range, which is what makes the
// flow resumable after a reload.
func NewController(steps []Step, startStep int, log *slog.Logger) (*Controller, error) {
	if len(steps) == 0 {
		return nil, errors.New("wizard: no steps")
	}
	if log == nil {
		log = slog.Default()
	}
	idx := startStep - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(steps)-1 {
		idx = len(steps) - 1
	}
	return &Controller{steps: steps, index: idx, log: log}, nil
}

// Index is the 0-based active step index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// StepName names the active step.
func (c *Controller) StepName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps[c.index].Name
}

// Len is the number of steps.
func (c *Controller) Len() int { return len(c.steps) }

// Busy reports whether a transition is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Finished reports whether the final step has committed.
func (c *Controller) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// CanNext reports whether the Next control should be enabled: the
// active step validates and nothing is in flight.
func (c *Controller) CanNext() bool {
	c.mu.Lock()
	if c.busy || c.finished {
		c.mu.Unlock()
		return false
	}
	step := c.steps[c.index]
	c.mu.Unlock()
	return step.Validate == nil || step.Validate()
}

// Next runs the active step's commit and advances on success. The busy
// latch is held for the whole commit, so a second Next during the save
// returns ErrBusy instead of firing a second overlapping call. On
// commit failure the index is unchanged and the error is returned for
// the UI to surface; the user may retry.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return ErrFinished
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	step := c.steps[c.index]
	if step.Validate != nil && !step.Validate() {
		c.mu.Unlock()
		return ErrStepInvalid
	}
	c.busy = true
	last := c.index == len(c.steps)-1
	c.mu.Unlock()

	var err error
	if step.Commit != nil {
		err = step.Commit(ctx)
	}

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("step commit failed", "step", step.Name, "err", err)
		return err
	}
	if last {
		c.finished = true
	} else {
		c.index++
	}
	c.mu.Unlock()
	return nil
}

// Back moves to the previous step. It never invokes a commit and never
// fails; on the first step it is a no-op. Like Next it respects the
// busy latch.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return ErrFinished
	}
	if c.busy {
		return ErrBusy
	}
	if c.index > 0 {
		c.index--
	}
	return nil
}
