// Package flow tracks progress through the accept → choose-mode → confirm
// sequence. State only ever advances on fresh evidence from the current
// snapshot, never from elapsed time or a remembered step alone, and a stuck
// flow resets itself after a bounded period without forward movement.
package flow

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mj1618/autoshare/internal/detect"
)

// Step is the current position in the share-acceptance flow.
type Step int32

const (
	StepIdle Step = iota
	StepAwaitingShareDialog
	StepAwaitingChooser
	StepAwaitingShareConfirm
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepAwaitingShareDialog:
		return "awaiting-share-dialog"
	case StepAwaitingChooser:
		return "awaiting-chooser"
	case StepAwaitingShareConfirm:
		return "awaiting-share-confirm"
	default:
		return "unknown"
	}
}

var (
	// ErrStaleEvidence rejects a transition whose evidence report does not
	// confirm the expected dialog in the current snapshot.
	ErrStaleEvidence = errors.New("evidence does not confirm expected dialog")
	// ErrBadTransition rejects a transition that skips a step.
	ErrBadTransition = errors.New("invalid step transition")
)

// Options configure a Machine.
type Options struct {
	// StuckTimeout is how long the flow may sit in a non-idle step without
	// activity before it is forced back to idle. Zero means 30 seconds.
	StuckTimeout time.Duration
	Clock        func() time.Time
	Logger       *slog.Logger
}

// Machine is the single process-wide flow state record. It is created at
// service start, mutated only by the active processing cycle, and reset on
// teardown. Counters tolerate concurrent reads from status queries; they
// are eventually consistent, not linearizable.
type Machine struct {
	step            atomic.Int32
	lastActivity    atomic.Int64 // unix nanos
	dialogsDetected atomic.Int64
	autoAccepts     atomic.Int64
	processing      atomic.Bool

	stuckTimeout time.Duration
	clock        func() time.Time
	log          *slog.Logger
}

// New returns an idle Machine.
func New(opts Options) *Machine {
	if opts.StuckTimeout <= 0 {
		opts.StuckTimeout = 30 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Machine{
		stuckTimeout: opts.StuckTimeout,
		clock:        opts.Clock,
		log:          opts.Logger,
	}
	m.lastActivity.Store(opts.Clock().UnixNano())
	return m
}

// TryBegin attempts to start a processing cycle. It is a non-blocking
// try-lock: false means a cycle is already in flight and the caller should
// drop its notification, not queue it.
func (m *Machine) TryBegin() bool {
	return m.processing.CompareAndSwap(false, true)
}

// End finishes the current processing cycle.
func (m *Machine) End() {
	m.processing.Store(false)
}

// Step returns the current step.
func (m *Machine) Step() Step {
	return Step(m.step.Load())
}

// Touch records activity now, deferring the stuck-state timeout.
func (m *Machine) Touch() {
	m.lastActivity.Store(m.clock().UnixNano())
}

// RecoverIfStuck forces the flow back to idle when no forward progress has
// happened within the stuck timeout. Called at the start of each cycle,
// before any other processing. Returns true when a reset happened. This is
// recovery from externally dismissed or cancelled dialogs, not an error.
func (m *Machine) RecoverIfStuck() bool {
	if m.Step() == StepIdle {
		return false
	}
	idle := m.clock().Sub(time.Unix(0, m.lastActivity.Load()))
	if idle <= m.stuckTimeout {
		return false
	}
	m.log.Info("flow stuck, resetting", "step", m.Step().String(), "idle", idle.Round(time.Second))
	m.Reset("stuck-timeout")
	return true
}

// Advance moves to target, which must be the immediate next step, guarded
// by a fresh evidence report confirming the expected dialog in the current
// snapshot.
func (m *Machine) Advance(target Step, ev detect.Report) error {
	if !ev.Confirmed() {
		return ErrStaleEvidence
	}
	cur := m.Step()
	if target != cur+1 {
		return ErrBadTransition
	}
	m.step.Store(int32(target))
	m.Touch()
	m.log.Info("flow advanced", "from", cur.String(), "to", target.String(),
		"shape", ev.Shape, "score", ev.Score)
	return nil
}

// Complete finishes the final step: the flow returns to idle and the
// completion counter increments. Requires fresh confirming evidence, like
// any other transition.
func (m *Machine) Complete(ev detect.Report) error {
	if !ev.Confirmed() {
		return ErrStaleEvidence
	}
	if m.Step() != StepAwaitingShareConfirm {
		return ErrBadTransition
	}
	m.step.Store(int32(StepIdle))
	m.autoAccepts.Add(1)
	m.Touch()
	m.log.Info("flow completed", "autoAccepts", m.autoAccepts.Load())
	return nil
}

// Reset returns the flow to idle without counting a completion. Used for
// stuck-state recovery and service teardown.
func (m *Machine) Reset(reason string) {
	if prev := m.Step(); prev != StepIdle {
		m.log.Info("flow reset", "from", prev.String(), "reason", reason)
	}
	m.step.Store(int32(StepIdle))
	m.Touch()
}

// DialogDetected counts one confirmed dialog detection.
func (m *Machine) DialogDetected() {
	m.dialogsDetected.Add(1)
}

// Counters returns the diagnostic counters. Reads are eventually
// consistent with an in-flight cycle.
func (m *Machine) Counters() (dialogsDetected, autoAccepts int64) {
	return m.dialogsDetected.Load(), m.autoAccepts.Load()
}
