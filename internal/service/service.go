// Package service wires the event gate, detector, locator, executor and
// flow machine into the running agent. One processing cycle handles one
// accepted notification: snapshot, classify, locate, act, advance.
package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mj1618/autoshare/internal/act"
	"github.com/mj1618/autoshare/internal/config"
	"github.com/mj1618/autoshare/internal/detect"
	"github.com/mj1618/autoshare/internal/flow"
	"github.com/mj1618/autoshare/internal/gate"
	"github.com/mj1618/autoshare/internal/locate"
	"github.com/mj1618/autoshare/internal/platform"
	"github.com/mj1618/autoshare/internal/uitree"
)

// cycleTimeout bounds one processing cycle; device calls that hang past it
// abort the cycle rather than wedging the agent.
const cycleTimeout = 15 * time.Second

// Notifier receives human-visible informational messages for completed
// steps. Failures are never surfaced here; they are visible only through
// logs and counters.
type Notifier interface {
	Info(msg string)
}

// LogNotifier is the default Notifier, writing messages to the log.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Info(msg string) {
	n.Log.Info(msg, "notify", true)
}

// Status is the diagnostic view consumed by the status surfaces.
type Status struct {
	Enabled         bool   `yaml:"enabled"          json:"enabled"`
	Step            string `yaml:"step"             json:"step"`
	DialogsDetected int64  `yaml:"dialogs_detected" json:"dialogs_detected"`
	AutoAccepts     int64  `yaml:"auto_accepts"     json:"auto_accepts"`
}

// stepSpec binds one flow step to the dialog shape that confirms it, the
// role to click, and where the flow goes on success.
type stepSpec struct {
	shape    detect.Shape
	role     string
	complete bool      // final step: Complete instead of Advance
	next     flow.Step // Advance target when not complete
	message  string    // informational message on success, if any
}

// Service is the running agent.
type Service struct {
	cfg      config.Config
	log      *slog.Logger
	provider *platform.Provider

	machine  *flow.Machine
	locator  *locate.Locator
	detector *detect.Detector
	exec     *act.Executor
	gate     *gate.Gate
	notifier Notifier
	enabled  atomic.Bool

	steps map[flow.Step]stepSpec
}

// New builds a Service from configuration and a device provider.
func New(cfg config.Config, provider *platform.Provider, log *slog.Logger, notifier Notifier) *Service {
	if log == nil {
		log = slog.Default()
	}
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	s := &Service{
		cfg:      cfg,
		log:      log,
		provider: provider,
		machine: flow.New(flow.Options{
			StuckTimeout: cfg.StuckTimeout(),
			Logger:       log,
		}),
		locator:  locate.New(log),
		detector: detect.New(log),
		exec:     act.New(provider.Input, log, cfg.SettleDelay()),
		notifier: notifier,
	}
	s.enabled.Store(cfg.Enabled)
	s.gate = gate.New(gate.Options{
		Sources:     []string{cfg.HostPackage, cfg.CastPackage},
		SettleDelay: cfg.SettleDelay(),
		MinInterval: cfg.MinInterval(),
		Logger:      log,
		Run:         s.ProcessCycle,
	})
	s.steps = map[flow.Step]stepSpec{
		flow.StepIdle: {
			shape:   detect.Incoming,
			role:    locate.RoleAccept,
			next:    flow.StepAwaitingShareDialog,
			message: "connection accepted",
		},
		flow.StepAwaitingShareDialog: {
			shape: detect.ShareDialog,
			role:  locate.RoleModeSpinner,
			next:  flow.StepAwaitingChooser,
		},
		flow.StepAwaitingChooser: {
			shape: detect.Chooser,
			role:  locate.RoleEntireScreen,
			next:  flow.StepAwaitingShareConfirm,
		},
		flow.StepAwaitingShareConfirm: {
			shape:    detect.Confirm,
			role:     locate.RoleConfirm,
			complete: true,
			message:  "screen sharing started",
		},
	}
	return s
}

// Run consumes device notifications until ctx is cancelled, then tears the
// flow down. Notification dispatch never blocks on processing.
func (s *Service) Run(ctx context.Context) error {
	events, err := s.provider.Watcher.Watch(ctx)
	if err != nil {
		return err
	}
	s.log.Info("agent running",
		"host", s.cfg.HostPackage, "cast", s.cfg.CastPackage,
		"enabled", s.enabled.Load())

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return ctx.Err()
		case n, ok := <-events:
			if !ok {
				s.teardown()
				return nil
			}
			s.gate.OnChange(n.Package, n.Kind)
		}
	}
}

func (s *Service) teardown() {
	s.gate.Stop()
	s.machine.Reset("teardown")
	s.log.Info("agent stopped")
}

// ProcessCycle runs one detection-and-action cycle. Single-flight: when a
// cycle is already running the call is dropped, not queued. Any fault is
// contained to the cycle; the service keeps accepting notifications.
func (s *Service) ProcessCycle() {
	if !s.enabled.Load() {
		return
	}
	if !s.machine.TryBegin() {
		s.log.Debug("cycle already in flight, dropping notification")
		return
	}
	defer s.machine.End()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("cycle aborted by panic", "panic", r)
		}
	}()

	// Stuck recovery runs before anything else in the cycle, regardless of
	// what the new event is about.
	s.machine.RecoverIfStuck()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	snap, err := uitree.Acquire(ctx, s.provider.Session)
	if err != nil {
		s.log.Debug("no snapshot for cycle", "err", err)
		return
	}
	defer snap.Close()

	s.dispatch(ctx, snap)
}

// dispatch routes the snapshot to the current step's handler. The incoming
// dialog is only handled in the host app; every later step only while the
// cast companion's window is active, and only once the flow has started.
// A cast window that happens to be visible while idle is ignored.
func (s *Service) dispatch(ctx context.Context, snap *uitree.Snapshot) {
	step := s.machine.Step()
	pkg := snap.Window().Package

	switch {
	case step == flow.StepIdle && pkg != s.cfg.HostPackage:
		return
	case step != flow.StepIdle && pkg != s.cfg.CastPackage:
		return
	}

	s.runStep(ctx, snap, s.steps[step])
}

// runStep executes one flow step against the current snapshot: confirm the
// expected dialog with fresh evidence, locate the role target, click it,
// and only then advance.
func (s *Service) runStep(ctx context.Context, snap *uitree.Snapshot, sp stepSpec) {
	report, err := s.detector.Classify(ctx, snap, sp.shape)
	if err != nil {
		s.log.Warn("classification fault, cycle aborted", "shape", sp.shape.Name, "err", err)
		return
	}
	if !report.Confirmed() {
		s.log.Debug("expected dialog not present",
			"shape", sp.shape.Name, "score", report.Score)
		return
	}
	s.machine.DialogDetected()

	role := locate.Roles[sp.role]
	node, err := s.locator.Find(ctx, snap, role)
	if err != nil {
		s.log.Warn("locate fault, cycle aborted", "role", sp.role, "err", err)
		return
	}
	if node == nil {
		// Target-not-found: no action, step unchanged, wait for the next
		// notification.
		s.log.Debug("target not found", "role", sp.role, "shape", sp.shape.Name)
		return
	}
	defer node.Release()

	if !s.exec.Click(ctx, node, role.AllowEscalation) {
		// Action-failure: the next notification retries from the same step.
		s.log.Warn("action failed, will retry on next notification", "role", sp.role)
		return
	}

	if sp.complete {
		err = s.machine.Complete(report)
	} else {
		err = s.machine.Advance(sp.next, report)
	}
	if err != nil {
		s.log.Warn("transition rejected", "err", err)
		return
	}
	if sp.message != "" && s.cfg.Notify {
		s.notifier.Info(sp.message)
	}
}

// Enable turns automatic acceptance on.
func (s *Service) Enable() { s.enabled.Store(true) }

// Disable turns automatic acceptance off; the watcher keeps running so a
// later Enable takes effect immediately.
func (s *Service) Disable() { s.enabled.Store(false) }

// Enabled reports the acceptance toggle state.
func (s *Service) Enabled() bool { return s.enabled.Load() }

// Status returns the diagnostic counters. Eventually consistent with an
// in-flight cycle.
func (s *Service) Status() Status {
	dialogs, accepts := s.machine.Counters()
	return Status{
		Enabled:         s.enabled.Load(),
		Step:            s.machine.Step().String(),
		DialogsDetected: dialogs,
		AutoAccepts:     accepts,
	}
}

// Check classifies the current snapshot against every known dialog shape.
// Diagnostic surface for the check command and MCP tool.
func (s *Service) Check(ctx context.Context) ([]detect.Report, error) {
	snap, err := uitree.Acquire(ctx, s.provider.Session)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	reports := make([]detect.Report, 0, len(detect.All))
	for _, shape := range detect.All {
		r, err := s.detector.Classify(ctx, snap, shape)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
