// Package act performs clicks on located nodes with escalating fallback
// strategies. Platform action failures are expected and retryable, so Click
// reports success as a boolean instead of an error.
package act

import (
	"context"
	"log/slog"
	"time"

	"github.com/mj1618/autoshare/internal/platform"
	"github.com/mj1618/autoshare/internal/uitree"
)

// Executor clicks nodes through the platform input layer.
type Executor struct {
	input  platform.Input
	log    *slog.Logger
	settle time.Duration
	sleep  func(time.Duration)
}

// New returns an Executor. settle is the delay between a focus request and
// the retried activation, letting the UI settle.
func New(input platform.Input, log *slog.Logger, settle time.Duration) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{input: input, log: log, settle: settle, sleep: time.Sleep}
}

// Click activates the node, escalating through fallbacks until one works:
// direct activate; focus plus retried activate; and, when escalation is
// permitted for the role, long-press, explicit focus-then-activate, and
// delegation to the nearest clickable ancestor (one hop only). Returns
// false only after every applicable strategy failed.
func (e *Executor) Click(ctx context.Context, n *uitree.Node, allowEscalation bool) bool {
	if err := e.input.Activate(ctx, n.SnapID(), n.Handle); err == nil {
		return true
	} else {
		e.log.Debug("activate failed, escalating", "handle", n.Handle, "err", err)
	}

	if err := e.input.Focus(ctx, n.SnapID(), n.Handle); err == nil {
		e.sleep(e.settle)
		if err := e.input.Activate(ctx, n.SnapID(), n.Handle); err == nil {
			return true
		}
	}

	if !allowEscalation {
		e.log.Warn("click failed, escalation not permitted", "handle", n.Handle, "class", n.Class)
		return false
	}

	cx, cy := n.Bounds.Center()
	if err := e.input.LongPress(ctx, cx, cy); err == nil {
		return true
	}

	if err := e.input.Focus(ctx, n.SnapID(), n.Handle); err == nil {
		if err := e.input.Activate(ctx, n.SnapID(), n.Handle); err == nil {
			return true
		}
	}

	// One hop up only, to avoid walking out of the dialog.
	parent, err := n.Parent(ctx)
	if err == nil && parent != nil {
		defer parent.Release()
		if parent.Interactive() {
			if err := e.input.Activate(ctx, parent.SnapID(), parent.Handle); err == nil {
				e.log.Debug("clicked via parent delegate", "handle", parent.Handle)
				return true
			}
		}
	}

	e.log.Warn("click failed after all strategies", "handle", n.Handle, "class", n.Class, "text", n.Text)
	return false
}
