// Package locate finds the interactive element for a semantic role in a UI
// snapshot, trying progressively weaker strategies so that identifier and
// caption churn across app versions degrades matching instead of breaking it.
package locate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mj1618/autoshare/internal/uitree"
)

// Locator evaluates a role's strategies in order against one snapshot.
type Locator struct {
	log *slog.Logger
}

// New returns a Locator logging strategy decisions to log.
func New(log *slog.Logger) *Locator {
	if log == nil {
		log = slog.Default()
	}
	return &Locator{log: log}
}

// Find returns the target node for role, or nil when no strategy matched.
// The caller owns the returned handle; every other handle produced during
// the search is released before Find returns. A non-nil error means a
// platform query fault, not a failed match.
func (l *Locator) Find(ctx context.Context, snap *uitree.Snapshot, role Role) (*uitree.Node, error) {
	for _, st := range role.Strategies {
		var (
			node *uitree.Node
			err  error
		)
		switch st.Kind {
		case ByID:
			node, err = l.findByID(ctx, snap, role, st.Pattern)
		case ByText:
			node, err = l.findByText(ctx, snap, role)
		case ByPredicate:
			node, err = l.findByPredicate(ctx, snap, role, st.Pattern)
		case ByBounds:
			if st.Bounds == nil {
				continue
			}
			node, err = l.findByBounds(ctx, snap, st)
		}
		if err != nil {
			return nil, err
		}
		if node != nil {
			l.log.Debug("located target",
				"role", role.Name, "strategy", st.Kind.String(),
				"class", node.Class, "text", node.Text)
			return node, nil
		}
	}
	l.log.Debug("target not found", "role", role.Name)
	return nil, nil
}

// findByID matches the exact resource identifier. The caption allow-list
// defends against identifier reuse across unrelated controls.
func (l *Locator) findByID(ctx context.Context, snap *uitree.Snapshot, role Role, id string) (*uitree.Node, error) {
	nodes, err := snap.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var pick *uitree.Node
	for _, n := range nodes {
		if n.Interactive() && n.Visible && role.CaptionAllowed(n.Text) {
			pick = n
			break
		}
	}
	uitree.ReleaseExcept(nodes, pick)
	return pick, nil
}

// findByText searches each accepted caption as literal text. A match on a
// non-interactive node walks up the parent chain until an interactive
// ancestor is found; the nearest ancestor wins. A text match with no
// interactive ancestor is discarded and the search moves on.
func (l *Locator) findByText(ctx context.Context, snap *uitree.Snapshot, role Role) (*uitree.Node, error) {
	for _, caption := range role.Captions {
		matches, err := snap.ByText(ctx, caption)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !m.Visible {
				continue
			}
			if m.Interactive() {
				uitree.ReleaseExcept(matches, m)
				return m, nil
			}
			anc, err := l.interactiveAncestor(ctx, m)
			if err != nil {
				uitree.ReleaseAll(matches)
				return nil, err
			}
			if anc != nil {
				uitree.ReleaseAll(matches)
				return anc, nil
			}
		}
		uitree.ReleaseAll(matches)
	}
	return nil, nil
}

// interactiveAncestor walks up from n, releasing intermediate handles, and
// returns the nearest clickable+enabled ancestor or nil at the root.
func (l *Locator) interactiveAncestor(ctx context.Context, n *uitree.Node) (*uitree.Node, error) {
	cur := n
	for {
		parent, err := cur.Parent(ctx)
		if cur != n {
			cur.Release()
		}
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, nil
		}
		if parent.Interactive() {
			return parent, nil
		}
		cur = parent
	}
}

// findByPredicate scans the tree breadth-first for an interactive, visible
// node whose class name contains the pattern. The caption allow-list still
// applies; without it the first button of a dialog would match regardless of
// what it does.
func (l *Locator) findByPredicate(ctx context.Context, snap *uitree.Snapshot, role Role, classPattern string) (*uitree.Node, error) {
	nodes, err := snap.All(ctx)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(classPattern)
	var pick *uitree.Node
	for _, n := range nodes {
		if n.Interactive() && n.Visible && role.CaptionAllowed(n.Text) &&
			strings.Contains(strings.ToLower(n.Class), lower) {
			pick = n
			break
		}
	}
	uitree.ReleaseExcept(nodes, pick)
	return pick, nil
}

// findByBounds matches a last-known absolute rectangle. Device and
// resolution specific, so it only ever runs after everything else failed,
// and its use is logged at warn.
func (l *Locator) findByBounds(ctx context.Context, snap *uitree.Snapshot, st Strategy) (*uitree.Node, error) {
	nodes, err := snap.All(ctx)
	if err != nil {
		return nil, err
	}
	cx, cy := st.Bounds.Center()
	var pick *uitree.Node
	for _, n := range nodes {
		if n.Bounds == *st.Bounds {
			pick = n
			break
		}
		if pick == nil && n.Interactive() && n.Bounds.ContainsPoint(cx, cy) {
			pick = n
		}
	}
	uitree.ReleaseExcept(nodes, pick)
	if pick != nil {
		l.log.Warn("matched by absolute bounds; verify after app or device update",
			"bounds", *st.Bounds, "class", pick.Class)
	}
	return pick, nil
}
