// Package uitree wraps a platform session into snapshot-scoped node handles
// with a guaranteed release discipline: closing the snapshot releases every
// handle it issued, on every exit path, so call sites never do their own
// resource bookkeeping.
package uitree

import (
	"context"
	"fmt"

	"github.com/mj1618/autoshare/internal/platform"
)

// Snapshot is an ephemeral handle to the UI tree of the active window.
// It is owned by the processing cycle that acquired it and must not be
// retained across cycles. Close is idempotent.
type Snapshot struct {
	sess        platform.Session
	id          platform.SnapshotID
	window      platform.WindowInfo
	outstanding map[int]*Node
	closed      bool
}

// Acquire captures the current UI tree. Returns ErrSnapshotUnavailable
// (wrapped) when the device cannot produce one.
func Acquire(ctx context.Context, sess platform.Session) (*Snapshot, error) {
	id, win, err := sess.AcquireSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire snapshot: %w", err)
	}
	return &Snapshot{
		sess:        sess,
		id:          id,
		window:      win,
		outstanding: make(map[int]*Node),
	}, nil
}

// Window returns the active window the snapshot was taken from.
func (s *Snapshot) Window() platform.WindowInfo { return s.window }

// ID returns the backend snapshot identifier, needed for handle-addressed
// input actions.
func (s *Snapshot) ID() platform.SnapshotID { return s.id }

// Close releases every node handle still outstanding, then the snapshot
// itself. Safe to call more than once.
func (s *Snapshot) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, n := range s.outstanding {
		n.released = true
		s.sess.Release(s.id, n.Handle)
	}
	s.outstanding = nil
	s.sess.ReleaseSnapshot(s.id)
}

// Outstanding reports how many issued handles have not been released yet.
func (s *Snapshot) Outstanding() int { return len(s.outstanding) }

func (s *Snapshot) track(infos []platform.NodeInfo) []*Node {
	nodes := make([]*Node, 0, len(infos))
	for _, info := range infos {
		n := &Node{NodeInfo: info, snap: s}
		s.outstanding[info.Handle] = n
		nodes = append(nodes, n)
	}
	return nodes
}

// ByID returns all nodes carrying the given resource identifier.
func (s *Snapshot) ByID(ctx context.Context, id string) ([]*Node, error) {
	infos, err := s.sess.NodesByID(ctx, s.id, id)
	if err != nil {
		return nil, fmt.Errorf("query by id %q: %w", id, err)
	}
	return s.track(infos), nil
}

// ByText returns all nodes whose text contains the given string,
// case-insensitively.
func (s *Snapshot) ByText(ctx context.Context, text string) ([]*Node, error) {
	infos, err := s.sess.NodesByText(ctx, s.id, text)
	if err != nil {
		return nil, fmt.Errorf("query by text %q: %w", text, err)
	}
	return s.track(infos), nil
}

// All returns every node of the snapshot in breadth-first order.
func (s *Snapshot) All(ctx context.Context) ([]*Node, error) {
	infos, err := s.sess.AllNodes(ctx, s.id)
	if err != nil {
		return nil, fmt.Errorf("query all nodes: %w", err)
	}
	return s.track(infos), nil
}

// Node is a transient handle to one element of a snapshot. The underlying
// tree is owned by the device platform; each query returns new handles even
// for the same logical element, and each must be released exactly once
// (Release, or implicitly by Snapshot.Close).
type Node struct {
	platform.NodeInfo
	snap     *Snapshot
	released bool
}

// Release frees the node handle. Idempotent; releasing an already-released
// or stale handle is a no-op.
func (n *Node) Release() {
	if n.released || n.snap == nil || n.snap.closed {
		n.released = true
		return
	}
	n.released = true
	delete(n.snap.outstanding, n.Handle)
	n.snap.sess.Release(n.snap.id, n.Handle)
}

// Parent returns the node's parent as a new handle, or nil at the root.
func (n *Node) Parent(ctx context.Context) (*Node, error) {
	if n.released {
		return nil, fmt.Errorf("parent of released handle %d", n.Handle)
	}
	info, err := n.snap.sess.Parent(ctx, n.snap.id, n.Handle)
	if err != nil {
		return nil, fmt.Errorf("parent of handle %d: %w", n.Handle, err)
	}
	if info == nil {
		return nil, nil
	}
	nodes := n.snap.track([]platform.NodeInfo{*info})
	return nodes[0], nil
}

// SnapID returns the identifier of the snapshot the node belongs to.
func (n *Node) SnapID() platform.SnapshotID { return n.snap.id }

// Interactive reports whether the node can be acted on directly.
func (n *Node) Interactive() bool {
	return n.Clickable && n.Enabled
}

// ReleaseAll releases every node in the slice. A nil entry is skipped.
func ReleaseAll(nodes []*Node) {
	for _, n := range nodes {
		if n != nil {
			n.Release()
		}
	}
}

// ReleaseExcept releases every node in the slice except keep, which the
// caller retains ownership of.
func ReleaseExcept(nodes []*Node, keep *Node) {
	for _, n := range nodes {
		if n != nil && n != keep {
			n.Release()
		}
	}
}
