package platform

import (
	"context"
	"errors"
	"image"
)

// ErrSnapshotUnavailable is returned when the device cannot produce a UI tree
// for the active window (screen off, secure surface, transient dump failure).
var ErrSnapshotUnavailable = errors.New("ui snapshot unavailable")

// SnapshotID identifies one acquired UI tree on the backend.
type SnapshotID int

// Session reads the UI element tree from the device accessibility layer.
//
// Queries return NodeInfo values whose handles the caller owns. Release must
// tolerate double release of an already-invalid handle without error; stale
// handles are expected, not exceptional. ReleaseSnapshot invalidates every
// handle issued from that snapshot that was not individually released.
type Session interface {
	// AcquireSnapshot captures the UI tree of the active window.
	AcquireSnapshot(ctx context.Context) (SnapshotID, WindowInfo, error)

	// NodesByID returns all nodes whose resource identifier equals id.
	NodesByID(ctx context.Context, snap SnapshotID, id string) ([]NodeInfo, error)

	// NodesByText returns all nodes whose text or content description
	// contains text, case-insensitively.
	NodesByText(ctx context.Context, snap SnapshotID, text string) ([]NodeInfo, error)

	// AllNodes returns every node of the snapshot in breadth-first order.
	AllNodes(ctx context.Context, snap SnapshotID) ([]NodeInfo, error)

	// Parent returns the parent of the node behind handle, or nil for the root.
	Parent(ctx context.Context, snap SnapshotID, handle int) (*NodeInfo, error)

	// Release frees one node handle. Idempotent; never fails.
	Release(snap SnapshotID, handle int)

	// ReleaseSnapshot frees the snapshot and all outstanding handles.
	ReleaseSnapshot(snap SnapshotID)
}

// Input synthesizes user interaction on the device.
type Input interface {
	Tap(ctx context.Context, x, y int) error
	LongPress(ctx context.Context, x, y int) error

	// Focus requests input focus for the node behind handle.
	Focus(ctx context.Context, snap SnapshotID, handle int) error

	// Activate performs the node's primary action (click).
	Activate(ctx context.Context, snap SnapshotID, handle int) error
}

// Watcher delivers UI change notifications from the device, strictly ordered.
type Watcher interface {
	// Watch emits notifications until ctx is cancelled. The returned channel
	// is closed when watching stops.
	Watch(ctx context.Context) (<-chan Notification, error)
}

// Screens captures device screenshots for diagnostics.
type Screens interface {
	Capture(ctx context.Context) (image.Image, error)
}
