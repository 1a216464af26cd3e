// Package fakedev provides an in-memory platform backend for tests. It keeps
// strict handle accounting so tests can assert the release discipline: every
// issued handle must be released exactly once, and double releases are
// tolerated but counted.
package fakedev

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/mj1618/autoshare/internal/platform"
)

// N is a declarative tree node for building fake UI states.
type N struct {
	Class     string
	Text      string
	ID        string // resource identifier
	Clickable bool
	Disabled  bool
	Invisible bool
	Bounds    platform.Bounds
	Children  []*N
}

// Btn is shorthand for a clickable, enabled button node.
func Btn(id, text string) *N {
	return &N{Class: "android.widget.Button", ID: id, Text: text, Clickable: true}
}

// Txt is shorthand for a static text node.
func Txt(text string) *N {
	return &N{Class: "android.widget.TextView", Text: text}
}

type snapState struct {
	root    *N
	pkg     string
	handles map[int]*N
	parents map[*N]*N
	flat    []*N // breadth-first
}

// Fake implements platform.Session, Input, Watcher and Screens over a
// declarative node tree set by the test.
type Fake struct {
	mu sync.Mutex

	Window platform.WindowInfo
	Root   *N
	// AcquireErr, when set, is returned by AcquireSnapshot.
	AcquireErr error
	// QueryErr, when set, is returned by every node query.
	QueryErr error
	// ActivateFunc overrides Activate; return nil for success.
	ActivateFunc func(handle int) error
	// TapErr, when set, is returned by Tap.
	TapErr error
	// LongPressErr, when set, is returned by LongPress.
	LongPressErr error

	Issued         int
	ReleasedCount  int
	DoubleReleases int

	// InputLog records input calls in order ("activate:12", "tap:100,200", ...).
	InputLog []string

	events chan platform.Notification

	nextSnap   platform.SnapshotID
	nextHandle int
	snaps      map[platform.SnapshotID]*snapState
	released   map[int]bool
}

// New returns a Fake with an empty tree and an open event stream.
func New() *Fake {
	return &Fake{
		snaps:    make(map[platform.SnapshotID]*snapState),
		released: make(map[int]bool),
		events:   make(chan platform.Notification, 16),
	}
}

// SetTree swaps the UI tree and active window the next snapshot will see.
func (f *Fake) SetTree(win platform.WindowInfo, root *N) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Window = win
	f.Root = root
}

// Balanced reports whether every issued handle was released exactly once.
func (f *Fake) Balanced() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Issued == f.ReleasedCount
}

func (f *Fake) AcquireSnapshot(ctx context.Context) (platform.SnapshotID, platform.WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AcquireErr != nil {
		return 0, platform.WindowInfo{}, f.AcquireErr
	}
	if f.Root == nil {
		return 0, platform.WindowInfo{}, platform.ErrSnapshotUnavailable
	}
	f.nextSnap++
	st := &snapState{
		root:    f.Root,
		pkg:     f.Window.Package,
		handles: make(map[int]*N),
		parents: make(map[*N]*N),
	}
	// Breadth-first flatten, recording parent links.
	queue := []*N{f.Root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		st.flat = append(st.flat, n)
		for _, c := range n.Children {
			st.parents[c] = n
			queue = append(queue, c)
		}
	}
	f.snaps[f.nextSnap] = st
	return f.nextSnap, f.Window, nil
}

func (f *Fake) issue(st *snapState, n *N) platform.NodeInfo {
	f.nextHandle++
	st.handles[f.nextHandle] = n
	f.Issued++
	return platform.NodeInfo{
		Handle:     f.nextHandle,
		Class:      n.Class,
		Text:       n.Text,
		ResourceID: n.ID,
		Package:    st.pkg,
		Clickable:  n.Clickable,
		Enabled:    !n.Disabled,
		Visible:    !n.Invisible,
		Bounds:     n.Bounds,
	}
}

func (f *Fake) query(snap platform.SnapshotID, match func(*N) bool) ([]platform.NodeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	st, ok := f.snaps[snap]
	if !ok {
		return nil, platform.ErrSnapshotUnavailable
	}
	var out []platform.NodeInfo
	for _, n := range st.flat {
		if match(n) {
			out = append(out, f.issue(st, n))
		}
	}
	return out, nil
}

func (f *Fake) NodesByID(ctx context.Context, snap platform.SnapshotID, id string) ([]platform.NodeInfo, error) {
	return f.query(snap, func(n *N) bool { return n.ID == id })
}

func (f *Fake) NodesByText(ctx context.Context, snap platform.SnapshotID, text string) ([]platform.NodeInfo, error) {
	lower := strings.ToLower(text)
	return f.query(snap, func(n *N) bool {
		return strings.Contains(strings.ToLower(n.Text), lower)
	})
}

func (f *Fake) AllNodes(ctx context.Context, snap platform.SnapshotID) ([]platform.NodeInfo, error) {
	return f.query(snap, func(n *N) bool { return true })
}

func (f *Fake) Parent(ctx context.Context, snap platform.SnapshotID, handle int) (*platform.NodeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.snaps[snap]
	if !ok {
		return nil, platform.ErrSnapshotUnavailable
	}
	n, ok := st.handles[handle]
	if !ok {
		return nil, platform.ErrSnapshotUnavailable
	}
	parent, ok := st.parents[n]
	if !ok {
		return nil, nil
	}
	info := f.issue(st, parent)
	return &info, nil
}

func (f *Fake) Release(snap platform.SnapshotID, handle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release(snap, handle)
}

func (f *Fake) release(snap platform.SnapshotID, handle int) {
	if f.released[handle] {
		f.DoubleReleases++
		return
	}
	st, ok := f.snaps[snap]
	if !ok {
		f.DoubleReleases++
		return
	}
	if _, ok := st.handles[handle]; !ok {
		f.DoubleReleases++
		return
	}
	delete(st.handles, handle)
	f.released[handle] = true
	f.ReleasedCount++
}

func (f *Fake) ReleaseSnapshot(snap platform.SnapshotID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.snaps[snap]
	if !ok {
		return
	}
	for h := range st.handles {
		f.release(snap, h)
	}
	delete(f.snaps, snap)
}

func (f *Fake) logInput(s string) {
	f.InputLog = append(f.InputLog, s)
}

func (f *Fake) Tap(ctx context.Context, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logInput("tap")
	return f.TapErr
}

func (f *Fake) LongPress(ctx context.Context, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logInput("long-press")
	return f.LongPressErr
}

func (f *Fake) Focus(ctx context.Context, snap platform.SnapshotID, handle int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logInput("focus")
	return nil
}

func (f *Fake) Activate(ctx context.Context, snap platform.SnapshotID, handle int) error {
	f.mu.Lock()
	fn := f.ActivateFunc
	f.logInput("activate")
	f.mu.Unlock()
	if fn != nil {
		return fn(handle)
	}
	return nil
}

// Notify injects one change notification into the watcher stream.
func (f *Fake) Notify(pkg string, kind platform.EventKind) {
	f.events <- platform.Notification{Package: pkg, Kind: kind}
}

func (f *Fake) Watch(ctx context.Context) (<-chan platform.Notification, error) {
	out := make(chan platform.Notification)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-f.events:
				if !ok {
					return
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *Fake) Capture(ctx context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 1080, 1920)), nil
}

// Provider bundles the fake as a full platform provider.
func (f *Fake) Provider() *platform.Provider {
	return &platform.Provider{Session: f, Input: f, Watcher: f, Screens: f}
}
