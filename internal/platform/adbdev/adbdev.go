// Package adbdev implements the platform boundary over adb. UI trees come
// from uiautomator dumps, input is synthesized with the shell input tool,
// and window-state-changed notifications are derived by polling the focused
// window.
package adbdev

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/mj1618/autoshare/internal/platform"
)

// Runner executes one adb command and returns its stdout. Tests stub this
// to drive the backend without a device.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// adbRunner returns a Runner invoking the adb binary, scoped to serial when
// non-empty.
func adbRunner(serial string) Runner {
	return func(ctx context.Context, args ...string) ([]byte, error) {
		full := args
		if serial != "" {
			full = append([]string{"-s", serial}, args...)
		}
		cmd := exec.CommandContext(ctx, "adb", full...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("adb %v: %w (%s)", args, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return out, nil
	}
}

// Options configure the adb device.
type Options struct {
	// Serial selects the device; empty uses adb's default.
	Serial string
	// WatchInterval is the focus-poll interval for the notification stream.
	WatchInterval time.Duration
	// MinDumpGap throttles UI tree dumps; a second acquire inside the gap
	// reuses nothing but waits out the remainder. uiautomator dumps are
	// expensive and back-to-back dumps can wedge the device shell.
	MinDumpGap time.Duration
	Logger     *slog.Logger
	// run overrides the adb invocation in tests.
	run Runner
}

// Device implements Session, Input, Watcher and Screens for one adb target.
type Device struct {
	run   Runner
	log   *slog.Logger
	watch time.Duration

	mu         sync.Mutex
	nextSnap   platform.SnapshotID
	nextHandle int
	snaps      map[platform.SnapshotID]*snapTree
	minDumpGap time.Duration
	lastDump   time.Time
}

// New returns a Device for the given options.
func New(opts Options) *Device {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = 500 * time.Millisecond
	}
	if opts.run == nil {
		opts.run = adbRunner(opts.Serial)
	}
	return &Device{
		run:        opts.run,
		log:        opts.Logger,
		watch:      opts.WatchInterval,
		snaps:      make(map[platform.SnapshotID]*snapTree),
		minDumpGap: opts.MinDumpGap,
	}
}

// Provider bundles the device as a full platform provider.
func (d *Device) Provider() *platform.Provider {
	return &platform.Provider{Session: d, Input: d, Watcher: d, Screens: d}
}

func (d *Device) AcquireSnapshot(ctx context.Context) (platform.SnapshotID, platform.WindowInfo, error) {
	d.throttleDump()

	out, err := d.run(ctx, "exec-out", "uiautomator", "dump", "/dev/tty")
	if err != nil {
		return 0, platform.WindowInfo{}, fmt.Errorf("%w: %v", platform.ErrSnapshotUnavailable, err)
	}
	tree, err := parseDump(out)
	if err != nil {
		return 0, platform.WindowInfo{}, fmt.Errorf("%w: %v", platform.ErrSnapshotUnavailable, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextSnap++
	d.snaps[d.nextSnap] = tree
	return d.nextSnap, platform.WindowInfo{Package: tree.pkg}, nil
}

// throttleDump spaces out uiautomator dumps by MinDumpGap.
func (d *Device) throttleDump() {
	d.mu.Lock()
	wait := d.minDumpGap - time.Since(d.lastDump)
	d.lastDump = time.Now().Add(wait)
	d.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
}

func (d *Device) query(snap platform.SnapshotID, match func(*uiNode) bool) ([]platform.NodeInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.snaps[snap]
	if !ok {
		return nil, platform.ErrSnapshotUnavailable
	}
	var out []platform.NodeInfo
	for _, n := range tree.flat {
		if match(n) {
			d.nextHandle++
			tree.handles[d.nextHandle] = n
			out = append(out, n.info(d.nextHandle, tree.pkg))
		}
	}
	return out, nil
}

func (d *Device) NodesByID(ctx context.Context, snap platform.SnapshotID, id string) ([]platform.NodeInfo, error) {
	return d.query(snap, func(n *uiNode) bool { return n.resourceID == id })
}

func (d *Device) NodesByText(ctx context.Context, snap platform.SnapshotID, text string) ([]platform.NodeInfo, error) {
	return d.query(snap, func(n *uiNode) bool { return n.textContains(text) })
}

func (d *Device) AllNodes(ctx context.Context, snap platform.SnapshotID) ([]platform.NodeInfo, error) {
	return d.query(snap, func(n *uiNode) bool { return true })
}

func (d *Device) Parent(ctx context.Context, snap platform.SnapshotID, handle int) (*platform.NodeInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.snaps[snap]
	if !ok {
		return nil, platform.ErrSnapshotUnavailable
	}
	n, ok := tree.handles[handle]
	if !ok {
		return nil, platform.ErrSnapshotUnavailable
	}
	parent := tree.parents[n]
	if parent == nil {
		return nil, nil
	}
	d.nextHandle++
	tree.handles[d.nextHandle] = parent
	info := parent.info(d.nextHandle, tree.pkg)
	return &info, nil
}

func (d *Device) Release(snap platform.SnapshotID, handle int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tree, ok := d.snaps[snap]; ok {
		delete(tree.handles, handle)
	}
}

func (d *Device) ReleaseSnapshot(snap platform.SnapshotID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.snaps, snap)
}

// resolveCenter maps a handle back to its node's screen center.
func (d *Device) resolveCenter(snap platform.SnapshotID, handle int) (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tree, ok := d.snaps[snap]
	if !ok {
		return 0, 0, platform.ErrSnapshotUnavailable
	}
	n, ok := tree.handles[handle]
	if !ok {
		return 0, 0, fmt.Errorf("stale handle %d", handle)
	}
	x, y := n.bounds.Center()
	return x, y, nil
}

func (d *Device) Tap(ctx context.Context, x, y int) error {
	_, err := d.run(ctx, "shell", "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

func (d *Device) LongPress(ctx context.Context, x, y int) error {
	xs, ys := strconv.Itoa(x), strconv.Itoa(y)
	// A swipe that doesn't move is a long press.
	_, err := d.run(ctx, "shell", "input", "swipe", xs, ys, xs, ys, "600")
	return err
}

// Focus focuses by touch; the shell input tool has no separate focus action.
func (d *Device) Focus(ctx context.Context, snap platform.SnapshotID, handle int) error {
	x, y, err := d.resolveCenter(snap, handle)
	if err != nil {
		return err
	}
	return d.Tap(ctx, x, y)
}

func (d *Device) Activate(ctx context.Context, snap platform.SnapshotID, handle int) error {
	x, y, err := d.resolveCenter(snap, handle)
	if err != nil {
		return err
	}
	return d.Tap(ctx, x, y)
}
