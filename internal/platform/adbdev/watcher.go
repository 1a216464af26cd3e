package adbdev

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"regexp"
	"time"

	"github.com/mj1618/autoshare/internal/platform"
)

// focusRe extracts the focused window's package and activity from
// `dumpsys window windows` output, e.g.
// mCurrentFocus=Window{1a2b3c u0 com.remoteview.host/.AcceptActivity}
var focusRe = regexp.MustCompile(`mCurrentFocus=Window\{\S+ \S+ ([^/\s}]+)(?:/([^}\s]+))?\}`)

// parseFocus returns the focused package and window name, or empty strings
// when no window has focus.
func parseFocus(dump []byte) (pkg, window string) {
	m := focusRe.FindSubmatch(dump)
	if m == nil {
		return "", ""
	}
	return string(m[1]), string(m[2])
}

// Watch polls the focused window and synthesizes a window-state-changed
// notification whenever it changes. Notifications are emitted strictly
// ordered; the channel closes when ctx is cancelled.
func (d *Device) Watch(ctx context.Context) (<-chan platform.Notification, error) {
	out := make(chan platform.Notification, 8)
	go func() {
		defer close(out)
		ticker := time.NewTicker(d.watch)
		defer ticker.Stop()

		var lastPkg, lastWin string
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			dump, err := d.run(ctx, "shell", "dumpsys", "window", "windows")
			if err != nil {
				d.log.Debug("focus poll failed", "err", err)
				continue
			}
			pkg, win := parseFocus(dump)
			if pkg == "" || (pkg == lastPkg && win == lastWin) {
				continue
			}
			lastPkg, lastWin = pkg, win

			select {
			case out <- platform.Notification{Package: pkg, Kind: platform.EventWindowStateChanged}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Capture grabs a PNG screenshot from the device.
func (d *Device) Capture(ctx context.Context) (image.Image, error) {
	out, err := d.run(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(out))
}
