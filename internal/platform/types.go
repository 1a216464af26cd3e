package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// Bounds represents a screen rectangle.
type Bounds struct {
	X, Y, Width, Height int
}

// Center returns the midpoint of the rectangle in screen coordinates.
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// ContainsPoint reports whether the point (x, y) lies inside the rectangle.
func (b Bounds) ContainsPoint(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// ParseBBox parses a "x,y,w,h" string into a Bounds.
func ParseBBox(s string) (*Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: expected x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	return &Bounds{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// NodeInfo describes one element of the device UI tree at query time.
// Handle identifies the backend's live node object. Every NodeInfo returned
// by a Session query carries a fresh handle that the caller owns and must
// release exactly once, even when two queries return the same logical element.
type NodeInfo struct {
	Handle     int
	Class      string // widget class name (e.g. "android.widget.Button")
	Text       string // visible text or content description
	ResourceID string // stable identifier; empty when the app doesn't set one
	Package    string // owning application package
	Clickable  bool
	Enabled    bool
	Visible    bool
	Bounds     Bounds
}

// WindowInfo identifies the active window a snapshot was taken from.
type WindowInfo struct {
	Package string
	Title   string
}

// EventKind classifies a UI change notification.
type EventKind int

const (
	EventWindowStateChanged EventKind = iota
	EventContentChanged
	EventClick
	EventFocus
	EventOther
)

func (k EventKind) String() string {
	switch k {
	case EventWindowStateChanged:
		return "window-state-changed"
	case EventContentChanged:
		return "content-changed"
	case EventClick:
		return "click"
	case EventFocus:
		return "focus"
	default:
		return "other"
	}
}

// Notification is one item of the change-notification stream.
type Notification struct {
	Package string
	Kind    EventKind
}
