package platform

import "testing"

func TestBoundsCenter(t *testing.T) {
	tests := []struct {
		b     Bounds
		wantX int
		wantY int
	}{
		{Bounds{X: 0, Y: 0, Width: 100, Height: 50}, 50, 25},
		{Bounds{X: 560, Y: 400, Width: 440, Height: 80}, 780, 440},
		{Bounds{}, 0, 0},
	}
	for _, tt := range tests {
		x, y := tt.b.Center()
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("%+v.Center() = (%d, %d), want (%d, %d)", tt.b, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestBoundsContainsPoint(t *testing.T) {
	b := Bounds{X: 10, Y: 10, Width: 20, Height: 20}
	tests := []struct {
		x, y int
		want bool
	}{
		{10, 10, true},
		{29, 29, true},
		{30, 30, false}, // exclusive right/bottom edge
		{9, 15, false},
		{15, 5, false},
	}
	for _, tt := range tests {
		if got := b.ContainsPoint(tt.x, tt.y); got != tt.want {
			t.Errorf("ContainsPoint(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestParseBBox(t *testing.T) {
	b, err := ParseBBox("10, 20, 300, 400")
	if err != nil {
		t.Fatalf("ParseBBox: %v", err)
	}
	want := Bounds{X: 10, Y: 20, Width: 300, Height: 400}
	if *b != want {
		t.Errorf("ParseBBox = %+v, want %+v", *b, want)
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "1,2,3,4,5"} {
		if _, err := ParseBBox(bad); err == nil {
			t.Errorf("ParseBBox(%q): expected error", bad)
		}
	}
}

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{EventWindowStateChanged, "window-state-changed"},
		{EventContentChanged, "content-changed"},
		{EventClick, "click"},
		{EventFocus, "focus"},
		{EventOther, "other"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
