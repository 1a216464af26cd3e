package act

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mj1618/autoshare/internal/platform"
	"github.com/mj1618/autoshare/internal/platform/fakedev"
	"github.com/mj1618/autoshare/internal/uitree"
)

var errNoActivate = errors.New("activate rejected")

// failActivates makes the first n Activate calls fail.
func failActivates(n int) func(int) error {
	count := 0
	return func(int) error {
		count++
		if count <= n {
			return errNoActivate
		}
		return nil
	}
}

func buttonNode(t *testing.T, f *fakedev.Fake, root *fakedev.N) (*uitree.Snapshot, *uitree.Node) {
	t.Helper()
	f.SetTree(platform.WindowInfo{Package: "com.example"}, root)
	snap, err := uitree.Acquire(context.Background(), f)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	nodes, err := snap.ByText(context.Background(), "Accept")
	if err != nil || len(nodes) == 0 {
		t.Fatalf("ByText: %v (%d nodes)", err, len(nodes))
	}
	return snap, nodes[0]
}

func newExecutor(f *fakedev.Fake) *Executor {
	e := New(f, nil, 0)
	e.sleep = func(d time.Duration) {} // no real settling in tests
	return e
}

func TestClick_DirectActivate(t *testing.T) {
	f := fakedev.New()
	snap, n := buttonNode(t, f, fakedev.Btn("", "Accept"))
	defer snap.Close()

	if !newExecutor(f).Click(context.Background(), n, false) {
		t.Fatal("expected direct activation to succeed")
	}
	want := []string{"activate"}
	if !reflect.DeepEqual(f.InputLog, want) {
		t.Errorf("input log = %v, want %v", f.InputLog, want)
	}
}

func TestClick_FocusRetry(t *testing.T) {
	f := fakedev.New()
	f.ActivateFunc = failActivates(1)
	snap, n := buttonNode(t, f, fakedev.Btn("", "Accept"))
	defer snap.Close()

	if !newExecutor(f).Click(context.Background(), n, false) {
		t.Fatal("expected focus-then-retry to succeed")
	}
	want := []string{"activate", "focus", "activate"}
	if !reflect.DeepEqual(f.InputLog, want) {
		t.Errorf("input log = %v, want %v", f.InputLog, want)
	}
}

func TestClick_NoEscalationStopsAfterRetry(t *testing.T) {
	f := fakedev.New()
	f.ActivateFunc = failActivates(100)
	snap, n := buttonNode(t, f, fakedev.Btn("", "Accept"))
	defer snap.Close()

	if newExecutor(f).Click(context.Background(), n, false) {
		t.Fatal("expected failure when escalation is not permitted")
	}
	want := []string{"activate", "focus", "activate"}
	if !reflect.DeepEqual(f.InputLog, want) {
		t.Errorf("input log = %v, want %v", f.InputLog, want)
	}
}

func TestClick_EscalatesToLongPress(t *testing.T) {
	f := fakedev.New()
	f.ActivateFunc = failActivates(100)
	snap, n := buttonNode(t, f, fakedev.Btn("", "Accept"))
	defer snap.Close()

	if !newExecutor(f).Click(context.Background(), n, true) {
		t.Fatal("expected long-press escalation to succeed")
	}
	want := []string{"activate", "focus", "activate", "long-press"}
	if !reflect.DeepEqual(f.InputLog, want) {
		t.Errorf("input log = %v, want %v", f.InputLog, want)
	}
}

func TestClick_ParentDelegate(t *testing.T) {
	// Two activations on the child fail before the retry, one more during
	// escalation; the fourth call hits the clickable parent and succeeds.
	f := fakedev.New()
	f.ActivateFunc = failActivates(3)
	f.LongPressErr = errors.New("no gesture")
	root := &fakedev.N{
		Class:     "android.widget.LinearLayout",
		Clickable: true,
		Children:  []*fakedev.N{{Class: "android.widget.TextView", Text: "Accept", Clickable: true}},
	}
	snap, n := buttonNode(t, f, root)
	defer snap.Close()

	if !newExecutor(f).Click(context.Background(), n, true) {
		t.Fatal("expected the parent delegate to succeed")
	}
	want := []string{"activate", "focus", "activate", "long-press", "focus", "activate", "activate"}
	if !reflect.DeepEqual(f.InputLog, want) {
		t.Errorf("input log = %v, want %v", f.InputLog, want)
	}
	n.Release()
	snap.Close()
	if !f.Balanced() {
		t.Errorf("parent handle leaked: issued=%d released=%d", f.Issued, f.ReleasedCount)
	}
}

func TestClick_AllStrategiesExhausted(t *testing.T) {
	f := fakedev.New()
	f.ActivateFunc = failActivates(100)
	f.LongPressErr = errors.New("no gesture")
	// Root parent is not interactive, so the delegate hop cannot help.
	root := &fakedev.N{
		Class:    "android.widget.FrameLayout",
		Children: []*fakedev.N{fakedev.Btn("", "Accept")},
	}
	snap, n := buttonNode(t, f, root)
	defer snap.Close()

	if newExecutor(f).Click(context.Background(), n, true) {
		t.Fatal("expected failure after all strategies were exhausted")
	}
	want := []string{"activate", "focus", "activate", "long-press", "focus", "activate"}
	if !reflect.DeepEqual(f.InputLog, want) {
		t.Errorf("input log = %v, want %v", f.InputLog, want)
	}
}
