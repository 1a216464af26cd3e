package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mj1618/autoshare/internal/config"
	"github.com/mj1618/autoshare/internal/locate"
	"github.com/mj1618/autoshare/internal/platform"
	"github.com/mj1618/autoshare/internal/platform/fakedev"
)

type recordNotifier struct {
	messages []string
}

func (n *recordNotifier) Info(msg string) {
	n.messages = append(n.messages, msg)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SettleDelayMS = 0
	cfg.MinIntervalMS = 0
	return cfg
}

func newTestService(f *fakedev.Fake) (*Service, *recordNotifier) {
	notifier := &recordNotifier{}
	return New(testConfig(), f.Provider(), nil, notifier), notifier
}

// incomingTree is the host app's incoming connection dialog with a locatable
// accept button.
func incomingTree() *fakedev.N {
	return &fakedev.N{
		Class: "android.widget.FrameLayout",
		Children: []*fakedev.N{
			fakedev.Txt("Incoming connection request"),
			{Class: "android.widget.TextView", ID: locate.HostPackage + ":id/address", Text: "work-laptop"},
			fakedev.Btn(locate.HostPackage+":id/accept", "Accept"),
			fakedev.Btn(locate.HostPackage+":id/decline", "Decline"),
		},
	}
}

// shareDialogTree is the cast companion's share-start dialog.
func shareDialogTree() *fakedev.N {
	return &fakedev.N{
		Class: "android.widget.FrameLayout",
		ID:    locate.CastPackage + ":id/share_dialog",
		Children: []*fakedev.N{
			fakedev.Txt("Start screen sharing"),
			{Class: "android.widget.Spinner", ID: locate.CastPackage + ":id/share_mode",
				Text: "Entire screen", Clickable: true},
		},
	}
}

// chooserTree is the share-target chooser with the entire-screen row.
func chooserTree() *fakedev.N {
	return &fakedev.N{
		Class: "android.widget.ListView",
		ID:    "android:id/select_dialog_listview",
		Children: []*fakedev.N{
			fakedev.Txt("Choose what to share"),
			{Class: "android.widget.CheckedTextView", ID: "android:id/text1",
				Text: "Share entire screen", Clickable: true},
			{Class: "android.widget.CheckedTextView",
				Text: "Single app", Clickable: true},
		},
	}
}

// confirmTree is the final projection consent dialog.
func confirmTree() *fakedev.N {
	return &fakedev.N{
		Class: "android.widget.FrameLayout",
		ID:    locate.CastPackage + ":id/share_confirm",
		Children: []*fakedev.N{
			fakedev.Txt("You are about to start sharing"),
			fakedev.Btn("android:id/button1", "Start now"),
		},
	}
}

func hostWin() platform.WindowInfo { return platform.WindowInfo{Package: locate.HostPackage} }
func castWin() platform.WindowInfo { return platform.WindowInfo{Package: locate.CastPackage} }

func TestProcessCycle_AcceptsIncomingConnection(t *testing.T) {
	f := fakedev.New()
	f.SetTree(hostWin(), incomingTree())
	svc, notifier := newTestService(f)

	svc.ProcessCycle()

	st := svc.Status()
	if st.Step != "awaiting-share-dialog" {
		t.Errorf("step = %q, want awaiting-share-dialog", st.Step)
	}
	if st.DialogsDetected != 1 {
		t.Errorf("dialogs detected = %d, want 1", st.DialogsDetected)
	}
	if len(f.InputLog) == 0 || f.InputLog[0] != "activate" {
		t.Errorf("expected the accept button to be activated, input log %v", f.InputLog)
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != "connection accepted" {
		t.Errorf("messages = %v", notifier.messages)
	}
	if !f.Balanced() {
		t.Errorf("handle leak: issued=%d released=%d", f.Issued, f.ReleasedCount)
	}
}

func TestProcessCycle_FullFlow(t *testing.T) {
	f := fakedev.New()
	svc, notifier := newTestService(f)

	stages := []struct {
		win  platform.WindowInfo
		tree *fakedev.N
		step string
	}{
		{hostWin(), incomingTree(), "awaiting-share-dialog"},
		{castWin(), shareDialogTree(), "awaiting-chooser"},
		{castWin(), chooserTree(), "awaiting-share-confirm"},
		{castWin(), confirmTree(), "idle"},
	}
	for i, stage := range stages {
		f.SetTree(stage.win, stage.tree)
		svc.ProcessCycle()
		if st := svc.Status(); st.Step != stage.step {
			t.Fatalf("after stage %d: step = %q, want %q", i, st.Step, stage.step)
		}
	}

	st := svc.Status()
	if st.AutoAccepts != 1 {
		t.Errorf("auto accepts = %d, want 1", st.AutoAccepts)
	}
	if st.DialogsDetected != 4 {
		t.Errorf("dialogs detected = %d, want 4", st.DialogsDetected)
	}
	want := []string{"connection accepted", "screen sharing started"}
	if len(notifier.messages) != 2 || notifier.messages[0] != want[0] || notifier.messages[1] != want[1] {
		t.Errorf("messages = %v, want %v", notifier.messages, want)
	}
	if !f.Balanced() {
		t.Errorf("handle leak across the flow: issued=%d released=%d", f.Issued, f.ReleasedCount)
	}
	if f.DoubleReleases != 0 {
		t.Errorf("double releases: %d", f.DoubleReleases)
	}
}

func TestProcessCycle_IdleIgnoresCastWindow(t *testing.T) {
	// A cast window that happens to show a share dialog while the flow is
	// idle must not start anything.
	f := fakedev.New()
	f.SetTree(castWin(), shareDialogTree())
	svc, notifier := newTestService(f)

	svc.ProcessCycle()

	st := svc.Status()
	if st.Step != "idle" || st.DialogsDetected != 0 {
		t.Errorf("status = %+v, want untouched idle", st)
	}
	if len(f.InputLog) != 0 {
		t.Errorf("no input expected, got %v", f.InputLog)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("no messages expected, got %v", notifier.messages)
	}
}

func TestProcessCycle_MidFlowIgnoresHostWindow(t *testing.T) {
	f := fakedev.New()
	f.SetTree(hostWin(), incomingTree())
	svc, _ := newTestService(f)
	svc.ProcessCycle() // now awaiting-share-dialog

	// The host app popping another dialog mid-flow is not ours to handle.
	svc.ProcessCycle()
	if st := svc.Status(); st.Step != "awaiting-share-dialog" || st.DialogsDetected != 1 {
		t.Errorf("status = %+v, want flow position unchanged", st)
	}
}

func TestProcessCycle_UnconfirmedDialogDoesNothing(t *testing.T) {
	f := fakedev.New()
	// A host screen mentioning connections without the corroborating
	// controls must not be acted on.
	f.SetTree(hostWin(), &fakedev.N{
		Class:    "android.widget.FrameLayout",
		Children: []*fakedev.N{fakedev.Txt("Connection request history")},
	})
	svc, _ := newTestService(f)

	svc.ProcessCycle()
	st := svc.Status()
	if st.Step != "idle" || st.DialogsDetected != 0 {
		t.Errorf("status = %+v, want untouched idle", st)
	}
	if len(f.InputLog) != 0 {
		t.Errorf("no input expected, got %v", f.InputLog)
	}
}

func TestProcessCycle_ActionFailureRetriesNextCycle(t *testing.T) {
	f := fakedev.New()
	f.SetTree(hostWin(), incomingTree())
	f.ActivateFunc = func(int) error { return errors.New("tap rejected") }
	f.LongPressErr = errors.New("gesture rejected")
	svc, notifier := newTestService(f)

	svc.ProcessCycle()
	st := svc.Status()
	if st.Step != "idle" {
		t.Errorf("failed action must not advance the flow, step = %q", st.Step)
	}
	if st.DialogsDetected != 1 {
		t.Errorf("the dialog was still detected, got %d", st.DialogsDetected)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("no message on failure, got %v", notifier.messages)
	}
	if !f.Balanced() {
		t.Errorf("handle leak on the failure path: issued=%d released=%d", f.Issued, f.ReleasedCount)
	}

	// The device starts accepting input again; the next notification
	// retries from the same step and succeeds.
	f.ActivateFunc = nil
	svc.ProcessCycle()
	if st := svc.Status(); st.Step != "awaiting-share-dialog" {
		t.Errorf("retry should advance, step = %q", st.Step)
	}
}

func TestProcessCycle_TargetNotFoundKeepsStep(t *testing.T) {
	f := fakedev.New()
	// Confirmed incoming dialog whose accept control cannot be located:
	// actionable pair present but captioned off-table for the locator.
	f.SetTree(hostWin(), &fakedev.N{
		Class: "android.widget.FrameLayout",
		Children: []*fakedev.N{
			fakedev.Txt("Incoming connection request"),
			{Class: "android.widget.TextView", ID: locate.HostPackage + ":id/address", Text: "work-laptop"},
			{Class: "android.view.View", Text: "Accept", Clickable: true, Invisible: true},
			fakedev.Btn("", "Decline"),
		},
	})
	svc, _ := newTestService(f)

	svc.ProcessCycle()
	st := svc.Status()
	if st.Step != "idle" {
		t.Errorf("unlocatable target must not advance, step = %q", st.Step)
	}
	if st.DialogsDetected != 1 {
		t.Errorf("detection still counts, got %d", st.DialogsDetected)
	}
	if !f.Balanced() {
		t.Errorf("handle leak: issued=%d released=%d", f.Issued, f.ReleasedCount)
	}
}

func TestProcessCycle_DisabledIsANoOp(t *testing.T) {
	f := fakedev.New()
	f.SetTree(hostWin(), incomingTree())
	svc, notifier := newTestService(f)
	svc.Disable()

	svc.ProcessCycle()
	st := svc.Status()
	if st.Step != "idle" || st.DialogsDetected != 0 {
		t.Errorf("disabled service acted: %+v", st)
	}
	if len(f.InputLog) != 0 || len(notifier.messages) != 0 {
		t.Error("disabled service produced side effects")
	}

	svc.Enable()
	svc.ProcessCycle()
	if st := svc.Status(); st.Step != "awaiting-share-dialog" {
		t.Errorf("re-enabled service should act, step = %q", st.Step)
	}
}

func TestProcessCycle_SnapshotFailureContained(t *testing.T) {
	f := fakedev.New()
	f.AcquireErr = errors.New("device offline")
	svc, _ := newTestService(f)

	svc.ProcessCycle() // must not panic
	if st := svc.Status(); st.Step != "idle" {
		t.Errorf("step = %q", st.Step)
	}
}

func TestProcessCycle_PanicContained(t *testing.T) {
	f := fakedev.New()
	f.SetTree(hostWin(), incomingTree())
	f.ActivateFunc = func(int) error { panic("device driver bug") }
	svc, _ := newTestService(f)

	svc.ProcessCycle() // recovered internally

	// The single-flight lock was restored; the next cycle runs normally.
	f.ActivateFunc = nil
	svc.ProcessCycle()
	if st := svc.Status(); st.Step != "awaiting-share-dialog" {
		t.Errorf("service wedged after panic, step = %q", st.Step)
	}
}

func TestProcessCycle_QueryFaultReleasesSnapshot(t *testing.T) {
	f := fakedev.New()
	f.SetTree(hostWin(), incomingTree())
	f.QueryErr = errors.New("uiautomator idle timeout")
	svc, _ := newTestService(f)

	svc.ProcessCycle()
	if st := svc.Status(); st.Step != "idle" {
		t.Errorf("step = %q", st.Step)
	}
	if !f.Balanced() {
		t.Errorf("handle leak on the fault path: issued=%d released=%d", f.Issued, f.ReleasedCount)
	}
}

func TestRun_NotificationDrivesFlow(t *testing.T) {
	f := fakedev.New()
	f.SetTree(hostWin(), incomingTree())
	svc, _ := newTestService(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	f.Notify(locate.HostPackage, platform.EventWindowStateChanged)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Status().Step == "awaiting-share-dialog" {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if st := svc.Status(); st.Step != "awaiting-share-dialog" {
		t.Fatalf("notification never processed, step = %q", st.Step)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not shut down")
	}
	// Teardown resets the flow.
	if st := svc.Status(); st.Step != "idle" {
		t.Errorf("expected idle after teardown, got %q", st.Step)
	}
}

func TestCheck_ReportsEveryShape(t *testing.T) {
	f := fakedev.New()
	f.SetTree(hostWin(), incomingTree())
	svc, _ := newTestService(f)

	reports, err := svc.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(reports) != 4 {
		t.Fatalf("expected 4 reports, got %d", len(reports))
	}
	confirmed := 0
	for _, r := range reports {
		if r.Confirmed() {
			confirmed++
			if r.Shape != "incoming-connection" {
				t.Errorf("unexpected confirmed shape %q", r.Shape)
			}
		}
	}
	if confirmed != 1 {
		t.Errorf("expected exactly the incoming dialog to confirm, got %d", confirmed)
	}
	if !f.Balanced() {
		t.Errorf("handle leak: issued=%d released=%d", f.Issued, f.ReleasedCount)
	}
}
