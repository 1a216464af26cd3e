package gate

import (
	"testing"
	"time"
)

func TestSchedule_ReplacesPendingSamePurpose(t *testing.T) {
	timers := NewTimers()
	defer timers.Stop()

	fired := make(chan string, 2)
	timers.Schedule("settle", 40*time.Millisecond, func() { fired <- "first" })
	timers.Schedule("settle", 10*time.Millisecond, func() { fired <- "second" })

	select {
	case got := <-fired:
		if got != "second" {
			t.Errorf("expected the replacement to run, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduled task never ran")
	}

	// The replaced task must stay cancelled.
	select {
	case got := <-fired:
		t.Errorf("replaced task ran anyway: %q", got)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestSchedule_IndependentPurposes(t *testing.T) {
	timers := NewTimers()
	defer timers.Stop()

	fired := make(chan string, 2)
	timers.Schedule("a", 5*time.Millisecond, func() { fired <- "a" })
	timers.Schedule("b", 5*time.Millisecond, func() { fired <- "b" })

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case got := <-fired:
			seen[got] = true
		case <-time.After(time.Second):
			t.Fatal("tasks with distinct purposes must both run")
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("expected both purposes to fire, got %v", seen)
	}
}

func TestCancel(t *testing.T) {
	timers := NewTimers()
	defer timers.Stop()

	fired := make(chan struct{}, 1)
	timers.Schedule("settle", 10*time.Millisecond, func() { fired <- struct{}{} })
	timers.Cancel("settle")

	select {
	case <-fired:
		t.Error("cancelled task ran")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStop_RefusesFurtherScheduling(t *testing.T) {
	timers := NewTimers()

	fired := make(chan struct{}, 2)
	timers.Schedule("settle", 10*time.Millisecond, func() { fired <- struct{}{} })
	timers.Stop()
	timers.Schedule("settle", time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
		t.Error("no task may run after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}
