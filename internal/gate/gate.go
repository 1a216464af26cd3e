// Package gate filters, debounces and schedules processing of incoming UI
// change notifications. Bursts of notifications collapse into a single
// processing cycle scheduled after a settle delay, and only the most recent
// notification in a burst is honored.
package gate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mj1618/autoshare/internal/platform"
)

const settlePurpose = "settle"

// Options configure a Gate.
type Options struct {
	// Sources are the application packages whose notifications pass the
	// filter; everything else is dropped.
	Sources []string
	// SettleDelay is how long after a notification processing runs, letting
	// the UI finish rendering.
	SettleDelay time.Duration
	// MinInterval is the minimum spacing between processing cycle starts.
	MinInterval time.Duration
	Clock       func() time.Time
	Logger      *slog.Logger
	// Run is the processing cycle. It executes on a background goroutine
	// and is responsible for its own single-flight check.
	Run func()
}

// Gate is the notification front door of the service.
type Gate struct {
	sources map[string]bool
	settle  time.Duration
	minGap  time.Duration
	clock   func() time.Time
	log     *slog.Logger
	run     func()
	timers  *Timers

	mu        sync.Mutex
	lastStart time.Time
}

// New returns a Gate.
func New(opts Options) *Gate {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	sources := make(map[string]bool, len(opts.Sources))
	for _, s := range opts.Sources {
		sources[s] = true
	}
	return &Gate{
		sources: sources,
		settle:  opts.SettleDelay,
		minGap:  opts.MinInterval,
		clock:   opts.Clock,
		log:     opts.Logger,
		run:     opts.Run,
		timers:  NewTimers(),
	}
}

// OnChange handles one change notification. It never blocks: accepted
// notifications only (re)schedule the deferred processing cycle.
func (g *Gate) OnChange(pkg string, kind platform.EventKind) {
	if kind == platform.EventOther {
		return
	}
	if !g.sources[pkg] {
		return
	}

	delay := g.settle
	g.mu.Lock()
	if !g.lastStart.IsZero() {
		if gap := g.minGap - g.clock().Sub(g.lastStart); gap > delay {
			delay = gap
		}
	}
	g.mu.Unlock()

	g.log.Debug("change accepted", "package", pkg, "kind", kind.String(), "delay", delay)
	g.timers.Schedule(settlePurpose, delay, func() {
		g.mu.Lock()
		g.lastStart = g.clock()
		g.mu.Unlock()
		g.run()
	})
}

// Stop cancels any pending processing and refuses further scheduling.
func (g *Gate) Stop() {
	g.timers.Stop()
}
