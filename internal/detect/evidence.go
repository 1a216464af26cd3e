// Package detect classifies UI snapshots against known dialog shapes using
// weighted evidence. Raw identifiers and captions are unstable across app
// versions and locales, so several weak, independent signals are corroborated
// instead of requiring one exact match.
package detect

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mj1618/autoshare/internal/uitree"
)

// ProbeKind selects how one evidence probe inspects the snapshot.
type ProbeKind int

const (
	// ProbeText scores when any visible node's text contains one of the
	// patterns (case-insensitive).
	ProbeText ProbeKind = iota
	// ProbeID scores when any node carries one of the resource identifiers.
	ProbeID
	// ProbeClass scores when any interactive node's class name contains the
	// pattern.
	ProbeClass
	// ProbeControl scores when an actionable (clickable and enabled) node
	// carries one of the captions.
	ProbeControl
	// ProbePair scores when BOTH an actionable node captioned from Patterns
	// and an actionable node captioned from Alt are present simultaneously.
	ProbePair
)

// Probe is one independently-observable evidence signal.
type Probe struct {
	Name     string
	Weight   int
	Kind     ProbeKind
	Patterns []string
	Alt      []string // ProbePair: captions of the second control
	// Group marks mutually-exclusive probes; within a group, only the first
	// match scores.
	Group string
}

// Shape is a known dialog to classify against.
type Shape struct {
	Name string
	// Threshold is the minimum total score for the dialog to be confirmed.
	Threshold int
	// MinSignals is the minimum number of independent corroborating
	// signals; a single strong signal is never enough to act on.
	MinSignals int
	Probes     []Probe
}

// Report is the transient outcome of classifying one snapshot against one
// shape. It is consumed immediately and never persisted.
type Report struct {
	Shape      string   `yaml:"shape"      json:"shape"`
	Score      int      `yaml:"score"      json:"score"`
	Signals    []string `yaml:"signals"    json:"signals"`
	Threshold  int      `yaml:"threshold"  json:"threshold"`
	MinSignals int      `yaml:"-"          json:"-"`
}

// Confirmed reports whether the evidence is strong enough to act on.
func (r Report) Confirmed() bool {
	return r.Score >= r.Threshold && len(r.Signals) >= r.MinSignals
}

// Detector classifies snapshots against dialog shapes.
type Detector struct {
	log *slog.Logger
}

// New returns a Detector logging classifications to log.
func New(log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{log: log}
}

// Classify scores the snapshot against the shape. All node handles produced
// while probing are released before Classify returns.
func (d *Detector) Classify(ctx context.Context, snap *uitree.Snapshot, shape Shape) (Report, error) {
	nodes, err := snap.All(ctx)
	if err != nil {
		return Report{}, err
	}
	defer uitree.ReleaseAll(nodes)

	report := Report{Shape: shape.Name, Threshold: shape.Threshold, MinSignals: shape.MinSignals}
	matchedGroups := make(map[string]bool)

	for _, p := range shape.Probes {
		if p.Group != "" && matchedGroups[p.Group] {
			continue
		}
		if probeMatches(p, nodes) {
			report.Score += p.Weight
			report.Signals = append(report.Signals, p.Name)
			if p.Group != "" {
				matchedGroups[p.Group] = true
			}
		}
	}

	d.log.Debug("classified snapshot",
		"shape", shape.Name, "score", report.Score,
		"signals", strings.Join(report.Signals, ","), "confirmed", report.Confirmed())
	return report, nil
}

func probeMatches(p Probe, nodes []*uitree.Node) bool {
	switch p.Kind {
	case ProbeText:
		for _, n := range nodes {
			if n.Visible && textContainsAny(n.Text, p.Patterns) {
				return true
			}
		}
	case ProbeID:
		for _, n := range nodes {
			for _, id := range p.Patterns {
				if n.ResourceID == id {
					return true
				}
			}
		}
	case ProbeClass:
		for _, n := range nodes {
			if n.Interactive() && n.Visible &&
				strings.Contains(strings.ToLower(n.Class), strings.ToLower(p.Patterns[0])) {
				return true
			}
		}
	case ProbeControl:
		return hasActionable(nodes, p.Patterns)
	case ProbePair:
		return hasActionable(nodes, p.Patterns) && hasActionable(nodes, p.Alt)
	}
	return false
}

func hasActionable(nodes []*uitree.Node, captions []string) bool {
	for _, n := range nodes {
		if !n.Clickable || !n.Enabled {
			continue
		}
		trimmed := strings.TrimSpace(n.Text)
		for _, c := range captions {
			if strings.EqualFold(trimmed, c) {
				return true
			}
		}
	}
	return false
}

func textContainsAny(text string, patterns []string) bool {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
