package locate

import (
	"strings"

	"github.com/mj1618/autoshare/internal/platform"
)

// StrategyKind selects the matching routine a Strategy is evaluated with.
type StrategyKind int

const (
	// ByID matches on the exact resource identifier, filtered to interactive
	// nodes whose caption is on the role's allow-list.
	ByID StrategyKind = iota
	// ByText matches the role's captions as literal text anywhere in the
	// tree, walking up to the nearest interactive ancestor when the text
	// node itself is not actionable.
	ByText
	// ByPredicate matches structurally: class-name substring on an
	// interactive node, for UI versions that drop identifiers and captions.
	ByPredicate
	// ByBounds matches a last-known absolute screen rectangle. Brittle and
	// device-specific; last resort only.
	ByBounds
)

func (k StrategyKind) String() string {
	switch k {
	case ByID:
		return "id"
	case ByText:
		return "text"
	case ByPredicate:
		return "predicate"
	case ByBounds:
		return "bounds"
	default:
		return "unknown"
	}
}

// Strategy is one data-driven matcher. New UI variants are added as table
// entries, not new code paths.
type Strategy struct {
	Kind    StrategyKind
	Pattern string           // resource id (ByID) or class substring (ByPredicate)
	Bounds  *platform.Bounds // ByBounds only
}

// Role identifies a semantic target to locate, independent of how the
// current UI version labels it.
type Role struct {
	Name       string
	Captions   []string // accepted captions, matched case-insensitively
	Strategies []Strategy
	// AllowEscalation permits long-press and ancestor-delegate click
	// fallbacks for this role.
	AllowEscalation bool
}

// CaptionAllowed reports whether text is one of the role's accepted
// captions. Roles without captions accept any text.
func (r Role) CaptionAllowed(text string) bool {
	if len(r.Captions) == 0 {
		return true
	}
	trimmed := strings.TrimSpace(text)
	for _, c := range r.Captions {
		if strings.EqualFold(trimmed, c) {
			return true
		}
	}
	return false
}
