package adbdev

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mj1618/autoshare/internal/platform"
)

// xmlNode mirrors one <node> element of a uiautomator dump.
type xmlNode struct {
	Text        string    `xml:"text,attr"`
	ContentDesc string    `xml:"content-desc,attr"`
	ResourceID  string    `xml:"resource-id,attr"`
	Class       string    `xml:"class,attr"`
	Package     string    `xml:"package,attr"`
	Clickable   bool      `xml:"clickable,attr"`
	Enabled     bool      `xml:"enabled,attr"`
	Bounds      string    `xml:"bounds,attr"`
	Nodes       []xmlNode `xml:"node"`
}

type hierarchy struct {
	XMLName xml.Name  `xml:"hierarchy"`
	Nodes   []xmlNode `xml:"node"`
}

// uiNode is one parsed element held for the lifetime of its snapshot.
type uiNode struct {
	class      string
	text       string
	resourceID string
	clickable  bool
	enabled    bool
	bounds     platform.Bounds
}

func (n *uiNode) info(handle int, pkg string) platform.NodeInfo {
	return platform.NodeInfo{
		Handle:     handle,
		Class:      n.class,
		Text:       n.text,
		ResourceID: n.resourceID,
		Package:    pkg,
		Clickable:  n.clickable,
		Enabled:    n.enabled,
		// The dump only contains rendered nodes; zero-sized ones are the
		// exception and are treated as not visible.
		Visible: n.bounds.Width > 0 && n.bounds.Height > 0,
		Bounds:  n.bounds,
	}
}

func (n *uiNode) textContains(s string) bool {
	return strings.Contains(strings.ToLower(n.text), strings.ToLower(s))
}

// snapTree is one acquired UI tree with its live handle table.
type snapTree struct {
	pkg     string
	flat    []*uiNode // breadth-first
	handles map[int]*uiNode
	parents map[*uiNode]*uiNode
}

var boundsRe = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

func parseBounds(s string) (platform.Bounds, error) {
	m := boundsRe.FindStringSubmatch(s)
	if m == nil {
		return platform.Bounds{}, fmt.Errorf("malformed bounds %q", s)
	}
	vals := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return platform.Bounds{}, fmt.Errorf("malformed bounds %q: %w", s, err)
		}
		vals[i] = v
	}
	return platform.Bounds{
		X:      vals[0],
		Y:      vals[1],
		Width:  vals[2] - vals[0],
		Height: vals[3] - vals[1],
	}, nil
}

// parseDump turns raw uiautomator output into a snapTree. The dump ends
// with a status line after the XML, which is stripped.
func parseDump(raw []byte) (*snapTree, error) {
	end := bytes.LastIndex(raw, []byte("</hierarchy>"))
	if end < 0 {
		return nil, fmt.Errorf("no hierarchy in dump (%d bytes)", len(raw))
	}
	doc := raw[:end+len("</hierarchy>")]
	if start := bytes.Index(doc, []byte("<hierarchy")); start > 0 {
		doc = doc[start:]
	}

	var h hierarchy
	if err := xml.Unmarshal(doc, &h); err != nil {
		return nil, fmt.Errorf("parse dump: %w", err)
	}
	if len(h.Nodes) == 0 {
		return nil, fmt.Errorf("empty hierarchy")
	}

	tree := &snapTree{
		pkg:     h.Nodes[0].Package,
		handles: make(map[int]*uiNode),
		parents: make(map[*uiNode]*uiNode),
	}

	// Breadth-first flatten so AllNodes preserves traversal order.
	type queued struct {
		x      *xmlNode
		parent *uiNode
	}
	queue := make([]queued, 0, 64)
	for i := range h.Nodes {
		queue = append(queue, queued{x: &h.Nodes[i]})
	}
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]

		b, err := parseBounds(q.x.Bounds)
		if err != nil {
			return nil, err
		}
		text := q.x.Text
		if text == "" {
			text = q.x.ContentDesc
		}
		n := &uiNode{
			class:      q.x.Class,
			text:       text,
			resourceID: q.x.ResourceID,
			clickable:  q.x.Clickable,
			enabled:    q.x.Enabled,
			bounds:     b,
		}
		tree.flat = append(tree.flat, n)
		if q.parent != nil {
			tree.parents[n] = q.parent
		}
		for i := range q.x.Nodes {
			queue = append(queue, queued{x: &q.x.Nodes[i], parent: n})
		}
	}
	return tree, nil
}
