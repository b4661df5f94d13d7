// Package graphstate holds the client-side view of the knowledge graph: the
// set of visible nodes and links, immutable snapshots of it, and the linear
// history used for back navigation.
//
// None of the types here are safe for concurrent use. They are owned by a
// single event loop (see package explorer) and mutated only there.
package graphstate

import "strings"

// DefaultColor is used for nodes whose metadata carries no color.
const DefaultColor = "#ccc"

// Node is a vertex of the displayed graph. Identity is ID.
// An empty Type stands for "no type" (JSON null on the wire).
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

// Label returns the local name of the node, i.e. the part after the last '#'.
func (n Node) Label() string {
	return LocalName(n.ID)
}

// Link is a directed, labelled edge. Two links are the same link iff all
// three fields are equal, which makes Link usable directly as a map key.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Property is one (predicate, object) pair returned when expanding a node.
type Property struct {
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// NodeMeta is the display metadata the backend reports for an expanded
// neighbour.
type NodeMeta struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// LocalName strips a "namespace#" prefix from an identifier.
func LocalName(id string) string {
	if i := strings.LastIndex(id, "#"); i >= 0 {
		return id[i+1:]
	}
	return id
}
