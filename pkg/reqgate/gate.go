// Package reqgate tracks which asynchronous request is the current one for
// each logical operation, so that responses to superseded requests can be
// dropped instead of overwriting newer results.
//
// Usage:
//
//	tok := gate.Mint(reqgate.Info)
//	go fetch(func(resp Response) {
//	    if !gate.IsCurrent(reqgate.Info, tok) {
//	        return // stale
//	    }
//	    apply(resp)
//	})
//
// A Gate is owned by one event loop and is not safe for concurrent use;
// only the Token values travel to other goroutines.
package reqgate

import "github.com/google/uuid"

// Category names a class of requests that share one display target.
type Category string

const (
	Graph    Category = "graph"    // search subgraph queries
	Info     Category = "info"     // structured plant info
	Script   Category = "script"   // script suggestions chained after info
	Generate Category = "generate" // free-form AI text generation
	Suggest  Category = "suggest"  // autocomplete
	Taxonomy Category = "taxonomy" // taxonomy tree
)

// Token identifies one request instance. The zero Token is never current.
type Token struct {
	id uuid.UUID
}

// IsZero reports whether t is the zero Token.
func (t Token) IsZero() bool { return t.id == uuid.Nil }

// String returns a short form of the token for logging.
func (t Token) String() string {
	if t.IsZero() {
		return "none"
	}
	return t.id.String()[:8]
}

// Gate holds the current token per category.
type Gate struct {
	current map[Category]Token
}

// New returns an empty gate.
func New() *Gate {
	return &Gate{current: make(map[Category]Token)}
}

// Mint creates a fresh token and makes it the current one for c.
func (g *Gate) Mint(c Category) Token {
	t := Token{id: uuid.New()}
	g.current[c] = t
	return t
}

// IsCurrent reports whether t is the most recently minted token for c.
func (g *Gate) IsCurrent(c Category, t Token) bool {
	if t.IsZero() {
		return false
	}
	return g.current[c] == t
}

// Current returns the current token for c, if any.
func (g *Gate) Current(c Category) (Token, bool) {
	t, ok := g.current[c]
	return t, ok
}

// Clear drops the current token for c; every outstanding token in c becomes
// stale.
func (g *Gate) Clear(c Category) {
	delete(g.current, c)
}

// ClearAll clears every category.
func (g *Gate) ClearAll() {
	for c := range g.current {
		delete(g.current, c)
	}
}
