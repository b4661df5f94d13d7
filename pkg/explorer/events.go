package explorer

import (
	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
	"github.com/vanderheijden86/herbgraph/pkg/reqgate"
)

// Command performs one backend call off the event loop and reports the
// outcome as an Event. It must not touch Explorer state.
type Command func() Event

// Event is the result of a Command, fed back through Explorer.Apply.
type Event interface {
	requestToken() reqgate.Token
}

// GraphLoaded carries the subgraph for a search term.
type GraphLoaded struct {
	Term     string
	Subgraph kgapi.Subgraph
	Err      error
	tok      reqgate.Token
}

// NodeExpanded carries the neighbours of an expanded node.
type NodeExpanded struct {
	NodeID  string
	Details kgapi.Details
	Err     error
	tok     reqgate.Token
}

// InfoLoaded carries the structured info card for a plant.
type InfoLoaded struct {
	Name string
	Info kgapi.PlantInfo
	Err  error
	tok  reqgate.Token
}

// ScriptLoaded carries script suggestions for a plant.
type ScriptLoaded struct {
	Name     string
	Response kgapi.ScriptResponse
	Err      error
	tok      reqgate.Token
}

// TextGenerated carries free-form generated text.
type TextGenerated struct {
	Text string
	Err  error
	tok  reqgate.Token
}

// SuggestionsLoaded carries autocomplete candidates.
type SuggestionsLoaded struct {
	Prefix string
	Names  []string
	Err    error
	tok    reqgate.Token
}

// TaxonomyLoaded carries the family/genus table.
type TaxonomyLoaded struct {
	Entries []kgapi.TaxonomyEntry
	Err     error
	tok     reqgate.Token
}

func (e GraphLoaded) requestToken() reqgate.Token       { return e.tok }
func (e NodeExpanded) requestToken() reqgate.Token      { return e.tok }
func (e InfoLoaded) requestToken() reqgate.Token        { return e.tok }
func (e ScriptLoaded) requestToken() reqgate.Token      { return e.tok }
func (e TextGenerated) requestToken() reqgate.Token     { return e.tok }
func (e SuggestionsLoaded) requestToken() reqgate.Token { return e.tok }
func (e TaxonomyLoaded) requestToken() reqgate.Token    { return e.tok }

// Panel names the display region a Result is about.
type Panel int

const (
	PanelNone Panel = iota
	PanelGraph
	PanelInfo
	PanelScript
	PanelGenerate
	PanelSuggest
	PanelTaxonomy
	PanelAll
)

func (p Panel) String() string {
	switch p {
	case PanelGraph:
		return "graph"
	case PanelInfo:
		return "info"
	case PanelScript:
		return "script"
	case PanelGenerate:
		return "generate"
	case PanelSuggest:
		return "suggest"
	case PanelTaxonomy:
		return "taxonomy"
	case PanelAll:
		return "all"
	default:
		return "none"
	}
}

// Result tells the UI what an operation changed.
type Result struct {
	Panel  Panel
	Render bool    // the graph changed and should be redrawn
	Stale  bool    // the event was superseded and dropped
	Err    error   // the operation failed; state is unchanged
	Notice string  // text to surface to the user
	Next   Command // follow-up request to run, if any
}
