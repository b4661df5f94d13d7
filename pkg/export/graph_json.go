package export

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
)

// GraphDocument is the JSON form of a displayed graph, shaped like the
// backend's /query response so it can be fed back in tests and tools.
type GraphDocument struct {
	Term  string            `json:"term,omitempty"`
	Nodes []graphstate.Node `json:"nodes"`
	Links []graphstate.Link `json:"links"`
}

// NewGraphDocument captures snap.
func NewGraphDocument(term string, snap graphstate.Snapshot) GraphDocument {
	doc := GraphDocument{Term: term, Nodes: snap.Nodes(), Links: snap.Links()}
	if doc.Nodes == nil {
		doc.Nodes = []graphstate.Node{}
	}
	if doc.Links == nil {
		doc.Links = []graphstate.Link{}
	}
	return doc
}

// WriteGraphJSON writes doc as indented JSON.
func WriteGraphJSON(w io.Writer, doc GraphDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func saveGraphJSON(opts GraphSnapshotOptions) error {
	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := WriteGraphJSON(f, NewGraphDocument(opts.Term, opts.Snapshot)); err != nil {
		f.Close()
		return fmt.Errorf("write graph json: %w", err)
	}
	return f.Close()
}
