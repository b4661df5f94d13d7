// Package explorer coordinates the interactive session: the displayed graph,
// its back-history, and the side panels fed by asynchronous backend calls.
//
// All state lives in one Explorer owned by the UI event loop. Operations that
// need the backend return a Command to run elsewhere; the Event it produces
// is handed back to Apply, which drops it if a newer request of the same kind
// has been issued since.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/herbgraph/pkg/debug"
	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
	"github.com/vanderheijden86/herbgraph/pkg/metrics"
	"github.com/vanderheijden86/herbgraph/pkg/reqgate"
	"github.com/vanderheijden86/herbgraph/pkg/taxonomy"
)

var (
	ErrEmptyTerm   = errors.New("empty search term")
	ErrNoGraph     = errors.New("no graph displayed")
	ErrUnknownNode = errors.New("node is not in the displayed graph")
	ErrNoPlant     = errors.New("no plant selected")
)

// User-facing texts.
const (
	NoticeAtFloor     = "已经回到初始状态，无法继续返回。"
	NoticeEmptyTerm   = "请输入植物名称"
	NoticeNoPlant     = "请输入植物信息"
	NoticeNoResults   = "未找到相关结果"
	GeneratingText    = "正在生成中，请稍候..."
	GenerateFailed    = "生成失败，请重试。"
	ScriptPendingText = "正在生成脚本建议，请稍候..."
	ScriptEmptyText   = "未能生成脚本建议，请检查接口返回。"
	ScriptFailedText  = "脚本生成失败，请稍后重试。"
)

// Backend is the set of knowledge-graph calls the explorer issues.
// *kgclient.Client satisfies it.
type Backend interface {
	Query(ctx context.Context, term string) (kgapi.Subgraph, error)
	Details(ctx context.Context, entityID string) (kgapi.Details, error)
	Autocomplete(ctx context.Context, prefix string) ([]string, error)
	Taxonomy(ctx context.Context) ([]kgapi.TaxonomyEntry, error)
	StructuredInfo(ctx context.Context, name string) (kgapi.PlantInfo, error)
	Generate(ctx context.Context, req kgapi.GenerateRequest) (string, error)
	ScriptSuggestions(ctx context.Context, req kgapi.ScriptRequest) (kgapi.ScriptResponse, error)
}

// ScriptOptions are the fixed parameters of chained script requests.
type ScriptOptions struct {
	Platform string
	Style    string
	Audience string
	N        int
}

// DefaultScriptOptions returns the parameters used when none are configured.
func DefaultScriptOptions() ScriptOptions {
	return ScriptOptions{Platform: "video", Style: "科普", Audience: "大众", N: 1}
}

// InfoCard is the structured-info panel.
type InfoCard struct {
	Name    string
	Info    kgapi.PlantInfo
	Loading bool
	Err     error
}

// Field returns the display value of key, using the standard placeholder for
// missing fields.
func (c InfoCard) Field(key string) string {
	for _, f := range kgapi.InfoFields {
		if f.Key == key {
			return c.Info.Get(key, f.Fallback)
		}
	}
	return c.Info.Get(key, "未知")
}

// Fields returns the card's displayed values keyed by field name.
func (c InfoCard) Fields() map[string]string {
	out := make(map[string]string, len(kgapi.InfoFields))
	for _, f := range kgapi.InfoFields {
		out[f.Key] = c.Info.Get(f.Key, f.Fallback)
	}
	return out
}

// Explorer is the session context. It is not safe for concurrent use.
type Explorer struct {
	ctx     context.Context
	backend Backend
	opts    ScriptOptions

	store   *graphstate.Store
	history *graphstate.History
	gate    *reqgate.Gate

	shown reqgate.Token // token of the search that produced the displayed graph
	term  string

	info        InfoCard
	script      string
	generated   string
	suggestions []string
	tree        *taxonomy.Tree
}

// New creates an Explorer. ctx bounds every request it issues.
func New(ctx context.Context, backend Backend, opts ScriptOptions) *Explorer {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.N < 1 {
		opts.N = 1
	}
	return &Explorer{
		ctx:     ctx,
		backend: backend,
		opts:    opts,
		store:   graphstate.NewStore(),
		history: graphstate.NewHistory(),
		gate:    reqgate.New(),
	}
}

// Search issues a subgraph query for term. The displayed graph is replaced
// only when the response arrives and no newer search has been issued.
func (e *Explorer) Search(term string) (Command, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyTerm
	}
	tok := e.gate.Mint(reqgate.Graph)
	debug.Log("search %q token=%s", term, tok)
	ctx, b := e.ctx, e.backend
	return func() Event {
		sg, err := b.Query(ctx, term)
		return GraphLoaded{Term: term, Subgraph: sg, Err: err, tok: tok}
	}, nil
}

// Expand fetches the neighbours of a displayed node. The result is merged
// only if the graph it was issued against is still displayed.
func (e *Explorer) Expand(nodeID string) (Command, error) {
	if e.shown.IsZero() {
		return nil, ErrNoGraph
	}
	if !e.store.Has(nodeID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	tok := e.shown
	ctx, b := e.ctx, e.backend
	return func() Event {
		d, err := b.Details(ctx, nodeID)
		return NodeExpanded{NodeID: nodeID, Details: d, Err: err, tok: tok}
	}, nil
}

// Back restores the previous graph state. At the floor of the history the
// graph is left as is and ErrAtFloor is reported with a notice.
func (e *Explorer) Back() Result {
	snap, err := e.history.GoBack()
	if errors.Is(err, graphstate.ErrAtFloor) {
		return Result{Panel: PanelGraph, Err: err, Notice: NoticeAtFloor}
	}
	e.store.Restore(snap)
	return Result{Panel: PanelGraph, Render: true}
}

// Clear empties the graph, history and panels and makes every pending
// request stale. The taxonomy tree is kept.
func (e *Explorer) Clear() Result {
	for _, c := range []reqgate.Category{reqgate.Graph, reqgate.Info, reqgate.Script, reqgate.Generate, reqgate.Suggest} {
		e.gate.Clear(c)
	}
	e.store.Clear()
	e.history.Reset()
	e.shown = reqgate.Token{}
	e.term = ""
	e.info = InfoCard{}
	e.script = ""
	e.generated = ""
	e.suggestions = nil
	return Result{Panel: PanelAll, Render: true}
}

// Apply folds the outcome of a Command into the session.
func (e *Explorer) Apply(ev Event) Result {
	switch ev := ev.(type) {
	case GraphLoaded:
		return e.applyGraph(ev)
	case NodeExpanded:
		return e.applyExpansion(ev)
	case InfoLoaded:
		return e.applyInfo(ev)
	case ScriptLoaded:
		return e.applyScript(ev)
	case TextGenerated:
		return e.applyGenerated(ev)
	case SuggestionsLoaded:
		return e.applySuggestions(ev)
	case TaxonomyLoaded:
		return e.applyTaxonomy(ev)
	default:
		return Result{}
	}
}

func (e *Explorer) applyGraph(ev GraphLoaded) Result {
	if !e.gate.IsCurrent(reqgate.Graph, ev.tok) {
		return e.stale(PanelGraph, "search", ev.tok)
	}
	if ev.Err != nil {
		return Result{Panel: PanelGraph, Err: ev.Err, Notice: fmt.Sprintf("查询失败：%v", ev.Err)}
	}
	e.store.ReplaceWith(ev.Subgraph.Nodes, ev.Subgraph.Links)
	e.history.Reset()
	e.history.PushCurrent(e.store)
	e.shown = ev.tok
	e.term = ev.Term

	r := Result{Panel: PanelGraph, Render: true}
	if e.store.Empty() {
		r.Notice = NoticeNoResults
	}
	return r
}

func (e *Explorer) applyExpansion(ev NodeExpanded) Result {
	if ev.tok.IsZero() || ev.tok != e.shown {
		return e.stale(PanelGraph, "expand", ev.tok)
	}
	if ev.Err != nil {
		return Result{Panel: PanelGraph, Err: ev.Err, Notice: fmt.Sprintf("展开失败：%v", ev.Err)}
	}
	origin := ev.Details.Entity
	if origin == "" {
		origin = ev.NodeID
	}
	e.store.MergeExpansion(origin, ev.Details.Properties, ev.Details.NodeInfo)
	e.history.PushCurrent(e.store)
	return Result{Panel: PanelGraph, Render: true}
}

func (e *Explorer) stale(p Panel, what string, tok reqgate.Token) Result {
	metrics.StaleResponses.Inc()
	debug.Log("dropped stale %s response token=%s", what, tok)
	return Result{Panel: p, Stale: true}
}

// Snapshot returns the displayed graph.
func (e *Explorer) Snapshot() graphstate.Snapshot { return e.store.Snapshot() }

// Node returns a displayed node.
func (e *Explorer) Node(id string) (graphstate.Node, bool) { return e.store.Node(id) }

// Neighbors returns the displayed links leaving and entering id.
func (e *Explorer) Neighbors(id string) (out, in []graphstate.Link) {
	return e.store.Neighbors(id)
}

// HistoryLen returns the number of states on the back-history.
func (e *Explorer) HistoryLen() int { return e.history.Len() }

// Term returns the search term of the displayed graph.
func (e *Explorer) Term() string { return e.term }

// HasGraph reports whether a search result is displayed.
func (e *Explorer) HasGraph() bool { return !e.shown.IsZero() }
