package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/herbgraph/pkg/explorer"
	"github.com/vanderheijden86/herbgraph/pkg/export"
	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
	"github.com/vanderheijden86/herbgraph/pkg/metrics"
)

type robotQueryOutput struct {
	GeneratedAt string            `json:"generated_at"`
	Query       string            `json:"query"`
	NodeCount   int               `json:"node_count"`
	LinkCount   int               `json:"link_count"`
	Nodes       []graphstate.Node `json:"nodes"`
	Links       []graphstate.Link `json:"links"`
}

type robotDetailsOutput struct {
	GeneratedAt string                         `json:"generated_at"`
	Entity      string                         `json:"entity"`
	Properties  []graphstate.Property          `json:"properties"`
	NodeInfo    map[string]graphstate.NodeMeta `json:"node_info"`
}

type robotSuggestOutput struct {
	GeneratedAt string   `json:"generated_at"`
	Prefix      string   `json:"prefix"`
	Suggestions []string `json:"suggestions"`
}

// nowFunc is swapped in tests.
var nowFunc = time.Now

func generatedAt() string {
	return nowFunc().UTC().Format(time.RFC3339)
}

func writeRobotJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runRobotQuery(ctx context.Context, w io.Writer, b explorer.Backend, term string) error {
	sg, err := b.Query(ctx, term)
	if err != nil {
		return fmt.Errorf("query %q: %w", term, err)
	}
	out := robotQueryOutput{
		GeneratedAt: generatedAt(),
		Query:       term,
		NodeCount:   len(sg.Nodes),
		LinkCount:   len(sg.Links),
		Nodes:       sg.Nodes,
		Links:       sg.Links,
	}
	if out.Nodes == nil {
		out.Nodes = []graphstate.Node{}
	}
	if out.Links == nil {
		out.Links = []graphstate.Link{}
	}
	return writeRobotJSON(w, out)
}

func runRobotDetails(ctx context.Context, w io.Writer, b explorer.Backend, id string) error {
	d, err := b.Details(ctx, id)
	if err != nil {
		return fmt.Errorf("details %q: %w", id, err)
	}
	out := robotDetailsOutput{
		GeneratedAt: generatedAt(),
		Entity:      d.Entity,
		Properties:  d.Properties,
		NodeInfo:    d.NodeInfo,
	}
	if out.Entity == "" {
		out.Entity = id
	}
	if out.Properties == nil {
		out.Properties = []graphstate.Property{}
	}
	if out.NodeInfo == nil {
		out.NodeInfo = map[string]graphstate.NodeMeta{}
	}
	return writeRobotJSON(w, out)
}

func runRobotSuggest(ctx context.Context, w io.Writer, b explorer.Backend, prefix string) error {
	names, err := b.Autocomplete(ctx, prefix)
	if err != nil {
		return fmt.Errorf("autocomplete %q: %w", prefix, err)
	}
	if names == nil {
		names = []string{}
	}
	return writeRobotJSON(w, robotSuggestOutput{
		GeneratedAt: generatedAt(),
		Prefix:      prefix,
		Suggestions: names,
	})
}

// runExport searches term through the same session path the TUI uses and
// writes the resulting graph to path.
func runExport(ctx context.Context, b explorer.Backend, term, path, fontPath string) error {
	exp := explorer.New(ctx, b, explorer.DefaultScriptOptions())
	cmd, err := exp.Search(term)
	if err != nil {
		return err
	}
	res := exp.Apply(cmd())
	if res.Err != nil {
		return res.Err
	}
	snap := exp.Snapshot()
	if snap.NodeCount() == 0 {
		return errors.New(explorer.NoticeNoResults)
	}
	if err := export.SaveGraphSnapshot(export.GraphSnapshotOptions{
		Path:     path,
		Title:    "herbgraph",
		Term:     term,
		Snapshot: snap,
		FontPath: fontPath,
	}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d nodes to %s\n", snap.NodeCount(), path)
	return nil
}

func dumpMetrics(w io.Writer) {
	type dump struct {
		Timings  []metrics.TimingStats `json:"timings"`
		Counters map[string]int64      `json:"counters"`
	}
	_ = writeRobotJSON(w, dump{Timings: metrics.AllTimingStats(), Counters: metrics.CounterValues()})
}
