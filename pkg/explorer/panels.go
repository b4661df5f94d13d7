package explorer

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
	"github.com/vanderheijden86/herbgraph/pkg/reqgate"
	"github.com/vanderheijden86/herbgraph/pkg/taxonomy"
)

// LookupInfo fetches the info card for a plant. When it arrives, script
// suggestions for the same plant are requested through Result.Next.
func (e *Explorer) LookupInfo(name string) (Command, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyTerm
	}
	tok := e.gate.Mint(reqgate.Info)
	e.info = InfoCard{Name: name, Loading: true}
	ctx, b := e.ctx, e.backend
	return func() Event {
		info, err := b.StructuredInfo(ctx, name)
		return InfoLoaded{Name: name, Info: info, Err: err, tok: tok}
	}, nil
}

func (e *Explorer) applyInfo(ev InfoLoaded) Result {
	if !e.gate.IsCurrent(reqgate.Info, ev.tok) {
		return e.stale(PanelInfo, "info", ev.tok)
	}
	if ev.Err != nil {
		e.info = InfoCard{Name: ev.Name, Err: ev.Err}
		return Result{Panel: PanelInfo, Err: ev.Err, Notice: fmt.Sprintf("获取植物信息失败：%v", ev.Err)}
	}
	e.info = InfoCard{Name: ev.Name, Info: ev.Info}
	return Result{Panel: PanelInfo, Next: e.requestScript()}
}

// requestScript mints a script token for the current card and returns the
// fetch.
func (e *Explorer) requestScript() Command {
	tok := e.gate.Mint(reqgate.Script)
	e.script = ScriptPendingText
	req := kgapi.ScriptRequest{
		PlantName: e.info.Name,
		Info:      e.info.Info.Flatten(),
		Platform:  e.opts.Platform,
		Style:     e.opts.Style,
		Audience:  e.opts.Audience,
		N:         e.opts.N,
	}
	ctx, b := e.ctx, e.backend
	return func() Event {
		resp, err := b.ScriptSuggestions(ctx, req)
		return ScriptLoaded{Name: req.PlantName, Response: resp, Err: err, tok: tok}
	}
}

func (e *Explorer) applyScript(ev ScriptLoaded) Result {
	if !e.gate.IsCurrent(reqgate.Script, ev.tok) {
		return e.stale(PanelScript, "script", ev.tok)
	}
	if ev.Err != nil {
		e.script = ScriptFailedText
		return Result{Panel: PanelScript, Err: ev.Err}
	}
	e.script = formatScript(ev.Response)
	return Result{Panel: PanelScript}
}

// formatScript picks the displayable text out of a script response.
func formatScript(resp kgapi.ScriptResponse) string {
	if s := strings.TrimSpace(resp.ScriptSuggestions); s != "" {
		return s
	}
	if len(resp.Data) > 0 && !bytes.Equal(bytes.TrimSpace(resp.Data), []byte("null")) {
		var s string
		if err := json.Unmarshal(resp.Data, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, resp.Data, "", "  "); err == nil {
			return buf.String()
		}
	}
	return ScriptEmptyText
}

// Generate requests free-form text about the plant on the info card.
// addition is extra instruction text; n is the number of variants.
func (e *Explorer) Generate(addition string, n int) (Command, error) {
	name := e.info.Name
	if name == "" {
		return nil, ErrNoPlant
	}
	if n < 1 {
		n = 1
	}
	tok := e.gate.Mint(reqgate.Generate)
	e.generated = GeneratingText
	req := kgapi.GenerateRequest{
		PlantName: name,
		Info:      e.info.Fields(),
		Addition:  strings.TrimSpace(addition),
		N:         n,
	}
	ctx, b := e.ctx, e.backend
	return func() Event {
		text, err := b.Generate(ctx, req)
		return TextGenerated{Text: text, Err: err, tok: tok}
	}, nil
}

func (e *Explorer) applyGenerated(ev TextGenerated) Result {
	if !e.gate.IsCurrent(reqgate.Generate, ev.tok) {
		return e.stale(PanelGenerate, "generate", ev.tok)
	}
	if ev.Err != nil {
		e.generated = GenerateFailed
		return Result{Panel: PanelGenerate, Err: ev.Err}
	}
	e.generated = ev.Text
	return Result{Panel: PanelGenerate}
}

// Suggest requests autocomplete candidates for prefix. A blank prefix hides
// the list without a request and returns a nil Command.
func (e *Explorer) Suggest(prefix string) Command {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		e.gate.Clear(reqgate.Suggest)
		e.suggestions = nil
		return nil
	}
	tok := e.gate.Mint(reqgate.Suggest)
	ctx, b := e.ctx, e.backend
	return func() Event {
		names, err := b.Autocomplete(ctx, prefix)
		return SuggestionsLoaded{Prefix: prefix, Names: names, Err: err, tok: tok}
	}
}

// DismissSuggestions hides the list and drops any pending request for it.
func (e *Explorer) DismissSuggestions() {
	e.gate.Clear(reqgate.Suggest)
	e.suggestions = nil
}

func (e *Explorer) applySuggestions(ev SuggestionsLoaded) Result {
	if !e.gate.IsCurrent(reqgate.Suggest, ev.tok) {
		return e.stale(PanelSuggest, "suggest", ev.tok)
	}
	if ev.Err != nil {
		e.suggestions = nil
		return Result{Panel: PanelSuggest, Err: ev.Err}
	}
	e.suggestions = ev.Names
	return Result{Panel: PanelSuggest}
}

// LoadTaxonomy fetches the family/genus table for the tree pane.
func (e *Explorer) LoadTaxonomy() Command {
	tok := e.gate.Mint(reqgate.Taxonomy)
	ctx, b := e.ctx, e.backend
	return func() Event {
		entries, err := b.Taxonomy(ctx)
		return TaxonomyLoaded{Entries: entries, Err: err, tok: tok}
	}
}

func (e *Explorer) applyTaxonomy(ev TaxonomyLoaded) Result {
	if !e.gate.IsCurrent(reqgate.Taxonomy, ev.tok) {
		return e.stale(PanelTaxonomy, "taxonomy", ev.tok)
	}
	if ev.Err != nil {
		return Result{Panel: PanelTaxonomy, Err: ev.Err, Notice: fmt.Sprintf("加载分类失败：%v", ev.Err)}
	}
	e.tree = taxonomy.Build(ev.Entries)
	return Result{Panel: PanelTaxonomy}
}

// SelectPlant searches for a plant and loads its info card, as picking it
// from the tree or the suggestion list does.
func (e *Explorer) SelectPlant(name string) ([]Command, error) {
	search, err := e.Search(name)
	if err != nil {
		return nil, err
	}
	info, err := e.LookupInfo(name)
	if err != nil {
		return nil, err
	}
	e.DismissSuggestions()
	return []Command{search, info}, nil
}

// Info returns the info card.
func (e *Explorer) Info() InfoCard { return e.info }

// Script returns the script panel text.
func (e *Explorer) Script() string { return e.script }

// Generated returns the generation panel text.
func (e *Explorer) Generated() string { return e.generated }

// Suggestions returns the autocomplete list.
func (e *Explorer) Suggestions() []string { return e.suggestions }

// Taxonomy returns the loaded tree, or nil before it arrives.
func (e *Explorer) Taxonomy() *taxonomy.Tree { return e.tree }
