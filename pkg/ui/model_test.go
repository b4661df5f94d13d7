package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/herbgraph/pkg/explorer"
	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
)

// fakeBackend answers from fixed tables.
type fakeBackend struct {
	mu        sync.Mutex
	generated []kgapi.GenerateRequest
}

var fakeNames = []string{"人参", "西洋参", "当归"}

func (f *fakeBackend) Query(_ context.Context, term string) (kgapi.Subgraph, error) {
	if term != "人参" {
		return kgapi.Subgraph{}, nil
	}
	return kgapi.Subgraph{
		Nodes: []graphstate.Node{
			{ID: "人参", Type: "植物", Color: "#4CAF50"},
			{ID: "人参#功效", Color: "#ccc"},
			{ID: "五加科", Type: "科", Color: "#2196F3"},
		},
		Links: []graphstate.Link{
			{Source: "人参", Target: "人参#功效", Label: "功效"},
			{Source: "人参", Target: "五加科", Label: "属于科"},
		},
	}, nil
}

func (f *fakeBackend) Details(_ context.Context, id string) (kgapi.Details, error) {
	if id != "人参#功效" {
		return kgapi.Details{}, errors.New("no details")
	}
	return kgapi.Details{
		Entity:     id,
		Properties: []graphstate.Property{{Predicate: "治疗", Object: "气虚"}, {Predicate: "治疗", Object: "失眠"}},
		NodeInfo:   map[string]graphstate.NodeMeta{"气虚": {Type: "治疗"}},
	}, nil
}

func (f *fakeBackend) Autocomplete(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, n := range fakeNames {
		if strings.Contains(n, prefix) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeBackend) Taxonomy(context.Context) ([]kgapi.TaxonomyEntry, error) {
	return []kgapi.TaxonomyEntry{
		{Family: "五加科", Genus: "人参属", Plants: []string{"人参", "西洋参"}},
		{Family: "伞形科", Genus: "当归属", Plants: []string{"当归"}},
	}, nil
}

func (f *fakeBackend) StructuredInfo(_ context.Context, name string) (kgapi.PlantInfo, error) {
	return kgapi.PlantInfo{"特征": {"根肉质"}, "属于科": {"五加科"}}, nil
}

func (f *fakeBackend) Generate(_ context.Context, req kgapi.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.generated = append(f.generated, req)
	f.mu.Unlock()
	return "人参，百草之王。", nil
}

func (f *fakeBackend) ScriptSuggestions(context.Context, kgapi.ScriptRequest) (kgapi.ScriptResponse, error) {
	return kgapi.ScriptResponse{ScriptSuggestions: "镜头一：人参特写"}, nil
}

func newTestModel(t *testing.T, opts Options) (Model, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{}
	exp := explorer.New(context.Background(), fb, explorer.DefaultScriptOptions())
	m := NewModel(exp, opts)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = drain(t, m, m.Init())
	return m, fb
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and runs the resulting requests to completion.
func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return drain(t, next.(Model), cmd)
}

// runCmd executes cmd, giving up on commands that only fire after a delay
// (cursor blink, debounce ticks).
func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(200 * time.Millisecond):
		return nil, false
	}
}

// drain feeds explorer results and export completions back into the model
// until no work is left.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := runCmd(c)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case eventMsg, exportDoneMsg:
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		}
	}
	return m
}

func searchFor(t *testing.T, m Model, term string) Model {
	t.Helper()
	if m.focused != focusSearch {
		m = press(t, m, "/")
	}
	m.search.SetValue(term)
	return press(t, m, "enter")
}

func TestSearchLoadsGraphInfoAndScript(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	if m.Focus() != "search" {
		t.Fatalf("initial focus = %s, want search", m.Focus())
	}

	m = searchFor(t, m, "人参")

	if got := m.Graph().TotalCount(); got != 3 {
		t.Fatalf("graph nodes = %d, want 3", got)
	}
	if id := m.Graph().SelectedID(); id != "人参" {
		t.Errorf("selected node = %q, want the searched plant", id)
	}
	if m.Focus() != "graph" {
		t.Errorf("focus after search = %s, want graph", m.Focus())
	}
	if m.Tree().Marked() != "人参" {
		t.Errorf("tree mark = %q, want 人参", m.Tree().Marked())
	}
	detail := m.DetailContent()
	for _, want := range []string{"根肉质", "镜头一：人参特写", "**拉丁学名**: 未知"} {
		if !strings.Contains(detail, want) {
			t.Errorf("detail missing %q:\n%s", want, detail)
		}
	}
	if m.Pending() != 0 {
		t.Errorf("pending = %d after drain", m.Pending())
	}
}

func TestSearchWithoutResults(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = searchFor(t, m, "不存在")
	status, isErr := m.Status()
	if status != explorer.NoticeNoResults || isErr {
		t.Errorf("status = %q (err %v), want no-results notice", status, isErr)
	}
	if m.Graph().TotalCount() != 0 {
		t.Errorf("graph should be empty")
	}
}

func TestEmptySearchIsRejected(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = searchFor(t, m, "   ")
	status, isErr := m.Status()
	if status != explorer.NoticeEmptyTerm || !isErr {
		t.Errorf("status = %q (err %v)", status, isErr)
	}
}

func TestExpandThenBack(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = searchFor(t, m, "人参")

	if !m.graph.SelectByID("人参#功效") {
		t.Fatal("effect node missing")
	}
	m = press(t, m, "enter")
	if got := m.Graph().TotalCount(); got != 5 {
		t.Fatalf("nodes after expand = %d, want 5", got)
	}
	if id := m.Graph().SelectedID(); id != "人参#功效" {
		t.Errorf("selection moved to %q after expand", id)
	}

	m = press(t, m, "b")
	if got := m.Graph().TotalCount(); got != 3 {
		t.Fatalf("nodes after back = %d, want 3", got)
	}

	m = press(t, m, "b")
	status, isErr := m.Status()
	if status != explorer.NoticeAtFloor || !isErr {
		t.Errorf("status at floor = %q (err %v)", status, isErr)
	}
	if got := m.Graph().TotalCount(); got != 3 {
		t.Errorf("graph changed at floor: %d nodes", got)
	}
}

func TestExpandWithoutGraph(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = press(t, m, "esc")
	m = press(t, m, "enter")
	status, isErr := m.Status()
	if !isErr || !strings.Contains(status, "无法展开") {
		t.Errorf("status = %q (err %v)", status, isErr)
	}
}

func TestClearKeepsTaxonomy(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = searchFor(t, m, "人参")
	m = press(t, m, "x")

	if m.Graph().TotalCount() != 0 {
		t.Errorf("graph not cleared")
	}
	if m.Search().Value() != "" {
		t.Errorf("search box kept %q", m.Search().Value())
	}
	if !m.Tree().Loaded() {
		t.Errorf("taxonomy dropped by clear")
	}
	if m.Tree().Marked() != "" {
		t.Errorf("tree mark kept after clear")
	}
	if strings.Contains(m.DetailContent(), "根肉质") {
		t.Errorf("info card survived clear")
	}
}

func TestSuggestionsLatestWins(t *testing.T) {
	m, _ := newTestModel(t, Options{})

	next, first := m.Update(suggestTickMsg{seq: m.suggestID, prefix: "参"})
	m = next.(Model)
	next, second := m.Update(suggestTickMsg{seq: m.suggestID, prefix: "西洋"})
	m = next.(Model)

	m = drain(t, m, second)
	m = drain(t, m, first)

	got := m.Search().Suggestions()
	if len(got) != 1 || got[0] != "西洋参" {
		t.Errorf("suggestions = %v, want [西洋参]", got)
	}
}

func TestOutdatedSuggestTickIgnored(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	_, cmd := m.Update(suggestTickMsg{seq: m.suggestID - 1, prefix: "参"})
	if cmd != nil {
		t.Error("an outdated tick should not issue a request")
	}
}

func TestSuggestionChoice(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	next, cmd := m.Update(suggestTickMsg{seq: m.suggestID, prefix: "参"})
	m = drain(t, next.(Model), cmd)

	m = press(t, m, "down")
	m = press(t, m, "down")
	if got := m.Search().Choice(); got != "西洋参" {
		t.Fatalf("choice = %q", got)
	}
	m = press(t, m, "enter")
	if m.Search().Value() != "西洋参" || len(m.Search().Suggestions()) != 0 {
		t.Errorf("search box = %q with %v", m.Search().Value(), m.Search().Suggestions())
	}
}

func TestTreeSelectsPlant(t *testing.T) {
	m, _ := newTestModel(t, Options{StartPane: "tree"})
	if m.Focus() != "tree" {
		t.Fatalf("focus = %s", m.Focus())
	}
	for _, k := range []string{"l", "j", "l", "j"} {
		m = press(t, m, k)
	}
	if name, ok := m.Tree().SelectedPlant(); !ok || name != "人参" {
		t.Fatalf("cursor on %q (%v)", name, ok)
	}
	m = press(t, m, "enter")
	if m.Graph().TotalCount() != 3 {
		t.Errorf("tree selection did not search")
	}
	if m.Search().Value() != "人参" {
		t.Errorf("search box = %q", m.Search().Value())
	}
}

func TestGenerateNeedsPlant(t *testing.T) {
	m, _ := newTestModel(t, Options{StartPane: "graph"})
	m = press(t, m, "g")
	if m.GenerateFormOpen() {
		t.Fatal("form opened without a plant")
	}
	if status, _ := m.Status(); status != explorer.NoticeNoPlant {
		t.Errorf("status = %q", status)
	}
}

func TestGenerateFormOpensAndCancels(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = searchFor(t, m, "人参")
	m = press(t, m, "g")
	if !m.GenerateFormOpen() || m.Focus() != "generate" {
		t.Fatalf("form not open, focus %s", m.Focus())
	}
	m = press(t, m, "esc")
	if m.GenerateFormOpen() || m.Focus() != "graph" {
		t.Errorf("esc left form open, focus %s", m.Focus())
	}
}

func TestGenerateAndCopy(t *testing.T) {
	var copied string
	m, fb := newTestModel(t, Options{Clipboard: func(s string) error {
		copied = s
		return nil
	}})
	m = searchFor(t, m, "人参")

	m = press(t, m, "y")
	if _, isErr := m.Status(); !isErr || copied != "" {
		t.Fatalf("copy with nothing generated should fail")
	}

	cmd := m.startGenerate("适合短视频", 2)
	m = drain(t, m, cmd)
	if !strings.Contains(m.DetailContent(), "百草之王") {
		t.Fatalf("generated text missing from detail")
	}
	if len(fb.generated) != 1 || fb.generated[0].N != 2 || fb.generated[0].Addition != "适合短视频" {
		t.Errorf("generate requests = %+v", fb.generated)
	}

	m = press(t, m, "y")
	if copied != "人参，百草之王。" {
		t.Errorf("clipboard = %q", copied)
	}
}

func TestExportWritesFile(t *testing.T) {
	dir := t.TempDir()
	m, _ := newTestModel(t, Options{ExportDir: dir, ExportFormat: "json"})

	m = press(t, m, "esc")
	m = press(t, m, "e")
	if _, isErr := m.Status(); !isErr {
		t.Fatal("export of an empty graph should fail")
	}

	m = searchFor(t, m, "人参")
	m = press(t, m, "e")
	status, isErr := m.Status()
	if isErr || !strings.Contains(status, dir) {
		t.Fatalf("status = %q (err %v)", status, isErr)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "herbgraph-人参-*.json"))
	if len(files) != 1 {
		t.Fatalf("exported files = %v", files)
	}
	if info, err := os.Stat(files[0]); err != nil || info.Size() == 0 {
		t.Errorf("export file empty: %v", err)
	}
}

func TestExportFileName(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)
	if got := exportFileName("a/b c", "svg", at); got != "herbgraph-a_b_c-20260301-090507.svg" {
		t.Errorf("got %q", got)
	}
	if got := exportFileName("", "png", at); got != "herbgraph-graph-20260301-090507.png" {
		t.Errorf("got %q", got)
	}
}

func TestTabCyclesPanes(t *testing.T) {
	m, _ := newTestModel(t, Options{StartPane: "graph"})
	want := []string{"tree", "detail", "graph"}
	for _, w := range want {
		m = press(t, m, "tab")
		if m.Focus() != w {
			t.Fatalf("focus = %s, want %s", m.Focus(), w)
		}
	}
	m = press(t, m, "/")
	if m.Focus() != "search" {
		t.Errorf("/ should focus search, got %s", m.Focus())
	}
}

func TestViewRenders(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	if !strings.Contains(m.View(), "herbgraph") {
		t.Error("header missing")
	}
	m = searchFor(t, m, "人参")
	m = press(t, m, "v")
	if !m.Graph().CanvasMode() {
		t.Fatal("v should switch to the canvas")
	}
	out := m.View()
	for _, want := range []string{"知识图谱", "植物分类", "五加科"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestHelpOverlayFollowsFocus(t *testing.T) {
	m, _ := newTestModel(t, Options{StartPane: "tree"})
	if m.CurrentContext() != ContextTree {
		t.Fatalf("context = %s", m.CurrentContext())
	}
	m = press(t, m, "?")
	if m.CurrentContext() != ContextHelp {
		t.Fatalf("context = %s, want help", m.CurrentContext())
	}
	if !strings.Contains(m.View(), "折叠或回到上级") {
		t.Error("help overlay should describe the tree pane")
	}
	m = press(t, m, "j")
	if m.CurrentContext() != ContextHelp {
		t.Error("keys other than ?/esc must not close the overlay")
	}
	m = press(t, m, "esc")
	if m.CurrentContext() != ContextTree {
		t.Errorf("context after close = %s", m.CurrentContext())
	}
}

func TestGetContextHelpFallback(t *testing.T) {
	if GetContextHelp(ContextGenerate) != contextHelpGeneric {
		t.Error("contexts without their own text use the generic help")
	}
}
