package graphstate

import (
	"testing"

	"pgregory.net/rapid"
)

var ids = []string{"人参", "人参#功效", "感冒", "当归", "五加科", "人参属", "http://kg/植物#三七"}

func nodeGen() *rapid.Generator[Node] {
	return rapid.Custom(func(t *rapid.T) Node {
		return Node{
			ID:    rapid.SampledFrom(ids).Draw(t, "id"),
			Type:  rapid.SampledFrom([]string{"", "植物", "科", "治疗"}).Draw(t, "type"),
			Color: rapid.SampledFrom([]string{"", "#4CAF50", "#2196F3"}).Draw(t, "color"),
		}
	})
}

func linkGen() *rapid.Generator[Link] {
	return rapid.Custom(func(t *rapid.T) Link {
		return Link{
			Source: rapid.SampledFrom(ids).Draw(t, "source"),
			Target: rapid.SampledFrom(ids).Draw(t, "target"),
			Label:  rapid.SampledFrom([]string{"属于科", "属于属", "治疗"}).Draw(t, "label"),
		}
	})
}

func propGen() *rapid.Generator[Property] {
	return rapid.Custom(func(t *rapid.T) Property {
		return Property{
			Predicate: rapid.SampledFrom([]string{"属于科", "治疗", "别名"}).Draw(t, "predicate"),
			Object:    rapid.SampledFrom(ids).Draw(t, "object"),
		}
	})
}

func assertInvariants(t interface {
	Helper()
	Fatalf(string, ...any)
}, s *Store) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range s.Nodes() {
		if seen[n.ID] {
			t.Fatalf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	links := make(map[Link]bool)
	for _, l := range s.Links() {
		if links[l] {
			t.Fatalf("duplicate link %+v", l)
		}
		links[l] = true
	}
}

// Node ids stay unique across any sequence of replaces and merges.
func TestStoreNodeUniquenessProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore()
		steps := rapid.IntRange(1, 12).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "replace") {
				s.ReplaceWith(
					rapid.SliceOf(nodeGen()).Draw(t, "nodes"),
					rapid.SliceOf(linkGen()).Draw(t, "links"),
				)
			} else {
				s.MergeExpansion(
					rapid.SampledFrom(ids).Draw(t, "origin"),
					rapid.SliceOf(propGen()).Draw(t, "props"),
					nil,
				)
			}
			assertInvariants(t, s)
		}
	})
}

// Merging the same property twice never grows the link set.
func TestStoreLinkDedupProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore()
		s.ReplaceWith(rapid.SliceOf(nodeGen()).Draw(t, "nodes"), rapid.SliceOf(linkGen()).Draw(t, "links"))

		origin := rapid.SampledFrom(ids).Draw(t, "origin")
		p := propGen().Draw(t, "prop")

		s.MergeExpansion(origin, []Property{p}, nil)
		after := s.LinkCount()
		s.MergeExpansion(origin, []Property{p}, nil)
		if s.LinkCount() != after {
			t.Fatalf("link count changed on duplicate merge: %d -> %d", after, s.LinkCount())
		}
	})
}

// A snapshot is unaffected by later mutation of the store.
func TestSnapshotIsolationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore()
		s.ReplaceWith(rapid.SliceOf(nodeGen()).Draw(t, "nodes"), rapid.SliceOf(linkGen()).Draw(t, "links"))
		snap := s.Snapshot()
		wantNodes := snap.Nodes()
		wantLinks := snap.Links()

		s.MergeExpansion(rapid.SampledFrom(ids).Draw(t, "origin"), rapid.SliceOf(propGen()).Draw(t, "props"), nil)
		if rapid.Bool().Draw(t, "clear") {
			s.Clear()
		}

		gotNodes := snap.Nodes()
		gotLinks := snap.Links()
		if len(gotNodes) != len(wantNodes) || len(gotLinks) != len(wantLinks) {
			t.Fatalf("snapshot size changed: nodes %d->%d links %d->%d",
				len(wantNodes), len(gotNodes), len(wantLinks), len(gotLinks))
		}
		for i := range wantNodes {
			if gotNodes[i] != wantNodes[i] {
				t.Fatalf("node %d changed: %+v -> %+v", i, wantNodes[i], gotNodes[i])
			}
		}
		for i := range wantLinks {
			if gotLinks[i] != wantLinks[i] {
				t.Fatalf("link %d changed: %+v -> %+v", i, wantLinks[i], gotLinks[i])
			}
		}
	})
}

func TestReplaceWithLaterDuplicateOverwrites(t *testing.T) {
	s := NewStore()
	s.ReplaceWith([]Node{
		{ID: "人参", Type: "植物", Color: "#4CAF50"},
		{ID: "五加科", Type: "科", Color: "#2196F3"},
		{ID: "人参", Type: "别名", Color: "#9C27B0"},
	}, []Link{
		{Source: "人参", Target: "五加科", Label: "属于科"},
		{Source: "人参", Target: "五加科", Label: "属于科"},
	})

	if s.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", s.Len())
	}
	n, _ := s.Node("人参")
	if n.Type != "别名" {
		t.Errorf("expected later duplicate to win, got type %q", n.Type)
	}
	if got := s.Nodes()[0].ID; got != "人参" {
		t.Errorf("expected first insertion position kept, got %q first", got)
	}
	if s.LinkCount() != 1 {
		t.Errorf("expected 1 link after dedup, got %d", s.LinkCount())
	}
}

func TestMergeExpansionDoesNotOverwrite(t *testing.T) {
	s := NewStore()
	s.ReplaceWith([]Node{{ID: "五加科", Type: "科", Color: "#2196F3"}}, nil)

	s.MergeExpansion("人参", []Property{
		{Predicate: "属于科", Object: "五加科"},
		{Predicate: "治疗", Object: "感冒"},
		{Predicate: "别名", Object: "棒槌"},
	}, map[string]NodeMeta{
		"五加科": {Type: "未知", Color: "#ccc"},
		"感冒":  {Type: "治疗", Color: ""},
	})

	fam, _ := s.Node("五加科")
	if fam.Type != "科" || fam.Color != "#2196F3" {
		t.Errorf("existing node metadata clobbered: %+v", fam)
	}
	cold, ok := s.Node("感冒")
	if !ok || cold.Type != "治疗" || cold.Color != DefaultColor {
		t.Errorf("unexpected new node: %+v (present=%v)", cold, ok)
	}
	alias, ok := s.Node("棒槌")
	if !ok || alias.Type != "" || alias.Color != DefaultColor {
		t.Errorf("expected fallback metadata, got %+v (present=%v)", alias, ok)
	}
	if s.LinkCount() != 3 {
		t.Errorf("expected 3 links, got %d", s.LinkCount())
	}
}

func TestDanglingLinksTolerated(t *testing.T) {
	s := NewStore()
	s.ReplaceWith(nil, []Link{{Source: "a", Target: "b", Label: "x"}})
	out, in := s.Neighbors("a")
	if len(out) != 1 || len(in) != 0 {
		t.Errorf("unexpected neighbours out=%v in=%v", out, in)
	}
	if s.Has("a") {
		t.Error("dangling endpoint should not materialise a node")
	}
}

func TestRestoreIsExact(t *testing.T) {
	s := NewStore()
	s.ReplaceWith([]Node{{ID: "a"}, {ID: "b"}}, []Link{{Source: "a", Target: "b", Label: "r"}})
	snap := s.Snapshot()

	s.MergeExpansion("a", []Property{{Predicate: "p", Object: "c"}}, nil)
	s.Restore(snap)

	if s.Len() != 2 || s.LinkCount() != 1 || s.Has("c") {
		t.Fatalf("restore not exact: nodes=%d links=%d", s.Len(), s.LinkCount())
	}
	if !snap.HasNode("a") || snap.HasNode("c") {
		t.Error("snapshot contents wrong")
	}
}

func TestLocalName(t *testing.T) {
	cases := map[string]string{
		"人参#功效":              "功效",
		"http://kg/植物#三七": "三七",
		"plain":              "plain",
	}
	for in, want := range cases {
		if got := LocalName(in); got != want {
			t.Errorf("LocalName(%q) = %q, want %q", in, got, want)
		}
	}
}
