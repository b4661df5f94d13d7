package reqgate

import (
	"testing"

	"pgregory.net/rapid"
)

func TestNewerTokenSupersedes(t *testing.T) {
	g := New()
	a := g.Mint(Info)
	b := g.Mint(Info)

	if g.IsCurrent(Info, a) {
		t.Error("older token should not be current")
	}
	if !g.IsCurrent(Info, b) {
		t.Error("newest token should be current")
	}
}

func TestCategoriesAreIndependent(t *testing.T) {
	g := New()
	info := g.Mint(Info)
	script := g.Mint(Script)

	if !g.IsCurrent(Info, info) || !g.IsCurrent(Script, script) {
		t.Fatal("tokens in distinct categories should both be current")
	}
	if g.IsCurrent(Script, info) {
		t.Error("token must not be current in a category it was not minted for")
	}
}

func TestClear(t *testing.T) {
	g := New()
	a := g.Mint(Generate)
	g.Clear(Generate)
	if g.IsCurrent(Generate, a) {
		t.Error("cleared token should be stale")
	}
	if _, ok := g.Current(Generate); ok {
		t.Error("expected no current token after clear")
	}

	b := g.Mint(Graph)
	c := g.Mint(Info)
	g.ClearAll()
	if g.IsCurrent(Graph, b) || g.IsCurrent(Info, c) {
		t.Error("ClearAll should invalidate every category")
	}
}

func TestZeroTokenNeverCurrent(t *testing.T) {
	g := New()
	var zero Token
	if g.IsCurrent(Info, zero) {
		t.Error("zero token must not be current")
	}
	g.Mint(Info)
	if g.IsCurrent(Info, zero) {
		t.Error("zero token must not be current after mint")
	}
	if zero.String() != "none" {
		t.Errorf("unexpected zero token string %q", zero.String())
	}
}

// At most one token per category is current, and it is always the last one minted.
func TestOnlyLastMintedIsCurrentProperty(t *testing.T) {
	cats := []Category{Graph, Info, Script, Generate}
	rapid.Check(t, func(t *rapid.T) {
		g := New()
		minted := make(map[Category][]Token)
		n := rapid.IntRange(1, 30).Draw(t, "n")
		for i := 0; i < n; i++ {
			c := rapid.SampledFrom(cats).Draw(t, "category")
			if rapid.IntRange(0, 5).Draw(t, "op") == 0 {
				g.Clear(c)
				minted[c] = append(minted[c], Token{})
				continue
			}
			minted[c] = append(minted[c], g.Mint(c))
		}
		for _, c := range cats {
			toks := minted[c]
			current := 0
			for i, tok := range toks {
				if g.IsCurrent(c, tok) {
					current++
					if i != len(toks)-1 {
						t.Fatalf("token %d of %d in %s is current", i, len(toks), c)
					}
				}
			}
			if current > 1 {
				t.Fatalf("%d current tokens in %s", current, c)
			}
		}
	})
}
