package graphstate

import (
	"errors"
	"testing"
)

func TestHistoryGoBackAtFloor(t *testing.T) {
	h := NewHistory()
	s := NewStore()

	if _, err := h.GoBack(); !errors.Is(err, ErrAtFloor) {
		t.Fatalf("empty history: expected ErrAtFloor, got %v", err)
	}

	s.ReplaceWith([]Node{{ID: "人参"}}, nil)
	h.PushCurrent(s)

	if _, err := h.GoBack(); !errors.Is(err, ErrAtFloor) {
		t.Fatalf("expected ErrAtFloor, got %v", err)
	}
	if h.Len() != 1 {
		t.Errorf("floor must leave length unchanged, got %d", h.Len())
	}
}

func TestHistoryStepsBackLinearly(t *testing.T) {
	h := NewHistory()
	s := NewStore()

	s.ReplaceWith([]Node{{ID: "a"}}, nil)
	h.PushCurrent(s)
	s.MergeExpansion("a", []Property{{Predicate: "p", Object: "b"}}, nil)
	h.PushCurrent(s)
	s.MergeExpansion("b", []Property{{Predicate: "p", Object: "c"}}, nil)
	h.PushCurrent(s)

	snap, err := h.GoBack()
	if err != nil {
		t.Fatal(err)
	}
	if snap.NodeCount() != 2 || snap.HasNode("c") {
		t.Errorf("expected a,b; got %v", snap.Nodes())
	}
	if h.Len() != 2 {
		t.Errorf("expected len 2, got %d", h.Len())
	}

	snap, err = h.GoBack()
	if err != nil {
		t.Fatal(err)
	}
	if snap.NodeCount() != 1 || !snap.HasNode("a") {
		t.Errorf("expected only a; got %v", snap.Nodes())
	}

	if _, err := h.GoBack(); !errors.Is(err, ErrAtFloor) {
		t.Errorf("expected floor, got %v", err)
	}
	if h.Len() != 1 {
		t.Errorf("floor entry must remain, len=%d", h.Len())
	}
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory()
	s := NewStore()
	h.PushCurrent(s)
	h.PushCurrent(s)
	h.Reset()
	if h.Len() != 0 {
		t.Errorf("expected empty history after reset, got %d", h.Len())
	}
}
