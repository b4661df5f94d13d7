package server

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// DefaultMaxSuggestions caps autocomplete results.
const DefaultMaxSuggestions = 10

// NameIndex is the autocomplete list. It is swapped wholesale on reload so
// readers never see a partial list.
type NameIndex struct {
	names atomic.Pointer[[]string]
}

// NewNameIndex returns an index holding names.
func NewNameIndex(names []string) *NameIndex {
	idx := &NameIndex{}
	idx.Replace(names)
	return idx
}

// Replace swaps the indexed names.
func (n *NameIndex) Replace(names []string) {
	cp := append([]string(nil), names...)
	n.names.Store(&cp)
}

// Len returns the number of indexed names.
func (n *NameIndex) Len() int {
	if p := n.names.Load(); p != nil {
		return len(*p)
	}
	return 0
}

// Suggest returns up to max names matching q case-insensitively: names
// starting with q first, then names containing it, each in list order.
func (n *NameIndex) Suggest(q string, max int) []string {
	out := []string{}
	q = strings.ToLower(strings.TrimSpace(q))
	p := n.names.Load()
	if q == "" || p == nil {
		return out
	}
	if max <= 0 {
		max = DefaultMaxSuggestions
	}

	var contains []string
	for _, name := range *p {
		lc := strings.ToLower(name)
		switch {
		case strings.HasPrefix(lc, q):
			out = append(out, name)
		case strings.Contains(lc, q):
			contains = append(contains, name)
		}
	}
	out = append(out, contains...)
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// LoadNames reads the "name" column of a CSV file. Blank cells are skipped.
func LoadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	names, err := ReadNames(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return names, nil
}

// ReadNames parses CSV with a header row containing a "name" column.
func ReadNames(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == "name" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.New(`missing "name" column`)
	}

	var names []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col >= len(rec) {
			continue
		}
		if name := strings.TrimSpace(rec[col]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
