package kgstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ImportOptions controls ImportTSV.
type ImportOptions struct {
	Replace   bool // delete existing triples first
	BatchSize int  // rows per transaction; 0 uses 5000
}

// ImportTSV reads tab-separated subject, predicate, object rows and appends
// them to the store. Blank lines and lines starting with '#' are skipped; a
// header row "s p o" (or "subject predicate object") is ignored. It returns
// the number of triples written.
func (s *Store) ImportTSV(ctx context.Context, r io.Reader, opts ImportOptions) (int, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5000
	}

	if opts.Replace {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM triples`); err != nil {
			return 0, fmt.Errorf("clear triples: %w", err)
		}
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var (
		batch []Triple
		total int
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.Insert(ctx, batch...); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read tsv: %w", err)
		}
		line++
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 3 {
			l, _ := cr.FieldPos(0)
			return total, fmt.Errorf("line %d: want 3 fields, got %d", l, len(rec))
		}
		t := Triple{
			S: strings.TrimSpace(rec[0]),
			P: strings.TrimSpace(rec[1]),
			O: strings.TrimSpace(strings.Join(rec[2:], "\t")),
		}
		if line == 1 && isHeader(t) {
			continue
		}
		if t.S == "" || t.P == "" {
			l, _ := cr.FieldPos(0)
			return total, fmt.Errorf("line %d: empty subject or predicate", l)
		}
		batch = append(batch, t)
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func isHeader(t Triple) bool {
	h := strings.ToLower(t.S + " " + t.P + " " + t.O)
	return h == "s p o" || h == "subject predicate object"
}
