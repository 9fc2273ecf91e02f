// Package ingest turns a delimited text file with a header row into records.
//
// Parsing is deliberately forgiving: rows with too few or too many cells,
// stray quotes and non-numeric coordinates all come through as records.
// Only an unreadable stream fails a parse.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Extension is the only file extension offered by the import control.
const Extension = ".csv"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads the header and every non-empty data row of r.
func Parse(ctx context.Context, r io.Reader) (Records, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Records{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read header: %w", err)
	}
	cols := uniqueColumns(header)

	out := Records{}
	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read row %d: %w", n+1, err)
		}
		out = append(out, newRow(cols, row))
	}
	return out, nil
}

func newRow(cols, row []string) Record {
	vals := make([]Value, len(cols))
	for i := range cols {
		if i < len(row) {
			vals[i] = Coerce(row[i])
		}
	}
	rec := Record{cols: cols, vals: vals}
	if len(row) > len(cols) {
		rec.extra = append([]string(nil), row[len(cols):]...)
	}
	return rec
}

// uniqueColumns renames repeated header names to name_1, name_2, ...
func uniqueColumns(header []string) []string {
	cols := make([]string, len(header))
	used := make(map[string]bool, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if !used[name] {
			used[name] = true
			seen[name] = 1
			cols[i] = name
			continue
		}
		n := seen[name]
		alt := name + "_" + strconv.Itoa(n)
		for used[alt] {
			n++
			alt = name + "_" + strconv.Itoa(n)
		}
		seen[name] = n + 1
		used[alt] = true
		cols[i] = alt
	}
	return cols
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

// Result is the single outcome of an asynchronous parse.
type Result struct {
	Records Records
	Err     error
}

// Start parses r on its own goroutine. The returned channel yields exactly
// one Result once the whole input has been consumed, then closes.
func Start(ctx context.Context, r io.Reader) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		recs, err := Parse(ctx, r)
		ch <- Result{Records: recs, Err: err}
	}()
	return ch
}
