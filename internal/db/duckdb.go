// Package db exposes a loaded record set as a DuckDB table for ad-hoc SQL.
//
// Every query runs against a fresh in-memory database holding a single
// table named records. Nothing is written to disk.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-csvmap/internal/ingest"
)

// Table is the name the records are queried under.
const Table = "records"

// IndexColumn holds each row's record index.
const IndexColumn = "_row"

// Column types.
const (
	TypeDouble  = "DOUBLE"
	TypeVarchar = "VARCHAR"
)

// Result holds the rows of one query.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Open creates an in-memory database with recs loaded into the records table.
func Open(ctx context.Context, recs ingest.Records) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("db: open duckdb: %w", err)
	}
	// one connection so the in-memory database is shared by every statement
	conn.SetMaxOpenConns(1)
	if err := load(ctx, conn, recs); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ColumnTypes picks DOUBLE for columns whose present cells are all numbers
// and VARCHAR for everything else.
func ColumnTypes(recs ingest.Records) []string {
	cols := recs.Columns()
	types := make([]string, len(cols))
	for i := range cols {
		types[i] = TypeDouble
		for _, r := range recs {
			_, v := r.At(i)
			if !v.IsAbsent() && !v.IsNumber() {
				types[i] = TypeVarchar
				break
			}
		}
	}
	return types
}

func load(ctx context.Context, conn *sql.DB, recs ingest.Records) error {
	cols := recs.Columns()
	types := ColumnTypes(recs)
	names := SQLNames(cols)

	defs := make([]string, len(names))
	defs[0] = quoteIdent(names[0]) + " BIGINT"
	for i := range cols {
		defs[i+1] = quoteIdent(names[i+1]) + " " + types[i]
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", Table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("db: create table: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", Table, marks))
	if err != nil {
		return fmt.Errorf("db: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols)+1)
	for n, r := range recs {
		args[0] = int64(n)
		for i := range cols {
			_, v := r.At(i)
			args[i+1] = cellArg(v, types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("db: insert row %d: %w", n, err)
		}
	}
	return tx.Commit()
}

// SQLNames returns the table's column names: the index column followed by
// one name per header. DuckDB folds identifier case, so names that collide
// case-insensitively get a numeric suffix; blank headers become column_N.
func SQLNames(cols []string) []string {
	names := make([]string, 0, len(cols)+1)
	used := make(map[string]bool, len(cols)+1)
	claim := func(base string) {
		name := base
		for n := 1; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[strings.ToLower(name)] = true
		names = append(names, name)
	}
	claim(IndexColumn)
	for i, c := range cols {
		if strings.TrimSpace(c) == "" {
			c = fmt.Sprintf("column_%d", i+1)
		}
		claim(c)
	}
	return names
}

func cellArg(v ingest.Value, typ string) any {
	if v.IsAbsent() {
		return nil
	}
	if typ == TypeDouble {
		f, _ := v.Float()
		return f
	}
	return v.String()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Query runs q against recs and collects every row.
func Query(ctx context.Context, recs ingest.Records, q string) (*Result, error) {
	conn, err := Open(ctx, recs)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("db: query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("db: columns: %w", err)
	}

	res := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("db: scan: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: rows: %w", err)
	}
	return res, nil
}
