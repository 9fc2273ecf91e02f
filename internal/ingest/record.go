package ingest

// Record is one data row keyed by column name, in header order.
// Records from one parse share their column slice and are never mutated.
type Record struct {
	cols  []string
	vals  []Value
	extra []string
}

// Columns returns the header names in file order.
func (r Record) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Get returns the value of a column, absent if the column does not exist.
func (r Record) Get(name string) Value {
	for i, c := range r.cols {
		if c == name {
			return r.vals[i]
		}
	}
	return Value{}
}

// At returns the column name and value at position i.
func (r Record) At(i int) (string, Value) { return r.cols[i], r.vals[i] }

// Extra holds cells beyond the header width.
func (r Record) Extra() []string {
	out := make([]string, len(r.extra))
	copy(out, r.extra)
	return out
}

// Map flattens the record into plain JSON-friendly values. Cells past the
// header width are kept under "__parsed_extra".
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.cols)+1)
	for i, c := range r.cols {
		m[c] = r.vals[i].Any()
	}
	if len(r.extra) > 0 {
		m[ExtraKey] = r.Extra()
	}
	return m
}

// ExtraKey is the Map key for cells beyond the header width.
const ExtraKey = "__parsed_extra"

// NewRecord builds a record from parallel column and value slices.
func NewRecord(cols []string, vals []Value) Record {
	return Record{cols: cols, vals: vals}
}

// Records is an ordered, immutable record collection.
type Records []Record

// Columns returns the header shared by the collection, nil when empty.
func (rs Records) Columns() []string {
	if len(rs) == 0 {
		return nil
	}
	return rs[0].Columns()
}
