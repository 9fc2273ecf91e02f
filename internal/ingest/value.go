package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the type a cell was coerced to.
type Kind uint8

const (
	Absent Kind = iota
	Number
	Text
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	}
	return "absent"
}

// Value is one cell of a record: absent, a number or text.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Num returns a numeric value.
func Num(f float64) Value { return Value{kind: Number, num: f} }

// Str returns a textual value.
func Str(s string) Value { return Value{kind: Text, text: s} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == Absent }
func (v Value) IsNumber() bool { return v.kind == Number }

// Float returns the numeric value and whether the cell was a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == Number
}

// String returns the cell as text; numbers use the shortest exact form.
func (v Value) String() string {
	switch v.kind {
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Text:
		return v.text
	}
	return ""
}

// Any returns nil, float64 or string.
func (v Value) Any() any {
	switch v.kind {
	case Number:
		return v.num
	case Text:
		return v.text
	}
	return nil
}

// numericCell matches the cells that are coerced to numbers.
var numericCell = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// maxExact bounds coerced numbers to the range where float64 still holds
// every integer; larger literals stay textual.
var maxExact = math.Pow(2, 53)

// Coerce types a raw cell. Empty cells are absent.
func Coerce(cell string) Value {
	if cell == "" {
		return Value{}
	}
	if numericCell.MatchString(cell) {
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err == nil && f > -maxExact && f < maxExact {
			return Num(f)
		}
	}
	return Str(cell)
}
