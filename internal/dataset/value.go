package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the dynamic type of a Value
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindDate
)

// String returns the kind name used in diagnostics
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a single typed cell. Integers and floats share KindNumber.
type Value struct {
	kind Kind
	num  float64
	str  string
	date time.Time
}

// Null returns the missing value
func Null() Value {
	return Value{}
}

// Number wraps a float. NaN is stored as null so that undefined
// results (such as a division by zero) behave like missing data.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// String wraps a string
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Date wraps a calendar date
func Date(t time.Time) Value {
	return Value{kind: KindDate, date: t}
}

// Kind returns the value kind
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is missing
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber reports whether the value is numeric
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Float returns the numeric payload and whether the value is numeric
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Time returns the date payload and whether the value is a date
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.date, true
}

// Text returns the raw string payload. For non-string kinds it returns the
// rendered form, which keeps grouping keys stable across kinds.
func (v Value) Text() string {
	if v.kind == KindString {
		return v.str
	}
	return v.String()
}

// String renders the value for output. Whole numbers render without a
// fractional part; dates render as YYYY-MM-DD when they carry no clock time.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatFloat(v.num, 'f', 0, 64)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	case KindDate:
		if v.date.Hour() == 0 && v.date.Minute() == 0 && v.date.Second() == 0 && v.date.Nanosecond() == 0 {
			return v.date.Format("2006-01-02")
		}
		return v.date.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Equal reports cell equality. Two nulls are equal, which is what
// duplicate detection needs.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindDate:
		return v.date.Equal(o.date)
	default:
		return true
	}
}

// Compare orders values: nulls first, then numbers, strings and dates.
// Within a kind the natural order applies.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNumber:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(v.str, o.str)
	case KindDate:
		return v.date.Compare(o.date)
	default:
		return 0
	}
}

// key is a kind-qualified string used for hashing rows and groups
func (v Value) key() string {
	switch v.kind {
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return "s:" + v.str
	case KindDate:
		return "d:" + v.date.UTC().Format(time.RFC3339Nano)
	default:
		return "0:"
	}
}

// Key joins the hash keys of several values. It is used for grouping rows
// by one or more columns.
func Key(values ...Value) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(v.key())
	}
	return b.String()
}

var nullTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
}

// ParseCell infers the value of a raw text cell. Null tokens become null,
// anything strconv accepts as a float becomes a number and the rest stays a
// string. Dates are left as strings; the derivation stage parses them.
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, ok := nullTokens[strings.ToLower(s)]; ok {
		return Null()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsInf(f, 0) {
			return String(s)
		}
		return Number(f)
	}
	return String(s)
}
