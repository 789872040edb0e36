// Package customfield turns user-defined (UF_*) field input into the values
// Bitrix24 accepts.
//
// Field pickers in the host UI encode the selected field as "KEY|type", for
// example "UF_CRM_1712|boolean". The type decides which of the typed inputs
// carries the value. Inside this package the chosen value is a tagged union
// so callers never re-inspect raw interface values.
package customfield

import "strconv"

// Kind tags the variant held by a Value.
type Kind int

const (
	// KindString holds free text in Str.
	KindString Kind = iota
	// KindNumber holds Num.
	KindNumber
	// KindBool holds Bool.
	KindBool
	// KindDate holds a date or datetime string in Date.
	KindDate
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// Value is a typed custom field value.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Date string
}

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Date returns a date value. d is passed to Bitrix24 as is.
func Date(d string) Value { return Value{Kind: KindDate, Date: d} }

// Wire returns the value in the form Bitrix24 expects: booleans as "1"/"0",
// numbers as JSON numbers, dates and strings as strings.
func (v Value) Wire() any {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "1"
		}
		return "0"
	case KindNumber:
		return v.Num
	case KindDate:
		return v.Date
	default:
		return v.Str
	}
}

// Text renders the value as display text.
func (v Value) Text() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		if s, ok := v.Wire().(string); ok {
			return s
		}
		return ""
	}
}
