package customfield

import (
	"strings"
)

// Field types understood by the selector. Anything else is treated as string.
const (
	TypeString   = "string"
	TypeBoolean  = "boolean"
	TypeNumber   = "number"
	TypeDate     = "date"
	TypeDatetime = "datetime"
)

// ParseIdentifier splits "KEY|type" at the last '|'. Without a separator the
// whole input is the key and the type is "string".
func ParseIdentifier(encoded string) (key, fieldType string) {
	idx := strings.LastIndex(encoded, "|")
	if idx < 0 {
		return encoded, TypeString
	}
	return encoded[:idx], encoded[idx+1:]
}

// EncodeIdentifier is the inverse of ParseIdentifier.
func EncodeIdentifier(key, fieldType string) string {
	return key + "|" + fieldType
}

// Input is one row of the custom field collection. Typed inputs are nil when
// the host did not supply them; Value is the untyped fallback.
type Input struct {
	FieldName    string
	ValueString  *string
	ValueNumber  *float64
	ValueBoolean *bool
	ValueDate    *string
	Value        any
}

// Choice is the outcome of selecting a value for one input. Typed is set when
// a typed input was used; otherwise Fallback holds the generic value.
type Choice struct {
	Key      string
	Typed    *Value
	Fallback any
}

// Wire returns the value to send.
func (c Choice) Wire() any {
	if c.Typed != nil {
		return c.Typed.Wire()
	}
	return c.Fallback
}

// Choose decodes the identifier and picks the value input matching its type.
// ok is false when the row must be skipped: an empty identifier or an empty
// decoded key.
func Choose(in Input) (Choice, bool) {
	if in.FieldName == "" {
		return Choice{}, false
	}
	key, fieldType := ParseIdentifier(in.FieldName)
	if key == "" {
		return Choice{}, false
	}

	c := Choice{Key: key, Fallback: in.Value}
	switch fieldType {
	case TypeBoolean:
		if in.ValueBoolean != nil {
			v := Bool(*in.ValueBoolean)
			c.Typed = &v
		}
	case TypeNumber:
		if in.ValueNumber != nil {
			v := Number(*in.ValueNumber)
			c.Typed = &v
		}
	case TypeDate, TypeDatetime:
		if in.ValueDate != nil && *in.ValueDate != "" {
			v := Date(*in.ValueDate)
			c.Typed = &v
		}
	default:
		if in.ValueString != nil && *in.ValueString != "" {
			v := String(*in.ValueString)
			c.Typed = &v
		}
	}
	return c, true
}

// Select returns the field key and wire value of one input.
func Select(in Input) (key string, val any, ok bool) {
	c, ok := Choose(in)
	if !ok {
		return "", nil, false
	}
	return c.Key, c.Wire(), true
}

// Resolve builds the field map for a list of inputs. Later rows win on
// duplicate keys.
func Resolve(inputs []Input) map[string]any {
	out := make(map[string]any, len(inputs))
	for _, in := range inputs {
		if key, val, ok := Select(in); ok {
			out[key] = val
		}
	}
	return out
}
