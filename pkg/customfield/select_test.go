package customfield

import (
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func numPtr(n float64) *float64 { return &n }

func boolPtr(b bool) *bool { return &b }

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		encoded  string
		wantKey  string
		wantType string
	}{
		{encoded: "UF_CRM_1|boolean", wantKey: "UF_CRM_1", wantType: "boolean"},
		{encoded: "UF_CRM_1", wantKey: "UF_CRM_1", wantType: "string"},
		{encoded: "UF|CRM|date", wantKey: "UF|CRM", wantType: "date"},
		{encoded: "|number", wantKey: "", wantType: "number"},
		{encoded: "UF_X|", wantKey: "UF_X", wantType: ""},
	}

	for _, tt := range tests {
		t.Run(tt.encoded, func(t *testing.T) {
			key, typ := ParseIdentifier(tt.encoded)
			if key != tt.wantKey || typ != tt.wantType {
				t.Errorf("ParseIdentifier(%q) = (%q, %q), want (%q, %q)", tt.encoded, key, typ, tt.wantKey, tt.wantType)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantKey string
		wantVal any
		wantOK  bool
	}{
		{
			name:    "boolean true",
			in:      Input{FieldName: "UF_CRM_1|boolean", ValueBoolean: boolPtr(true)},
			wantKey: "UF_CRM_1", wantVal: "1", wantOK: true,
		},
		{
			name:    "boolean false",
			in:      Input{FieldName: "UF_CRM_1|boolean", ValueBoolean: boolPtr(false)},
			wantKey: "UF_CRM_1", wantVal: "0", wantOK: true,
		},
		{
			name:    "boolean unset falls back to value",
			in:      Input{FieldName: "UF_CRM_1|boolean", Value: "0"},
			wantKey: "UF_CRM_1", wantVal: "0", wantOK: true,
		},
		{
			name:    "number",
			in:      Input{FieldName: "UF_CRM_2|number", ValueNumber: numPtr(12.5), Value: "x"},
			wantKey: "UF_CRM_2", wantVal: 12.5, wantOK: true,
		},
		{
			name:    "number zero is a real value",
			in:      Input{FieldName: "UF_CRM_2|number", ValueNumber: numPtr(0), Value: "x"},
			wantKey: "UF_CRM_2", wantVal: float64(0), wantOK: true,
		},
		{
			name:    "date",
			in:      Input{FieldName: "UF_CRM_3|date", ValueDate: strPtr("2024-05-01")},
			wantKey: "UF_CRM_3", wantVal: "2024-05-01", wantOK: true,
		},
		{
			name:    "datetime empty falls back",
			in:      Input{FieldName: "UF_CRM_3|datetime", ValueDate: strPtr(""), Value: "2024-01-01T10:00:00"},
			wantKey: "UF_CRM_3", wantVal: "2024-01-01T10:00:00", wantOK: true,
		},
		{
			name:    "string",
			in:      Input{FieldName: "UF_CRM_4|string", ValueString: strPtr("hello"), Value: "ignored"},
			wantKey: "UF_CRM_4", wantVal: "hello", wantOK: true,
		},
		{
			name:    "enumeration treated as string with fallback",
			in:      Input{FieldName: "UF_CRM_5|enumeration", ValueString: strPtr(""), Value: "42"},
			wantKey: "UF_CRM_5", wantVal: "42", wantOK: true,
		},
		{
			name:    "no type suffix",
			in:      Input{FieldName: "UF_CRM_6", ValueString: strPtr("v")},
			wantKey: "UF_CRM_6", wantVal: "v", wantOK: true,
		},
		{
			name:   "empty identifier skipped",
			in:     Input{FieldName: "", Value: "x"},
			wantOK: false,
		},
		{
			name:   "empty decoded key skipped",
			in:     Input{FieldName: "|string", ValueString: strPtr("x")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, val, ok := Select(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
			if !reflect.DeepEqual(val, tt.wantVal) {
				t.Errorf("val = %#v, want %#v", val, tt.wantVal)
			}
		})
	}
}

func TestChoose_TypedVariant(t *testing.T) {
	c, ok := Choose(Input{FieldName: "UF_A|boolean", ValueBoolean: boolPtr(true)})
	if !ok || c.Typed == nil {
		t.Fatalf("Choose() = %+v, %v", c, ok)
	}
	if c.Typed.Kind != KindBool || !c.Typed.Bool {
		t.Errorf("Typed = %+v, want Bool(true)", *c.Typed)
	}

	c, ok = Choose(Input{FieldName: "UF_A|boolean", Value: "1"})
	if !ok || c.Typed != nil || c.Fallback != "1" {
		t.Errorf("fallback choice = %+v", c)
	}
}

func TestResolve(t *testing.T) {
	got := Resolve([]Input{
		{FieldName: "UF_A|boolean", ValueBoolean: boolPtr(true)},
		{FieldName: ""},
		{FieldName: "UF_B|number", ValueNumber: numPtr(3)},
		{FieldName: "UF_A|string", ValueString: strPtr("override")},
	})
	want := map[string]any{"UF_A": "override", "UF_B": float64(3)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestValue_Wire(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want any
	}{
		{name: "string", v: String("a"), want: "a"},
		{name: "number", v: Number(1.5), want: 1.5},
		{name: "bool true", v: Bool(true), want: "1"},
		{name: "bool false", v: Bool(false), want: "0"},
		{name: "date", v: Date("2024-01-01"), want: "2024-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Wire(); got != tt.want {
				t.Errorf("Wire() = %#v, want %#v", got, tt.want)
			}
		})
	}
	if Number(2).Text() != "2" {
		t.Errorf("Number(2).Text() = %q", Number(2).Text())
	}
}
