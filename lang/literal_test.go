package lang

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", 42},
		{"-7", -7},
		{"1_000", 1000},
		{"2.5", 2.5},
		{"1e3", 1000.0},
		{`"hi"`, "hi"},
		{`'it\'s'`, "it's"},
		{`"a\nb"`, "a\nb"},
		{"true", true},
		{"False", false},
		{"null", nil},
		{"None", nil},
		{"[]", []any{}},
		{"[1, 'a', [true]]", []any{1, "a", []any{true}}},
		{"{}", map[string]any{}},
		{"{a: 1, 'b c': [2], 3: null}", map[string]any{"a": 1, "b c": []any{2}, "3": nil}},
		{"  [1, 2,]  ", []any{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLiteral(tt.in)
			if err != nil {
				t.Fatalf("ParseLiteral(%q) error = %v", tt.in, err)
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLiteral(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLiteral_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"x", ErrLiteral},
		{"2 + 3", ErrTrailingSource},
		{"[1, 2", ErrUnbalanced},
		{"{a 1}", ErrLiteral},
		{`"open`, ErrUnterminated},
		{"-", ErrLiteral},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if _, err := ParseLiteral(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("ParseLiteral(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}
