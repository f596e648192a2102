package sanitizer

import (
	"reflect"
	"testing"
)

func TestNormalizeStringSlice(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "normalize and dedupe emails",
			input: []string{"A@x.io", " a@x.io ", "b@x.io"},
			want:  []string{"a@x.io", "b@x.io"},
		},
		{
			name:  "filter empty strings",
			input: []string{"a@x.io", "", "  "},
			want:  []string{"a@x.io"},
		},
		{
			name:  "empty input",
			input: []string{},
			want:  []string{},
		},
		{
			name:  "nil input",
			input: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeStringSlice(tt.input, NormalizeEmail)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeStringSlice(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDuplicateIndexes(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []int
	}{
		{
			name:  "case-insensitive duplicate",
			input: []string{"ada@x.io", "bob@x.io", "ADA@x.io"},
			want:  []int{2},
		},
		{
			name:  "every repeat reported",
			input: []string{"a@x.io", "a@x.io", "a@x.io"},
			want:  []int{1, 2},
		},
		{
			name:  "empty values ignored",
			input: []string{"", " ", "a@x.io"},
			want:  nil,
		},
		{
			name:  "no duplicates",
			input: []string{"a@x.io", "b@x.io"},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DuplicateIndexes(tt.input, NormalizeEmail)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DuplicateIndexes(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
