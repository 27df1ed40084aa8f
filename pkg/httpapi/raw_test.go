package httpapi

import "testing"

func TestEnsureFormatJSON(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "already has suffix",
			query: "SELECT 1 FORMAT JSON;",
			want:  "SELECT 1 FORMAT JSON;",
		},
		{
			name:  "bare trailing semicolon",
			query: "SELECT 1;",
			want:  "SELECT 1 FORMAT JSON;",
		},
		{
			name:  "multiple semicolons all get rewritten",
			query: "SELECT 1; SELECT 2;",
			want:  "SELECT 1 FORMAT JSON; SELECT 2 FORMAT JSON;",
		},
		{
			name:  "no semicolon at all",
			query: "SELECT 1",
			want:  "SELECT 1 FORMAT JSON;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ensureFormatJSON(tt.query)
			if got != tt.want {
				t.Errorf("ensureFormatJSON(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
