package translate

import "testing"

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hola mundo", "hola mundo"},
		{"whitespace", "  hola mundo \n", "hola mundo"},
		{"fenced", "```\nhola mundo\n```", "hola mundo"},
		{"fenced with tag", "```text\nhola mundo\n```", "hola mundo"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
