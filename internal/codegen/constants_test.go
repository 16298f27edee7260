package codegen

import (
	"testing"

	"github.com/KromDaniel/regmark/prog"
)

func TestProgramName(t *testing.T) {
	if got := ProgramName("Email"); got != "EmailProgram" {
		t.Errorf("ProgramName(Email) = %q, want EmailProgram", got)
	}
}

func TestUpperFirst(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"a", "A"},
		{"abc", "Abc"},
		{"Hello", "Hello"},
		{"_x", "_x"},
		{"éa", "éa"},
	}

	for _, tt := range tests {
		got := UpperFirst(tt.input)
		if got != tt.want {
			t.Errorf("UpperFirst(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestOpIdentsComplete(t *testing.T) {
	for op := prog.InstFail; op <= prog.InstMatch; op++ {
		if opIdents[op] == "" {
			t.Errorf("no identifier for %v", op)
		}
	}
}
