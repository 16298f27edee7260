package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/KromDaniel/regmark/pkg/regmark"
	"github.com/KromDaniel/regmark/replace"
)

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.String()
}

func TestLines(t *testing.T) {
	upper := func(line []byte) ([]byte, error) { return bytes.ToUpper(line), nil }
	drop := func(line []byte) ([]byte, error) { return nil, nil }

	tests := []struct {
		name     string
		input    string
		fn       LineFunc
		expected string
	}{
		{"transform every line", "ab\ncd\n", upper, "AB\nCD\n"},
		{"drop every line", "ab\ncd\n", drop, ""},
		{"empty input", "", upper, ""},
		{"single line without newline", "single line", upper, "SINGLE LINE"},
		{"empty lines", "\n\nx\n", upper, "\n\nX\n"},
		{
			name:  "expand lines",
			input: "a\nb\n",
			fn: func(line []byte) ([]byte, error) {
				return append(append([]byte{}, line...), line...), nil
			},
			expected: "a\na\nb\nb\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, Lines(strings.NewReader(tt.input), tt.fn))
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLinesPartialReads(t *testing.T) {
	r := Lines(strings.NewReader("line1\nline2\nline3\n"), func(line []byte) ([]byte, error) {
		if bytes.Contains(line, []byte("2")) {
			return line, nil
		}
		return nil, nil
	})

	// Read one byte at a time
	var result bytes.Buffer
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			result.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if result.String() != "line2\n" {
		t.Errorf("expected %q, got %q", "line2\n", result.String())
	}
}

func TestLinesError(t *testing.T) {
	boom := errors.New("boom")
	r := Lines(strings.NewReader("ok\nbad\nnever\n"), func(line []byte) ([]byte, error) {
		if bytes.HasPrefix(line, []byte("bad")) {
			return nil, boom
		}
		return line, nil
	})

	var buf bytes.Buffer
	_, err := io.Copy(&buf, r)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if buf.String() != "ok\n" {
		t.Errorf("expected %q before the error, got %q", "ok\n", buf.String())
	}
}

func TestGrep(t *testing.T) {
	input := "INFO: starting\nERROR: failed 42\nINFO: done\nERROR: another\n"

	tests := []struct {
		pattern  string
		invert   bool
		expected string
	}{
		{`^ERROR`, false, "ERROR: failed 42\nERROR: another\n"},
		{`^ERROR`, true, "INFO: starting\nINFO: done\n"},
		{`\d+$`, false, "ERROR: failed 42\n"},
		{`done$`, false, "INFO: done\n"},
		{`(?M<1>WARN)`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p := regmark.MustCompile(tt.pattern)
			got := readAll(t, Grep(strings.NewReader(input), p, tt.invert))
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestGrepLargeInput(t *testing.T) {
	var input strings.Builder
	for i := 0; i < 10000; i++ {
		if i%100 == 0 {
			input.WriteString("KEEP: important line\n")
		} else {
			input.WriteString("skip: boring line\n")
		}
	}

	got := readAll(t, Grep(strings.NewReader(input.String()), regmark.MustCompile(`^KEEP`), false))
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
}

func TestReplace(t *testing.T) {
	p := regmark.MustCompile(`(?P<user>\w+)@(\w+)`)
	r, err := Replace(strings.NewReader("to bob@host\nnone\nx@y and a@b"), p, "${2}:$user")
	if err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	got := readAll(t, r)
	expected := "to host:bob\nnone\ny:x and b:a"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestReplaceErrors(t *testing.T) {
	p := regmark.MustCompile(`(a)`)

	if _, err := Replace(strings.NewReader(""), p, "$2"); !errors.Is(err, replace.ErrUnknownGroup) {
		t.Errorf("expected ErrUnknownGroup, got %v", err)
	}
	if _, err := Replace(strings.NewReader(""), p, "${1"); !errors.Is(err, replace.ErrSyntax) {
		t.Errorf("expected ErrSyntax, got %v", err)
	}

	budget, err := regmark.CompileOptions(`(a|aa)*b`, regmark.Options{MaxSteps: 50})
	if err != nil {
		t.Fatal(err)
	}
	r, err := Replace(strings.NewReader(strings.Repeat("a", 200)+"\n"), budget, "x")
	if err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	if _, err := io.Copy(io.Discard, r); !errors.Is(err, regmark.ErrStepBudget) {
		t.Errorf("expected ErrStepBudget, got %v", err)
	}
}
