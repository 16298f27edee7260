// Package stream applies patterns to line-oriented input.
package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/KromDaniel/regmark/pkg/regmark"
	"github.com/KromDaniel/regmark/replace"
)

// LineFunc maps one input line to its output. The line includes its
// trailing '\n', if any, and so should the output. A nil or empty result
// drops the line.
type LineFunc func(line []byte) ([]byte, error)

// Lines returns an io.Reader that outputs fn applied to every line of r.
// The last line may lack a newline. The first error from fn or r ends the
// stream.
//
// Example - number every line:
//
//	n := 0
//	r := stream.Lines(input, func(line []byte) ([]byte, error) {
//	    n++
//	    return append([]byte(strconv.Itoa(n)+" "), line...), nil
//	})
//	io.Copy(os.Stdout, r)
func Lines(r io.Reader, fn LineFunc) io.Reader {
	return &lineReader{
		src: bufio.NewReaderSize(r, 4096),
		fn:  fn,
	}
}

// Grep returns an io.Reader that outputs the lines of r containing a match
// of p, or with invert the lines that contain none. The newline is not part
// of the text matched.
func Grep(r io.Reader, p *regmark.Pattern, invert bool) io.Reader {
	return Lines(r, func(line []byte) ([]byte, error) {
		if p.Match(trimNewline(line)) != invert {
			return line, nil
		}
		return nil, nil
	})
}

// Replace returns an io.Reader that outputs the lines of r with every match
// of p replaced by the expansion of template. The template is checked
// against p before any input is read.
func Replace(r io.Reader, p *regmark.Pattern, template string) (io.Reader, error) {
	tmpl, err := replace.Parse(template)
	if err != nil {
		return nil, err
	}
	if err := tmpl.Validate(p.GroupCount(), p.GroupNames()); err != nil {
		return nil, err
	}
	return Lines(r, func(line []byte) ([]byte, error) {
		text := trimNewline(line)
		out, err := p.ReplaceAllTemplate(string(text), tmpl)
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", text, err)
		}
		return append([]byte(out), line[len(text):]...), nil
	}), nil
}

func trimNewline(line []byte) []byte {
	return bytes.TrimSuffix(line, []byte("\n"))
}

// lineReader implements io.Reader for Lines.
type lineReader struct {
	src *bufio.Reader
	fn  LineFunc

	out []byte // pending output of the current line
	err error  // returned once out is drained
}

func (r *lineReader) Read(p []byte) (int, error) {
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		line, err := r.src.ReadBytes('\n')
		if len(line) > 0 {
			out, ferr := r.fn(line)
			if ferr != nil {
				r.err = ferr
				continue
			}
			r.out = out
		}
		if err != nil {
			r.err = err
		}
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}
