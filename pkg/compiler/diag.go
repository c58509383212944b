package compiler

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrorKind classifies a Diagnostic.
type ErrorKind int

const (
	UsageError ErrorKind = iota
	TokenizeError
	ParseError
)

func (k ErrorKind) String() string {
	switch k {
	case UsageError:
		return "usage error"
	case TokenizeError:
		return "tokenize error"
	case ParseError:
		return "parse error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Diagnostic is an error tied to a byte offset in the source expression.
type Diagnostic struct {
	Kind   ErrorKind
	Pos    int
	Msg    string
	Source string
}

func newDiagnostic(kind ErrorKind, src string, pos int, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...), Source: src}
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", d.Kind, d.Pos, d.Msg)
}

// Render returns the source line holding Pos, a caret under the offending
// column and the message:
//
//	1+a
//	  ^ unexpected character 'a'
//
// Tabs before the offending column are copied into the padding so the caret
// lines up however the terminal expands them.
func (d *Diagnostic) Render() string {
	pos := d.Pos
	if pos < 0 {
		pos = 0
	}
	if pos > len(d.Source) {
		pos = len(d.Source)
	}

	lineStart := strings.LastIndexByte(d.Source[:pos], '\n') + 1
	lineEnd := len(d.Source)
	if i := strings.IndexByte(d.Source[pos:], '\n'); i >= 0 {
		lineEnd = pos + i
	}
	line := strings.TrimRight(d.Source[lineStart:lineEnd], "\r")

	var pad strings.Builder
	for _, r := range d.Source[lineStart:pos] {
		if r == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	return fmt.Sprintf("%s\n%s^ %s", line, pad.String(), d.Msg)
}

// Report writes err to w: the caret rendering for a *Diagnostic anywhere in
// the chain, the plain error text otherwise.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		fmt.Fprintln(w, d.Render())
		return
	}
	fmt.Fprintln(w, err)
}
