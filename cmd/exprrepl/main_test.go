package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newTestSession() (*session, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &session{out: &out, errOut: &errOut}, &out, &errOut
}

func TestSessionEvaluates(t *testing.T) {
	s, out, errOut := newTestSession()
	for _, line := range []string{"1+2*3", "  ", "(1+2)*3"} {
		if !s.handle(line) {
			t.Fatalf("handle(%q) ended the session", line)
		}
	}
	if got := out.String(); got != "7\n9\n" {
		t.Errorf("output = %q, want %q", got, "7\n9\n")
	}
	if errOut.Len() != 0 {
		t.Errorf("unexpected errors: %q", errOut.String())
	}
}

func TestSessionErrors(t *testing.T) {
	s, out, errOut := newTestSession()
	s.handle("1+a")
	s.handle("1/0")
	if out.Len() != 0 {
		t.Errorf("unexpected output: %q", out.String())
	}
	got := errOut.String()
	if !strings.Contains(got, "1+a\n  ^ unexpected character 'a'\n") {
		t.Errorf("missing caret diagnostic:\n%s", got)
	}
	if !strings.Contains(got, "divide by zero") {
		t.Errorf("missing runtime fault:\n%s", got)
	}
}

func TestSessionToggles(t *testing.T) {
	s, out, _ := newTestSession()
	s.handle(":asm")
	s.handle(":ast")
	s.handle("1+2")
	got := out.String()
	for _, want := range []string{"assembly output on", "AST output on", "(1 + 2)", "    add rax, rdi", "3\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	out.Reset()
	s.handle(":ASM")
	s.handle("4")
	if strings.Contains(out.String(), "push") {
		t.Errorf("assembly still shown after toggling off:\n%s", out.String())
	}
}

func TestSessionCommands(t *testing.T) {
	s, out, errOut := newTestSession()
	if !s.handle(":help") {
		t.Errorf(":help ended the session")
	}
	if !strings.Contains(out.String(), ":quit") {
		t.Errorf(":help output = %q", out.String())
	}
	s.handle(":nope")
	if !strings.Contains(errOut.String(), "unknown command :nope") {
		t.Errorf("unknown command not reported: %q", errOut.String())
	}
	if s.handle(":quit") {
		t.Errorf(":quit did not end the session")
	}
}

func TestComplete(t *testing.T) {
	if got := complete(":a"); !reflect.DeepEqual(got, []string{":asm", ":ast"}) {
		t.Errorf("complete(:a) = %v", got)
	}
	if got := complete("1+"); got != nil {
		t.Errorf("complete(1+) = %v, want nil", got)
	}
}

type fakeHistory struct {
	lines []string
}

func (h *fakeHistory) WriteHistory(w io.Writer) (int, error) {
	n := 0
	for _, l := range h.lines {
		m, err := io.WriteString(w, l+"\n")
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func TestSaveHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".exprc_history")
	if err := os.WriteFile(path, []byte("stale\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := &fakeHistory{lines: []string{"1+2", "-5"}}
	if err := saveHistory(h, path); err != nil {
		t.Fatalf("saveHistory failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("history not written: %v", err)
	}
	if string(data) != "1+2\n-5\n" {
		t.Errorf("history file = %q", data)
	}

	if err := saveHistory(h, filepath.Join(t.TempDir(), "missing", "dir", "hist")); err == nil {
		t.Errorf("expected error for unwritable path")
	}
}
