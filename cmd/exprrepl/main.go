package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"exprc/pkg/compiler"
	"exprc/pkg/utils"
)

const (
	banner = "exprc REPL. Enter an arithmetic expression, :help for commands."
	prompt = "expr> "
)

var commands = []string{":asm", ":ast", ":help", ":quit"}

// session holds the REPL toggles and evaluates one line at a time.
type session struct {
	out, errOut io.Writer
	showAsm     bool
	showAST     bool
}

// handle processes one input line. It returns false when the session should
// end.
func (s *session) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	if strings.HasPrefix(line, ":") {
		switch strings.ToLower(line) {
		case ":quit", ":q":
			return false
		case ":asm":
			s.showAsm = !s.showAsm
			fmt.Fprintf(s.out, "assembly output %s\n", onOff(s.showAsm))
		case ":ast":
			s.showAST = !s.showAST
			fmt.Fprintf(s.out, "AST output %s\n", onOff(s.showAST))
		case ":help":
			fmt.Fprintln(s.out, "commands: :asm toggles assembly, :ast toggles the tree, :quit exits")
		default:
			fmt.Fprintf(s.errOut, "unknown command %s. Type :help for commands.\n", line)
		}
		return true
	}

	s.eval(line)
	return true
}

func (s *session) eval(src string) {
	if s.showAST {
		if tree, err := compiler.ParseExpr(src); err == nil {
			fmt.Fprintln(s.out, tree)
		}
	}

	res, err := compiler.Run(src)
	if res != nil && s.showAsm {
		fmt.Fprint(s.out, res.Assembly)
	}
	if err != nil {
		compiler.Report(s.errOut, err)
		return
	}
	fmt.Fprintln(s.out, res.Value)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func complete(line string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// historyWriter is the part of *liner.State that saveHistory needs.
type historyWriter interface {
	WriteHistory(w io.Writer) (int, error)
}

// saveHistory writes the line history to path, replacing the file.
func saveHistory(h historyWriter, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := h.WriteHistory(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	fmt.Println(banner)

	histPath := utils.HistoryPath()

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(complete)

	defer func() {
		if err := saveHistory(ln, histPath); err != nil {
			log.Printf("could not save history: %v", err)
		}
	}()

	// Ctrl-C at the prompt only aborts the line; a signal delivered while
	// liner is not reading still ends the session with its history saved.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		if err := saveHistory(ln, histPath); err != nil {
			log.Printf("could not save history: %v", err)
		}
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := &session{out: os.Stdout, errOut: os.Stderr}
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("read error: %v", err)
			}
			fmt.Println()
			return
		}

		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if !s.handle(line) {
			return
		}
	}
}
