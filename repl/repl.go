// Package repl SPDX-License-Identifier: Apache-2.0
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dil/grammar"
	"dil/internal/config"
	"dil/internal/driver"
	dilerrors "dil/internal/errors"
	"dil/internal/ir"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/peterh/liner"
)

const (
	PROMPT       = ">> "
	CONTINUATION = ".. "
	historyFile  = ".dil_history"
)

const helpText = `Statements are appended to the body of main and the graph is rebuilt.
  :graph        print the current graph of main again
  :load <file>  lower every function of a library and print the graphs
  :reset        forget all statements
  :quit         leave
`

// Session accumulates statements into the body of a synthetic main function.
type Session struct {
	cfg  *config.Config
	body []string
	last *driver.Report
}

func NewSession(cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Session{cfg: cfg}
}

// Source returns the library the session lowers with snippet appended.
func (s *Session) Source(snippet string) string {
	var b strings.Builder
	b.WriteString("library repl;\nfun main() {\n")
	for _, stmt := range s.body {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	if snippet != "" {
		b.WriteString(snippet)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// Eval lowers the session with snippet appended. The snippet is kept only
// when reading and lowering both succeed; the returned text is either the
// graphs or the formatted diagnostics.
func (s *Session) Eval(ctx context.Context, snippet string) (string, error) {
	source := s.Source(snippet)
	report, err := lowerSource(ctx, s.cfg, "<repl>", source)
	if err != nil {
		return "", err
	}
	s.body = append(s.body, snippet)
	s.last = report
	return render(report), nil
}

// Graph prints the graphs of the last successful evaluation.
func (s *Session) Graph() string {
	if s.last == nil {
		return ""
	}
	return render(s.last)
}

func (s *Session) Reset() {
	s.body = nil
	s.last = nil
}

// Load lowers a library file without touching the session.
func (s *Session) Load(ctx context.Context, path string) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	report, err := lowerSource(ctx, s.cfg, path, string(source))
	if err != nil {
		return "", err
	}
	return render(report), nil
}

// diagnosticsError carries already formatted diagnostics.
type diagnosticsError string

func (e diagnosticsError) Error() string { return string(e) }

func lowerSource(ctx context.Context, cfg *config.Config, filename, source string) (*driver.Report, error) {
	reporter := dilerrors.NewErrorReporter(filename, source)

	lib, diagnostics := grammar.Read(filename, source)
	if len(diagnostics) > 0 {
		var b strings.Builder
		for _, d := range diagnostics {
			b.WriteString(reporter.FormatError(d))
		}
		return nil, diagnosticsError(b.String())
	}

	table, err := driver.NewTable(cfg, lib)
	if err != nil {
		return nil, diagnosticsError(reporter.Report(err))
	}
	report, err := driver.New(table, nil, cfg).LowerAll(ctx)
	if err != nil {
		return nil, err
	}
	if failures := report.Failures(); len(failures) > 0 {
		var b strings.Builder
		for _, res := range failures {
			if lerr, ok := dilerrors.AsLowering(res.Err); ok {
				b.WriteString(reporter.FormatError(lerr.Diagnostic()))
			} else {
				b.WriteString(reporter.Report(res.Err))
			}
		}
		return nil, diagnosticsError(b.String())
	}
	return report, nil
}

func render(report *driver.Report) string {
	var b strings.Builder
	for _, res := range report.Results {
		p := ir.NewPrinter()
		p.PrintGraph(res.Graph)
		b.WriteString(p.String())
	}
	return b.String()
}

// Complete reports whether src has balanced brackets and no unterminated
// string, which is when the reader stops asking for more lines.
func Complete(src string) bool {
	lex, err := grammar.DilLexer.LexString("<repl>", src)
	if err != nil {
		return true
	}
	symbols := grammar.DilLexer.Symbols()

	depth := 0
	inString := 0
	for {
		token, err := lex.Next()
		if err != nil {
			// let the reader report it
			return true
		}
		if token.EOF() {
			break
		}
		switch token.Type {
		case symbols["StringStart"]:
			inString++
		case symbols["StringEnd"]:
			inString--
		case symbols["Operator"]:
			depth += bracketDelta(token)
		}
	}
	return depth <= 0 && inString == 0
}

func bracketDelta(token lexer.Token) int {
	switch token.Value {
	case "{", "(", "[":
		return 1
	case "}", ")", "]":
		return -1
	}
	return 0
}

// Start runs the interactive loop on the terminal until EOF or :quit.
func Start(out io.Writer, cfg *config.Config) {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	session := NewSession(cfg)
	ctx := context.Background()

	for {
		code, ok := read(ln)
		if !ok {
			fmt.Fprintln(out)
			break
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(code, ":") {
			if done := command(ctx, session, out, code); done {
				break
			}
			continue
		}

		text, err := session.Eval(ctx, code)
		if err != nil {
			fmt.Fprint(out, err.Error())
			continue
		}
		fmt.Fprint(out, text)
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
}

func command(ctx context.Context, session *Session, out io.Writer, line string) (exit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":help":
		fmt.Fprint(out, helpText)
	case ":quit", ":exit":
		return true
	case ":reset":
		session.Reset()
		fmt.Fprintln(out, "session reset.")
	case ":graph":
		fmt.Fprint(out, session.Graph())
	case ":load":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: :load <file>")
			return false
		}
		text, err := session.Load(ctx, fields[1])
		if err != nil {
			fmt.Fprintln(out, err.Error())
			return false
		}
		fmt.Fprint(out, text)
	default:
		fmt.Fprintln(out, "unknown command. Type :help for help.")
	}
	return false
}

// read collects lines until the input is complete. Ctrl+C drops the
// current input.
func read(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := PROMPT
		if b.Len() > 0 {
			prompt = CONTINUATION
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if Complete(b.String()) {
			return b.String(), true
		}
	}
}
