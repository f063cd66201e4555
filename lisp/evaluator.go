// Package lisp evaluates golisp expressions for a repl.Session.
//
// Each Evaluator owns a symbol table frame below golisp.Global, so
// definitions made in one session are not visible to another. Output written
// with println inside an expression is reported line by line, followed by the
// printed value of the last form.
package lisp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/steelseries/golisp"

	"github.com/nao1215/repl"
)

// ErrUnexpectedEnd is reported when an unfinished expression is submitted
// with an empty last line.
var ErrUnexpectedEnd = errors.New("unexpected end of input")

var _ repl.Evaluator = (*Evaluator)(nil)

// golispMu serializes every use of golisp, whose symbol table is process-wide.
var golispMu sync.Mutex

// Evaluator is a repl.Evaluator backed by golisp. Submissions are evaluated
// one at a time, also across Evaluators.
type Evaluator struct {
	env *golisp.SymbolTableFrame
	out io.Writer // output of the evaluation in progress
}

// New creates an evaluator with its own environment frame named name.
func New(name string) (*Evaluator, error) {
	golispMu.Lock()
	defer golispMu.Unlock()

	e := &Evaluator{
		env: golisp.NewSymbolTableFrameBelow(golisp.Global, name),
		out: io.Discard,
	}

	primitives := []struct {
		name string
		body func(*golisp.Data, *golisp.SymbolTableFrame) (*golisp.Data, error)
	}{
		{"println", e.printlnImpl},
		{"print", e.printImpl},
		{"error", errorImpl},
	}
	for _, p := range primitives {
		pf := &golisp.PrimitiveFunction{
			Name:            p.name,
			Special:         false,
			ArgRestrictions: []golisp.ArgRestriction{{Type: golisp.ARGS_ANY}},
			IsRestricted:    false,
			Body:            p.body,
		}
		if _, err := e.env.BindLocallyTo(golisp.Intern(p.name), golisp.PrimitiveWithNameAndFunc(p.name, pf)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", p.name, err)
		}
	}
	return e, nil
}

// Submit evaluates text and reports the result to h.
//
// Blank text resets the session. Text with an unclosed list or string asks
// for continuation while hint is set and fails with ErrUnexpectedEnd once an
// empty line is entered. Everything else is evaluated, and the session is
// reset afterwards whether evaluation succeeded or not.
func (e *Evaluator) Submit(ctx context.Context, text string, hint bool, h repl.Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if strings.TrimSpace(text) == "" {
		h.SessionReset()
		return nil
	}

	if Incomplete(text) {
		if hint {
			h.ContinuationRequested()
			return nil
		}
		h.EvaluationError(ErrUnexpectedEnd.Error())
		h.SessionReset()
		return nil
	}

	w := repl.NewLineWriter(h)
	result, err := e.eval(text, w)
	w.Flush()

	if err != nil {
		h.EvaluationError(err.Error())
	} else if result != "" {
		h.OutputLine(result)
	}
	h.SessionReset()
	return nil
}

// LoadFile evaluates every form in path, for example an init file. Output
// written while loading is discarded.
func (e *Evaluator) LoadFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := e.eval(string(source), io.Discard); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// eval runs every form of text and returns the printed value of the last
// one. Nil values print as nothing.
func (e *Evaluator) eval(text string, out io.Writer) (string, error) {
	golispMu.Lock()
	defer golispMu.Unlock()

	e.out = out
	defer func() { e.out = io.Discard }()

	value, err := golisp.ParseAndEvalAllInEnvironment(text, e.env)
	if err != nil {
		return "", err
	}
	if value == nil || golisp.NilP(value) {
		return "", nil
	}
	return golisp.String(value), nil
}

func (e *Evaluator) printlnImpl(args *golisp.Data, _ *golisp.SymbolTableFrame) (*golisp.Data, error) {
	fmt.Fprintln(e.out, joinArgs(args))
	return golisp.EmptyCons(), nil
}

func (e *Evaluator) printImpl(args *golisp.Data, _ *golisp.SymbolTableFrame) (*golisp.Data, error) {
	fmt.Fprint(e.out, joinArgs(args))
	return golisp.EmptyCons(), nil
}

func errorImpl(args *golisp.Data, _ *golisp.SymbolTableFrame) (*golisp.Data, error) {
	if golisp.NilP(args) {
		return nil, errors.New("error")
	}
	return nil, errors.New(joinArgs(args))
}

// joinArgs displays each argument, strings without quotes, separated by
// spaces.
func joinArgs(args *golisp.Data) string {
	var parts []string
	for c := args; golisp.NotNilP(c); c = golisp.Cdr(c) {
		d := golisp.Car(c)
		if golisp.StringP(d) {
			parts = append(parts, golisp.StringValue(d))
			continue
		}
		parts = append(parts, golisp.String(d))
	}
	return strings.Join(parts, " ")
}
