// Package engine evaluates scene scripts. Scripts are zygomys Lisp run in a
// sandbox; the DSL builtins declare nodes, trees, groups and objects and the
// result is a graph.Scene ready for export.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/vrexport/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger

	// Timeout bounds a single evaluation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Engine wraps the zygomys interpreter for scene evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	log     *slog.Logger
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine(opts Options) *Engine {
	e := &Engine{log: opts.Logger, timeout: opts.Timeout}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	return e
}

// Evaluate runs source and returns the scene it declares. The global
// symbol frame is bound to frame, so scripts can animate values.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string, frame int) (*graph.Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		s, evalErrs, err := e.evaluate(source, frame)
		ch <- evalResult{scene: s, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, e.timeout, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string, frame int) (*graph.Scene, []EvalError, error) {
	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return graph.NewScene(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder()
	registerBuiltins(env, b)

	// The binding shares the first line so reported line numbers match the
	// user's source.
	program := fmt.Sprintf("(def frame %d) ", frame) + preprocessSource(source)

	if err := env.LoadString(program); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	scene, err := b.finish()
	if err != nil {
		return nil, []EvalError{{Message: err.Error()}}, nil
	}
	for _, name := range b.unplaced() {
		e.log.Warn("engine: node is not part of any tree", "node", name)
	}
	e.log.Debug("engine: evaluated scene",
		"frame", frame,
		"entities", len(scene.Entities),
		"trees", len(b.trees))
	return scene, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
