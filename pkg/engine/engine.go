// Package engine evaluates scene scripts. A scene script is a small Lisp
// program, run by zygomys in a sandbox, that declares the root region, the
// point set and the construction options for a partition tree.
package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/bspgrid/pkg/spatial"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ErrNoRegion is returned by Scene.Build when the script declared no region.
var ErrNoRegion = errors.New("scene has no region")

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

// Scene is the output of a scene script.
type Scene struct {
	Root    *spatial.Region // nil when the script declares no region
	Points  []spatial.Point
	Options spatial.Options
}

// Empty reports whether the scene declares nothing to partition.
func (s *Scene) Empty() bool {
	return s.Root == nil && len(s.Points) == 0
}

// Build partitions the scene's points.
func (s *Scene) Build() (*spatial.Tree, error) {
	if s.Root == nil {
		return nil, ErrNoRegion
	}
	return spatial.BuildWithOptions(*s.Root, s.Points, s.Options)
}

// Engine wraps the zygomys interpreter for scene evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	defaults   spatial.Options
	timeout    time.Duration
}

// NewEngine creates an Engine with spatial.DefaultOptions and EvalTimeout.
func NewEngine() *Engine {
	return &Engine{
		defaults: spatial.DefaultOptions(),
		timeout:  EvalTimeout,
	}
}

// SetDefaults sets the options a scene starts from before its directives
// are applied.
func (e *Engine) SetDefaults(opts spatial.Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaults = opts
}

// SetTimeout sets the evaluation limit. Non-positive values restore EvalTimeout.
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d <= 0 {
		d = EvalTimeout
	}
	e.timeout = d
}

// Evaluate runs a scene script and returns the scene it declares.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	defaults := e.defaults
	timeout := e.timeout
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		scene, evalErrs, err := evaluate(source, defaults)
		ch <- evalResult{scene: scene, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, timeout)
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func evaluate(source string, defaults spatial.Options) (*Scene, []EvalError, error) {
	scene := &Scene{Options: defaults}

	// Empty source is a valid program that declares an empty scene.
	if strings.TrimSpace(source) == "" {
		return scene, nil, nil
	}

	// Sandbox mode prevents scripts from reaching the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	var builtinErr error
	registerBuiltins(env, scene, &builtinErr)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		evalErrs := parseZygomysError(err)
		if builtinErr != nil {
			evalErrs[0].Message = builtinErr.Error()
		}
		return nil, evalErrs, nil
	}

	return scene, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting a line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
