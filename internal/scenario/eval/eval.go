// Package eval compiles and evaluates the boolean trigger conditions used by
// expression-based effect generators.
package eval

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Compiled is a validated, type-checked condition. It is safe for concurrent
// use; every evaluation runs on its own VM.
type Compiled struct {
	Source  string
	program *vm.Program
}

// Compile validates cond and type-checks it against env, whose keys are the
// only variables the condition may reference. An empty condition always holds.
func Compile(cond string, env map[string]any) (*Compiled, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return &Compiled{}, nil
	}

	if err := Validate(cond); err != nil {
		return nil, err
	}

	program, err := expr.Compile(cond, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", cond, err)
	}

	return &Compiled{Source: cond, program: program}, nil
}

// Eval runs the compiled condition against vars.
func (c *Compiled) Eval(vars map[string]any) (bool, error) {
	if c == nil || c.program == nil {
		return true, nil
	}

	out, err := expr.Run(c.program, vars)
	if err != nil {
		return false, err
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("cond must evaluate to bool (got %T)", out)
	}

	return b, nil
}

// Eval compiles and runs cond in one step. Prefer Compile for conditions that
// are evaluated repeatedly.
func Eval(cond string, vars map[string]any) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return true, nil
	}

	if err := Validate(cond); err != nil {
		return false, err
	}

	out, err := expr.Eval(cond, vars)
	if err != nil {
		return false, err
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("cond must evaluate to bool (got %T)", out)
	}

	return b, nil
}
