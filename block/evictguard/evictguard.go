// Package evictguard compiles a CEL expression into an lrucache.Guard, so
// which resident pages are protected from eviction can be configured
// without a code change. It is grounded on sop/cel/cel.go's
// compile-once-evaluate-many Evaluator pattern, narrowed to the boolean
// "is this candidate evictable" predicate lrucache.Guard needs.
package evictguard

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"

	"github.com/go-betree/betree/lrucache"
)

// Evaluator compiles once and evaluates an arbitrary number of times
// against the (id, rank) pair of an eviction candidate. id is the resident
// page id under consideration; rank is its distance from the LRU tail (0
// is the least recently used).
type Evaluator struct {
	Expression string
	program    cel.Program
}

// Compile parses and type-checks expression, which must evaluate to a
// bool given the declared "id" and "rank" int variables. A pinned root
// page might use "id == 1", or a hot-tail policy "rank > 3".
func Compile(expression string) (*Evaluator, error) {
	if expression == "" {
		return nil, fmt.Errorf("evictguard: expression can't be empty")
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.IntType),
		cel.Variable("rank", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("evictguard: creating CEL environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("evictguard: compiling expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("evictguard: expression must evaluate to bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("evictguard: building program: %w", err)
	}
	return &Evaluator{Expression: expression, program: prg}, nil
}

// Evaluate reports whether the candidate at (id, rank) may be evicted.
func (e *Evaluator) Evaluate(id uint32, rank int) (bool, error) {
	out, _, err := e.program.Eval(map[string]any{
		"id":   int(id),
		"rank": rank,
	})
	if err != nil {
		return false, fmt.Errorf("evictguard: evaluating expression: %w", err)
	}
	nv, err := out.ConvertToNative(reflect.TypeOf(false))
	if err != nil {
		return false, fmt.Errorf("evictguard: converting result to bool: %w", err)
	}
	v, ok := nv.(bool)
	if !ok {
		return false, fmt.Errorf("evictguard: expression did not produce a bool")
	}
	return v, nil
}

// Guard adapts e into an lrucache.Guard. An evaluation error is treated as
// "protect the candidate": a broken policy should degrade towards keeping
// more pages resident, not towards silently evicting whatever is asked.
func (e *Evaluator) Guard() lrucache.Guard {
	return func(id uint32, rank int) bool {
		ok, err := e.Evaluate(id, rank)
		if err != nil {
			return false
		}
		return ok
	}
}
