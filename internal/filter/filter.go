// Package filter selects records with a CEL expression.
//
// Expressions see four variables:
//
//	label        int            relevance label
//	qid          int            group ID
//	features     list(double)   feature values in position order
//	description  string         trailing comment, "" when absent
//
// Example: `label > 0 || (qid == 3 && features[0] >= 0.5)`.
//
// Labels and group IDs above math.MaxInt64 do not fit CEL's int; a filter
// rejects such records with an invalid input error instead of matching them.
package filter

import (
	"fmt"
	"iter"
	"math"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/model"
)

var (
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func environment() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("label", cel.IntType),
			cel.Variable("qid", cel.IntType),
			cel.Variable("features", cel.ListType(cel.DoubleType)),
			cel.Variable("description", cel.StringType),
			cel.CrossTypeNumericComparisons(true),
		)
	})
	return celEnv, celEnvErr
}

// Filter is a compiled record predicate. A nil *Filter matches everything.
// Filters are safe for concurrent use.
type Filter struct {
	expr string
	prg  cel.Program
}

// Compile parses and type-checks expr. An empty expression yields a nil
// Filter. Expressions that fail to compile or do not produce a bool are
// configuration errors.
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := environment()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.NewConfigurationError("where", expr, issues.Err().Error())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.NewConfigurationError("where", expr, "expression must return bool, got "+ast.OutputType().String())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.NewConfigurationError("where", expr, err.Error())
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the expression for r.
func (f *Filter) Match(r model.Record) (bool, error) {
	if f == nil {
		return true, nil
	}

	if r.Label > math.MaxInt64 {
		return false, errors.NewValidationError("label", fmt.Sprintf("label %d of group %d is out of range for the where filter", r.Label, r.GroupID))
	}
	if r.GroupID > math.MaxInt64 {
		return false, errors.NewValidationError("qid", fmt.Sprintf("group id %d is out of range for the where filter", r.GroupID))
	}

	features := r.Features
	if features == nil {
		features = []float64{}
	}
	out, _, err := f.prg.Eval(map[string]any{
		"label":       int64(r.Label),
		"qid":         int64(r.GroupID),
		"features":    features,
		"description": r.Description,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q for group %d: %w", f.expr, r.GroupID, err)
	}

	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: expected bool, got %T", f.expr, out.Value())
	}
	return match, nil
}

// Seq returns seq restricted to matching records. Errors from seq or from
// evaluation are yielded and end the sequence.
func (f *Filter) Seq(seq iter.Seq2[model.Record, error]) iter.Seq2[model.Record, error] {
	if f == nil {
		return seq
	}
	return func(yield func(model.Record, error) bool) {
		for r, err := range seq {
			if err != nil {
				yield(r, err)
				return
			}
			ok, err := f.Match(r)
			if err != nil {
				yield(r, err)
				return
			}
			if ok && !yield(r, nil) {
				return
			}
		}
	}
}
