// Package condition evaluates the declarative routing rules attached to nodes.
//
// A node declares an ordered list of named conditions. Evaluate walks them in
// order and returns the first whose rule holds. A rule is one of:
//
//	"target"                       bare string: always matches, yields "target"
//	true / false                   boolean literal
//	[rule, rule, ...]              OR of sub-rules
//	{and: [...]} {or: [...]} {not: rule}
//	{field: "a.b", operator: "equals", value: x}
//
// Field paths are dotted lookups into the evaluation context; missing segments
// resolve to nil. Evaluation never panics: a failing rule is false and the
// next condition is tried.
package condition

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// Evaluator interprets condition rules. The zero value is not usable; call New.
// An Evaluator is stateless and safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for unknown operators and failed rules.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the next node named by the first matching condition.
func (e *Evaluator) Evaluate(conds []domain.Condition, ctx map[string]any) (string, bool) {
	for _, c := range conds {
		if s, ok := c.Rule.(string); ok {
			if target := strings.TrimSpace(s); target != "" {
				return target, true
			}
			continue
		}
		if e.safeMatch(c.Name, c.Rule, ctx) {
			return c.Name, true
		}
	}
	return "", false
}

// Match evaluates a single rule.
func (e *Evaluator) Match(rule any, ctx map[string]any) bool {
	return e.safeMatch("", rule, ctx)
}

func (e *Evaluator) safeMatch(name string, rule any, ctx map[string]any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Condition evaluation failed", "condition", name, "err", fmt.Sprint(r))
			ok = false
		}
	}()
	return e.match(rule, ctx)
}

func (e *Evaluator) match(rule any, ctx map[string]any) bool {
	switch r := rule.(type) {
	case nil:
		return false
	case bool:
		return r
	case string:
		return strings.TrimSpace(r) != ""
	case []any:
		for _, sub := range r {
			if e.match(sub, ctx) {
				return true
			}
		}
		return false
	case map[string]any:
		return e.matchObject(r, ctx)
	default:
		return false
	}
}

func (e *Evaluator) matchObject(r map[string]any, ctx map[string]any) bool {
	if subs, ok := r["and"]; ok {
		list, isList := subs.([]any)
		if !isList {
			return e.match(subs, ctx)
		}
		for _, sub := range list {
			if !e.match(sub, ctx) {
				return false
			}
		}
		return true
	}
	if subs, ok := r["or"]; ok {
		list, isList := subs.([]any)
		if !isList {
			return e.match(subs, ctx)
		}
		for _, sub := range list {
			if e.match(sub, ctx) {
				return true
			}
		}
		return false
	}
	if sub, ok := r["not"]; ok {
		return !e.match(sub, ctx)
	}

	field, _ := r["field"].(string)
	if strings.TrimSpace(field) == "" {
		return false
	}
	op, _ := r["operator"].(string)
	if op == "" {
		op = OpEquals
	}

	fn, ok := operators[normalizeOperator(op)]
	if !ok {
		e.logger.Warn("Unknown condition operator", "operator", op, "field", field)
		return false
	}
	return fn(Lookup(ctx, field), r["value"])
}

// Lookup resolves a dotted path in ctx. Any missing segment yields nil.
func Lookup(ctx map[string]any, path string) any {
	var cur any = ctx
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}
