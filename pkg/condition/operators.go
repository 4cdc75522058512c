package condition

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Operator names.
const (
	OpEquals        = "equals"
	OpNotEquals     = "not_equals"
	OpGreaterThan   = "greater_than"
	OpLessThan      = "less_than"
	OpContains      = "contains"
	OpNotContains   = "not_contains"
	OpRegexMatch    = "regex_match"
	OpExists        = "exists"
	OpNotExists     = "not_exists"
	OpInList        = "in_list"
	OpNotInList     = "not_in_list"
	OpLengthEquals  = "length_equals"
	OpLengthGreater = "length_greater"
	OpLengthLess    = "length_less"
	OpIsEmpty       = "is_empty"
	OpIsNotEmpty    = "is_not_empty"
)

type operatorFunc func(field, value any) bool

var operators = map[string]operatorFunc{
	OpEquals:      looseEqual,
	OpNotEquals:   func(f, v any) bool { return !looseEqual(f, v) },
	OpGreaterThan: func(f, v any) bool { return compare(f, v, func(a, b float64) bool { return a > b }) },
	OpLessThan:    func(f, v any) bool { return compare(f, v, func(a, b float64) bool { return a < b }) },
	OpContains:    contains,
	OpNotContains: func(f, v any) bool { return !contains(f, v) },
	OpRegexMatch:  regexMatch,
	OpExists:      func(f, _ any) bool { return f != nil },
	OpNotExists:   func(f, _ any) bool { return f == nil },
	OpInList: func(f, v any) bool {
		list, ok := asList(v)
		return ok && inList(f, list)
	},
	OpNotInList: func(f, v any) bool {
		list, ok := asList(v)
		return ok && !inList(f, list)
	},
	OpLengthEquals:  func(f, v any) bool { return compareLen(f, v, func(a, b float64) bool { return a == b }) },
	OpLengthGreater: func(f, v any) bool { return compareLen(f, v, func(a, b float64) bool { return a > b }) },
	OpLengthLess:    func(f, v any) bool { return compareLen(f, v, func(a, b float64) bool { return a < b }) },
	OpIsEmpty:       func(f, _ any) bool { return isEmpty(f) },
	OpIsNotEmpty:    func(f, _ any) bool { return !isEmpty(f) },
}

var operatorAliases = map[string]string{
	"==":                  OpEquals,
	"eq":                  OpEquals,
	"equal":               OpEquals,
	"!=":                  OpNotEquals,
	"ne":                  OpNotEquals,
	">":                   OpGreaterThan,
	"gt":                  OpGreaterThan,
	"<":                   OpLessThan,
	"lt":                  OpLessThan,
	"in":                  OpInList,
	"not_in":              OpNotInList,
	"regex":               OpRegexMatch,
	"matches":             OpRegexMatch,
	"length_greater_than": OpLengthGreater,
	"length_less_than":    OpLengthLess,
}

func normalizeOperator(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	if alias, ok := operatorAliases[op]; ok {
		return alias
	}
	return op
}

// Operators returns the names of all supported operators.
func Operators() []string {
	names := make([]string, 0, len(operators))
	for name := range operators {
		names = append(names, name)
	}
	return names
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// number converts native numeric types only; strings are not numbers here.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toFloat coerces numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	if f, ok := number(v); ok {
		return f, true
	}
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func compare(f, v any, cmp func(a, b float64) bool) bool {
	a, ok := toFloat(f)
	if !ok {
		return false
	}
	b, ok := toFloat(v)
	if !ok {
		return false
	}
	return cmp(a, b)
}

func contains(f, v any) bool {
	if f == nil || v == nil {
		return false
	}
	if list, ok := asList(f); ok && inList(v, list) {
		return true
	}
	return strings.Contains(fmt.Sprint(f), fmt.Sprint(v))
}

func regexMatch(f, v any) bool {
	if f == nil || v == nil {
		return false
	}
	re, err := regexp.Compile(fmt.Sprint(v))
	if err != nil {
		return false
	}
	return re.MatchString(fmt.Sprint(f))
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func inList(f any, list []any) bool {
	for _, item := range list {
		if looseEqual(f, item) {
			return true
		}
	}
	return false
}

func length(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case string:
		return utf8.RuneCountInString(x), true
	case []any:
		return len(x), true
	case []string:
		return len(x), true
	case map[string]any:
		return len(x), true
	}
	return 0, false
}

func compareLen(f, v any, cmp func(a, b float64) bool) bool {
	n, ok := length(f)
	if !ok {
		return false
	}
	b, ok := toFloat(v)
	if !ok {
		return false
	}
	return cmp(float64(n), b)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	n, ok := length(v)
	return ok && n == 0
}
