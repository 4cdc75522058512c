package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
)

// Rule constrains a single slot value.
type Rule struct {
	Type          string   `mapstructure:"type"`
	Required      bool     `mapstructure:"required"`
	MinLength     *int     `mapstructure:"min_length"`
	MaxLength     *int     `mapstructure:"max_length"`
	MinValue      *float64 `mapstructure:"min_value"`
	MaxValue      *float64 `mapstructure:"max_value"`
	Pattern       string   `mapstructure:"pattern"`
	AllowedValues []any    `mapstructure:"allowed_values"`
}

// Rules maps slot names to their constraints.
type Rules map[string]Rule

// ParseRules decodes a validation_rules block. Entries that are not objects
// are skipped; a rule with an unknown type is an error.
func ParseRules(raw any) (Rules, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		if raw == nil {
			return Rules{}, nil
		}
		return nil, fmt.Errorf("validation rules must be an object, got %T", raw)
	}

	rules := make(Rules, len(m))
	for slot, v := range m {
		if _, ok := v.(map[string]any); !ok {
			continue
		}
		var r Rule
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &r,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(v); err != nil {
			return nil, fmt.Errorf("rule for %q: %w", slot, err)
		}
		if r.Type != "" {
			if _, err := ParseType(r.Type); err != nil {
				return nil, fmt.Errorf("rule for %q: %w", slot, err)
			}
		}
		rules[slot] = r
	}
	return rules, nil
}

// Check returns one reason per failed constraint. A nil value only fails the
// required constraint.
func (r Rule) Check(value any) []string {
	var reasons []string

	empty := value == nil
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		empty = true
	}
	if empty {
		if r.Required {
			reasons = append(reasons, "value is required")
		}
		return reasons
	}

	typeName := r.Type
	if typeName == "" {
		typeName = "string"
	}
	t, err := ParseType(typeName)
	if err != nil {
		return append(reasons, err.Error())
	}
	if err := t.Validate(value); err != nil {
		reasons = append(reasons, err.Error())
	}

	if r.MinLength != nil || r.MaxLength != nil {
		n := utf8.RuneCountInString(fmt.Sprint(value))
		if r.MinLength != nil && n < *r.MinLength {
			reasons = append(reasons, fmt.Sprintf("minimum length is %d", *r.MinLength))
		}
		if r.MaxLength != nil && n > *r.MaxLength {
			reasons = append(reasons, fmt.Sprintf("maximum length is %d", *r.MaxLength))
		}
	}

	if r.MinValue != nil || r.MaxValue != nil {
		f, ok := Number(value)
		switch {
		case !ok:
			reasons = append(reasons, "invalid number format")
		default:
			if r.MinValue != nil && f < *r.MinValue {
				reasons = append(reasons, fmt.Sprintf("minimum value is %v", *r.MinValue))
			}
			if r.MaxValue != nil && f > *r.MaxValue {
				reasons = append(reasons, fmt.Sprintf("maximum value is %v", *r.MaxValue))
			}
		}
	}

	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err == nil && !re.MatchString(fmt.Sprint(value)) {
			reasons = append(reasons, "does not match required pattern")
		}
	}

	if len(r.AllowedValues) > 0 && !allowed(value, r.AllowedValues) {
		parts := make([]string, len(r.AllowedValues))
		for i, v := range r.AllowedValues {
			parts[i] = fmt.Sprint(v)
		}
		reasons = append(reasons, "must be one of: "+strings.Join(parts, ", "))
	}
	return reasons
}

// Validate checks the named slots against their rules. Slots without a rule
// only need a value. It returns nil or an *AggregateError.
func (r Rules) Validate(slots []string, values map[string]any) error {
	var errs []error
	for _, name := range slots {
		value, ok := values[name]
		rule, hasRule := r[name]
		if !ok || value == nil {
			errs = append(errs, &ValidationError{Key: name, Reason: "is required but not provided"})
			continue
		}
		if !hasRule {
			continue
		}
		for _, reason := range rule.Check(value) {
			errs = append(errs, &ValidationError{Key: name, Reason: reason, Value: value})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Slots returns the rule names in sorted order.
func (r Rules) Slots() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func allowed(value any, list []any) bool {
	for _, candidate := range list {
		if reflect.DeepEqual(value, candidate) {
			return true
		}
		a, aok := Number(value)
		b, bok := Number(candidate)
		if aok && bok && a == b {
			return true
		}
		if fmt.Sprint(value) == fmt.Sprint(candidate) {
			return true
		}
	}
	return false
}
