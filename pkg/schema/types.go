package schema

import (
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Type defines the contract for value validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// IntType validates whole numbers, including numeric strings.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	f, ok := Number(value)
	if !ok {
		return fmt.Errorf("expected int, got %T", value)
	}
	if f != float64(int64(f)) {
		return fmt.Errorf("expected int, got a fractional number")
	}
	return nil
}

// FloatType validates numbers, including numeric strings.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	if _, ok := Number(value); !ok {
		return fmt.Errorf("expected number, got %T", value)
	}
	return nil
}

// BoolType validates booleans and their common textual forms.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	switch v := value.(type) {
	case bool:
		return nil
	case string:
		if _, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("expected bool, got %T", value)
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a number type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Slice creates a list validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Custom creates a validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

// Email validates an e-mail address.
func Email() Type {
	return Custom("email", func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected email, got %T", v)
		}
		addr, err := mail.ParseAddress(strings.TrimSpace(s))
		if err != nil || addr.Address != strings.TrimSpace(s) {
			return fmt.Errorf("invalid email address")
		}
		return nil
	})
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{6,}[0-9]$`)

// Phone validates a loosely formatted phone number.
func Phone() Type {
	return Custom("phone", func(v any) error {
		s, ok := v.(string)
		if !ok || !phonePattern.MatchString(strings.TrimSpace(s)) {
			return fmt.Errorf("invalid phone number")
		}
		return nil
	})
}

// ParseType converts a type name to a Type. Lists are written "[elem]".
func ParseType(typeStr string) (Type, error) {
	typeStr = strings.ToLower(strings.TrimSpace(typeStr))
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string", "str", "text":
		return String(), nil
	case "int", "integer":
		return Int(), nil
	case "float", "number":
		return Float(), nil
	case "bool", "boolean":
		return Bool(), nil
	case "email":
		return Email(), nil
	case "phone":
		return Phone(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// Number converts numeric values and numeric strings to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
