// Package schema provides a JSON Schema value type for tool input schemas.
//
// The gateway's tool catalog is dynamic: each tool descriptor may carry an
// input_schema describing the arguments the tool accepts. This package models
// that schema and lets callers validate an argument map before invoking a
// tool, for cases where strict typing is wanted above the client.
package schema

import (
	"fmt"
	"reflect"
	"regexp"
)

// JSON represents a JSON Schema definition as carried by tool descriptors.
type JSON struct {
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  map[string]JSON `json:"properties,omitempty"`
	Required    []string        `json:"required,omitempty"`
	Items       *JSON           `json:"items,omitempty"`
	Enum        []any           `json:"enum,omitempty"`
	Default     any             `json:"default,omitempty"`
	Minimum     *float64        `json:"minimum,omitempty"`
	Maximum     *float64        `json:"maximum,omitempty"`
	MinLength   *int            `json:"minLength,omitempty"`
	MaxLength   *int            `json:"maxLength,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`
	Format      string          `json:"format,omitempty"`
}

// Any creates a JSON schema that accepts any value.
func Any() JSON {
	return JSON{}
}

// String creates a JSON schema for a string type.
func String() JSON {
	return JSON{Type: "string"}
}

// StringWithDesc creates a JSON schema for a string type with a description.
func StringWithDesc(desc string) JSON {
	return JSON{Type: "string", Description: desc}
}

// Int creates a JSON schema for an integer type.
func Int() JSON {
	return JSON{Type: "integer"}
}

// Number creates a JSON schema for a number type.
func Number() JSON {
	return JSON{Type: "number"}
}

// Bool creates a JSON schema for a boolean type.
func Bool() JSON {
	return JSON{Type: "boolean"}
}

// Array creates a JSON schema for an array with the given item schema.
func Array(items JSON) JSON {
	return JSON{Type: "array", Items: &items}
}

// Object creates a JSON schema for an object with the given properties.
// Property names listed in required must be present in validated values.
func Object(properties map[string]JSON, required ...string) JSON {
	return JSON{Type: "object", Properties: properties, Required: required}
}

// Enum creates a JSON schema restricted to the given values.
func Enum(values ...any) JSON {
	return JSON{Enum: values}
}

// Validate checks the given value against this schema.
// It returns an error describing the first violation found.
func (s JSON) Validate(value any) error {
	if value == nil {
		if s.Type != "" {
			return fmt.Errorf("expected type %s, got nil", s.Type)
		}
		return nil
	}

	if len(s.Enum) > 0 {
		for _, allowed := range s.Enum {
			if reflect.DeepEqual(value, allowed) {
				return nil
			}
		}
		return fmt.Errorf("value %v is not one of the allowed values: %v", value, s.Enum)
	}

	switch s.Type {
	case "":
		return nil
	case "string":
		return s.validateString(value)
	case "integer":
		return s.validateNumeric(value, true)
	case "number":
		return s.validateNumeric(value, false)
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
		return nil
	case "array":
		return s.validateArray(value)
	case "object":
		return s.validateObject(value)
	default:
		return fmt.Errorf("unknown schema type %q", s.Type)
	}
}

func (s JSON) validateString(value any) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}

	if s.MinLength != nil && len(str) < *s.MinLength {
		return fmt.Errorf("string length %d is less than minimum %d", len(str), *s.MinLength)
	}
	if s.MaxLength != nil && len(str) > *s.MaxLength {
		return fmt.Errorf("string length %d is greater than maximum %d", len(str), *s.MaxLength)
	}
	if s.Pattern != "" {
		matched, err := regexp.MatchString(s.Pattern, str)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("string does not match pattern %s", s.Pattern)
		}
	}

	return nil
}

// validateNumeric accepts any Go integer or float kind. JSON decoding yields
// float64 for all numbers, so integer schemas accept whole-valued floats.
func (s JSON) validateNumeric(value any, wantInteger bool) error {
	var num float64

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		num = float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		num = float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		num = v.Float()
		if wantInteger && num != float64(int64(num)) {
			return fmt.Errorf("expected integer, got float with decimal: %v", value)
		}
	default:
		if wantInteger {
			return fmt.Errorf("expected integer, got %T", value)
		}
		return fmt.Errorf("expected number, got %T", value)
	}

	if s.Minimum != nil && num < *s.Minimum {
		return fmt.Errorf("value %v is less than minimum %v", num, *s.Minimum)
	}
	if s.Maximum != nil && num > *s.Maximum {
		return fmt.Errorf("value %v is greater than maximum %v", num, *s.Maximum)
	}

	return nil
}

func (s JSON) validateArray(value any) error {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Errorf("expected array, got %T", value)
	}

	if s.Items != nil {
		for i := 0; i < v.Len(); i++ {
			if err := s.Items.Validate(v.Index(i).Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}

	return nil
}

func (s JSON) validateObject(value any) error {
	obj, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", value)
	}

	for _, req := range s.Required {
		if _, exists := obj[req]; !exists {
			return fmt.Errorf("required field %s is missing", req)
		}
	}

	for key, val := range obj {
		if propSchema, exists := s.Properties[key]; exists {
			if err := propSchema.Validate(val); err != nil {
				return fmt.Errorf("property %s: %w", key, err)
			}
		}
	}

	return nil
}
