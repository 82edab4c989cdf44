// Package schema implements a recursive validator for the minimal
// JSON-Schema dialect the tool registry uses for tool input payloads.
package schema

import (
	"fmt"
	"math"
	"sort"
)

// Schema is one node of the minimal dialect: type, enum, properties,
// required, items, minItems, maxItems, additionalProperties:false.
type Schema struct {
	Type                 string             `json:"type,omitempty" yaml:"type,omitempty"`
	Enum                 []interface{}      `json:"enum,omitempty" yaml:"enum,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems             *int               `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// ValidationError carries the path-qualified message of the first
// violation found, e.g. "$.textures[0].width: expected number, got string".
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks value against s, returning the first violation found
// (depth-first, property order sorted for determinism).
func Validate(s *Schema, value interface{}) *ValidationError {
	return validateAt(s, value, "$")
}

func validateAt(s *Schema, value interface{}, path string) *ValidationError {
	if s == nil {
		return nil
	}

	if s.Type != "" {
		if err := checkType(s.Type, value, path); err != nil {
			return err
		}
	}

	if len(s.Enum) > 0 {
		matched := false
		for _, e := range s.Enum {
			if equalJSON(e, value) {
				matched = true
				break
			}
		}
		if !matched {
			return &ValidationError{Path: path, Message: fmt.Sprintf("value not in enum %v", s.Enum)}
		}
	}

	switch s.Type {
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return nil // type check above already failed if applicable
		}
		for _, req := range s.Required {
			if _, present := obj[req]; !present {
				return &ValidationError{Path: path, Message: fmt.Sprintf("missing required property %q", req)}
			}
		}
		if s.AdditionalProperties != nil && !*s.AdditionalProperties {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if _, declared := s.Properties[k]; !declared {
					return &ValidationError{Path: path, Message: fmt.Sprintf("unexpected property %q", k)}
				}
			}
		}
		propNames := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)
		for _, name := range propNames {
			child, present := obj[name]
			if !present {
				continue
			}
			if err := validateAt(s.Properties[name], child, path+"."+name); err != nil {
				return err
			}
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return nil
		}
		if s.MinItems != nil && len(arr) < *s.MinItems {
			return &ValidationError{Path: path, Message: fmt.Sprintf("expected at least %d items, got %d", *s.MinItems, len(arr))}
		}
		if s.MaxItems != nil && len(arr) > *s.MaxItems {
			return &ValidationError{Path: path, Message: fmt.Sprintf("expected at most %d items, got %d", *s.MaxItems, len(arr))}
		}
		if s.Items != nil {
			for i, item := range arr {
				if err := validateAt(s.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func checkType(t string, value interface{}, path string) *ValidationError {
	ok := false
	switch t {
	case "object":
		_, ok = value.(map[string]interface{})
	case "array":
		_, ok = value.([]interface{})
	case "string":
		_, ok = value.(string)
	case "boolean":
		_, ok = value.(bool)
	case "null":
		ok = value == nil
	case "number":
		n, isNum := value.(float64)
		ok = isNum && !math.IsNaN(n) && !math.IsInf(n, 0)
	default:
		ok = true // unknown declared type: don't block, let property checks surface issues
	}
	if !ok {
		return &ValidationError{Path: path, Message: fmt.Sprintf("expected %s, got %s", t, describeType(value))}
	}
	return nil
}

func describeType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, int:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func equalJSON(a, b interface{}) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
