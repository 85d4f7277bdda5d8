package tool

import "math"

// validateArgs checks args against the descriptor's parameters:
// required params must be present, unknown params are rejected, and
// values must match the declared JSON type.
func validateArgs(desc Descriptor, args map[string]any) error {
	byName := make(map[string]Param, len(desc.Params))
	for _, p := range desc.Params {
		byName[p.Name] = p
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			return &ArgumentError{Tool: desc.Name, Field: p.Name, Message: "required parameter is missing"}
		}
	}
	for name, value := range args {
		p, ok := byName[name]
		if !ok {
			return &ArgumentError{Tool: desc.Name, Field: name, Value: value, Message: "parameter is not declared"}
		}
		if value == nil {
			continue
		}
		if !matchesType(value, p.Type) {
			return &ArgumentError{Tool: desc.Name, Field: name, Value: value, Message: "expected type " + p.Type}
		}
	}
	return nil
}

// matchesType checks a decoded JSON value against a schema type name.
// JSON numbers decode as float64, so integer accepts whole floats.
func matchesType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == math.Trunc(v)
		case float32:
			return float64(v) == math.Trunc(float64(v))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		// Unknown schema types are not enforced.
		return true
	}
}
