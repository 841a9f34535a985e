package commandstructure

import (
	"fmt"
	"strings"
)

// GetStringParam returns params[key] when it holds a non-empty string
func GetStringParam(params map[string]any, key string, defaultValue string) string {
	if val, ok := params[key]; ok {
		if strVal, ok := val.(string); ok && strings.TrimSpace(strVal) != "" {
			return strings.TrimSpace(strVal)
		}
	}
	return defaultValue
}

// GetIntParam accepts the numeric types produced by YAML and JSON decoders
func GetIntParam(params map[string]any, key string, defaultValue int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// GetOneOfParam returns the lower-cased string param if it is one of allowed.
func GetOneOfParam(params map[string]any, key string, defaultValue string, allowed ...string) (string, error) {
	val := strings.ToLower(GetStringParam(params, key, defaultValue))
	for _, a := range allowed {
		if val == a {
			return val, nil
		}
	}
	return "", fmt.Errorf("parameter %s must be one of %v, got %q", key, allowed, val)
}
