package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/tempo-config.schema.json
var configSchemaJSON []byte

// ValidateConfigYAML parses a YAML dataset config document and validates it
// against the tempo config schema.
func ValidateConfigYAML(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config YAML: %v", err)
	}
	normalized, err := normalizeYAMLValue(doc)
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to convert config to JSON: %v", err)
	}
	return ValidateConfigJSON(jsonData)
}

// ValidateConfigJSON validates a JSON dataset config document against the
// tempo config schema.
func ValidateConfigJSON(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(configSchemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %v", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

// normalizeYAMLValue converts the map[string]interface{} / map[interface{}]interface{}
// mix that yaml.v3 can produce into pure map[string]any so encoding/json can
// marshal it without error.
func normalizeYAMLValue(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			norm, err := normalizeYAMLValue(sub)
			if err != nil {
				return nil, err
			}
			out[k] = norm
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			norm, err := normalizeYAMLValue(sub)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = norm
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			norm, err := normalizeYAMLValue(sub)
			if err != nil {
				return nil, err
			}
			out[i] = norm
		}
		return out, nil
	default:
		return val, nil
	}
}
