package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// jsonConfigBytes returns the raw config bytes as JSON. Files with a
// .yaml/.yml extension are decoded and re-encoded, everything else is
// passed through untouched, so the strict decoder
// (DisallowUnknownFields) covers both formats from a single code path.
func jsonConfigBytes(path string, raw []byte) ([]byte, error) {
	if !isYAMLPath(path) {
		return raw, nil
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}

	out, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return out, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// stringKeys rebuilds the decoded document with string map keys only.
// YAML permits non-string keys; encoding/json does not.
func stringKeys(doc any) any {
	switch node := doc.(type) {
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[fmt.Sprint(k)] = stringKeys(v)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = stringKeys(v)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = stringKeys(v)
		}
		return out
	default:
		return doc
	}
}
