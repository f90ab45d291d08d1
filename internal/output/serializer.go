package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	sigsyaml "sigs.k8s.io/yaml"
)

// Serialize converts v to YAML. Keys follow the JSON field names and are
// emitted in sorted order, so equal values always produce equal bytes.
func Serialize(v any) ([]byte, error) {
	yamlBytes, err := sigsyaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	return ensureNewline(yamlBytes), nil
}

// SerializeJSON converts v to indented JSON. An empty indent uses two spaces.
func SerializeJSON(v any, indent string) ([]byte, error) {
	if indent == "" {
		indent = "  "
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("serializing JSON: %w", err)
	}

	return ensureNewline(buf.Bytes()), nil
}

// YAMLToJSON converts a YAML document produced by Serialize back to JSON.
func YAMLToJSON(data []byte) ([]byte, error) {
	out, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}

	return out, nil
}

func ensureNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}

	return b
}
