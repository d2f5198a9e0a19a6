package nquery

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/sparkmeter/nquery/internal/nquery/configuration"
)

const jsonIndent = "  "

// render encodes results as a single JSON array, or as the equivalent YAML sequence.
// HTML characters are left unescaped. YAML output has its mapping keys sorted.
func render(results []any, format configuration.OutputFormat, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if pretty && format != configuration.OutputYAML {
		encoder.SetIndent("", jsonIndent)
	}
	if err := encoder.Encode(results); err != nil {
		return nil, errors.WithStack(err)
	}
	if format != configuration.OutputYAML {
		return buf.Bytes(), nil
	}
	out, err := yaml.JSONToYAML(buf.Bytes())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}
