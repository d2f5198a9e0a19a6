package projection

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Value is a decoded JSON value. It is always one of
//
//	map[string]any  (object)
//	[]any           (array)
//	string
//	json.Number
//	bool
//	nil
//
// Numbers are kept as json.Number so that integers wider than a float64 mantissa,
// such as nanosecond timestamps, are reproduced exactly when re-encoded.
type Value = any

// Decode parses a single JSON document into a Value.
func Decode(data []byte) (Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var v Value
	if err := decoder.Decode(&v); err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}
