package projection

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Record is a flat, insertion-ordered mapping from literal path to resolved value.
// It encodes to a JSON object whose keys appear in insertion order. Values that are themselves objects
// are decoded maps, so their own keys are encoded sorted rather than in the order the agent sent them.
type Record struct {
	keys   []string
	values map[string]Value
}

func NewRecord(capacity int) *Record {
	return &Record{
		keys:   make([]string, 0, capacity),
		values: make(map[string]Value, capacity),
	}
}

// Set stores v under key. Setting an existing key replaces its value but keeps its position.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the record's keys in insertion order.
func (r *Record) Keys() []string {
	return slices.Clone(r.keys)
}

func (r *Record) Len() int {
	return len(r.keys)
}

// MarshalJSON leaves HTML characters in keys and values unescaped.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encoder.Encode(key); err != nil {
			return nil, errors.WithStack(err)
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := encoder.Encode(r.values[key]); err != nil {
			return nil, errors.Wrapf(err, "error encoding value of %s", key)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// json.Encoder terminates every value with a newline.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
