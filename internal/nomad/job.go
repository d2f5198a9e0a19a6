package nomad

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/sparkmeter/nquery/internal/projection"
)

// Marker records whether a job is periodic or parameterized.
// Job listings report this as a boolean while full job definitions carry the periodic or
// parameterized configuration object (or null); both forms decode into a Marker.
type Marker bool

func (m *Marker) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")), bytes.Equal(trimmed, []byte("false")):
		*m = false
	case bytes.Equal(trimmed, []byte("true")):
		*m = true
	case len(trimmed) > 0 && trimmed[0] == '{':
		*m = true
	default:
		return errors.Errorf("cannot decode %s as a job marker", string(trimmed))
	}
	return nil
}

// JobStub is the summary of a job returned by the job listing endpoint.
type JobStub struct {
	ID               string
	ParentID         string
	Name             string
	Namespace        string
	Type             string
	Status           string
	Periodic         Marker
	ParameterizedJob Marker
}

// IsDispatchedFrom returns true if the job was dispatched from the parameterized job parentId.
func (stub *JobStub) IsDispatchedFrom(parentId string) bool {
	return stub.ParentID != "" && stub.ParentID == parentId
}

// Job is a full job definition. Raw is the body exactly as the agent returned it,
// Document the same body decoded into a tree of JSON values.
type Job struct {
	JobStub
	Raw      json.RawMessage
	Document projection.Value
}

// DecodeJob decodes a full job definition as returned by the agent.
func DecodeJob(body []byte) (*Job, error) {
	var stub JobStub
	if err := json.Unmarshal(body, &stub); err != nil {
		return nil, errors.WithStack(err)
	}
	doc, err := projection.Decode(body)
	if err != nil {
		return nil, err
	}
	return &Job{
		JobStub:  stub,
		Raw:      json.RawMessage(body),
		Document: doc,
	}, nil
}

func decodeJobStubs(body []byte) ([]*JobStub, error) {
	var stubs []*JobStub
	if err := json.Unmarshal(body, &stubs); err != nil {
		return nil, errors.WithStack(err)
	}
	return stubs, nil
}
