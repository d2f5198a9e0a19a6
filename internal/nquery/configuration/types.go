package configuration

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sparkmeter/nquery/internal/common/nqerrors"
	"github.com/sparkmeter/nquery/internal/nomad"
)

// OutputFormat selects how the result array is rendered.
type OutputFormat string

const (
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

func (f *OutputFormat) UnmarshalText(text []byte) error {
	switch format := OutputFormat(strings.ToLower(strings.TrimSpace(string(text)))); format {
	case OutputJSON, OutputYAML:
		*f = format
		return nil
	default:
		return errors.WithStack(&nqerrors.ErrInvalidArgument{
			Name:    "output",
			Value:   string(text),
			Message: "must be one of json, yaml",
		})
	}
}

// Config is the user-customizable configuration of nquery, merged from command-line flags,
// environment variables and the config file, in that order of precedence.
type Config struct {
	// Base URL of the Nomad agent
	Address string `validate:"required,url"`
	// ACL token
	Token string
	// Namespace to query; "*" queries all namespaces
	Namespace string
	// Region to query
	Region string
	// Timeout of each individual HTTP request
	Timeout time.Duration `validate:"gt=0"`
	// Attempts per HTTP request; only transient failures are retried
	Retries uint `validate:"gte=1"`
	// Number of full job definitions fetched in parallel
	Concurrency int `validate:"gte=1"`
	// Rendering of the result array
	Output OutputFormat `validate:"oneof=json yaml"`
	// Indent JSON output
	Pretty bool
	// Trace every request on stderr
	Debug bool
}

// ApiConnectionDetails returns the subset of the config needed to talk to Nomad.
func (c *Config) ApiConnectionDetails() *nomad.ApiConnectionDetails {
	return &nomad.ApiConnectionDetails{
		Address:   c.Address,
		Token:     c.Token,
		Namespace: c.Namespace,
		Region:    c.Region,
		Timeout:   c.Timeout,
		Retries:   c.Retries,
	}
}
