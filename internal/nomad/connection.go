package nomad

import (
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/sparkmeter/nquery/internal/common/nqerrors"
)

const (
	DefaultAddress     = "http://127.0.0.1:4646"
	DefaultTimeout     = 30 * time.Second
	DefaultRetries     = 3
	DefaultRetryDelay  = 300 * time.Millisecond
	DefaultCacheSize   = 1024
	apiVersionPrefix   = "/v1"
	tokenHeader        = "X-Nomad-Token"
	dispatchedIdInfix  = "/dispatch-"
	resourceTypeJob    = "job"
	defaultContentType = "application/json"
)

// ApiConnectionDetails holds everything needed to talk to a Nomad agent.
type ApiConnectionDetails struct {
	// Base URL of the agent, e.g. http://127.0.0.1:4646
	Address string
	// ACL token sent as X-Nomad-Token. Omitted if empty.
	Token string
	// Namespace to query. Empty means the agent's default; "*" lists across all namespaces.
	Namespace string
	// Region to query. Empty means the agent's region.
	Region string
	// Timeout applied to each individual request, including its retries' individual attempts.
	Timeout time.Duration
	// Number of attempts per request. Only transient failures are retried.
	Retries uint
	// Base delay between attempts; it grows exponentially.
	RetryDelay time.Duration
	// Number of full job definitions memoised per client.
	CacheSize int
}

// Validate checks that the details describe a usable connection once zero-valued fields take their defaults.
func (details *ApiConnectionDetails) Validate() error {
	details = details.withDefaults()
	var result *multierror.Error
	if u, err := url.Parse(details.Address); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, errors.WithStack(&nqerrors.ErrInvalidArgument{
			Name:    "address",
			Value:   details.Address,
			Message: "must be an absolute URL such as " + DefaultAddress,
		}))
	}
	if details.Timeout <= 0 {
		result = multierror.Append(result, errors.WithStack(&nqerrors.ErrInvalidArgument{
			Name:    "timeout",
			Value:   details.Timeout.String(),
			Message: "must be positive",
		}))
	}
	return result.ErrorOrNil()
}

func (details *ApiConnectionDetails) withDefaults() *ApiConnectionDetails {
	rv := *details
	if rv.Address == "" {
		rv.Address = DefaultAddress
	}
	if rv.Timeout == 0 {
		rv.Timeout = DefaultTimeout
	}
	if rv.Retries == 0 {
		rv.Retries = DefaultRetries
	}
	if rv.RetryDelay == 0 {
		rv.RetryDelay = DefaultRetryDelay
	}
	if rv.CacheSize <= 0 {
		rv.CacheSize = DefaultCacheSize
	}
	return &rv
}
