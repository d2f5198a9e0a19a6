package nomad

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/avast/retry-go"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sparkmeter/nquery/internal/common/nqerrors"
)

// Client is a read-only client for the Nomad HTTP API.
// It's safe for concurrent use.
type Client struct {
	details    *ApiConnectionDetails
	httpClient *http.Client
	// Full job definitions already fetched, keyed by namespace and job id.
	jobs *lru.Cache
}

// NewClient creates a client for the agent described by details; zero-valued fields take their defaults.
// Provide a http client, e.g., to configure TLS, or set httpClient to nil to use the default client.
func NewClient(details *ApiConnectionDetails, httpClient *http.Client) (*Client, error) {
	details = details.withDefaults()
	if err := details.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	jobs, err := lru.New(details.CacheSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Client{
		details:    details,
		httpClient: httpClient,
		jobs:       jobs,
	}, nil
}

// ListJobs returns the stubs of all jobs whose id starts with prefix, in the order the agent returns them.
func (c *Client) ListJobs(ctx context.Context, prefix string) ([]*JobStub, error) {
	body, err := c.get(ctx, "/jobs", c.query(url.Values{"prefix": {prefix}}))
	if err != nil {
		return nil, errors.WithMessagef(err, "error listing jobs with prefix %q", prefix)
	}
	stubs, err := decodeJobStubs(body)
	if err != nil {
		return nil, errors.WithMessagef(err, "error decoding jobs with prefix %q", prefix)
	}
	return stubs, nil
}

// GetJob returns the full definition of the job with the given id. An empty namespace means the
// namespace the client was configured with. Returns *nqerrors.ErrNotFound if there is no such job.
func (c *Client) GetJob(ctx context.Context, namespace string, id string) (*Job, error) {
	params := c.query(url.Values{})
	if namespace != "" {
		params.Set("namespace", namespace)
	}
	key := params.Get("namespace") + "/" + id
	if job, ok := c.jobs.Get(key); ok {
		log.Tracef("job %s served from cache", key)
		return job.(*Job), nil
	}

	body, err := c.get(ctx, "/job/"+url.PathEscape(id), params)
	if err != nil {
		var e *nqerrors.ErrNotFound
		if errors.As(err, &e) {
			return nil, errors.WithStack(&nqerrors.ErrNotFound{
				Type:    resourceTypeJob,
				Value:   id,
				Message: e.Message,
			})
		}
		return nil, errors.WithMessagef(err, "error getting job %s", id)
	}
	job, err := DecodeJob(body)
	if err != nil {
		return nil, errors.WithMessagef(err, "error decoding job %s", id)
	}
	c.jobs.Add(key, job)
	return job, nil
}

// ListDispatched returns the stubs of the jobs dispatched from the parameterized job parentId.
// Nomad derives dispatched job ids from the parent's, so the children are found by prefix and
// then narrowed down to those whose parent really is parentId.
func (c *Client) ListDispatched(ctx context.Context, parentId string) ([]*JobStub, error) {
	stubs, err := c.ListJobs(ctx, parentId+dispatchedIdInfix)
	if err != nil {
		return nil, errors.WithMessagef(err, "error listing jobs dispatched from %s", parentId)
	}
	children := make([]*JobStub, 0, len(stubs))
	for _, stub := range stubs {
		if stub.IsDispatchedFrom(parentId) {
			children = append(children, stub)
		}
	}
	return children, nil
}

func (c *Client) query(params url.Values) url.Values {
	if c.details.Namespace != "" {
		params.Set("namespace", c.details.Namespace)
	}
	if c.details.Region != "" {
		params.Set("region", c.details.Region)
	}
	return params
}

// get issues a GET against the given API resource, retrying transient failures.
func (c *Client) get(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(c.details.Address, "/") + apiVersionPrefix + resource
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	var body []byte
	err := retry.Do(
		func() error {
			var err error
			body, err = c.getOnce(ctx, endpoint)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.details.Retries),
		retry.Delay(c.details.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(nqerrors.IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Debugf("attempt %d of %d for %s failed", n+1, c.details.Retries, endpoint)
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) getOnce(ctx context.Context, endpoint string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.details.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", defaultContentType)
	if c.details.Token != "" {
		req.Header.Set(tokenHeader, c.details.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	log.Tracef("response <%s> [%d]", endpoint, resp.StatusCode)
	if err != nil {
		return nil, c.transportError(ctx, endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.WithStack(&nqerrors.ErrNotFound{Message: responseMessage(body)})
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.WithStack(&nqerrors.ErrUnauthorized{
			Url:        endpoint,
			StatusCode: resp.StatusCode,
			Message:    responseMessage(body),
		})
	default:
		return nil, errors.WithStack(&nqerrors.ErrTransport{
			Url:        endpoint,
			StatusCode: resp.StatusCode,
			Temporary:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Message:    responseMessage(body),
		})
	}
}

// transportError converts a failure to get any response into an error. Cancellation is returned as is
// and is never retried; anything else, including expiry of the per-request timeout, is retryable.
func (c *Client) transportError(ctx context.Context, endpoint string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return errors.WithStack(ctx.Err())
	}
	message := err.Error()
	if errors.Is(err, syscall.ECONNREFUSED) {
		message = fmt.Sprintf("could not connect to server at %s", c.details.Address)
	}
	return errors.WithStack(&nqerrors.ErrTransport{
		Url:       endpoint,
		Temporary: true,
		Message:   message,
	})
}

// Nomad reports errors as plain text bodies.
func responseMessage(body []byte) string {
	const maxLen = 512
	message := strings.TrimSpace(string(body))
	if len(message) > maxLen {
		message = message[:maxLen] + "..."
	}
	return message
}
