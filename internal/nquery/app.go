package nquery

import (
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sparkmeter/nquery/internal/nomad"
	"github.com/sparkmeter/nquery/internal/nquery/configuration"
)

// DefaultConcurrency is the number of job definitions fetched in parallel unless configured otherwise.
const DefaultConcurrency = 8

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the applications's output.
	Out io.Writer
	// Log receives diagnostics, e.g. warnings about skipped jobs. It must never write to Out.
	Log log.FieldLogger
}

// Params struct holds all user-customizable parameters.
type Params struct {
	ApiConnectionDetails *nomad.ApiConnectionDetails
	// Number of full job definitions fetched in parallel
	Concurrency int
	JobAPI      *JobAPI
	// Default rendering of query results
	Output configuration.OutputFormat
	Pretty bool
}

// JobAPI holds the calls made against Nomad. In normal operation these are the methods of a nomad.Client,
// but tests can replace any of them.
type JobAPI struct {
	List           func(ctx context.Context, prefix string) ([]*nomad.JobStub, error)
	Get            func(ctx context.Context, namespace string, id string) (*nomad.Job, error)
	ListDispatched func(ctx context.Context, parentId string) ([]*nomad.JobStub, error)
}

// New instantiates an App with default parameters, writing results to standard out
// and diagnostics to the standard logger.
func New() *App {
	return &App{
		Params: &Params{
			Concurrency: DefaultConcurrency,
			JobAPI:      &JobAPI{},
			Output:      configuration.OutputJSON,
		},
		Out: os.Stdout,
		Log: log.StandardLogger(),
	}
}

// JobAPIFromClient returns a JobAPI backed by c.
func JobAPIFromClient(c *nomad.Client) *JobAPI {
	return &JobAPI{
		List:           c.ListJobs,
		Get:            c.GetJob,
		ListDispatched: c.ListDispatched,
	}
}

// Configure sets the app's parameters from config, connecting the JobAPI to the Nomad agent it names.
func (a *App) Configure(config *configuration.Config) error {
	details := config.ApiConnectionDetails()
	client, err := nomad.NewClient(details, nil)
	if err != nil {
		return err
	}
	a.Params.ApiConnectionDetails = details
	a.Params.Concurrency = config.Concurrency
	a.Params.Output = config.Output
	a.Params.Pretty = config.Pretty
	a.Params.JobAPI = JobAPIFromClient(client)
	return nil
}
