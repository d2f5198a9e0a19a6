package nquery

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sparkmeter/nquery/internal/common/nqerrors"
	"github.com/sparkmeter/nquery/internal/nomad"
	"github.com/sparkmeter/nquery/internal/nquery/configuration"
	"github.com/sparkmeter/nquery/internal/projection"
)

// QueryArgs describes which jobs to return and how.
type QueryArgs struct {
	// Only jobs whose id starts with Prefix. Empty matches every job.
	Prefix string
	// If non-nil, only jobs that are (true) or aren't (false) parameterized.
	Parameterized *bool
	// If non-nil, only jobs that are (true) or aren't (false) periodic.
	Periodic *bool
	// If non-empty, only jobs with this status, e.g. "running". Case-insensitive.
	Status string
	// If non-empty, only jobs of this type, e.g. "batch". Case-insensitive.
	Type string
	// Also return the jobs dispatched from each selected parameterized job,
	// each placed directly after its parent.
	IncludeDispatched bool
	// Fields to project each job onto. If empty, full job definitions are returned.
	Fields []projection.Path
	Output configuration.OutputFormat
	Pretty bool
}

// Query assembles the jobs described by args and writes them to a.Out as a single array.
// Nothing is written unless every job was accounted for.
func (a *App) Query(ctx context.Context, args *QueryArgs) error {
	results, err := a.Assemble(ctx, args)
	if err != nil {
		return err
	}
	out, err := render(results, args.Output, args.Pretty)
	if err != nil {
		return errors.WithMessage(err, "[nquery.Query] error rendering results")
	}
	_, err = a.Out.Write(out)
	return errors.WithStack(err)
}

// Assemble returns the jobs described by args, in the order the agent listed them. Each element is
// either the raw job definition (json.RawMessage) or, if args.Fields is non-empty, a *projection.Record.
//
// A job deleted between being listed and being fetched is skipped with a warning. Any other error
// aborts the whole query, since a result silently missing jobs can't be told apart from a complete one.
func (a *App) Assemble(ctx context.Context, args *QueryArgs) ([]any, error) {
	stubs, err := a.Params.JobAPI.List(ctx, args.Prefix)
	if err != nil {
		return nil, errors.WithMessagef(err, "[nquery.Assemble] error listing jobs with prefix %q", args.Prefix)
	}

	selected := make([]*nomad.JobStub, 0, len(stubs))
	for _, stub := range stubs {
		if args.matches(stub) {
			selected = append(selected, stub)
		}
	}
	a.Log.Debugf("%d of %d jobs with prefix %q match the filters", len(selected), len(stubs), args.Prefix)

	if args.IncludeDispatched {
		selected, err = a.withDispatched(ctx, selected, args)
		if err != nil {
			return nil, err
		}
	}

	jobs, err := a.fetchJobs(ctx, selected)
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, len(jobs))
	for _, job := range jobs {
		if len(args.Fields) == 0 {
			results = append(results, job.Raw)
		} else {
			results = append(results, a.project(job, args.Fields))
		}
	}
	return results, nil
}

// withDispatched inserts the children of every parameterized job in stubs directly after their parent.
// A job that's already present, either listed by prefix or dispatched from an earlier parent, keeps its
// first position.
func (a *App) withDispatched(ctx context.Context, stubs []*nomad.JobStub, args *QueryArgs) ([]*nomad.JobStub, error) {
	seen := make(map[string]bool, len(stubs))
	for _, stub := range stubs {
		seen[jobKey(stub)] = true
	}

	rv := make([]*nomad.JobStub, 0, len(stubs))
	for _, stub := range stubs {
		rv = append(rv, stub)
		if !stub.ParameterizedJob {
			continue
		}
		children, err := a.Params.JobAPI.ListDispatched(ctx, stub.ID)
		if err != nil {
			return nil, errors.WithMessagef(err, "[nquery.Assemble] error listing jobs dispatched from %s", stub.ID)
		}
		for _, child := range children {
			if stub.Namespace != "" && child.Namespace != "" && child.Namespace != stub.Namespace {
				continue
			}
			if seen[jobKey(child)] || !args.matchesStatusAndType(child) {
				continue
			}
			seen[jobKey(child)] = true
			rv = append(rv, child)
		}
	}
	return rv, nil
}

// fetchJobs fetches the full definition of each of stubs, concurrently. The result is in the same order as stubs,
// less the jobs that no longer exist.
func (a *App) fetchJobs(ctx context.Context, stubs []*nomad.JobStub) ([]*nomad.Job, error) {
	fetched := make([]*nomad.Job, len(stubs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.Params.Concurrency, 1))
	for i, stub := range stubs {
		i, stub := i, stub
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
			job, err := a.Params.JobAPI.Get(ctx, stub.Namespace, stub.ID)
			if nqerrors.IsNotFound(err) {
				a.Log.WithField("job", stub.ID).Warnf("skipping job %s: it no longer exists", stub.ID)
				return nil
			} else if err != nil {
				return errors.WithMessagef(err, "[nquery.Assemble] error getting job %s", stub.ID)
			}
			fetched[i] = job
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	jobs := make([]*nomad.Job, 0, len(fetched))
	for _, job := range fetched {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (a *App) project(job *nomad.Job, paths []projection.Path) *projection.Record {
	for _, p := range paths {
		if _, found := projection.Resolve(job.Document, p); !found {
			a.Log.Debugf("field %s not found in job %s", p, job.ID)
		}
	}
	return projection.Project(job.Document, paths)
}
