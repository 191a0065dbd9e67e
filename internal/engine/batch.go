package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// BATCH EXTRACTION
// =============================================================================

// Job is one document to extract, with an optional fallback document of
// the same filing used to fill the fields the primary lacks.
type Job struct {
	Engine   *Engine
	Doc      *types.RawDocument
	Fallback *types.RawDocument
}

// RunBatch extracts every job with at most limit documents in flight.
// Results are returned in job order. Jobs are independent; a cancelled
// context stops the jobs that have not started yet.
//
// PARAMETERS:
//   - ctx: Cancels the remaining jobs.
//   - jobs: The documents to extract.
//   - limit: The maximum number of concurrent jobs. Values below 1 mean 1.
//
// RETURNS:
//   - One Result per job, in job order.
//   - The context error if the batch was cancelled.
func RunBatch(ctx context.Context, jobs []Job, limit int) ([]Result, error) {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		i, job := i, job
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = job.run()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (j Job) run() Result {
	result := j.Engine.Extract(j.Doc)
	if j.Fallback == nil {
		return result
	}

	fallback := j.Engine.Extract(j.Fallback)
	if result.Diagnostics.Degraded() {
		// Nothing to enrich; the fallback becomes the result.
		fallback.Diagnostics.Warnings = append(fallback.Diagnostics.Warnings, result.Diagnostics.Warnings...)
		return fallback
	}
	return j.Engine.Reconcile(result, fallback)
}
