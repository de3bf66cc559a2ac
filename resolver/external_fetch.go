package resolver

import (
	"context"
	"time"

	"github.com/patchsim/engine/annotate"
	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/external"
	"github.com/patchsim/engine/scope"
	"github.com/patchsim/engine/simerrors"
	"github.com/patchsim/engine/value"
)

// externalRetryBackoff is the fixed delay before the single retry spec §7's
// external-fetch policy allows. Only one retry is ever taken, so there is
// no second delay to grow.
const externalRetryBackoff = 100 * time.Millisecond

// DataSourceFetcher builds an ExternalFactory backed by a real
// external.DataSource, applying spec §7's fetch policy: one retry after a
// backoff, then a fatal ExternalError. timestepFn supplies the timestep to
// tag the fetch with (typically Resolver.Timestep); collector (optional)
// receives the retry/failure annotations spec.md's annotate vocabulary
// advertises.
//
// Grounded on the teacher's cmd/datalog retry-free fetch path generalized
// with the linear backoff-then-give-up shape used throughout the examples'
// supervisor/worker retry loops (e.g. a restart counter driving
// time.Sleep); no example repo ships a dedicated backoff library, so this
// stays on stdlib time rather than adopting one for a single conditional
// sleep.
func DataSourceFetcher(ds external.DataSource, timestepFn func() int, collector *annotate.Collector) ExternalFactory {
	return func(e *entity.Entity) scope.ExternalFunc {
		return func(name string) (value.Value, error) {
			return fetchWithRetry(ds, e, name, timestepFn(), collector)
		}
	}
}

func fetchWithRetry(ds external.DataSource, e *entity.Entity, name string, timestep int, collector *annotate.Collector) (value.Value, error) {
	ctx := context.Background()
	geometry := e.Geometry()

	dist, err := ds.Fetch(ctx, name, geometry, timestep)
	if err == nil {
		return value.FromDistribution(dist), nil
	}

	if collector != nil {
		collector.Add(annotate.Event{Name: annotate.ExternalFetchRetry, Data: map[string]interface{}{
			"entity": e.ID(), "name": name, "timestep": timestep, "error": err.Error(), "attempt": 2,
		}})
	}
	time.Sleep(externalRetryBackoff)

	dist, err = ds.Fetch(ctx, name, geometry, timestep)
	if err != nil {
		if collector != nil {
			collector.Add(annotate.Event{Name: annotate.ExternalFetchFailed, Data: map[string]interface{}{
				"entity": e.ID(), "name": name, "timestep": timestep, "error": err.Error(),
			}})
		}
		return value.Value{}, simerrors.Wrap(simerrors.ExternalError, e.ID(), name, timestep,
			"external fetch failed after its one retry", err)
	}
	return value.FromDistribution(dist), nil
}
