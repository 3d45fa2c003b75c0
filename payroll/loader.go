package payroll

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// EntrySource fetches the materialised entries of one period.
type EntrySource interface {
	ListPeriodEntries(ctx context.Context, periodID PeriodID) ([]PayrollEntry, error)
}

// DefaultFetchLimit bounds concurrent period fetches.
const DefaultFetchLimit = 4

// LoadPeriodEntries fetches several periods concurrently and returns the map
// Accumulate consumes. Any fetch error fails the whole load, so the aggregator
// is never handed partial data from here. Every requested period gets a key,
// even when it has no entries.
func LoadPeriodEntries(ctx context.Context, src EntrySource, periodIDs []PeriodID, limit int) (map[PeriodID][]PayrollEntry, error) {
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	var mu sync.Mutex
	out := make(map[PeriodID][]PayrollEntry, len(periodIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range periodIDs {
		id := id
		g.Go(func() error {
			entries, err := src.ListPeriodEntries(gctx, id)
			if err != nil {
				return fmt.Errorf("load entries for period %s: %w", id, err)
			}
			if entries == nil {
				entries = []PayrollEntry{}
			}
			mu.Lock()
			out[id] = entries
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
