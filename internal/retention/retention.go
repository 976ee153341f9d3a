// Package retention bounds the number of stored datasets.
package retention

import (
	"context"
	"fmt"
)

// DefaultLimit is the number of datasets kept when no limit is configured.
const DefaultLimit = 5

// Pruner is the slice of the store the retention check needs. Callers must
// pass a transaction-bound implementation so the check and the deletes
// commit together with the ingestion that triggered them.
type Pruner interface {
	// ListDatasetIDs returns every dataset ID, most recent first.
	ListDatasetIDs(ctx context.Context) ([]string, error)
	// DeleteDatasets removes the datasets and all their records.
	DeleteDatasets(ctx context.Context, ids []string) error
}

// Enforce keeps the limit most recent datasets and deletes the rest.
// It returns the evicted IDs, oldest last.
func Enforce(ctx context.Context, p Pruner, limit int) ([]string, error) {
	if limit < 1 {
		return nil, fmt.Errorf("retention limit must be at least 1, got %d", limit)
	}

	ids, err := p.ListDatasetIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	if len(ids) <= limit {
		return nil, nil
	}

	evict := append([]string(nil), ids[limit:]...)
	if err := p.DeleteDatasets(ctx, evict); err != nil {
		return nil, fmt.Errorf("evict %d datasets: %w", len(evict), err)
	}
	return evict, nil
}
