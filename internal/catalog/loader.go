package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/schema"
)

// Loader validates candidates from a Source and publishes them to a Store
type Loader struct {
	source Source
	store  *Store
}

// NewLoader creates a new catalog loader
func NewLoader(source Source, store *Store) *Loader {
	return &Loader{source: source, store: store}
}

// Source returns the configured source
func (l *Loader) Source() Source {
	return l.source
}

// Reload fetches the source and publishes a new snapshot. On any error the
// previous snapshot stays current.
func (l *Loader) Reload(ctx context.Context) (*Snapshot, error) {
	slog.Info("loading catalog", "source", l.source.Name())

	candidates, err := l.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog from %s: %w", l.source.Name(), err)
	}
	return l.Accept(l.source.Name(), candidates)
}

// Accept validates an already fetched candidate list and publishes it
func (l *Loader) Accept(source string, candidates []any) (*Snapshot, error) {
	records, err := Check(candidates)
	if err != nil {
		slog.Error("catalog rejected", "source", source, "error", err)
		return nil, err
	}

	snap := l.store.Publish(source, records)
	slog.Info("catalog loaded",
		"source", source,
		"version", snap.Version,
		"count", snap.Len(),
	)
	return snap, nil
}

// Check runs schema validation, uniqueness and data-quality checks over a
// collection. Quality issues are logged, not returned.
func Check(candidates []any) ([]*models.Certification, error) {
	records, err := schema.ValidateCollection(candidates)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if err := schema.CheckUnique(records); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	for _, r := range records {
		for _, issue := range schema.QualityIssues(r) {
			slog.Warn("catalog data quality", "slug", r.Slug, "field", issue.Path, "issue", issue.Constraint)
		}
	}
	return records, nil
}
