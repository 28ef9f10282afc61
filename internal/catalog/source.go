// Package catalog loads certification records from a source, validates them
// and serves the current snapshot.
package catalog

import "context"

// Source yields raw, unvalidated catalog candidates.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]any, error)
}

// StaticSource serves a fixed candidate list. Used for pushed catalogs and tests.
type StaticSource struct {
	Label      string
	Candidates []any
}

func (s StaticSource) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

func (s StaticSource) Fetch(ctx context.Context) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Candidates, nil
}
