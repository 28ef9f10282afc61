package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/schema"
)

var ErrCatalogMissing = errors.New("catalog not found in storage")

// Repository persists catalog documents. Documents are stored as raw JSON so
// they are validated on every load, exactly like a seed file.
type Repository interface {
	ListDocuments(ctx context.Context) ([][]byte, error)
	ReplaceCatalog(ctx context.Context, records []*models.Certification) error
	Ping(ctx context.Context) error
	Close() error
}

// Source adapts a Repository to the catalog source contract
type Source struct {
	name string
	repo Repository
}

// NewSource creates a catalog source reading from repo
func NewSource(name string, repo Repository) *Source {
	return &Source{name: name, repo: repo}
}

func (s *Source) Name() string {
	return s.name
}

// Fetch loads every stored document as an unvalidated candidate
func (s *Source) Fetch(ctx context.Context) ([]any, error) {
	docs, err := s.repo.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrCatalogMissing
	}

	candidates := make([]any, len(docs))
	for i, doc := range docs {
		// raw JSON keeps numbers exact for the validator
		candidates[i] = []byte(doc)
	}
	return candidates, nil
}

// Import validates candidates and replaces the stored catalog with them
func Import(ctx context.Context, repo Repository, candidates []any) (int, error) {
	records, err := schema.ValidateCollection(candidates)
	if err != nil {
		return 0, fmt.Errorf("refusing to import: %w", err)
	}
	if err := schema.CheckUnique(records); err != nil {
		return 0, fmt.Errorf("refusing to import: %w", err)
	}
	if err := repo.ReplaceCatalog(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
