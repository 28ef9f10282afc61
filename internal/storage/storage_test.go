package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/schema"
)

type memoryRepository struct {
	docs [][]byte
}

func (m *memoryRepository) ListDocuments(ctx context.Context) ([][]byte, error) {
	return m.docs, nil
}

func (m *memoryRepository) ReplaceCatalog(ctx context.Context, records []*models.Certification) error {
	m.docs = nil
	for _, r := range records {
		doc, err := json.Marshal(r)
		if err != nil {
			return err
		}
		m.docs = append(m.docs, doc)
	}
	return nil
}

func (m *memoryRepository) Ping(ctx context.Context) error { return nil }
func (m *memoryRepository) Close() error                   { return nil }

const validDoc = `{
	"id": 7, "slug": "gcih", "title": "GIAC Certified Incident Handler", "abbreviation": "GCIH",
	"description": "Incident handling.", "image": "/certs/gcih.png",
	"url": "https://www.giac.org/certifications/certified-incident-handler-gcih/",
	"cost": "$979 USD", "training_included": false, "number_of_attempts": 1,
	"job_roles_titles": ["Incident Handler"], "cert_type": "blue", "total_votes": 890,
	"market_presence": 0.72, "cost_effectiveness": 3.8, "skill_level": "Intermediate",
	"quality": 4.5, "satisfaction": 4.4,
	"provider": {"name": "GIAC", "url": "https://www.giac.org", "image": "/providers/giac.png"},
	"domains_covered_titles": ["Incident Handling"],
	"requirements_data": {"knowledge": "Networking", "work_experience": "None", "prior_courses_and_certifications": "SEC504"},
	"exam_details_data": {"format": "Proctored", "duration": "4 hours", "report_required": false},
	"valid_for": "4 years"
}`

func TestSource_FetchValidatesLikeAFile(t *testing.T) {
	repo := &memoryRepository{docs: [][]byte{[]byte(validDoc)}}
	src := NewSource("postgres", repo)

	candidates, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	records, err := schema.ValidateCollection(candidates)
	if err != nil {
		t.Fatalf("ValidateCollection failed: %v", err)
	}
	if records[0].Slug != "gcih" || records[0].MarketPresence != 0.72 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestSource_EmptyTable(t *testing.T) {
	src := NewSource("postgres", &memoryRepository{})
	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrCatalogMissing) {
		t.Errorf("expected ErrCatalogMissing, got %v", err)
	}
}

func TestImport(t *testing.T) {
	repo := &memoryRepository{}

	n, err := Import(context.Background(), repo, []any{[]byte(validDoc)})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 1 || len(repo.docs) != 1 {
		t.Fatalf("expected 1 stored document, got %d", len(repo.docs))
	}

	// what was stored must load back through the validator
	candidates, err := NewSource("postgres", repo).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := schema.ValidateCollection(candidates); err != nil {
		t.Errorf("stored document failed validation: %v", err)
	}

	_, err = Import(context.Background(), repo, []any{[]byte(validDoc), []byte(validDoc)})
	if !errors.Is(err, schema.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if len(repo.docs) != 1 {
		t.Error("a rejected import must not touch storage")
	}
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql": {Data: []byte("SELECT 2;")},
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"README.md": {Data: []byte("notes")},
		"003_c.sql": {Data: []byte("SELECT 3;")},
	}

	names, err := pendingMigrations(fsys, map[string]bool{"002_b.sql": true})
	if err != nil {
		t.Fatalf("pendingMigrations failed: %v", err)
	}
	if len(names) != 2 || names[0] != "001_a.sql" || names[1] != "003_c.sql" {
		t.Errorf("unexpected migrations: %v", names)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := pendingMigrations(Migrations(""), map[string]bool{})
	if err != nil {
		t.Fatalf("pendingMigrations failed: %v", err)
	}
	if len(names) == 0 || names[0] != "001_certifications.sql" {
		t.Errorf("unexpected embedded migrations: %v", names)
	}
}
