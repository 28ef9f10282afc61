package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/terra-clan/certmap/internal/schema"
)

func seedPath(name string) string {
	return filepath.Join("..", "..", "data", name)
}

func candidate(id int, slug string) map[string]any {
	return map[string]any{
		"id":                     id,
		"slug":                   slug,
		"title":                  "Title " + slug,
		"abbreviation":           slug,
		"description":            "Description of " + slug,
		"image":                  "/certs/" + slug + ".png",
		"url":                    "https://example.com/" + slug,
		"cost":                   "$100 USD",
		"training_included":      false,
		"number_of_attempts":     1,
		"job_roles_titles":       []any{"Analyst"},
		"cert_type":              "blue",
		"total_votes":            10,
		"market_presence":        0.5,
		"cost_effectiveness":     3.0,
		"skill_level":            "Beginner",
		"quality":                3.0,
		"satisfaction":           3.0,
		"domains_covered_titles": []any{"Operations"},
		"requirements_data": map[string]any{
			"knowledge":                        "Networking",
			"work_experience":                  "None",
			"prior_courses_and_certifications": "None",
		},
		"exam_details_data": map[string]any{
			"format":          "Multiple choice",
			"duration":        "90 minutes",
			"report_required": false,
		},
		"valid_for": "3 years",
	}
}

func TestFileSource_SeedYAML(t *testing.T) {
	path := seedPath("certifications.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("seed file not found, skipping")
	}

	store := NewStore()
	loader := NewLoader(NewFileSource(path), store)

	snap, err := loader.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if snap.Len() != 16 {
		t.Errorf("expected 16 certifications, got %d", snap.Len())
	}
	if snap.Version != 1 {
		t.Errorf("expected version 1, got %d", snap.Version)
	}

	oscp, err := snap.Get("oscp")
	if err != nil {
		t.Fatalf("oscp not found: %v", err)
	}
	if oscp.Abbreviation != "OSCP" || oscp.CertType != "red" {
		t.Errorf("unexpected OSCP record: %+v", oscp)
	}
	if _, err := snap.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileSource_SeedJSONMatchesYAML(t *testing.T) {
	yamlPath, jsonPath := seedPath("certifications.yaml"), seedPath("certifications.json")
	if _, err := os.Stat(jsonPath); os.IsNotExist(err) {
		t.Skip("seed file not found, skipping")
	}

	fromYAML, err := NewFileSource(yamlPath).Fetch(context.Background())
	if err != nil {
		t.Fatalf("yaml Fetch failed: %v", err)
	}
	fromJSON, err := NewFileSource(jsonPath).Fetch(context.Background())
	if err != nil {
		t.Fatalf("json Fetch failed: %v", err)
	}

	a, err := Check(fromYAML)
	if err != nil {
		t.Fatalf("yaml Check failed: %v", err)
	}
	b, err := Check(fromJSON)
	if err != nil {
		t.Fatalf("json Check failed: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("expected equal lengths, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Slug != b[i].Slug || a[i].MarketPresence != b[i].MarketPresence {
			t.Errorf("record %d differs: %s vs %s", i, a[i].Slug, b[i].Slug)
		}
	}
}

func TestDecodeFile_WrappedList(t *testing.T) {
	data := []byte("certifications:\n  - id: 1\n    slug: a\n")
	items, err := DecodeFile("catalog.yml", data)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	if _, err := DecodeFile("catalog.yaml", []byte("name: nope\n")); err == nil {
		t.Error("expected error for a mapping without certifications")
	}
}

func TestLoader_RejectsDuplicatesAndKeepsPrevious(t *testing.T) {
	store := NewStore()
	loader := NewLoader(StaticSource{}, store)

	if _, err := store.Current(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}

	first, err := loader.Accept("test", []any{candidate(1, "a"), candidate(2, "b")})
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	_, err = loader.Accept("test", []any{candidate(1, "a"), candidate(1, "c")})
	if !errors.Is(err, schema.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	current, err := store.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current != first {
		t.Error("expected the previous snapshot to stay current")
	}
}

func TestLoader_RejectsInvalidRecord(t *testing.T) {
	bad := candidate(2, "b")
	bad["market_presence"] = 1.5

	loader := NewLoader(StaticSource{Candidates: []any{candidate(1, "a"), bad}}, NewStore())
	_, err := loader.Reload(context.Background())

	var cerr *schema.CollectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CollectionError, got %v", err)
	}
	if cerr.Index != 1 {
		t.Errorf("expected index 1, got %d", cerr.Index)
	}
	if !errors.Is(err, schema.ErrRange) {
		t.Errorf("expected ErrRange, got %v", err)
	}
}

func TestStore_OnPublish(t *testing.T) {
	store := NewStore()
	var versions []int64
	store.OnPublish(func(s *Snapshot) { versions = append(versions, s.Version) })

	loader := NewLoader(StaticSource{}, store)
	for i := 0; i < 2; i++ {
		if _, err := loader.Accept("test", []any{candidate(1, "a")}); err != nil {
			t.Fatalf("Accept failed: %v", err)
		}
	}
	if len(versions) != 2 || versions[1] != 2 {
		t.Errorf("expected versions [1 2], got %v", versions)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	write := func(items ...any) {
		t.Helper()
		data, err := json.Marshal(items)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	write(candidate(1, "a"))

	store := NewStore()
	loader := NewLoader(NewFileSource(path), store)
	if _, err := loader.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	published := make(chan *Snapshot, 8)
	store.OnPublish(func(s *Snapshot) { published <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := NewWatcher(loader, path, 20*time.Millisecond).Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	write(candidate(1, "a"), candidate(2, "b"))

	select {
	case snap := <-published:
		if snap.Len() != 2 {
			t.Errorf("expected 2 records after reload, got %d", snap.Len())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the catalog")
	}
}
