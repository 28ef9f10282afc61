//go:build integration

package feed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/schema"
)

func TestPushRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	nc, err := Connect(url)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer nc.Close()

	store := catalog.NewStore()
	f := New(nc, "certmap.test.catalog", catalog.NewLoader(catalog.StaticSource{}, store))
	if err := f.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.Stop()

	rec, err := schema.Validate(record(1, "a"))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ack, err := Push(ctx, nc, "certmap.test.catalog", []*models.Certification{rec})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if !ack.Accepted || !store.Loaded() {
		t.Errorf("expected accepted push, got %+v", ack)
	}
}
