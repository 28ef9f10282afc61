// Command certcheck validates a certification seed file and optionally
// publishes it to PostgreSQL, Redis or the NATS catalog feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/feed"
	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/schema"
	"github.com/terra-clan/certmap/internal/storage"
)

type options struct {
	file        string
	strict      bool
	databaseDSN string
	redisAddr   string
	redisKey    string
	natsURL     string
	natsSubject string
	timeout     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.file, "file", "data/certifications.yaml", "seed file to check (.yaml, .yml or .json)")
	flag.BoolVar(&opts.strict, "strict", false, "treat data-quality warnings as failures")
	flag.StringVar(&opts.databaseDSN, "import-dsn", "", "replace the catalog stored in this PostgreSQL database")
	flag.StringVar(&opts.redisAddr, "redis", "", "store the catalog in this Redis instance")
	flag.StringVar(&opts.redisKey, "redis-key", storage.DefaultRedisKey, "Redis key holding the catalog")
	flag.StringVar(&opts.natsURL, "nats", "", "push the catalog to running servers over NATS")
	flag.StringVar(&opts.natsSubject, "nats-subject", feed.DefaultSubject, "NATS catalog subject")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for publishing")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	candidates, records, ok := check(os.Stdout, opts)
	if !ok {
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := publish(ctx, opts, candidates, records); err != nil {
		slog.Error("publish failed", "error", err)
		os.Exit(1)
	}
}

// check reports every problem in the seed file and returns its contents when it is usable
func check(w io.Writer, opts options) ([]any, []*models.Certification, bool) {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return nil, nil, false
	}
	candidates, err := catalog.DecodeFile(opts.file, data)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return nil, nil, false
	}

	failed := false
	records := make([]*models.Certification, 0, len(candidates))
	for i, candidate := range candidates {
		res := schema.SafeValidate(candidate)
		if !res.OK() {
			failed = true
			for _, fe := range res.Err.Fields {
				fmt.Fprintf(w, "record %d: %s\n", i, fe.Error())
			}
			continue
		}
		records = append(records, res.Record)
	}

	if err := schema.CheckUnique(records); err != nil {
		failed = true
		for _, e := range flatten(err) {
			fmt.Fprintf(w, "duplicate: %v\n", e)
		}
	}

	warnings := 0
	for _, r := range records {
		for _, issue := range schema.QualityIssues(r) {
			warnings++
			fmt.Fprintf(w, "warning: %s: %s\n", r.Slug, issue.Error())
		}
	}
	if opts.strict && warnings > 0 {
		failed = true
	}

	fmt.Fprintf(w, "%s: %d records, %d valid, %d warnings\n", opts.file, len(candidates), len(records), warnings)
	return candidates, records, !failed
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func publish(ctx context.Context, opts options, candidates []any, records []*models.Certification) error {
	if opts.databaseDSN != "" {
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: opts.databaseDSN})
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.Migrate(ctx, ""); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		n, err := storage.Import(ctx, repo, candidates)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d records into postgres\n", n)
	}

	if opts.redisAddr != "" {
		src, err := storage.NewRedisSource(ctx, opts.redisAddr, os.Getenv("REDIS_PASSWORD"), 0, opts.redisKey)
		if err != nil {
			return err
		}
		defer src.Close()

		if err := src.Store(ctx, records); err != nil {
			return err
		}
		fmt.Printf("stored %d records in redis key %s\n", len(records), opts.redisKey)
	}

	if opts.natsURL != "" {
		nc, err := feed.Connect(opts.natsURL)
		if err != nil {
			return err
		}
		defer nc.Close()

		ack, err := feed.Push(ctx, nc, opts.natsSubject, records)
		if err != nil {
			return err
		}
		if !ack.Accepted {
			return errors.New("catalog rejected: " + ack.Error)
		}
		fmt.Printf("catalog accepted as version %d (%d records)\n", ack.Version, ack.Count)
	}

	return nil
}
