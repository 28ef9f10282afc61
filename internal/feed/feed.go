// Package feed accepts full catalog pushes over NATS.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/schema"
)

// DefaultSubject carries full catalog documents as JSON arrays
const DefaultSubject = "certmap.catalog"

// Ack is sent back when a push was made as a request
type Ack struct {
	Accepted bool   `json:"accepted"`
	Version  int64  `json:"version,omitempty"`
	Count    int    `json:"count,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Feed subscribes to catalog pushes and publishes valid ones
type Feed struct {
	nc      *nats.Conn
	subject string
	loader  *catalog.Loader
	sub     *nats.Subscription
}

// Connect dials NATS with reconnect logging
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("certmap"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

// New creates a feed; Start must be called to subscribe
func New(nc *nats.Conn, subject string, loader *catalog.Loader) *Feed {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Feed{nc: nc, subject: subject, loader: loader}
}

// Start subscribes to the catalog subject
func (f *Feed) Start() error {
	sub, err := f.nc.Subscribe(f.subject, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), headerCarrier(msg.Header))
		ack := f.Handle(ctx, msg.Data)
		if msg.Reply == "" {
			return
		}
		data, _ := json.Marshal(ack)
		if err := msg.Respond(data); err != nil {
			slog.Warn("failed to ack catalog push", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", f.subject, err)
	}

	f.sub = sub
	slog.Info("catalog feed started", "subject", f.subject)
	return nil
}

// Stop drains the subscription
func (f *Feed) Stop() {
	if f.sub == nil {
		return
	}
	if err := f.sub.Drain(); err != nil {
		slog.Warn("failed to drain catalog feed", "error", err)
	}
}

// Handle validates a pushed catalog and publishes it when valid
func (f *Feed) Handle(ctx context.Context, data []byte) Ack {
	candidates, err := schema.DecodeCollection(data)
	if err != nil {
		slog.Warn("dropping malformed catalog push", "subject", f.subject, "error", err)
		return Ack{Error: err.Error()}
	}

	snap, err := f.loader.Accept("nats:"+f.subject, candidates)
	if err != nil {
		return Ack{Error: err.Error()}
	}
	return Ack{Accepted: true, Version: snap.Version, Count: snap.Len()}
}

// Push publishes records on subject and waits for the ack
func Push(ctx context.Context, nc *nats.Conn, subject string, records []*models.Certification) (Ack, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to marshal catalog: %w", err)
	}

	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(msg.Header))

	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return Ack{}, fmt.Errorf("catalog push failed: %w", err)
	}

	var ack Ack
	if err := json.Unmarshal(resp.Data, &ack); err != nil {
		return Ack{}, fmt.Errorf("failed to decode ack: %w", err)
	}
	return ack, nil
}

// headerCarrier adapts NATS headers for trace propagation
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c headerCarrier) Set(key, val string) {
	if c != nil {
		nats.Header(c).Set(key, val)
	}
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
