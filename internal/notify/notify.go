// Package notify announces persisted placements to downstream systems.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/abhisek/tierwise/internal/placement"
	"github.com/abhisek/tierwise/internal/tier"
)

// DefaultSubject is the subject prefix when none is configured.
const DefaultSubject = "tierwise.placement"

// Placement is the message published after a result is stored.
type Placement struct {
	AttemptID   string            `json:"attemptId"`
	SessionID   string            `json:"sessionId"`
	TestName    string            `json:"testName"`
	Tier        tier.Tier         `json:"tier"`
	Final       bool              `json:"final"`
	Result      *placement.Result `json:"result"`
	PublishedAt time.Time         `json:"publishedAt"`
}

// EffectiveTier is the reading effective tier when present, else the
// score tier.
func EffectiveTier(r *placement.Result) tier.Tier {
	if r.Reading != nil {
		return r.Reading.EffectiveTier
	}
	return r.Tier
}

// Publisher sends placement messages.
type Publisher interface {
	Publish(ctx context.Context, p Placement) error
	Close() error
}

// Nop discards every message.
type Nop struct{}

func (Nop) Publish(context.Context, Placement) error { return nil }
func (Nop) Close() error                             { return nil }

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes to <subject>.tier_<n>.
type NATSPublisher struct {
	nc      conn
	subject string
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("tierwise"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newNATSPublisher(nc, subject, logger), nil
}

func newNATSPublisher(nc conn, subject string, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{nc: nc, subject: strings.TrimSuffix(subject, "."), logger: logger}
}

// Subject returns the subject a placement at t is published on.
func (p *NATSPublisher) Subject(t tier.Tier) string {
	return fmt.Sprintf("%s.tier_%d", p.subject, int(t))
}

// Publish sends pl as JSON and flushes.
func (p *NATSPublisher) Publish(ctx context.Context, pl Placement) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return fmt.Errorf("publish placement: publisher closed")
	}

	if pl.PublishedAt.IsZero() {
		pl.PublishedAt = time.Now().UTC()
	}
	data, err := json.Marshal(pl)
	if err != nil {
		return fmt.Errorf("marshal placement: %w", err)
	}

	subject := p.Subject(pl.Tier)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	p.logger.Debug("placement published", "subject", subject, "attempt_id", pl.AttemptID)
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.nc.Drain()
}
