// Package notify publishes state-change events to NATS JetStream so other
// systems can react to catalog refreshes without polling the store.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/loadkit/internal/config"
)

// Event is one published state change.
type Event struct {
	Type      string    `json:"type"` // catalog.refreshed | load.failed
	Entity    string    `json:"entity"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher manages the NATS connection and stream for state events.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to NATS and ensures the event stream exists.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("nats publishing is disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	p := &Publisher{conn: conn, js: js, subject: cfg.Subject}
	if err := p.ensureStream(cfg.Subject); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", cfg.URL, "subject", cfg.Subject)
	return p, nil
}

func (p *Publisher) ensureStream(subject string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := strings.ToUpper(strings.ReplaceAll(subject, ".", "_"))
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{subject + ".>"},
		MaxAge:   24 * time.Hour,
	})
	return err
}

// Publish sends one event. The subject is suffixed with the event type so
// consumers can subscribe selectively.
func (p *Publisher) Publish(event Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event.Timestamp = time.Now()
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.subject+"."+event.Type, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Debug("Published state event", "type", event.Type, "entity", event.Entity)
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	p.conn.Close()
}
