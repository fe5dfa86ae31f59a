package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/kinfolk/internal/observability"
)

const (
	FamilyStreamName  = "FAMILY"
	FamilySubjectBase = "family"

	SubjectPersonCreated = FamilySubjectBase + ".persons.created"
	subjectMediaBase     = FamilySubjectBase + ".media"
)

type PersonCreatedEvent struct {
	IDNumber  string    `json:"id_number"`
	Name      string    `json:"name"`
	MotherID  string    `json:"mother_id,omitempty"`
	FatherID  string    `json:"father_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type MediaAttachedEvent struct {
	IDNumber   string    `json:"id_number"`
	Category   string    `json:"category"`
	ItemIDs    []string  `json:"item_ids"`
	MediaType  string    `json:"media_type"`
	AttachedAt time.Time `json:"attached_at"`
}

var subjectToken = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// MediaSubject is the per-person subject media events are published on.
func MediaSubject(idNumber string) string {
	return fmt.Sprintf("%s.%s", subjectMediaBase, subjectToken.Replace(idNumber))
}

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates the FAMILY stream if it doesn't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        FamilyStreamName,
		Subjects:    []string{FamilySubjectBase + ".>"},
		Retention:   jetstream.InterestPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Description: "Person and media lifecycle events",
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", cfg.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
		}
		slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

func (p *Producer) PublishPersonCreated(ctx context.Context, ev PersonCreatedEvent) error {
	return p.publish(ctx, "person_created", SubjectPersonCreated, ev)
}

func (p *Producer) PublishMediaAttached(ctx context.Context, ev MediaAttachedEvent) error {
	return p.publish(ctx, "media_attached", MediaSubject(ev.IDNumber), ev)
}

func (p *Producer) publish(ctx context.Context, event, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		observability.EventsPublished.WithLabelValues(event, "error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	observability.EventsPublished.WithLabelValues(event, "ok").Inc()
	return nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
