package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event types emitted by the submission lifecycle.
const (
	SubmissionSubmitted   = "submission.submitted"
	SubmissionResubmitted = "submission.resubmitted"
	SubmissionGraded      = "submission.graded"
)

// Envelope is the wire format of every published event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Publisher fans domain events out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// Config controls where events are delivered. Empty prefixes disable a transport.
type Config struct {
	Source        string
	SubjectPrefix string
	RedisChannel  string
}

type brokerPublisher struct {
	nats   *nats.Conn
	redis  *redis.Client
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger
}

// NewPublisher publishes envelopes on NATS (subject "<prefix>.<type>") and
// mirrors them on a Redis channel. Either transport may be nil.
func NewPublisher(natsConn *nats.Conn, redisClient *redis.Client, cfg Config, logger zerolog.Logger) Publisher {
	if natsConn == nil && redisClient == nil {
		return NopPublisher{}
	}
	if cfg.Source == "" {
		cfg.Source = "coursework-api"
	}
	return &brokerPublisher{
		nats:   natsConn,
		redis:  redisClient,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *brokerPublisher) Publish(ctx context.Context, eventType string, data any) error {
	payload, err := p.encode(eventType, data)
	if err != nil {
		return err
	}

	var errs []error
	if p.nats != nil {
		if err := p.nats.Publish(Subject(p.cfg.SubjectPrefix, eventType), payload); err != nil {
			errs = append(errs, err)
		}
	}
	if p.redis != nil && p.cfg.RedisChannel != "" {
		if err := p.redis.Publish(ctx, p.cfg.RedisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		p.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
		return err
	}
	return nil
}

func (p *brokerPublisher) encode(eventType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     p.cfg.Source,
		OccurredAt: p.now().UTC(),
		Data:       raw,
	})
}

// Subject joins the configured prefix and event type.
func Subject(prefix, eventType string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// SubmissionEvent is the payload of every submission.* event.
type SubmissionEvent struct {
	SubmissionID uint     `json:"submission_id"`
	AssignmentID uint     `json:"assignment_id"`
	StudentID    uint     `json:"student_id"`
	Status       string   `json:"status"`
	Version      int      `json:"version"`
	IsLate       bool     `json:"is_late"`
	Grade        *float64 `json:"grade,omitempty"`
	GradedBy     *uint    `json:"graded_by,omitempty"`
}
