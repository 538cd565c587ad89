package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/observability"
)

// SubmissionEvent is broadcast after a submission has been recorded.
type SubmissionEvent struct {
	EventID      string    `json:"event_id"`
	Source       string    `json:"source"`
	SubmissionID uint      `json:"submission_id"`
	UserID       string    `json:"user_id"`
	ProblemID    uint      `json:"problem_id"`
	Status       string    `json:"status"`
	Solved       bool      `json:"solved"`
	SentAt       time.Time `json:"sent_at"`
}

// SubmissionEventPublisher fans submission events out to the configured transports.
type SubmissionEventPublisher interface {
	Publish(ctx context.Context, event SubmissionEvent)
}

type submissionEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string
	now          func() time.Time
}

// newSubmissionEventPublisher publishes to "<channelBase>:submissions" on Redis and
// "<channelBase>.submissions" on NATS. Either transport may be nil.
func newSubmissionEventPublisher(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) *submissionEventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":submissions"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".submissions"
	}

	return &submissionEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "submission_events").Logger(),
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

// Publish never fails the caller; transport errors are logged and counted.
func (p *submissionEventPublisher) Publish(ctx context.Context, event SubmissionEvent) {
	p.publish(ctx, event)
}

// publish stamps the event with its id, source and time, sends it and returns the stamped copy.
func (p *submissionEventPublisher) publish(ctx context.Context, event SubmissionEvent) SubmissionEvent {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	event.Source = p.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode submission event")
		return event
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			observability.EventsPublished().WithLabelValues("redis", "error").Inc()
			p.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to publish submission event to redis")
		} else {
			observability.EventsPublished().WithLabelValues("redis", "ok").Inc()
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			observability.EventsPublished().WithLabelValues("nats", "error").Inc()
			p.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to publish submission event to nats")
		} else {
			observability.EventsPublished().WithLabelValues("nats", "ok").Inc()
		}
	}

	return event
}
