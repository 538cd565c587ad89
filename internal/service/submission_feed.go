package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/codearena-api/internal/observability"
)

const (
	feedBufferSize   = 32
	feedLastEventTTL = 30 * time.Minute
	feedRecentEvents = 256
	feedPingInterval = 30 * time.Second
	feedSubscribeTTL = 5 * time.Second
)

// FeedTopicGlobal receives every submission event.
const FeedTopicGlobal = "global"

// Feed message types.
const (
	FeedMessageSubscribed = "subscribed"
	FeedMessageSubmission = "submission"
)

// ErrFeedUnauthenticated indicates a personal feed was requested without an identity.
var ErrFeedUnauthenticated = errors.New("personal feed requires an authenticated caller")

// FeedMessage is one frame sent to a feed subscriber.
type FeedMessage struct {
	Type   string           `json:"type"`
	Topic  string           `json:"topic"`
	Replay bool             `json:"replay,omitempty"`
	Event  *SubmissionEvent `json:"event,omitempty"`
}

// FeedConnectionOptions wraps metadata extracted during the HTTP upgrade.
type FeedConnectionOptions struct {
	Topic         string
	UserID        string
	CorrelationID string
	Context       context.Context
}

// SubmissionFeed publishes submission events and fans them out to live subscribers on every node.
type SubmissionFeed interface {
	SubmissionEventPublisher
	Subscribe(topic string) (<-chan FeedMessage, func())
	ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions)
	Start(ctx context.Context)
}

// FeedTopic resolves the topic a subscriber listens on: the caller's own submissions, one problem,
// or everything.
func FeedTopic(caller Caller, problemID uint, mine bool) (string, error) {
	switch {
	case mine:
		if caller.Anonymous() {
			return "", ErrFeedUnauthenticated
		}
		return "user:" + caller.UserID, nil
	case problemID > 0:
		return fmt.Sprintf("problem:%d", problemID), nil
	default:
		return FeedTopicGlobal, nil
	}
}

func eventTopics(event SubmissionEvent) []string {
	topics := []string{FeedTopicGlobal}
	if event.ProblemID > 0 {
		topics = append(topics, fmt.Sprintf("problem:%d", event.ProblemID))
	}
	if event.UserID != "" {
		topics = append(topics, "user:"+event.UserID)
	}
	return topics
}

type submissionFeed struct {
	publisher  *submissionEventPublisher
	lastPrefix string
	broker     *feedBroker
	recent     *recentEvents
	tracer     trace.Tracer
	logger     zerolog.Logger
}

type feedBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan FeedMessage]struct{}
}

// recentEvents remembers the last few event ids so an event relayed by both Redis and NATS is
// delivered once.
type recentEvents struct {
	mu   sync.Mutex
	ids  map[string]struct{}
	ring []string
	next int
}

// NewSubmissionFeed creates a feed that publishes to "<channelBase>:submissions" on Redis and
// "<channelBase>.submissions" on NATS, and relays events published by other nodes to local subscribers.
func NewSubmissionFeed(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) SubmissionFeed {
	lastPrefix := ""
	if channelBase != "" {
		lastPrefix = channelBase + ":submissions:last"
	}

	return &submissionFeed{
		publisher:  newSubmissionEventPublisher(redisClient, channelBase, natsConn, logger),
		lastPrefix: lastPrefix,
		broker:     &feedBroker{subscribers: make(map[string]map[chan FeedMessage]struct{})},
		recent:     &recentEvents{ids: make(map[string]struct{}, feedRecentEvents), ring: make([]string, feedRecentEvents)},
		tracer:     otel.Tracer("github.com/noah-isme/codearena-api/internal/service/feed"),
		logger:     logger.With().Str("component", "submission_feed").Logger(),
	}
}

// Start subscribes to the remote transports. Subscriptions are confirmed before Start returns and
// end when ctx is cancelled.
func (s *submissionFeed) Start(ctx context.Context) {
	if s.publisher.redis != nil && s.publisher.redisChannel != "" {
		s.consumeRedis(ctx)
	}
	if s.publisher.nats != nil && s.publisher.natsSubject != "" {
		s.consumeNATS(ctx)
	}
}

func (s *submissionFeed) Publish(ctx context.Context, event SubmissionEvent) {
	spanCtx, span := s.tracer.Start(ctx, "submission_feed.publish", trace.WithAttributes(
		attribute.Int64("submission.id", int64(event.SubmissionID)),
		attribute.Int64("submission.problem_id", int64(event.ProblemID)),
		attribute.String("submission.status", event.Status),
	))
	defer span.End()

	stamped := s.publisher.publish(spanCtx, event)
	s.recent.add(stamped.EventID)
	s.cacheLast(spanCtx, stamped)
	s.broadcast(stamped, "local")
}

func (s *submissionFeed) Subscribe(topic string) (<-chan FeedMessage, func()) {
	channel := make(chan FeedMessage, feedBufferSize)

	s.broker.subscribe(topic, channel)
	observability.FeedSubscribers().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(topic, channel)
			observability.FeedSubscribers().Dec()
		})
	}

	return channel, cleanup
}

func (s *submissionFeed) ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Topic == "" {
		opts.Topic = FeedTopicGlobal
	}

	logger := s.logger.With().
		Str("topic", opts.Topic).
		Str("user_id", opts.UserID).
		Str("correlation_id", opts.CorrelationID).
		Logger()

	stream, cleanup := s.Subscribe(opts.Topic)
	defer cleanup()
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(FeedMessage{Type: FeedMessageSubscribed, Topic: opts.Topic}); err != nil {
		logger.Debug().Err(err).Msg("feed handshake write failed")
		return
	}
	if last := s.fetchLast(ctx, opts.Topic); last != nil {
		if err := conn.WriteJSON(FeedMessage{Type: FeedMessageSubmission, Topic: opts.Topic, Replay: true, Event: last}); err != nil {
			return
		}
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	logger.Info().Msg("feed subscriber connected")
	defer logger.Info().Msg("feed subscriber disconnected")

	for {
		select {
		case message, ok := <-stream:
			if !ok {
				return
			}
			if err := conn.WriteJSON(message); err != nil {
				logger.Debug().Err(err).Msg("feed write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("feed ping failed")
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *submissionFeed) broadcast(event SubmissionEvent, origin string) {
	for _, topic := range eventTopics(event) {
		copied := event
		s.broker.broadcast(topic, FeedMessage{Type: FeedMessageSubmission, Topic: topic, Event: &copied})
	}
	observability.FeedEvents().WithLabelValues(origin).Inc()
}

func (s *submissionFeed) cacheLast(ctx context.Context, event SubmissionEvent) {
	redisClient := s.publisher.redis
	if redisClient == nil || s.lastPrefix == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal submission event for cache")
		return
	}

	_, err = redisClient.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, topic := range eventTopics(event) {
			pipe.Set(ctx, s.lastKey(topic), payload, feedLastEventTTL)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache last submission event")
	}
}

func (s *submissionFeed) fetchLast(ctx context.Context, topic string) *SubmissionEvent {
	redisClient := s.publisher.redis
	if redisClient == nil || s.lastPrefix == "" {
		return nil
	}

	result, err := redisClient.Get(ctx, s.lastKey(topic)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("topic", topic).Msg("failed to read last submission event")
		}
		return nil
	}

	var event SubmissionEvent
	if err := json.Unmarshal([]byte(result), &event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached submission event")
		return nil
	}
	return &event
}

func (s *submissionFeed) lastKey(topic string) string {
	return s.lastPrefix + ":" + topic
}

func (s *submissionFeed) consumeRedis(ctx context.Context) {
	pubsub := s.publisher.redis.Subscribe(ctx, s.publisher.redisChannel)

	confirmCtx, cancel := context.WithTimeout(ctx, feedSubscribeTTL)
	defer cancel()
	if _, err := pubsub.Receive(confirmCtx); err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to redis submission channel")
		_ = pubsub.Close()
		return
	}

	go func() {
		defer func() { _ = pubsub.Close() }()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				s.logger.Error().Err(err).Msg("submission redis subscription closed")
				return
			}
			s.handleEvent([]byte(msg.Payload))
		}
	}()
}

// consumeNATS uses a plain subscription so every node sees every event.
func (s *submissionFeed) consumeNATS(ctx context.Context) {
	sub, err := s.publisher.nats.Subscribe(s.publisher.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats submission subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain submission nats subscription")
		}
	}()
}

func (s *submissionFeed) handleEvent(payload []byte) {
	var event SubmissionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid submission event payload")
		return
	}

	if event.Source == s.publisher.nodeID {
		return
	}
	if !s.recent.add(event.EventID) {
		return
	}

	s.broadcast(event, "remote")
}

func (b *feedBroker) subscribe(topic string, ch chan FeedMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[topic]; !exists {
		b.subscribers[topic] = make(map[chan FeedMessage]struct{})
	}
	b.subscribers[topic][ch] = struct{}{}
}

func (b *feedBroker) unsubscribe(topic string, ch chan FeedMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[topic]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, topic)
		}
	}
}

// broadcast drops messages for subscribers whose buffer is full.
func (b *feedBroker) broadcast(topic string, message FeedMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[topic] {
		select {
		case ch <- message:
		default:
		}
	}
}

// add records id and reports whether it was new. Empty ids are always new.
func (r *recentEvents) add(id string) bool {
	if id == "" {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; ok {
		return false
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.ids, old)
	}
	r.ring[r.next] = id
	r.ids[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ring)
	return true
}
