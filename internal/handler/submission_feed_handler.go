package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/middleware"
	"github.com/noah-isme/codearena-api/internal/service"
	"github.com/noah-isme/codearena-api/internal/utils"
)

const localFeedTopic = "feed_topic"

// SubmissionFeedHandler streams submission events over websockets.
type SubmissionFeedHandler struct {
	feed   service.SubmissionFeed
	logger zerolog.Logger
}

// NewSubmissionFeedHandler creates a feed handler instance.
func NewSubmissionFeedHandler(feed service.SubmissionFeed, logger zerolog.Logger) *SubmissionFeedHandler {
	return &SubmissionFeedHandler{
		feed:   feed,
		logger: logger.With().Str("component", "submission_feed_handler").Logger(),
	}
}

// Register binds the feed routes. Query parameters: problem_id narrows the feed to one problem,
// scope=me to the caller's own submissions.
func (h *SubmissionFeedHandler) Register(router fiber.Router) {
	router.Use("/ws", h.upgrade)
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *SubmissionFeedHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	var problemID uint
	if raw := strings.TrimSpace(c.Query("problem_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid problem_id")
		}
		problemID = uint(parsed)
	}

	topic, err := service.FeedTopic(callerFromContext(c), problemID, c.Query("scope") == "me")
	if err != nil {
		if errors.Is(err, service.ErrFeedUnauthenticated) {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	c.Locals(localFeedTopic, topic)
	return c.Next()
}

func (h *SubmissionFeedHandler) handleConnection(conn *websocket.Conn) {
	topic, _ := conn.Locals(localFeedTopic).(string)
	userID, _ := conn.Locals(middleware.LocalUserID).(string)
	correlation, _ := conn.Locals("correlation_id").(string)

	h.feed.ServeConnection(conn, service.FeedConnectionOptions{
		Topic:         topic,
		UserID:        userID,
		CorrelationID: correlation,
		Context:       context.Background(),
	})
}
