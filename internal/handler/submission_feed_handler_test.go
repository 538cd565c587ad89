package handler_test

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codearena-api/internal/config"
	"github.com/noah-isme/codearena-api/internal/handler"
	"github.com/noah-isme/codearena-api/internal/middleware"
	"github.com/noah-isme/codearena-api/internal/router"
	"github.com/noah-isme/codearena-api/internal/service"
)

func startFeedServer(t *testing.T) (string, service.SubmissionFeed) {
	t.Helper()

	feed := service.NewSubmissionFeed(nil, "", nil, zerolog.Nop())
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	router.Register(app, config.Config{AppName: "Test", JWTSecret: testJWTSecret}, router.Dependencies{
		SubmissionFeedHandler: handler.NewSubmissionFeedHandler(feed, zerolog.Nop()),
		JWTOptional:           middleware.JWTOptional(testJWTSecret),
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(listener) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + listener.Addr().String() + "/api/v2/submissions/feed/ws", feed
}

func dialFeed(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFeedMessage(t *testing.T, conn *websocket.Conn) service.FeedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var message service.FeedMessage
	require.NoError(t, conn.ReadJSON(&message))
	return message
}

func TestSubmissionFeedHandler_StreamsProblemEvents(t *testing.T) {
	url, feed := startFeedServer(t)
	conn := dialFeed(t, url+"?problem_id=8", nil)

	hello := readFeedMessage(t, conn)
	require.Equal(t, service.FeedMessageSubscribed, hello.Type)
	require.Equal(t, "problem:8", hello.Topic)

	feed.Publish(context.Background(), service.SubmissionEvent{SubmissionID: 1, UserID: "u1", ProblemID: 7, Status: "Accepted"})
	feed.Publish(context.Background(), service.SubmissionEvent{SubmissionID: 2, UserID: "u1", ProblemID: 8, Status: "Wrong Answer"})

	message := readFeedMessage(t, conn)
	require.Equal(t, service.FeedMessageSubmission, message.Type)
	require.NotNil(t, message.Event)
	require.Equal(t, uint(2), message.Event.SubmissionID)
	require.Equal(t, "Wrong Answer", message.Event.Status)
}

func TestSubmissionFeedHandler_PersonalScope(t *testing.T) {
	url, feed := startFeedServer(t)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	_, resp, err := dialer.Dial(url+"?scope=me", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	header := http.Header{"Authorization": {bearer(t, "u-9", "lin_user", "user")}}
	conn := dialFeed(t, url+"?scope=me", header)
	hello := readFeedMessage(t, conn)
	require.Equal(t, "user:u-9", hello.Topic)

	feed.Publish(context.Background(), service.SubmissionEvent{SubmissionID: 4, UserID: "someone-else", ProblemID: 1})
	feed.Publish(context.Background(), service.SubmissionEvent{SubmissionID: 5, UserID: "u-9", ProblemID: 1, Solved: true})

	message := readFeedMessage(t, conn)
	require.Equal(t, uint(5), message.Event.SubmissionID)
	require.True(t, message.Event.Solved)
}

func TestSubmissionFeedHandler_RequiresUpgrade(t *testing.T) {
	url, _ := startFeedServer(t)

	resp, err := http.Get("http" + strings.TrimPrefix(url, "ws"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
