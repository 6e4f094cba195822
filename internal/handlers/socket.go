package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/services"
)

const (
	socketWriteTimeout = 10 * time.Second
	socketPingInterval = 30 * time.Second
)

type socketFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type SocketHandler struct {
	log           *logger.Logger
	hub           *realtime.Hub
	notifier      services.NotifierService
	reviewService services.ReviewService
	upgrader      websocket.Upgrader
}

func NewSocketHandler(log *logger.Logger, hub *realtime.Hub, notifier services.NotifierService, reviewService services.ReviewService) *SocketHandler {
	return &SocketHandler{
		log:           log.With("handler", "SocketHandler"),
		hub:           hub,
		notifier:      notifier,
		reviewService: reviewService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// auth already happened via the token query param
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Socket serves the same event feed as the SSE stream over a WebSocket, for
// clients behind proxies that buffer chunked responses. The connection opens
// with a structure frame and a cached_results frame so the client can render
// the current matrix before live events arrive.
func (sh *SocketHandler) Socket(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	detail, err := sh.reviewService.GetReview(c.Request.Context(), reviewID, userID, true)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}

	conn, err := sh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sh.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := sh.hub.Register(userID, reviewID)
	defer sh.hub.Unregister(client)

	// Frames go out as binary messages carrying JSON payloads.
	writeFrame := func(frame socketFrame) bool {
		payload, mErr := json.Marshal(frame)
		if mErr != nil {
			sh.log.Error("failed to encode socket frame", "type", frame.Type, "error", mErr)
			return false
		}
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		return conn.WriteMessage(websocket.BinaryMessage, payload) == nil
	}

	if !writeFrame(socketFrame{Type: "structure", Data: gin.H{
		"columns": detail.Columns,
		"files":   detail.Files,
	}}) {
		return
	}
	if !writeFrame(socketFrame{Type: "cached_results", Data: detail.Results}) {
		return
	}
	for _, ev := range sh.notifier.Replay(reviewID) {
		if !writeFrame(socketFrame{Type: "event", Data: ev}) {
			return
		}
	}

	// reader answers pings and notices disconnects
	readDone := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(readDone)
		for {
			_, raw, rErr := conn.ReadMessage()
			if rErr != nil {
				return
			}
			var frame socketFrame
			if jErr := json.Unmarshal(raw, &frame); jErr != nil {
				continue
			}
			if frame.Type == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(socketPingInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case <-client.Done():
			return
		case <-pings:
			if !writeFrame(socketFrame{Type: "pong"}) {
				return
			}
		case <-heartbeat.C:
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
			if wErr := conn.WriteMessage(websocket.PingMessage, nil); wErr != nil {
				return
			}
		case ev := <-client.Outbound:
			if !writeFrame(socketFrame{Type: "event", Data: ev}) {
				return
			}
		}
	}
}
