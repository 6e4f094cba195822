package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/services"
)

const streamHeartbeatInterval = 30 * time.Second

type StreamHandler struct {
	log           *logger.Logger
	hub           *realtime.Hub
	notifier      services.NotifierService
	reviewService services.ReviewService
}

func NewStreamHandler(log *logger.Logger, hub *realtime.Hub, notifier services.NotifierService, reviewService services.ReviewService) *StreamHandler {
	return &StreamHandler{
		log:           log.With("handler", "StreamHandler"),
		hub:           hub,
		notifier:      notifier,
		reviewService: reviewService,
	}
}

// Stream serves one review's events over SSE. Buffered events are replayed
// before live traffic so a reconnecting client catches up on what it missed.
func (sh *StreamHandler) Stream(c *gin.Context) {
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
	if _, err := sh.reviewService.GetReview(c.Request.Context(), reviewID, userID, false); err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		RespondError(c, http.StatusInternalServerError, "streaming_unsupported", fmt.Errorf("streaming unsupported"))
		return
	}

	client := sh.hub.Register(userID, reviewID)
	defer sh.hub.Unregister(client)

	writeEvent := func(ev realtime.Event) bool {
		raw, mErr := json.Marshal(ev)
		if mErr != nil {
			sh.log.Warn("failed to marshal event", "error", mErr)
			return true
		}
		if _, wErr := fmt.Fprintf(w, "data: %s\n\n", raw); wErr != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	now := time.Now().UTC()
	if !writeEvent(realtime.Event{
		Type:      realtime.EventConnected,
		ReviewID:  reviewID,
		UserID:    userID,
		Timestamp: now,
	}) {
		return
	}
	for _, ev := range sh.notifier.Replay(reviewID) {
		if !writeEvent(ev) {
			return
		}
	}

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case <-heartbeat.C:
			if !writeEvent(realtime.Event{
				Type:      realtime.EventHeartbeat,
				ReviewID:  reviewID,
				UserID:    userID,
				Timestamp: time.Now().UTC(),
			}) {
				return
			}
		case ev := <-client.Outbound:
			if !writeEvent(ev) {
				return
			}
		}
	}
}
