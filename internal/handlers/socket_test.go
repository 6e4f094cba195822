package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/requestdata"
	"github.com/yungbote/docreview-backend/internal/services"
	"github.com/yungbote/docreview-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type fakeSocketReviews struct {
	services.ReviewService
	detail *services.ReviewDetail
}

func (fr *fakeSocketReviews) GetReview(_ context.Context, _, _ uuid.UUID, _ bool) (*services.ReviewDetail, error) {
	return fr.detail, nil
}

type fakeSocketNotifier struct {
	services.NotifierService
	replay []realtime.Event
}

func (fn *fakeSocketNotifier) Replay(_ uuid.UUID) []realtime.Event {
	return fn.replay
}

type rawFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readBinaryFrame(t *testing.T, conn *websocket.Conn) rawFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("message type: want=%d (binary) got=%d", websocket.BinaryMessage, mt)
	}
	var frame rawFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return frame
}

func TestSocketSendsBinaryFrames(t *testing.T) {
	gin.SetMode(gin.TestMode)

	userID := uuid.New()
	reviewID := uuid.New()
	detail := &services.ReviewDetail{
		Review:  &types.Review{ID: reviewID, UserID: userID, Status: types.ReviewStatusProcessing},
		Columns: []*types.ReviewColumn{{ID: uuid.New(), ReviewID: reviewID, ColumnName: "Party"}},
		Files:   []*types.File{{ID: uuid.New(), UserID: userID, OriginalFilename: "contract.pdf"}},
	}

	hub := realtime.NewHub(mustTestLogger(t))
	notifier := &fakeSocketNotifier{replay: []realtime.Event{
		{Type: realtime.EventCellCompleted, ReviewID: reviewID, UserID: userID, Replayed: true},
	}}
	handler := NewSocketHandler(mustTestLogger(t), hub, notifier, &fakeSocketReviews{detail: detail})

	router := gin.New()
	router.GET("/reviews/:id/ws", func(c *gin.Context) {
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		handler.Socket(c)
	})

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/reviews/" + reviewID.String() + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	if frame := readBinaryFrame(t, conn); frame.Type != "structure" {
		t.Fatalf("first frame: want=structure got=%s", frame.Type)
	}
	if frame := readBinaryFrame(t, conn); frame.Type != "cached_results" {
		t.Fatalf("second frame: want=cached_results got=%s", frame.Type)
	}
	frame := readBinaryFrame(t, conn)
	if frame.Type != "event" {
		t.Fatalf("third frame: want=event got=%s", frame.Type)
	}
	var replayed realtime.Event
	if err := json.Unmarshal(frame.Data, &replayed); err != nil {
		t.Fatalf("unmarshal replayed event: %v", err)
	}
	if !replayed.Replayed {
		t.Fatalf("replayed event should carry the replayed marker")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if frame := readBinaryFrame(t, conn); frame.Type != "pong" {
		t.Fatalf("ping reply: want=pong got=%s", frame.Type)
	}
}
