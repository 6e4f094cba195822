package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventConnected EventType = "connected"
	EventHeartbeat EventType = "heartbeat"

	EventAnalysisStarted   EventType = "analysis_started"
	EventAnalysisCompleted EventType = "analysis_completed"
	EventAnalysisFailed    EventType = "analysis_failed"

	EventFilesAdded             EventType = "files_added"
	EventFilesAnalysisStarted   EventType = "files_analysis_started"
	EventFilesAnalysisCompleted EventType = "files_analysis_completed"
	EventFilesAnalysisFailed    EventType = "files_analysis_failed"

	EventColumnAdded             EventType = "column_added"
	EventColumnUpdated           EventType = "column_updated"
	EventColumnDeleted           EventType = "column_deleted"
	EventColumnAnalysisStarted   EventType = "column_analysis_started"
	EventColumnAnalysisCompleted EventType = "column_analysis_completed"
	EventColumnAnalysisFailed    EventType = "column_analysis_failed"

	EventCellProcessingStarted EventType = "cell_processing_started"
	EventCellCompleted         EventType = "cell_completed"
	EventCellError             EventType = "cell_error"
	EventResultUpdated         EventType = "result_updated"
)

// Event is the wire unit for review progress fanout. Origin identifies the
// publishing process so the cross-process forwarder can skip events it
// already delivered locally.
type Event struct {
	Type      EventType      `json:"type"`
	ReviewID  uuid.UUID      `json:"review_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Replayed  bool           `json:"replayed,omitempty"`
	Origin    string         `json:"origin,omitempty"`
}
