package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReviewStatusPending    = "pending"
	ReviewStatusProcessing = "processing"
	ReviewStatusCompleted  = "completed"
	ReviewStatusFailed     = "failed"
)

const (
	ReviewScopeFiles  = "files"
	ReviewScopeFolder = "folder"
)

type Review struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;index;not null;column:user_id" json:"user_id"`
	Name            string     `gorm:"not null;column:name" json:"name"`
	Description     string     `gorm:"column:description" json:"description,omitempty"`
	Status          string     `gorm:"not null;default:pending;column:status" json:"status"`
	ReviewScope     string     `gorm:"not null;default:files;column:review_scope" json:"review_scope"`
	FolderID        *uuid.UUID `gorm:"type:uuid;column:folder_id" json:"folder_id,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null;default:now()" json:"updated_at"`
	LastProcessedAt *time.Time `gorm:"column:last_processed_at" json:"last_processed_at,omitempty"`
}

func (Review) TableName() string {
	return "review"
}

type ReviewColumn struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewID    uuid.UUID `gorm:"type:uuid;index;not null;column:review_id" json:"review_id"`
	ColumnName  string    `gorm:"not null;column:column_name" json:"column_name"`
	Prompt      string    `gorm:"type:text;not null;column:prompt" json:"prompt"`
	DataType    string    `gorm:"not null;default:text;column:data_type" json:"data_type"`
	ColumnOrder int       `gorm:"not null;default:0;column:column_order" json:"column_order"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ReviewColumn) TableName() string {
	return "review_column"
}

type ReviewFile struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_review_file;column:review_id" json:"review_id"`
	FileID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_review_file;column:file_id" json:"file_id"`
	AddedAt  time.Time `gorm:"not null;default:now();column:added_at" json:"added_at"`
}

func (ReviewFile) TableName() string {
	return "review_file"
}

// ReviewResult is the persisted outcome of one (file, column) cell. The
// (review_id, file_id, column_id) identity is unique; writes go through an
// upsert with conflict = overwrite, so re-analysis is last-write-wins.
type ReviewResult struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_review_result_cell;column:review_id" json:"review_id"`
	FileID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_review_result_cell;column:file_id" json:"file_id"`
	ColumnID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_review_result_cell;column:column_id" json:"column_id"`
	ExtractedValue  *string   `gorm:"type:text;column:extracted_value" json:"extracted_value"`
	ConfidenceScore float64   `gorm:"not null;default:0;column:confidence_score" json:"confidence_score"`
	SourceReference string    `gorm:"column:source_reference" json:"source_reference"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReviewResult) TableName() string {
	return "review_result"
}
