package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	FileStatusUploading  = "uploading"
	FileStatusProcessing = "processing"
	FileStatusCompleted  = "completed"
	FileStatusFailed     = "failed"
)

type File struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;index;not null;column:user_id" json:"user_id"`
	FolderID         *uuid.UUID `gorm:"type:uuid;index;column:folder_id" json:"folder_id,omitempty"`
	OriginalFilename string     `gorm:"not null;column:original_filename" json:"original_filename"`
	FileSize         int64      `gorm:"column:file_size" json:"file_size"`
	Status           string     `gorm:"not null;default:uploading;column:status" json:"status"`
	CreatedAt        time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (File) TableName() string {
	return "file"
}

// DocumentText is the plain-text rendering of a file produced by the
// ingestion pipeline. The extraction workers only ever read it.
type DocumentText struct {
	FileID    uuid.UUID `gorm:"type:uuid;primaryKey;column:file_id" json:"file_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null;column:user_id" json:"user_id"`
	Content   string    `gorm:"type:text;not null;column:content" json:"content"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DocumentText) TableName() string {
	return "document_text"
}
