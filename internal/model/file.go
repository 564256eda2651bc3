package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transcoding states a file moves through. Uploads that never entered the
// pipeline stay at "not_started".
const (
	TranscodingPending    = "pending"
	TranscodingProcessing = "processing"
	TranscodingCompleted  = "completed"
	TranscodingFailed     = "failed"
	TranscodingNotStarted = "not_started"
)

type File struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	OriginalName string `gorm:"size:255;not null" json:"name"`
	MimeType     string `gorm:"size:100;not null" json:"mime_type"`

	// Files live in S3 under a key distinct from their original name so two
	// users can upload files named the same way
	FileKey      string `gorm:"not null" json:"file_key"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	PreviewKey   string `json:"preview_key,omitempty"`

	Size        int64       `json:"size"`
	Description string      `json:"description,omitempty"`
	Tags        StringSlice `json:"tags"` // tag IDs, best-effort references

	TranscodingStatus string   `gorm:"size:20;default:'not_started'" json:"transcoding_status"`
	HLSManifestKey    string   `json:"hls_manifest_key,omitempty"`
	DashManifestKey   string   `json:"dash_manifest_key,omitempty"`
	Duration          *float64 `json:"duration,omitempty"` // seconds, videos only

	OwnerID    string `gorm:"size:36;index;not null" json:"-"`
	CategoryID string `gorm:"size:36;index" json:"category_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Groups []Group `gorm:"many2many:file_groups;" json:"-"`
}

func (f *File) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	return nil
}
