package model

import "time"

// VideoStatus is a state in the review workflow.
type VideoStatus string

const (
	StatusPending       VideoStatus = "pending"
	StatusApproved      VideoStatus = "approved"
	StatusRejected      VideoStatus = "rejected"
	StatusPublished     VideoStatus = "published"
	StatusPublishFailed VideoStatus = "publish_failed"
)

// Video is one uploaded media asset.
//
// Duration, Format and Size are informational and come from the media
// store. PublishPending is set when a video was approved while its account
// had no channel credentials.
type Video struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	AccountID    string  `json:"accountId"`
	StorageURL   string  `json:"storageUrl"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
	StorageRef   string  `json:"-"`
	Duration     float64 `json:"duration,omitempty"`
	Format       string  `json:"format"`
	Size         int64   `json:"size"`
	UploadedBy   string  `json:"uploadedBy"`

	Status         VideoStatus `json:"status"`
	PublishPending bool        `json:"publishPending"`

	ReviewedBy  string     `json:"reviewedBy,omitempty"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`

	ExternalVideoID string     `json:"externalVideoId,omitempty"`
	PublicURL       string     `json:"publicUrl,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	PublishedBy     string     `json:"publishedBy,omitempty"`
	FailureReason   string     `json:"failureReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
