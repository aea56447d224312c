package records

import (
	"context"
	"time"
)

// ProcessedRecord is one unit of work written by the image pipeline.
// Task holds the raw JSON text of the task column.
type ProcessedRecord struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Task      *string   `json:"task,omitempty"`
	ResultURL *string   `json:"result_url,omitempty"`
}

// UserMetadata carries lifetime counters for a single user.
type UserMetadata struct {
	UserID               string `json:"user_id"`
	IsAnonymous          bool   `json:"is_anonymous"`
	IsIndia              bool   `json:"is_india"`
	TotalTransforms      int64  `json:"total_transforms"`
	TotalShares          int64  `json:"total_shares"`
	TotalLikes           int64  `json:"total_likes"`
	TotalDislikes        int64  `json:"total_dislikes"`
	TotalBuyCreditsCalls int64  `json:"total_buy_credits_calls"`
	TotalSourceUploads   int64  `json:"total_source_uploads"`
	TotalAddCreditsCalls int64  `json:"total_add_credits_calls"`
}

// Source is the read side of the pipeline database.
type Source interface {
	ListProcessed(ctx context.Context, start, end time.Time) ([]ProcessedRecord, error)
	DistinctUserIDs(ctx context.Context, start, end time.Time) ([]string, error)
	MetadataForUsers(ctx context.Context, userIDs []string) ([]UserMetadata, error)
	MetadataByUser(ctx context.Context, userID string) (UserMetadata, error)
}
