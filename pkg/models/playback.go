package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackCursor tracks one realtime client's position within a file.
// It is mutated only by its owning session's message handler.
type PlaybackCursor struct {
	SessionID   string    `json:"session_id"`
	FileID      string    `json:"file_id"`
	CurrentTime float64   `json:"current_time"`
	IsPlaying   bool      `json:"is_playing"`
	IsSeeking   bool      `json:"is_seeking"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

func NewPlaybackCursor(fileID string) *PlaybackCursor {
	now := time.Now()
	return &PlaybackCursor{
		SessionID:   uuid.New().String(),
		FileID:      fileID,
		CreatedAt:   now,
		LastUpdated: now,
	}
}
