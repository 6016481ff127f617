package realtime

import (
	"errors"
	"sync"
	"time"

	"sawtfeel/pkg/models"
)

var (
	ErrSessionNotFound   = errors.New("playback session not found")
	ErrInvalidCursorTime = errors.New("cursor time must not be negative")
)

// SessionRegistry holds one playback cursor per connected realtime
// client. Cursors are mutated only through UpdateCursor; callers always
// receive copies.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*models.PlaybackCursor
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*models.PlaybackCursor),
	}
}

// Create allocates a session for the file at time zero, not playing.
func (r *SessionRegistry) Create(fileID string) models.PlaybackCursor {
	cursor := models.NewPlaybackCursor(fileID)

	r.mu.Lock()
	r.sessions[cursor.SessionID] = cursor
	r.mu.Unlock()

	return *cursor
}

func (r *SessionRegistry) Get(sessionID string) (models.PlaybackCursor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cursor, ok := r.sessions[sessionID]
	if !ok {
		return models.PlaybackCursor{}, false
	}
	return *cursor, true
}

// UpdateCursor moves the session's cursor and returns the new state.
func (r *SessionRegistry) UpdateCursor(sessionID string, currentTime float64, playing, seeking bool) (models.PlaybackCursor, error) {
	if currentTime < 0 {
		return models.PlaybackCursor{}, ErrInvalidCursorTime
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cursor, ok := r.sessions[sessionID]
	if !ok {
		return models.PlaybackCursor{}, ErrSessionNotFound
	}

	cursor.CurrentTime = currentTime
	cursor.IsPlaying = playing
	cursor.IsSeeking = seeking
	cursor.LastUpdated = time.Now()
	return *cursor, nil
}

func (r *SessionRegistry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SweepIdle drops sessions that have not been updated within the idle
// window, covering clients that vanished without disconnecting.
func (r *SessionRegistry) SweepIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, cursor := range r.sessions {
		if cursor.LastUpdated.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
