package realtime

import (
	"fmt"
	"time"

	"sawtfeel/pkg/models"
)

// Wire message types shared by both websocket endpoints.
const (
	TypeConnected        = "connected"
	TypeStatusUpdate     = "status_update"
	TypeProgressUpdate   = "progress_update"
	TypeEmotionUpdate    = "emotion_update"
	TypeTranscriptUpdate = "transcript_update"
	TypeTimeUpdate       = "time_update"
	TypePlay             = "play"
	TypePause            = "pause"
	TypeSeek             = "seek"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeCompleted        = "completed"
	TypeError            = "error"
)

// Message is the single server→client envelope. Optional numeric and
// boolean fields are pointers so zero values still reach the wire.
type Message struct {
	Type           string    `json:"type"`
	FileID         string    `json:"file_id,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	Progress       *int      `json:"progress,omitempty"`
	Message        string    `json:"message,omitempty"`
	CurrentTime    *float64  `json:"current_time,omitempty"`
	IsPlaying      *bool     `json:"is_playing,omitempty"`
	Time           *float64  `json:"time,omitempty"`
	Emotion        string    `json:"emotion,omitempty"`
	Confidence     *float64  `json:"confidence,omitempty"`
	TextualEmotion string    `json:"textual_emotion,omitempty"`
	TonalEmotion   string    `json:"tonal_emotion,omitempty"`
	CurrentWord    string    `json:"current_word,omitempty"`
	WordIndex      *int      `json:"word_index,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func boolPtr(v bool) *bool          { return &v }

func ConnectedMessage(fileID, sessionID string) Message {
	return Message{
		Type:      TypeConnected,
		FileID:    fileID,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
}

func StatusMessage(record models.ProcessingStatusRecord) Message {
	return Message{
		Type:      TypeStatusUpdate,
		FileID:    record.FileID,
		Status:    string(record.Status),
		Progress:  intPtr(record.Progress),
		Message:   fmt.Sprintf("File is %s", record.Status),
		Timestamp: time.Now(),
	}
}

func ProgressMessage(record models.ProcessingStatusRecord) Message {
	return Message{
		Type:      TypeProgressUpdate,
		FileID:    record.FileID,
		Status:    string(record.Status),
		Progress:  intPtr(record.Progress),
		Message:   fmt.Sprintf("Processing: %s", record.Status),
		Timestamp: time.Now(),
	}
}

func CompletedMessage(fileID string) Message {
	return Message{
		Type:      TypeCompleted,
		FileID:    fileID,
		Message:   "Processing completed successfully",
		Timestamp: time.Now(),
	}
}

func ErrorMessage(fileID, errText string) Message {
	return Message{
		Type:      TypeError,
		FileID:    fileID,
		Message:   "Processing failed",
		Error:     errText,
		Timestamp: time.Now(),
	}
}

func TimeUpdateMessage(fileID string, currentTime float64, playing bool) Message {
	return Message{
		Type:        TypeTimeUpdate,
		FileID:      fileID,
		CurrentTime: floatPtr(currentTime),
		IsPlaying:   boolPtr(playing),
		Timestamp:   time.Now(),
	}
}

func PlayMessage(fileID string) Message {
	return Message{Type: TypePlay, FileID: fileID, Timestamp: time.Now()}
}

func PauseMessage(fileID string) Message {
	return Message{Type: TypePause, FileID: fileID, Timestamp: time.Now()}
}

func SeekMessage(fileID string, seekTime float64) Message {
	return Message{
		Type:      TypeSeek,
		FileID:    fileID,
		Time:      floatPtr(seekTime),
		Timestamp: time.Now(),
	}
}

func PongMessage() Message {
	return Message{Type: TypePong, Timestamp: time.Now()}
}

func EmotionUpdateMessage(fileID string, currentTime float64, segment *models.EmotionSegment) Message {
	return Message{
		Type:           TypeEmotionUpdate,
		FileID:         fileID,
		CurrentTime:    floatPtr(currentTime),
		Emotion:        string(segment.CombinedEmotion),
		Confidence:     floatPtr(segment.CombinedConfidence),
		TextualEmotion: string(segment.TextualEmotion),
		TonalEmotion:   string(segment.TonalEmotion),
		Timestamp:      time.Now(),
	}
}

func TranscriptUpdateMessage(fileID string, currentTime float64, word string, wordIndex int) Message {
	return Message{
		Type:        TypeTranscriptUpdate,
		FileID:      fileID,
		CurrentTime: floatPtr(currentTime),
		CurrentWord: word,
		WordIndex:   intPtr(wordIndex),
		Timestamp:   time.Now(),
	}
}
