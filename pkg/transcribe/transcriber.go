package transcribe

import (
	"context"

	"sawtfeel/pkg/models"
)

// Result is the adapter-neutral transcription output.
type Result struct {
	Text       string
	Language   string
	Words      []models.WordSegment
	Confidence float64
}

// Transcriber converts a normalized audio artifact into word-timed text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// Translator produces an English rendering of Arabic source text.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}
