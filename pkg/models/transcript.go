package models

import (
	"fmt"
)

type WordSegment struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Confidence float64 `json:"confidence"`
}

// Transcript is immutable once produced; re-processing replaces it
// wholesale in the cache.
type Transcript struct {
	FileID      string        `json:"file_id"`
	Text        string        `json:"text"`
	EnglishText string        `json:"english_text,omitempty"`
	Words       []WordSegment `json:"words"`
	Language    string        `json:"language"`
	Confidence  float64       `json:"overall_confidence"`
}

// NewTranscript validates word ordering and confidence ranges. Invalid
// input is rejected, never repaired.
func NewTranscript(fileID, text, language string, words []WordSegment, confidence float64) (*Transcript, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("overall confidence %f out of range [0,1]", confidence)
	}
	for i, w := range words {
		if w.EndTime <= w.StartTime {
			return nil, fmt.Errorf("word %d (%q): end_time %f must be after start_time %f", i, w.Word, w.EndTime, w.StartTime)
		}
		if w.Confidence < 0 || w.Confidence > 1 {
			return nil, fmt.Errorf("word %d (%q): confidence %f out of range [0,1]", i, w.Word, w.Confidence)
		}
		if i > 0 && w.StartTime < words[i-1].StartTime {
			return nil, fmt.Errorf("word %d (%q): start_time %f precedes previous word", i, w.Word, w.StartTime)
		}
	}
	return &Transcript{
		FileID:     fileID,
		Text:       text,
		Words:      words,
		Language:   language,
		Confidence: confidence,
	}, nil
}

// WordAt returns the index of the word containing the given time, or the
// most recently completed word when the time falls between words. It
// never returns a future word; -1 means no word applies.
func (t *Transcript) WordAt(at float64) int {
	for i, w := range t.Words {
		if at >= w.StartTime && at <= w.EndTime {
			return i
		}
		if at < w.StartTime {
			return i - 1
		}
	}
	return -1
}
