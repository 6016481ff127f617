package models

import (
	"fmt"
)

type EmotionLabel string

const (
	EmotionAnger    EmotionLabel = "anger"
	EmotionSadness  EmotionLabel = "sadness"
	EmotionJoy      EmotionLabel = "joy"
	EmotionNeutral  EmotionLabel = "neutral"
	EmotionFear     EmotionLabel = "fear"
	EmotionSurprise EmotionLabel = "surprise"
)

// EmotionLabels is the closed set of labels the system produces.
var EmotionLabels = []EmotionLabel{
	EmotionAnger,
	EmotionSadness,
	EmotionJoy,
	EmotionNeutral,
	EmotionFear,
	EmotionSurprise,
}

func (e EmotionLabel) Valid() bool {
	switch e {
	case EmotionAnger, EmotionSadness, EmotionJoy, EmotionNeutral, EmotionFear, EmotionSurprise:
		return true
	}
	return false
}

type EmotionSegment struct {
	StartTime          float64      `json:"start_time"`
	EndTime            float64      `json:"end_time"`
	TextualEmotion     EmotionLabel `json:"textual_emotion"`
	TextualConfidence  float64      `json:"textual_confidence"`
	TonalEmotion       EmotionLabel `json:"tonal_emotion"`
	TonalConfidence    float64      `json:"tonal_confidence"`
	CombinedEmotion    EmotionLabel `json:"combined_emotion"`
	CombinedConfidence float64      `json:"combined_confidence"`
}

func (s EmotionSegment) Duration() float64 {
	return s.EndTime - s.StartTime
}

type EmotionAnalysis struct {
	FileID            string           `json:"file_id"`
	Segments          []EmotionSegment `json:"segments"`
	OverallEmotion    EmotionLabel     `json:"overall_emotion"`
	OverallConfidence float64          `json:"overall_confidence"`
}

// NewEmotionAnalysis validates that segments are chronological and
// non-overlapping with sane confidences. Violations are rejected at
// construction, never silently repaired.
func NewEmotionAnalysis(fileID string, segments []EmotionSegment, overall EmotionLabel, overallConfidence float64) (*EmotionAnalysis, error) {
	if !overall.Valid() {
		return nil, fmt.Errorf("invalid overall emotion %q", overall)
	}
	if overallConfidence < 0 || overallConfidence > 1 {
		return nil, fmt.Errorf("overall confidence %f out of range [0,1]", overallConfidence)
	}
	for i, s := range segments {
		if s.EndTime <= s.StartTime {
			return nil, fmt.Errorf("segment %d: end_time %f must be after start_time %f", i, s.EndTime, s.StartTime)
		}
		if !s.TextualEmotion.Valid() || !s.TonalEmotion.Valid() || !s.CombinedEmotion.Valid() {
			return nil, fmt.Errorf("segment %d: emotion label outside the fixed set", i)
		}
		for _, c := range []float64{s.TextualConfidence, s.TonalConfidence, s.CombinedConfidence} {
			if c < 0 || c > 1 {
				return nil, fmt.Errorf("segment %d: confidence %f out of range [0,1]", i, c)
			}
		}
		if i > 0 && s.StartTime < segments[i-1].EndTime {
			return nil, fmt.Errorf("segment %d: overlaps or precedes segment %d", i, i-1)
		}
	}
	return &EmotionAnalysis{
		FileID:            fileID,
		Segments:          segments,
		OverallEmotion:    overall,
		OverallConfidence: overallConfidence,
	}, nil
}

// SegmentAt returns the first segment covering the given time, or nil.
func (a *EmotionAnalysis) SegmentAt(at float64) *EmotionSegment {
	for i := range a.Segments {
		s := &a.Segments[i]
		if s.StartTime <= at && at <= s.EndTime {
			return s
		}
	}
	return nil
}
