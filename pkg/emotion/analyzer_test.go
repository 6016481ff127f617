package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sawtfeel/pkg/audio"
	"sawtfeel/pkg/models"
)

type stubTextClassifier struct {
	label models.EmotionLabel
	conf  float64
	err   error
	calls []string
}

func (s *stubTextClassifier) ClassifyText(_ context.Context, text string) (models.EmotionLabel, float64, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return "", 0, s.err
	}
	return s.label, s.conf, nil
}

type stubTonalClassifier struct {
	label models.EmotionLabel
	conf  float64
	calls int
}

func (s *stubTonalClassifier) Classify(audio.Features) (models.EmotionLabel, float64) {
	s.calls++
	return s.label, s.conf
}

func pcmSeconds(seconds float64) *audio.PCM {
	return &audio.PCM{
		Samples:    make([]float64, int(seconds*16000)),
		SampleRate: 16000,
	}
}

func TestAnalyzePCMWindowsTimeline(t *testing.T) {
	text := &stubTextClassifier{label: models.EmotionJoy, conf: 0.9}
	tonal := &stubTonalClassifier{label: models.EmotionSadness, conf: 0.6}
	analyzer := NewAnalyzer(text, tonal, 2.0)

	transcript := &models.Transcript{
		FileID: "file-1",
		Words: []models.WordSegment{
			{Word: "مرحبا", StartTime: 0.2, EndTime: 0.8, Confidence: 0.9},
			{Word: "بالعالم", StartTime: 1.0, EndTime: 1.6, Confidence: 0.9},
			{Word: "شكرا", StartTime: 2.5, EndTime: 3.0, Confidence: 0.9},
		},
	}

	analysis, err := analyzer.AnalyzePCM(context.Background(), "file-1", transcript, pcmSeconds(5))
	require.NoError(t, err)
	require.Len(t, analysis.Segments, 3)

	require.Equal(t, 0.0, analysis.Segments[0].StartTime)
	require.Equal(t, 2.0, analysis.Segments[0].EndTime)
	require.Equal(t, 2.0, analysis.Segments[1].StartTime)
	require.Equal(t, 4.0, analysis.Segments[1].EndTime)
	require.Equal(t, 4.0, analysis.Segments[2].StartTime)
	require.Equal(t, 5.0, analysis.Segments[2].EndTime)

	// the silent tail window never reaches the text classifier
	require.Equal(t, []string{"مرحبا بالعالم", "شكرا"}, text.calls)
	require.Equal(t, 3, tonal.calls)

	// text wins the first two windows, tonal wins the silent one
	require.Equal(t, models.EmotionJoy, analysis.Segments[0].CombinedEmotion)
	require.InDelta(t, 0.72, analysis.Segments[0].CombinedConfidence, 1e-9)
	require.Equal(t, models.EmotionNeutral, analysis.Segments[2].TextualEmotion)
	require.Equal(t, 0.5, analysis.Segments[2].TextualConfidence)
	require.Equal(t, models.EmotionSadness, analysis.Segments[2].CombinedEmotion)
	require.InDelta(t, 0.48, analysis.Segments[2].CombinedConfidence, 1e-9)

	require.Equal(t, models.EmotionJoy, analysis.OverallEmotion)
	require.InDelta(t, 2.88/3.36, analysis.OverallConfidence, 1e-9)
}

func TestAnalyzePCMAgreementBoost(t *testing.T) {
	text := &stubTextClassifier{label: models.EmotionJoy, conf: 0.8}
	tonal := &stubTonalClassifier{label: models.EmotionJoy, conf: 0.7}
	analyzer := NewAnalyzer(text, tonal, 2.0)

	transcript := &models.Transcript{
		FileID: "file-1",
		Words:  []models.WordSegment{{Word: "سلام", StartTime: 0.1, EndTime: 0.5, Confidence: 0.9}},
	}

	analysis, err := analyzer.AnalyzePCM(context.Background(), "file-1", transcript, pcmSeconds(1.5))
	require.NoError(t, err)
	require.Len(t, analysis.Segments, 1)
	require.Equal(t, models.EmotionJoy, analysis.Segments[0].CombinedEmotion)
	require.InDelta(t, 0.9, analysis.Segments[0].CombinedConfidence, 1e-9)
	require.Equal(t, models.EmotionJoy, analysis.OverallEmotion)
}

func TestAnalyzePCMNoWords(t *testing.T) {
	text := &stubTextClassifier{label: models.EmotionJoy, conf: 0.9}
	tonal := &stubTonalClassifier{label: models.EmotionJoy, conf: 0.9}
	analyzer := NewAnalyzer(text, tonal, 2.0)

	analysis, err := analyzer.AnalyzePCM(context.Background(), "file-1", &models.Transcript{FileID: "file-1"}, pcmSeconds(5))
	require.NoError(t, err)
	require.Empty(t, analysis.Segments)
	require.Equal(t, models.EmotionNeutral, analysis.OverallEmotion)
	require.Equal(t, 0.5, analysis.OverallConfidence)
	require.Empty(t, text.calls)
	require.Zero(t, tonal.calls)
}

func TestAnalyzePCMTextClassifierErrorPropagates(t *testing.T) {
	text := &stubTextClassifier{err: errors.New("model offline")}
	tonal := &stubTonalClassifier{label: models.EmotionNeutral, conf: 0.8}
	analyzer := NewAnalyzer(text, tonal, 2.0)

	transcript := &models.Transcript{
		FileID: "file-1",
		Words:  []models.WordSegment{{Word: "سلام", StartTime: 0.1, EndTime: 0.5, Confidence: 0.9}},
	}

	_, err := analyzer.AnalyzePCM(context.Background(), "file-1", transcript, pcmSeconds(2))
	require.Error(t, err)
	require.Contains(t, err.Error(), "model offline")
}

func TestAnalyzePCMShortAudioReadsAsQuiet(t *testing.T) {
	// under 100ms of signal the features stay zero, which the rule
	// table reads as a quiet flat voice
	text := &stubTextClassifier{label: models.EmotionJoy, conf: 0.9}
	analyzer := NewAnalyzer(text, NewRuleTonalClassifier(), 2.0)

	transcript := &models.Transcript{
		FileID: "file-1",
		Words:  []models.WordSegment{{Word: "اه", StartTime: 0.0, EndTime: 0.05, Confidence: 0.9}},
	}

	analysis, err := analyzer.AnalyzePCM(context.Background(), "file-1", transcript, pcmSeconds(0.05))
	require.NoError(t, err)
	require.Len(t, analysis.Segments, 1)
	require.Equal(t, models.EmotionSadness, analysis.Segments[0].TonalEmotion)
	require.Equal(t, 0.6, analysis.Segments[0].TonalConfidence)
}

func TestAnalyzeMissingAudioFile(t *testing.T) {
	analyzer := NewAnalyzer(&stubTextClassifier{}, &stubTonalClassifier{}, 2.0)
	transcript := &models.Transcript{
		FileID: "file-1",
		Words:  []models.WordSegment{{Word: "سلام", StartTime: 0.1, EndTime: 0.5, Confidence: 0.9}},
	}
	_, err := analyzer.Analyze(context.Background(), "file-1", transcript, "no-such-file.wav")
	require.Error(t, err)
}

func TestAnalyzeEmptyTranscriptSkipsAudio(t *testing.T) {
	analyzer := NewAnalyzer(&stubTextClassifier{}, &stubTonalClassifier{}, 2.0)
	analysis, err := analyzer.Analyze(context.Background(), "file-1", &models.Transcript{FileID: "file-1"}, "no-such-file.wav")
	require.NoError(t, err)
	require.Empty(t, analysis.Segments)
	require.Equal(t, models.EmotionNeutral, analysis.OverallEmotion)
}
