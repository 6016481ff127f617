package emotion

import (
	"context"
	"fmt"
	"math"
	"strings"

	"sawtfeel/pkg/audio"
	"sawtfeel/pkg/models"
)

// TextClassifier scores the emotional tone of a piece of text.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (models.EmotionLabel, float64, error)
}

// TonalClassifier scores vocal tone from signal features.
type TonalClassifier interface {
	Classify(features audio.Features) (models.EmotionLabel, float64)
}

// Analyzer runs dual-path emotion analysis over fixed-width windows of
// the extracted audio, fusing the textual and tonal predictions per
// window.
type Analyzer struct {
	text   TextClassifier
	tonal  TonalClassifier
	window float64
}

func NewAnalyzer(text TextClassifier, tonal TonalClassifier, windowSeconds float64) *Analyzer {
	if windowSeconds <= 0 {
		windowSeconds = 2.0
	}
	return &Analyzer{text: text, tonal: tonal, window: windowSeconds}
}

func (a *Analyzer) Analyze(ctx context.Context, fileID string, transcript *models.Transcript, audioPath string) (*models.EmotionAnalysis, error) {
	if transcript == nil || len(transcript.Words) == 0 {
		return a.AnalyzePCM(ctx, fileID, transcript, &audio.PCM{})
	}

	pcm, err := audio.ReadWAV(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio for analysis: %w", err)
	}
	return a.AnalyzePCM(ctx, fileID, transcript, pcm)
}

// AnalyzePCM is the decoded-audio entry point. A transcript with no
// words yields an analysis with no segments.
func (a *Analyzer) AnalyzePCM(ctx context.Context, fileID string, transcript *models.Transcript, pcm *audio.PCM) (*models.EmotionAnalysis, error) {
	if transcript == nil || len(transcript.Words) == 0 {
		overall, confidence := Dominant(nil)
		return models.NewEmotionAnalysis(fileID, nil, overall, confidence)
	}

	duration := pcm.Duration()
	var segments []models.EmotionSegment

	for start := 0.0; start < duration; start += a.window {
		end := math.Min(start+a.window, duration)

		textLabel, textConf, err := a.classifyText(ctx, windowText(transcript.Words, start, end))
		if err != nil {
			return nil, fmt.Errorf("text classification failed at %.1fs: %w", start, err)
		}

		tonalLabel, tonalConf := a.classifyWindow(pcm, start, end)
		combined, combinedConf := Fuse(textLabel, textConf, tonalLabel, tonalConf)

		segments = append(segments, models.EmotionSegment{
			StartTime:          start,
			EndTime:            end,
			TextualEmotion:     textLabel,
			TextualConfidence:  textConf,
			TonalEmotion:       tonalLabel,
			TonalConfidence:    tonalConf,
			CombinedEmotion:    combined,
			CombinedConfidence: combinedConf,
		})
	}

	overall, confidence := Dominant(segments)
	return models.NewEmotionAnalysis(fileID, segments, overall, confidence)
}

func (a *Analyzer) classifyText(ctx context.Context, text string) (models.EmotionLabel, float64, error) {
	if strings.TrimSpace(text) == "" {
		return models.EmotionNeutral, 0.5, nil
	}
	return a.text.ClassifyText(ctx, text)
}

func (a *Analyzer) classifyWindow(pcm *audio.PCM, start, end float64) (models.EmotionLabel, float64) {
	window := pcm.Window(start, end)
	if len(window) == 0 {
		return models.EmotionNeutral, 0.5
	}
	return a.tonal.Classify(audio.ComputeFeatures(window, pcm.SampleRate))
}

// windowText joins the words that fall entirely inside [start, end].
func windowText(words []models.WordSegment, start, end float64) string {
	var parts []string
	for _, w := range words {
		if w.StartTime >= start && w.EndTime <= end {
			parts = append(parts, w.Word)
		}
	}
	return strings.Join(parts, " ")
}
