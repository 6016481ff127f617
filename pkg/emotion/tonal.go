package emotion

import (
	"math"

	"sawtfeel/pkg/audio"
	"sawtfeel/pkg/models"
)

// RuleTonalClassifier scores vocal tone with a fixed rule table over
// normalized signal features.
type RuleTonalClassifier struct{}

func NewRuleTonalClassifier() *RuleTonalClassifier {
	return &RuleTonalClassifier{}
}

func (RuleTonalClassifier) Classify(f audio.Features) (models.EmotionLabel, float64) {
	energyNorm := math.Min(1.0, f.Energy*10)

	pitchNorm := 0.0
	if f.Pitch > 0 {
		pitchNorm = math.Min(1.0, f.Pitch/500)
	}

	tempoNorm := 0.0
	if f.Tempo > 0 {
		tempoNorm = math.Min(1.0, f.Tempo/200)
	}

	switch {
	case energyNorm > 0.7 && pitchNorm > 0.6:
		// loud and high-pitched
		return models.EmotionAnger, 0.7
	case energyNorm < 0.3 && pitchNorm < 0.4:
		// quiet and flat
		return models.EmotionSadness, 0.6
	case tempoNorm > 0.8:
		// fast speech
		return models.EmotionJoy, 0.6
	case f.SpectralCentroid > 2000:
		// bright spectrum
		return models.EmotionSurprise, 0.5
	default:
		return models.EmotionNeutral, 0.8
	}
}
