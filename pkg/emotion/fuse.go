package emotion

import (
	"math"

	"sawtfeel/pkg/models"
)

// Fusion tuning. Agreement between the two paths boosts the averaged
// confidence; disagreement keeps the stronger label at a penalty.
const (
	AgreementBoost      = 1.2
	DisagreementPenalty = 0.8
)

// Fuse combines the textual and tonal predictions for one window into a
// single label. It is pure and deterministic.
func Fuse(textEmotion models.EmotionLabel, textConf float64, tonalEmotion models.EmotionLabel, tonalConf float64) (models.EmotionLabel, float64) {
	if textConf+tonalConf == 0 {
		return models.EmotionNeutral, 0.5
	}

	if textEmotion == tonalEmotion {
		return textEmotion, math.Min(1.0, (textConf+tonalConf)/2*AgreementBoost)
	}

	// On a tie the tonal side wins.
	if textConf > tonalConf {
		return textEmotion, textConf * DisagreementPenalty
	}
	return tonalEmotion, tonalConf * DisagreementPenalty
}

// Dominant picks the file-level emotion as the duration-and-confidence
// weighted mode over the segments. Ties go to the label encountered
// first. The returned confidence is the winner's share of total weight.
func Dominant(segments []models.EmotionSegment) (models.EmotionLabel, float64) {
	weights := make(map[models.EmotionLabel]float64, len(models.EmotionLabels))
	var order []models.EmotionLabel
	var total float64

	for _, s := range segments {
		w := s.Duration() * s.CombinedConfidence
		if _, seen := weights[s.CombinedEmotion]; !seen {
			order = append(order, s.CombinedEmotion)
		}
		weights[s.CombinedEmotion] += w
		total += w
	}

	if total == 0 {
		return models.EmotionNeutral, 0.5
	}

	best, bestShare := models.EmotionNeutral, 0.0
	for _, label := range order {
		if share := weights[label] / total; share > bestShare {
			best, bestShare = label, share
		}
	}
	return best, bestShare
}
