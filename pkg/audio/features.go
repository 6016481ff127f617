package audio

import "math"

// Features are the per-window inputs to the rule-based tone classifier.
// Pitch is a zero-crossing estimate in Hz, Tempo an onset-rate estimate
// in BPM, SpectralCentroid a spectral brightness estimate in Hz.
type Features struct {
	Energy           float64
	Pitch            float64
	Tempo            float64
	SpectralCentroid float64
}

// ComputeFeatures derives tone features from one window of mono PCM.
// Windows shorter than 100ms carry too little signal and yield zeros.
func ComputeFeatures(samples []float64, rate int) Features {
	if rate <= 0 || len(samples) < rate/10 {
		return Features{}
	}

	var sumSq float64
	for _, s := range samples {
		sumSq += s * s
	}
	energy := math.Sqrt(sumSq / float64(len(samples)))

	crossings := 0
	var diffSq float64
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
		d := samples[i] - samples[i-1]
		diffSq += d * d
	}
	pitch := float64(crossings) * float64(rate) / (2 * float64(len(samples)))

	centroid := 0.0
	if sumSq > 0 {
		centroid = float64(rate) / (2 * math.Pi) * math.Sqrt(diffSq/sumSq)
	}

	return Features{
		Energy:           energy,
		Pitch:            pitch,
		Tempo:            tempoEstimate(samples, rate),
		SpectralCentroid: centroid,
	}
}

// tempoEstimate counts energy-envelope peaks as onsets and scales the
// onset rate to beats per minute.
func tempoEstimate(samples []float64, rate int) float64 {
	frame := rate / 20 // 50ms envelope frames
	if frame < 1 {
		frame = 1
	}

	var envelope []float64
	for i := 0; i+frame <= len(samples); i += frame {
		var e float64
		for _, s := range samples[i : i+frame] {
			e += s * s
		}
		envelope = append(envelope, e/float64(frame))
	}
	if len(envelope) < 3 {
		return 0
	}

	var mean float64
	for _, e := range envelope {
		mean += e
	}
	mean /= float64(len(envelope))
	if mean == 0 {
		return 0
	}

	peaks := 0
	for i := 1; i < len(envelope)-1; i++ {
		if envelope[i] > 1.5*mean && envelope[i] > envelope[i-1] && envelope[i] >= envelope[i+1] {
			peaks++
		}
	}

	duration := float64(len(samples)) / float64(rate)
	return float64(peaks) / duration * 60
}
