package tonal

import "math"

// spectralPeakEstimator locates the strongest magnitude bin within the
// frequency bounds and refines it to sub-bin precision by parabolic
// interpolation over log magnitudes.
type spectralPeakEstimator struct {
	params         PitchParams
	freqResolution float64
}

func newSpectralPeakEstimator(params PitchParams, sampleRate, windowSize int) *spectralPeakEstimator {
	return &spectralPeakEstimator{
		params:         params,
		freqResolution: float64(sampleRate) / float64(windowSize),
	}
}

func (s *spectralPeakEstimator) estimate(in FrameInput) PitchEstimate {
	mag := in.Spectrum.Magnitude
	bins := len(mag)
	if bins < 3 {
		return PitchEstimate{}
	}

	minBin := int(math.Ceil(s.params.MinFreq / s.freqResolution))
	if minBin < 1 {
		minBin = 1
	}
	maxBin := int(s.params.MaxFreq / s.freqResolution)
	if maxBin > bins-2 {
		maxBin = bins - 2
	}
	if minBin > maxBin {
		return PitchEstimate{}
	}

	peak := minBin
	for i := minBin + 1; i <= maxBin; i++ {
		if mag[i] > mag[peak] {
			peak = i
		}
	}
	if mag[peak] <= 0 {
		return PitchEstimate{}
	}

	// Log magnitudes make the parabola fit the spectral lobe shape far
	// better than linear magnitudes do.
	const eps = 1e-12
	neighborhood := []float64{
		math.Log(mag[peak-1] + eps),
		math.Log(mag[peak] + eps),
		math.Log(mag[peak+1] + eps),
	}
	refined := float64(peak) + parabolicInterpolation(neighborhood, 1) - 1.0

	frequency := refined * s.freqResolution
	if frequency < s.params.MinFreq || frequency > s.params.MaxFreq {
		return PitchEstimate{}
	}

	// Confidence is the share of spectral energy concentrated around the
	// peak: near one for a clean tone, near zero for flat noise. DC is
	// excluded from the baseline.
	total := 0.0
	for i := 1; i < bins; i++ {
		total += mag[i] * mag[i]
	}
	if total <= 0 {
		return PitchEstimate{}
	}

	local := 0.0
	for i := peak - 2; i <= peak+2; i++ {
		if i >= 1 && i < bins {
			local += mag[i] * mag[i]
		}
	}

	confidence := clamp01(local / total)
	if confidence == 0 {
		return PitchEstimate{}
	}

	return PitchEstimate{Frequency: frequency, Confidence: confidence}
}
