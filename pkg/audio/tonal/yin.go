package tonal

import (
	"fmt"
	"math"
)

// yinEstimator implements the cumulative mean normalized difference
// function from de Cheveigné & Kawahara (2002), searching candidate lags
// bounded by the configured frequency range.
type yinEstimator struct {
	params     PitchParams
	sampleRate int
	windowSize int
	minLag     int
	maxLag     int
}

func newYinEstimator(params PitchParams, sampleRate, windowSize int) (*yinEstimator, error) {
	halfN := windowSize / 2

	minLag := int(float64(sampleRate) / params.MaxFreq)
	if minLag < 2 {
		minLag = 2
	}
	maxLag := int(math.Ceil(float64(sampleRate) / params.MinFreq))
	if maxLag > halfN-1 {
		maxLag = halfN - 1
	}
	if minLag >= maxLag {
		return nil, fmt.Errorf("window size %d cannot resolve frequency range [%.1f, %.1f] at %d Hz",
			windowSize, params.MinFreq, params.MaxFreq, sampleRate)
	}

	return &yinEstimator{
		params:     params,
		sampleRate: sampleRate,
		windowSize: windowSize,
		minLag:     minLag,
		maxLag:     maxLag,
	}, nil
}

func (y *yinEstimator) estimate(in FrameInput) PitchEstimate {
	frame := in.Samples
	halfN := y.windowSize / 2

	// Difference function, computed one lag past maxLag so the
	// local-minimum check below has a right neighbor.
	upper := y.maxLag + 1
	diff := make([]float64, upper+1)
	for tau := 1; tau <= upper; tau++ {
		sum := 0.0
		for j := 0; j < halfN; j++ {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	// Cumulative mean normalized difference.
	cmndf := make([]float64, upper+1)
	cmndf[0] = 1.0
	runningSum := 0.0
	for tau := 1; tau <= upper; tau++ {
		runningSum += diff[tau]
		if runningSum <= 0 {
			cmndf[tau] = 1.0
		} else {
			cmndf[tau] = diff[tau] * float64(tau) / runningSum
		}
	}

	// First local minimum below the threshold wins; otherwise fall back
	// to the deepest dip in range. The threshold steers the pick toward
	// the fundamental rather than a subharmonic, while the returned
	// confidence stays continuous for the caller to judge.
	pick := -1
	for tau := y.minLag; tau <= y.maxLag; tau++ {
		if cmndf[tau] < y.params.YinThreshold && cmndf[tau] < cmndf[tau+1] {
			pick = tau
			break
		}
	}
	if pick < 0 {
		pick = y.minLag
		for tau := y.minLag + 1; tau <= y.maxLag; tau++ {
			if cmndf[tau] < cmndf[pick] {
				pick = tau
			}
		}
	}

	confidence := clamp01(1.0 - cmndf[pick])
	if confidence == 0 {
		return PitchEstimate{}
	}

	period := parabolicInterpolation(cmndf, pick)
	if period <= 0 {
		return PitchEstimate{}
	}

	frequency := float64(y.sampleRate) / period
	if frequency < y.params.MinFreq || frequency > y.params.MaxFreq {
		return PitchEstimate{}
	}

	return PitchEstimate{Frequency: frequency, Confidence: confidence}
}
