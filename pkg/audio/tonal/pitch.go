// Package tonal implements per-frame fundamental frequency estimation with
// confidence scoring. Two methods are provided: a YIN-style time-domain
// difference function and a frequency-domain spectral peak search.
package tonal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/ritmo-radar/pkg/audio/analyzers"
	"github.com/RyanBlaney/ritmo-radar/pkg/logging"
)

// Method is the closed set of pitch detection algorithms. The selection is
// made once at construction; strings only exist at the configuration
// boundary.
type Method int

const (
	// MethodYIN runs the cumulative mean normalized difference function
	// over candidate lags in the time domain.
	MethodYIN Method = iota

	// MethodSpectralPeak locates the strongest magnitude peak within the
	// frequency bounds.
	MethodSpectralPeak
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case MethodYIN:
		return "yin"
	case MethodSpectralPeak:
		return "spectral_peak"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMethod maps a configuration string to a Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "yin", "":
		return MethodYIN, nil
	case "spectral_peak":
		return MethodSpectralPeak, nil
	default:
		return MethodYIN, fmt.Errorf("unknown pitch method %q", name)
	}
}

// PitchEstimate is the per-frame estimation result. Confidence 0 means the
// frame is unvoiced and Frequency carries no information, whatever its
// numeric value.
type PitchEstimate struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
}

// Voiced reports whether the estimate carries a usable frequency.
func (e PitchEstimate) Voiced() bool {
	return e.Confidence > 0
}

// PitchParams contains tuning parameters shared by all methods.
type PitchParams struct {
	Method Method `json:"method"`

	// MinFreq and MaxFreq bound the search range in Hz.
	MinFreq float64 `json:"min_freq"`
	MaxFreq float64 `json:"max_freq"`

	// YinThreshold is the absolute CMNDF threshold for the first-minimum
	// pick (typical 0.1-0.2). Lags failing it fall back to the global
	// minimum; the returned confidence stays continuous either way.
	YinThreshold float64 `json:"yin_threshold"`

	// SilenceFloorDB gates frames whose RMS level in dBFS falls below
	// it, short-circuiting to an unvoiced estimate.
	SilenceFloorDB float64 `json:"silence_floor_db"`
}

// DefaultPitchParams returns parameters tuned for voice and melodic
// content.
func DefaultPitchParams() PitchParams {
	return PitchParams{
		Method:         MethodYIN,
		MinFreq:        80.0,
		MaxFreq:        1000.0,
		YinThreshold:   0.15,
		SilenceFloorDB: -60.0,
	}
}

// FrameInput carries the per-frame views an estimator may consume. Samples
// holds the unwindowed time-domain frame; Spectrum is the transform of the
// same frame and is only required by spectral methods.
type FrameInput struct {
	Samples  []float64
	Spectrum *analyzers.SpectralFrame
}

// estimator is the capability interface a pitch method implements.
type estimator interface {
	estimate(in FrameInput) PitchEstimate
}

// PitchDetector runs the configured estimation method on analysis frames.
// Detection is stateless per frame; smoothing across frames is the
// caller's concern.
type PitchDetector struct {
	params     PitchParams
	sampleRate int
	windowSize int
	est        estimator
	logger     logging.Logger
}

// NewPitchDetector validates params against the sample rate and window size
// and builds the selected estimator.
func NewPitchDetector(params PitchParams, sampleRate, windowSize int) (*PitchDetector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}
	if params.MinFreq <= 0 || params.MaxFreq <= params.MinFreq {
		return nil, fmt.Errorf("invalid frequency range [%.1f, %.1f]", params.MinFreq, params.MaxFreq)
	}
	nyquist := float64(sampleRate) / 2
	if params.MaxFreq > nyquist {
		return nil, fmt.Errorf("max frequency %.1f exceeds Nyquist %.1f", params.MaxFreq, nyquist)
	}
	if params.YinThreshold <= 0 || params.YinThreshold >= 1 {
		return nil, fmt.Errorf("yin threshold must be in (0, 1), got %.3f", params.YinThreshold)
	}

	pd := &PitchDetector{
		params:     params,
		sampleRate: sampleRate,
		windowSize: windowSize,
		logger: logging.WithFields(logging.Fields{
			"component":   "pitch_detector",
			"method":      params.Method.String(),
			"sample_rate": sampleRate,
		}),
	}

	switch params.Method {
	case MethodYIN:
		est, err := newYinEstimator(params, sampleRate, windowSize)
		if err != nil {
			return nil, err
		}
		pd.est = est
	case MethodSpectralPeak:
		pd.est = newSpectralPeakEstimator(params, sampleRate, windowSize)
	default:
		return nil, fmt.Errorf("unsupported pitch method: %d", int(params.Method))
	}

	return pd, nil
}

// Detect estimates the fundamental frequency of one frame. A frame below
// the silence floor, or one with no detectable periodicity, yields an
// unvoiced estimate; neither is an error.
func (pd *PitchDetector) Detect(in FrameInput) (PitchEstimate, error) {
	if len(in.Samples) != pd.windowSize {
		return PitchEstimate{}, fmt.Errorf("frame size %d does not match window size %d", len(in.Samples), pd.windowSize)
	}
	if pd.params.Method == MethodSpectralPeak && in.Spectrum == nil {
		return PitchEstimate{}, fmt.Errorf("spectral peak method requires a spectrum")
	}

	if RMSLevelDB(in.Samples) < pd.params.SilenceFloorDB {
		return PitchEstimate{}, nil
	}

	return pd.est.estimate(in), nil
}

// Method returns the configured detection method.
func (pd *PitchDetector) Method() Method {
	return pd.params.Method
}

// RMSLevelDB computes the RMS level of samples in dBFS, where a full-scale
// sine has roughly -3 dB. Silence maps to -inf.
func RMSLevelDB(samples []float64) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// parabolicInterpolation refines an extremum location to sub-sample
// precision from its two neighbors.
func parabolicInterpolation(data []float64, peakIdx int) float64 {
	if peakIdx <= 0 || peakIdx >= len(data)-1 {
		return float64(peakIdx)
	}

	y1 := data[peakIdx-1]
	y2 := data[peakIdx]
	y3 := data[peakIdx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2

	if a == 0 {
		return float64(peakIdx)
	}

	return float64(peakIdx) - b/(2*a)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
