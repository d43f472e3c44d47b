// Package analyzers provides the windowed short-time spectral transform and
// spectral novelty measures that the pitch and tempo stages consume.
package analyzers

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/ritmo-radar/pkg/logging"
)

// SpectralConfig holds the static parameters of the transform.
type SpectralConfig struct {
	// SampleRate of the incoming samples in Hz.
	SampleRate int

	// WindowSize is the transform length in samples; must be a power of
	// two.
	WindowSize int

	// WindowType selects the analysis window applied before the
	// transform.
	WindowType WindowType
}

// SpectralFrame is the one-sided spectrum of a single analysis frame,
// WindowSize/2+1 bins from DC through Nyquist.
type SpectralFrame struct {
	Magnitude []float64    `json:"magnitude"`
	Phase     []float64    `json:"phase"`
	Complex   []complex128 `json:"-"`
}

// Bins returns the number of frequency bins.
func (f *SpectralFrame) Bins() int {
	return len(f.Magnitude)
}

// SpectralAnalyzer computes windowed real-input FFTs. Transform is a pure
// function of its input frame and the static configuration, so one analyzer
// may evaluate independent frames from multiple goroutines.
type SpectralAnalyzer struct {
	cfg      SpectralConfig
	window   *Window
	freqBins int
	logger   logging.Logger
}

// NewSpectralAnalyzer validates cfg and precomputes the analysis window.
func NewSpectralAnalyzer(cfg SpectralConfig) (*SpectralAnalyzer, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.WindowSize <= 0 || cfg.WindowSize&(cfg.WindowSize-1) != 0 {
		return nil, fmt.Errorf("window size must be a power of two, got %d", cfg.WindowSize)
	}

	win, err := NewWindow(cfg.WindowType, cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate window: %w", err)
	}

	return &SpectralAnalyzer{
		cfg:      cfg,
		window:   win,
		freqBins: cfg.WindowSize/2 + 1,
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": cfg.SampleRate,
			"window_size": cfg.WindowSize,
			"window_type": cfg.WindowType.String(),
		}),
	}, nil
}

// Transform windows a copy of frame and returns its one-sided spectrum.
//
// Magnitudes use the one-sided normalization convention: interior bins are
// scaled by 2/N, DC and Nyquist by 1/N, where N is the window size. The
// convention is fixed so that confidence thresholds stay comparable across
// configurations.
func (sa *SpectralAnalyzer) Transform(frame []float64) (*SpectralFrame, error) {
	if len(frame) != sa.cfg.WindowSize {
		return nil, fmt.Errorf("frame length %d does not match window size %d", len(frame), sa.cfg.WindowSize)
	}

	windowed := make([]float64, sa.cfg.WindowSize)
	copy(windowed, frame)
	if err := sa.window.ApplyInPlace(windowed); err != nil {
		return nil, err
	}

	fftResult := fft.FFTReal(windowed)

	out := &SpectralFrame{
		Magnitude: make([]float64, sa.freqBins),
		Phase:     make([]float64, sa.freqBins),
		Complex:   make([]complex128, sa.freqBins),
	}

	n := float64(sa.cfg.WindowSize)
	for i := 0; i < sa.freqBins; i++ {
		scale := 2.0 / n
		if i == 0 || i == sa.freqBins-1 {
			scale = 1.0 / n
		}
		out.Complex[i] = fftResult[i]
		out.Magnitude[i] = cmplx.Abs(fftResult[i]) * scale
		out.Phase[i] = cmplx.Phase(fftResult[i])
	}

	return out, nil
}

// FreqBins returns the number of bins Transform produces.
func (sa *SpectralAnalyzer) FreqBins() int {
	return sa.freqBins
}

// FreqResolution returns the bin spacing in Hz.
func (sa *SpectralAnalyzer) FreqResolution() float64 {
	return float64(sa.cfg.SampleRate) / float64(sa.cfg.WindowSize)
}

// BinFrequency returns the center frequency of a bin in Hz.
func (sa *SpectralAnalyzer) BinFrequency(bin int) float64 {
	return float64(bin) * sa.FreqResolution()
}

// SpectralFlux measures rectified spectral change between consecutive
// frames: the root of the summed squares of positive magnitude increases.
// Energy decreases do not contribute, so the measure responds to attacks
// rather than decays. A nil prev yields zero flux.
func SpectralFlux(prev, cur *SpectralFrame) float64 {
	if prev == nil || cur == nil {
		return 0
	}
	bins := min(len(prev.Magnitude), len(cur.Magnitude))

	sum := 0.0
	for i := 0; i < bins; i++ {
		diff := cur.Magnitude[i] - prev.Magnitude[i]
		if diff > 0 {
			sum += diff * diff
		}
	}
	return math.Sqrt(sum)
}
