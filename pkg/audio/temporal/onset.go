package temporal

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/ritmo-radar/pkg/audio/analyzers"
	"github.com/RyanBlaney/ritmo-radar/pkg/logging"
)

// Onset is a detected rhythmic event: a moment of sudden spectral energy
// increase.
type Onset struct {
	// Time of the frame that triggered the detection, relative to stream
	// start.
	Time time.Duration `json:"time"`

	// Strength is the spectral flux value that crossed the threshold.
	Strength float64 `json:"strength"`
}

// OnsetParams tunes the adaptive onset threshold.
type OnsetParams struct {
	// NoveltyWindow is the number of trailing flux values the adaptive
	// threshold is derived from.
	NoveltyWindow int `json:"novelty_window"`

	// ThresholdMargin scales the trailing mean added on top of the
	// trailing median. Higher values fire fewer onsets.
	ThresholdMargin float64 `json:"threshold_margin"`

	// MinOnsetGap is the refractory period; a candidate closer than this
	// to the previous onset is ignored. Suppresses double triggers from
	// attacks that span adjacent overlapping frames.
	MinOnsetGap time.Duration `json:"min_onset_gap"`

	// NoveltyFloor is the absolute flux level the adaptive threshold
	// never drops below. Over steady tonal passages the trailing window
	// holds only numeric jitter, and without a floor that jitter would
	// fire onsets by itself.
	NoveltyFloor float64 `json:"novelty_floor"`
}

// DefaultOnsetParams returns the standard detector tuning: a trailing
// window of about half a second of frames at the usual 512-sample hop.
func DefaultOnsetParams() OnsetParams {
	return OnsetParams{
		NoveltyWindow:   43,
		ThresholdMargin: 1.5,
		MinOnsetGap:     50 * time.Millisecond,
		NoveltyFloor:    0.001,
	}
}

// OnsetDetector turns a stream of spectral frames into discrete onset
// events. Novelty is rectified spectral flux; an onset fires when the
// current flux exceeds median + margin*mean of the trailing novelty
// window, clamped below by the absolute novelty floor. The threshold
// adapts to the running dynamics instead of relying on a fixed global
// level.
type OnsetDetector struct {
	params    OnsetParams
	prev      *analyzers.SpectralFrame
	novelty   []float64
	lastOnset time.Duration
	fired     bool
	logger    logging.Logger
}

// NewOnsetDetector validates params and returns a detector with empty
// history.
func NewOnsetDetector(params OnsetParams) (*OnsetDetector, error) {
	if params.NoveltyWindow < 2 {
		return nil, fmt.Errorf("novelty window must be at least 2, got %d", params.NoveltyWindow)
	}
	if params.ThresholdMargin <= 0 {
		return nil, fmt.Errorf("threshold margin must be positive, got %.3f", params.ThresholdMargin)
	}
	if params.MinOnsetGap < 0 {
		return nil, fmt.Errorf("minimum onset gap must not be negative, got %s", params.MinOnsetGap)
	}
	if params.NoveltyFloor < 0 {
		return nil, fmt.Errorf("novelty floor must not be negative, got %g", params.NoveltyFloor)
	}

	return &OnsetDetector{
		params:  params,
		novelty: make([]float64, 0, params.NoveltyWindow),
		logger: logging.WithFields(logging.Fields{
			"component":        "onset_detector",
			"novelty_window":   params.NoveltyWindow,
			"threshold_margin": params.ThresholdMargin,
		}),
	}, nil
}

// Process consumes the spectral frame at stream time t and reports whether
// it triggered an onset. The flux of the current frame is added to the
// trailing window only after the threshold decision, so a frame never
// suppresses itself.
func (od *OnsetDetector) Process(sf *analyzers.SpectralFrame, t time.Duration) (Onset, bool) {
	flux := analyzers.SpectralFlux(od.prev, sf)
	od.prev = sf

	var onset Onset
	detected := false
	if len(od.novelty) > 0 && flux > od.threshold() {
		if !od.fired || t-od.lastOnset >= od.params.MinOnsetGap {
			onset = Onset{Time: t, Strength: flux}
			od.lastOnset = t
			od.fired = true
			detected = true
		}
	}

	od.push(flux)
	return onset, detected
}

// threshold computes median + margin*mean over the trailing novelty
// window, never dropping below the absolute floor.
func (od *OnsetDetector) threshold() float64 {
	sorted := make([]float64, len(od.novelty))
	copy(sorted, od.novelty)
	sort.Float64s(sorted)

	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	mean := stat.Mean(od.novelty, nil)
	return math.Max(median+od.params.ThresholdMargin*mean, od.params.NoveltyFloor)
}

func (od *OnsetDetector) push(flux float64) {
	if len(od.novelty) == od.params.NoveltyWindow {
		copy(od.novelty, od.novelty[1:])
		od.novelty[len(od.novelty)-1] = flux
		return
	}
	od.novelty = append(od.novelty, flux)
}

// Reset clears all trailing state so the detector can start over on a new
// stream.
func (od *OnsetDetector) Reset() {
	od.prev = nil
	od.novelty = od.novelty[:0]
	od.lastOnset = 0
	od.fired = false
}
