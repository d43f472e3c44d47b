// Package temporal implements onset detection and online tempo tracking
// over streaming spectral frames.
package temporal

import (
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/ritmo-radar/pkg/logging"
)

// TrackerPhase describes how far the tempo tracker has converged.
type TrackerPhase int

const (
	// PhaseWarmingUp means the tracker has not yet seen enough coherent
	// onsets to publish an estimate.
	PhaseWarmingUp TrackerPhase = iota

	// PhaseTracking means a stable estimate is available. The phase is
	// sticky: only Reset returns the tracker to warm-up.
	PhaseTracking
)

// String returns the configuration name of the phase.
func (p TrackerPhase) String() string {
	switch p {
	case PhaseWarmingUp:
		return "warming_up"
	case PhaseTracking:
		return "tracking"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// TempoState is a snapshot of the tracker. BPM and Confidence are zero
// while the tracker is warming up.
type TempoState struct {
	BPM        float64      `json:"bpm"`
	Confidence float64      `json:"confidence"`
	Phase      TrackerPhase `json:"phase"`

	// OnsetCount is the total number of onsets ever observed, including
	// ones already evicted from the history ring.
	OnsetCount int `json:"onset_count"`

	// RecentOnsets is a copy of the bounded onset history, oldest first.
	RecentOnsets []time.Duration `json:"recent_onsets"`
}

// TempoParams tunes the beat-period estimator.
type TempoParams struct {
	// MinBPM and MaxBPM bound the reported tempo. Candidates outside the
	// range are folded back in by octave doubling/halving, so the range
	// must span at least one octave.
	MinBPM float64 `json:"min_bpm"`
	MaxBPM float64 `json:"max_bpm"`

	// HistorySize caps the onset ring; the oldest onset is evicted first.
	HistorySize int `json:"history_size"`

	// MinOnsets is the ring occupancy required before the tracker may
	// leave warm-up.
	MinOnsets int `json:"min_onsets"`

	// HysteresisBPM is the half/double-tempo snap band. When an octave
	// relative of the winning candidate lies within this distance of the
	// previous stable estimate, the tracker keeps the established
	// interpretation instead of jumping an octave.
	HysteresisBPM float64 `json:"hysteresis_bpm"`
}

// DefaultTempoParams returns the standard tracker tuning covering common
// musical tempos.
func DefaultTempoParams() TempoParams {
	return TempoParams{
		MinBPM:        60,
		MaxBPM:        200,
		HistorySize:   32,
		MinOnsets:     4,
		HysteresisBPM: 8,
	}
}

// bpmClusterWidth is the maximum distance between a folded interval tempo
// and a cluster center for the interval to support that cluster.
const bpmClusterWidth = 5.0

// onsetTrainResolution is the bin width used when rasterizing the onset
// history for the periodicity autocorrelation.
const onsetTrainResolution = 10 * time.Millisecond

// TempoTracker estimates the dominant beat period from a stream of onset
// times. Each onset updates the estimate from the bounded history ring:
// inter-onset intervals are folded into the BPM range and clustered, the
// winning cluster is the one with the most support weighted by how
// periodic the onset train is at that period, and half/double ambiguity
// resolves toward the previous stable estimate.
type TempoTracker struct {
	params TempoParams
	onsets []time.Duration
	total  int

	bpm        float64
	confidence float64
	phase      TrackerPhase

	logger logging.Logger
}

// NewTempoTracker validates params and returns a tracker in the warm-up
// phase.
func NewTempoTracker(params TempoParams) (*TempoTracker, error) {
	if params.MinBPM <= 0 {
		return nil, fmt.Errorf("minimum BPM must be positive, got %.1f", params.MinBPM)
	}
	if params.MaxBPM < 2*params.MinBPM {
		return nil, fmt.Errorf("BPM range [%.1f, %.1f] must span at least one octave", params.MinBPM, params.MaxBPM)
	}
	if params.MinOnsets < 2 {
		return nil, fmt.Errorf("minimum onset count must be at least 2, got %d", params.MinOnsets)
	}
	if params.HistorySize < params.MinOnsets {
		return nil, fmt.Errorf("history size %d is smaller than minimum onset count %d", params.HistorySize, params.MinOnsets)
	}
	if params.HysteresisBPM < 0 {
		return nil, fmt.Errorf("hysteresis band must not be negative, got %.1f", params.HysteresisBPM)
	}

	return &TempoTracker{
		params: params,
		onsets: make([]time.Duration, 0, params.HistorySize),
		logger: logging.WithFields(logging.Fields{
			"component": "tempo_tracker",
			"min_bpm":   params.MinBPM,
			"max_bpm":   params.MaxBPM,
		}),
	}, nil
}

// AddOnset records an onset time and refreshes the estimate. Work per call
// is bounded by the history size regardless of stream length.
func (tt *TempoTracker) AddOnset(t time.Duration) {
	if len(tt.onsets) == tt.params.HistorySize {
		copy(tt.onsets, tt.onsets[1:])
		tt.onsets[len(tt.onsets)-1] = t
	} else {
		tt.onsets = append(tt.onsets, t)
	}
	tt.total++

	if len(tt.onsets) >= tt.params.MinOnsets {
		tt.estimate()
	}
}

// Current returns a snapshot of the tracker state.
func (tt *TempoTracker) Current() TempoState {
	recent := make([]time.Duration, len(tt.onsets))
	copy(recent, tt.onsets)

	return TempoState{
		BPM:          tt.bpm,
		Confidence:   tt.confidence,
		Phase:        tt.phase,
		OnsetCount:   tt.total,
		RecentOnsets: recent,
	}
}

// Reset discards all state and returns the tracker to warm-up. This is the
// only transition out of the tracking phase.
func (tt *TempoTracker) Reset() {
	tt.onsets = tt.onsets[:0]
	tt.total = 0
	tt.bpm = 0
	tt.confidence = 0
	tt.phase = PhaseWarmingUp
}

type bpmCluster struct {
	sum float64
	n   int
}

func (c bpmCluster) center() float64 {
	return c.sum / float64(c.n)
}

// estimate recomputes BPM, confidence and phase from the onset ring.
func (tt *TempoTracker) estimate() {
	candidates := tt.intervalTempos()
	if len(candidates) == 0 {
		return
	}

	var clusters []bpmCluster
	for _, bpm := range candidates {
		matched := false
		for i := range clusters {
			if math.Abs(bpm-clusters[i].center()) <= bpmClusterWidth {
				clusters[i].sum += bpm
				clusters[i].n++
				matched = true
				break
			}
		}
		if !matched {
			clusters = append(clusters, bpmCluster{sum: bpm, n: 1})
		}
	}

	// Support counts decide; the periodicity of the onset train at the
	// cluster period breaks ties between rival interpretations. Clusters
	// are scored in first-seen order, so equal scores keep the earlier
	// candidate and the estimate stays deterministic.
	best := clusters[0]
	bestScore := 0.0
	var bestPeriodicity float64
	for _, c := range clusters {
		periodicity := tt.periodicityScore(60.0 / c.center())
		score := float64(c.n) * (1 + periodicity)
		if score > bestScore {
			best = c
			bestScore = score
			bestPeriodicity = periodicity
		}
	}

	candidate := best.center()
	if tt.phase == PhaseTracking && tt.params.HysteresisBPM > 0 {
		candidate = tt.snapToStable(candidate)
	}

	support := float64(best.n) / float64(len(candidates))
	tt.bpm = candidate
	tt.confidence = clamp01(support * (0.5 + 0.5*bestPeriodicity))

	if tt.phase == PhaseWarmingUp && support >= 0.5 {
		tt.phase = PhaseTracking
		tt.logger.Debug("tempo estimate locked", logging.Fields{
			"bpm":        tt.bpm,
			"confidence": tt.confidence,
			"onsets":     tt.total,
		})
	}
}

// intervalTempos folds each inter-onset interval of the ring into the
// configured BPM range. Non-positive intervals from out-of-order input are
// skipped.
func (tt *TempoTracker) intervalTempos() []float64 {
	tempos := make([]float64, 0, len(tt.onsets))
	for i := 1; i < len(tt.onsets); i++ {
		ioi := (tt.onsets[i] - tt.onsets[i-1]).Seconds()
		if ioi <= 0 {
			continue
		}
		tempos = append(tempos, tt.foldBPM(60.0/ioi))
	}
	return tempos
}

// foldBPM doubles or halves bpm until it lands inside [MinBPM, MaxBPM].
// Construction guarantees the range spans an octave, so folding always
// terminates inside it.
func (tt *TempoTracker) foldBPM(bpm float64) float64 {
	for bpm < tt.params.MinBPM {
		bpm *= 2
	}
	for bpm > tt.params.MaxBPM {
		bpm /= 2
	}
	return bpm
}

// snapToStable resolves half/double-tempo ambiguity. Among the candidate
// and its in-range octave relatives, the one closest to the previous
// stable estimate wins, but only when it falls inside the hysteresis band;
// genuine tempo changes outside the band pass through unchanged.
func (tt *TempoTracker) snapToStable(candidate float64) float64 {
	best := candidate
	bestDiff := math.Abs(candidate - tt.bpm)
	for _, alt := range []float64{candidate * 2, candidate / 2} {
		if alt < tt.params.MinBPM || alt > tt.params.MaxBPM {
			continue
		}
		if d := math.Abs(alt - tt.bpm); d < bestDiff {
			best = alt
			bestDiff = d
		}
	}
	if bestDiff <= tt.params.HysteresisBPM {
		return best
	}
	return candidate
}

// periodicityScore measures how well the onset ring repeats at the given
// period in seconds. The onsets are rasterized into a coarse binary train
// and correlated with themselves one period ahead, allowing one bin of
// jitter. 1 means every onset has a successor one period later, 0 means
// none does.
func (tt *TempoTracker) periodicityScore(period float64) float64 {
	if len(tt.onsets) < 2 || period <= 0 {
		return 0
	}

	first := tt.onsets[0]
	span := tt.onsets[len(tt.onsets)-1] - first
	n := int(span/onsetTrainResolution) + 2
	lag := int(math.Round(period / onsetTrainResolution.Seconds()))
	if lag < 1 || lag+1 >= n {
		return 0
	}

	train := make([]float64, n)
	for _, t := range tt.onsets {
		idx := int((t - first) / onsetTrainResolution)
		if idx < 0 || idx >= n {
			continue
		}
		train[idx] = 1
	}

	hits, total := 0.0, 0.0
	for i := 0; i+lag+1 < n; i++ {
		if train[i] == 0 {
			continue
		}
		total++
		match := train[i+lag]
		if train[i+lag-1] > match {
			match = train[i+lag-1]
		}
		if train[i+lag+1] > match {
			match = train[i+lag+1]
		}
		hits += match
	}
	if total == 0 {
		return 0
	}
	return hits / total
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
