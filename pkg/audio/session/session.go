// Package session orchestrates the streaming analysis pipeline: buffered
// framing, spectral transform, pitch estimation and onset/tempo tracking,
// driven synchronously by Feed calls.
package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/ritmo-radar/pkg/audio/analyzers"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/buffer"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/temporal"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/tonal"
	"github.com/RyanBlaney/ritmo-radar/pkg/logging"
)

// ErrClosed is returned by Feed and Close once the session has been
// closed.
var ErrClosed = errors.New("session is closed")

// Config assembles the static parameters of a session. All validation
// happens at construction; a running session never produces configuration
// errors.
type Config struct {
	// SampleRate of the incoming mono samples in Hz.
	SampleRate int `json:"sample_rate"`

	// WindowSize is the analysis frame length in samples; must be a
	// power of two.
	WindowSize int `json:"window_size"`

	// HopSize is the advance between consecutive frames; must satisfy
	// 0 < hop <= window.
	HopSize int `json:"hop_size"`

	// WindowType selects the analysis window function.
	WindowType analyzers.WindowType `json:"window_type"`

	// Pitch, Onset and Tempo tune the respective stages.
	Pitch tonal.PitchParams    `json:"pitch"`
	Onset temporal.OnsetParams `json:"onset"`
	Tempo temporal.TempoParams `json:"tempo"`

	// SmoothingWindow is the number of recent voiced estimates the
	// reported median pitch is computed over. Larger windows are more
	// stable and lag further behind the raw estimate.
	SmoothingWindow int `json:"smoothing_window"`
}

// DefaultConfig returns a session configuration tuned for music analysis
// at the given sample rate.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:      sampleRate,
		WindowSize:      2048,
		HopSize:         512,
		WindowType:      analyzers.WindowHann,
		Pitch:           tonal.DefaultPitchParams(),
		Onset:           temporal.DefaultOnsetParams(),
		Tempo:           temporal.DefaultTempoParams(),
		SmoothingWindow: 5,
	}
}

// FrameResult is the per-frame output delivered to the OnFrame callback.
type FrameResult struct {
	Index    int           `json:"index"`
	Time     time.Duration `json:"time"`
	Terminal bool          `json:"terminal"`

	// Pitch is the raw per-frame estimate; SmoothedPitch is the median
	// over the recent voiced history.
	Pitch         tonal.PitchEstimate `json:"pitch"`
	SmoothedPitch tonal.PitchEstimate `json:"smoothed_pitch"`
}

// Result is the rolling session snapshot returned by Feed and Close.
type Result struct {
	// Pitch is the raw estimate of the most recent frame. SmoothedPitch
	// is the median over the bounded voiced history, the estimate
	// callers should display; it trades latency for stability against
	// transient octave errors.
	Pitch         tonal.PitchEstimate `json:"pitch"`
	SmoothedPitch tonal.PitchEstimate `json:"smoothed_pitch"`

	Tempo temporal.TempoState `json:"tempo"`

	FramesProcessed int `json:"frames_processed"`
}

// Session drives the full analysis pipeline over a continuous sample
// stream. Each Feed call synchronously processes every frame completable
// from the pushed samples. A Session holds no shared state and must not be
// driven from more than one goroutine; callers wanting concurrency run one
// Session per stream.
type Session struct {
	// OnFrame, when set, is invoked synchronously for every processed
	// frame. OnOnset fires for every detected onset. Neither callback
	// may block; they run on the Feed call path.
	OnFrame func(FrameResult)
	OnOnset func(temporal.Onset)

	cfg      Config
	buf      *buffer.FrameBuffer
	analyzer *analyzers.SpectralAnalyzer
	pitch    *tonal.PitchDetector
	onsets   *temporal.OnsetDetector
	tempo    *temporal.TempoTracker

	// history holds the recent voiced estimates the smoothed pitch is
	// derived from, oldest first, capped at SmoothingWindow.
	history []tonal.PitchEstimate

	lastPitch    tonal.PitchEstimate
	lastSmoothed tonal.PitchEstimate
	frames       int
	closed       bool

	logger logging.Logger
}

// NewSession validates cfg, builds every pipeline stage and returns a
// session ready to feed. All configuration errors surface here.
func NewSession(cfg Config) (*Session, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.SmoothingWindow < 1 {
		return nil, fmt.Errorf("smoothing window must be at least 1, got %d", cfg.SmoothingWindow)
	}

	buf, err := buffer.NewFrameBuffer(cfg.WindowSize, cfg.HopSize)
	if err != nil {
		return nil, fmt.Errorf("frame buffer: %w", err)
	}

	analyzer, err := analyzers.NewSpectralAnalyzer(analyzers.SpectralConfig{
		SampleRate: cfg.SampleRate,
		WindowSize: cfg.WindowSize,
		WindowType: cfg.WindowType,
	})
	if err != nil {
		return nil, fmt.Errorf("spectral analyzer: %w", err)
	}

	pitch, err := tonal.NewPitchDetector(cfg.Pitch, cfg.SampleRate, cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("pitch detector: %w", err)
	}

	onsets, err := temporal.NewOnsetDetector(cfg.Onset)
	if err != nil {
		return nil, fmt.Errorf("onset detector: %w", err)
	}

	tempo, err := temporal.NewTempoTracker(cfg.Tempo)
	if err != nil {
		return nil, fmt.Errorf("tempo tracker: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		buf:      buf,
		analyzer: analyzer,
		pitch:    pitch,
		onsets:   onsets,
		tempo:    tempo,
		history:  make([]tonal.PitchEstimate, 0, cfg.SmoothingWindow),
		logger: logging.WithFields(logging.Fields{
			"component":   "session",
			"sample_rate": cfg.SampleRate,
			"window_size": cfg.WindowSize,
			"hop_size":    cfg.HopSize,
		}),
	}

	s.logger.Debug("session initialized", logging.Fields{
		"pitch_method": cfg.Pitch.Method.String(),
		"window_type":  cfg.WindowType.String(),
	})

	return s, nil
}

// Feed pushes samples into the session and synchronously processes every
// frame they complete, returning the snapshot after the last processed
// frame. Feeding an empty slice returns the current snapshot unchanged.
func (s *Session) Feed(samples []float64) (*Result, error) {
	if s.closed {
		return nil, ErrClosed
	}

	s.buf.Push(samples)
	for {
		frame, ok := s.buf.PopFrame()
		if !ok {
			break
		}
		if err := s.processFrame(frame); err != nil {
			return nil, err
		}
	}

	return s.snapshot(), nil
}

// Close flushes the trailing zero-padded terminal frame through the
// pipeline and returns the final snapshot. Subsequent Feed or Close calls
// return ErrClosed.
func (s *Session) Close() (*Result, error) {
	if s.closed {
		return nil, ErrClosed
	}
	s.closed = true

	if frame, ok := s.buf.Flush(); ok {
		if err := s.processFrame(frame); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("session closed", logging.Fields{
		"frames": s.frames,
		"onsets": s.tempo.Current().OnsetCount,
	})

	return s.snapshot(), nil
}

// Reset returns the session to its freshly constructed state, reopening a
// closed session. This is the only way back to the tempo warm-up phase.
func (s *Session) Reset() {
	s.buf.Reset()
	s.onsets.Reset()
	s.tempo.Reset()
	s.history = s.history[:0]
	s.lastPitch = tonal.PitchEstimate{}
	s.lastSmoothed = tonal.PitchEstimate{}
	s.frames = 0
	s.closed = false
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

func (s *Session) processFrame(frame *buffer.Frame) error {
	sf, err := s.analyzer.Transform(frame.Samples)
	if err != nil {
		return fmt.Errorf("spectral transform: %w", err)
	}

	at := s.frameTime(frame.Start)

	est, err := s.pitch.Detect(tonal.FrameInput{Samples: frame.Samples, Spectrum: sf})
	if err != nil {
		return fmt.Errorf("pitch detection: %w", err)
	}

	// The terminal frame covers padded silence; keeping it out of the
	// history stops the zero tail from skewing the reported median.
	if est.Voiced() && !frame.Terminal {
		s.pushPitch(est)
	}

	if onset, ok := s.onsets.Process(sf, at); ok {
		s.tempo.AddOnset(onset.Time)
		if s.OnOnset != nil {
			s.OnOnset(onset)
		}
	}

	s.frames++
	s.lastPitch = est
	s.lastSmoothed = s.smoothedPitch()

	if s.OnFrame != nil {
		s.OnFrame(FrameResult{
			Index:         frame.Index,
			Time:          at,
			Terminal:      frame.Terminal,
			Pitch:         est,
			SmoothedPitch: s.lastSmoothed,
		})
	}

	return nil
}

func (s *Session) pushPitch(est tonal.PitchEstimate) {
	if len(s.history) == s.cfg.SmoothingWindow {
		copy(s.history, s.history[1:])
		s.history[len(s.history)-1] = est
		return
	}
	s.history = append(s.history, est)
}

// smoothedPitch reports the median frequency and confidence over the
// voiced history. With no voiced history yet it reports unvoiced.
func (s *Session) smoothedPitch() tonal.PitchEstimate {
	if len(s.history) == 0 {
		return tonal.PitchEstimate{}
	}

	freqs := make([]float64, len(s.history))
	confs := make([]float64, len(s.history))
	for i, est := range s.history {
		freqs[i] = est.Frequency
		confs[i] = est.Confidence
	}
	sort.Float64s(freqs)
	sort.Float64s(confs)

	return tonal.PitchEstimate{
		Frequency:  stat.Quantile(0.5, stat.Empirical, freqs, nil),
		Confidence: stat.Quantile(0.5, stat.Empirical, confs, nil),
	}
}

func (s *Session) frameTime(startSample int) time.Duration {
	return time.Duration(startSample) * time.Second / time.Duration(s.cfg.SampleRate)
}

func (s *Session) snapshot() *Result {
	return &Result{
		Pitch:           s.lastPitch,
		SmoothedPitch:   s.lastSmoothed,
		Tempo:           s.tempo.Current(),
		FramesProcessed: s.frames,
	}
}
