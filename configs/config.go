package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/ritmo-radar/pkg/audio/analyzers"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/session"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/temporal"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/tonal"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose" json:"verbose" yaml:"verbose"`
	LogLevel     string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	OutputFormat string `mapstructure:"output_format" json:"output_format" yaml:"output_format"`
	ConfigDir    string `mapstructure:"config_dir" json:"config_dir" yaml:"config_dir"`

	// Analysis execution configuration
	Analysis AnalysisConfig `mapstructure:"analysis" json:"analysis" yaml:"analysis"`

	// Audio framing configuration
	Audio AudioConfig `mapstructure:"audio" json:"audio" yaml:"audio"`

	// Pitch estimation configuration
	Pitch PitchConfig `mapstructure:"pitch" json:"pitch" yaml:"pitch"`

	// Onset detection configuration
	Onset OnsetConfig `mapstructure:"onset" json:"onset" yaml:"onset"`

	// Tempo tracking configuration
	Tempo TempoConfig `mapstructure:"tempo" json:"tempo" yaml:"tempo"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" json:"output" yaml:"output"`
}

// AnalysisConfig contains analysis execution settings
type AnalysisConfig struct {
	Concurrent      bool `mapstructure:"concurrent" json:"concurrent" yaml:"concurrent"`
	MaxConcurrency  int  `mapstructure:"max_concurrency" json:"max_concurrency" yaml:"max_concurrency"`
	SmoothingWindow int  `mapstructure:"smoothing_window" json:"smoothing_window" yaml:"smoothing_window"`
}

// AudioConfig contains audio framing settings. SampleRate only applies to
// headerless raw input; decoded files carry their own rate.
type AudioConfig struct {
	SampleRate     int     `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`
	WindowSize     int     `mapstructure:"window_size" json:"window_size" yaml:"window_size"`
	HopSize        int     `mapstructure:"hop_size" json:"hop_size" yaml:"hop_size"`
	WindowFunction string  `mapstructure:"window_function" json:"window_function" yaml:"window_function"`
	ChunkDuration  float64 `mapstructure:"chunk_duration" json:"chunk_duration" yaml:"chunk_duration"`
}

// PitchConfig contains pitch estimation settings
type PitchConfig struct {
	Method         string  `mapstructure:"method" json:"method" yaml:"method"`
	MinFrequency   float64 `mapstructure:"min_frequency" json:"min_frequency" yaml:"min_frequency"`
	MaxFrequency   float64 `mapstructure:"max_frequency" json:"max_frequency" yaml:"max_frequency"`
	YinThreshold   float64 `mapstructure:"yin_threshold" json:"yin_threshold" yaml:"yin_threshold"`
	SilenceFloorDB float64 `mapstructure:"silence_floor_db" json:"silence_floor_db" yaml:"silence_floor_db"`
}

// OnsetConfig contains onset detection settings
type OnsetConfig struct {
	NoveltyWindow   int           `mapstructure:"novelty_window" json:"novelty_window" yaml:"novelty_window"`
	ThresholdMargin float64       `mapstructure:"threshold_margin" json:"threshold_margin" yaml:"threshold_margin"`
	MinOnsetGap     time.Duration `mapstructure:"min_onset_gap" json:"min_onset_gap" yaml:"min_onset_gap"`
	NoveltyFloor    float64       `mapstructure:"novelty_floor" json:"novelty_floor" yaml:"novelty_floor"`
}

// TempoConfig contains tempo tracking settings
type TempoConfig struct {
	MinBPM        float64 `mapstructure:"min_bpm" json:"min_bpm" yaml:"min_bpm"`
	MaxBPM        float64 `mapstructure:"max_bpm" json:"max_bpm" yaml:"max_bpm"`
	HistorySize   int     `mapstructure:"history_size" json:"history_size" yaml:"history_size"`
	MinOnsets     int     `mapstructure:"min_onsets" json:"min_onsets" yaml:"min_onsets"`
	HysteresisBPM float64 `mapstructure:"hysteresis_bpm" json:"hysteresis_bpm" yaml:"hysteresis_bpm"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Precision       int  `mapstructure:"precision" json:"precision" yaml:"precision"`
	IncludeMetadata bool `mapstructure:"include_metadata" json:"include_metadata" yaml:"include_metadata"`
	Timestamps      bool `mapstructure:"timestamps" json:"timestamps" yaml:"timestamps"`
	Colors          bool `mapstructure:"colors" json:"colors" yaml:"colors"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	v := viper.GetViper()
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample rate must be positive")
	}

	if config.Audio.WindowSize <= 0 {
		return fmt.Errorf("audio window size must be positive")
	}

	// Same precondition the frame buffer enforces; catching it here keeps
	// the config validate verdict in line with session construction.
	if config.Audio.WindowSize&(config.Audio.WindowSize-1) != 0 {
		return fmt.Errorf("audio window size must be a power of two")
	}

	if config.Audio.HopSize <= 0 || config.Audio.HopSize > config.Audio.WindowSize {
		return fmt.Errorf("audio hop size must be between 1 and the window size")
	}

	if _, err := analyzers.ParseWindowType(config.Audio.WindowFunction); err != nil {
		return fmt.Errorf("invalid window function: %w", err)
	}

	if _, err := tonal.ParseMethod(config.Pitch.Method); err != nil {
		return fmt.Errorf("invalid pitch method: %w", err)
	}

	if config.Pitch.MinFrequency <= 0 || config.Pitch.MaxFrequency <= config.Pitch.MinFrequency {
		return fmt.Errorf("pitch frequency bounds must satisfy 0 < min < max")
	}

	if config.Tempo.MinBPM <= 0 || config.Tempo.MaxBPM < 2*config.Tempo.MinBPM {
		return fmt.Errorf("tempo range must span at least one octave")
	}

	if config.Analysis.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive")
	}

	if config.Analysis.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing window must be at least 1")
	}

	return nil
}

// SessionConfig maps the configuration tree onto a session configuration
// for the given sample rate. Pass rate 0 to fall back to the configured
// audio sample rate.
func (c *Config) SessionConfig(sampleRate int) (session.Config, error) {
	if sampleRate <= 0 {
		sampleRate = c.Audio.SampleRate
	}

	windowType, err := analyzers.ParseWindowType(c.Audio.WindowFunction)
	if err != nil {
		return session.Config{}, fmt.Errorf("invalid window function: %w", err)
	}

	method, err := tonal.ParseMethod(c.Pitch.Method)
	if err != nil {
		return session.Config{}, fmt.Errorf("invalid pitch method: %w", err)
	}

	return session.Config{
		SampleRate: sampleRate,
		WindowSize: c.Audio.WindowSize,
		HopSize:    c.Audio.HopSize,
		WindowType: windowType,
		Pitch: tonal.PitchParams{
			Method:         method,
			MinFreq:        c.Pitch.MinFrequency,
			MaxFreq:        c.Pitch.MaxFrequency,
			YinThreshold:   c.Pitch.YinThreshold,
			SilenceFloorDB: c.Pitch.SilenceFloorDB,
		},
		Onset: temporal.OnsetParams{
			NoveltyWindow:   c.Onset.NoveltyWindow,
			ThresholdMargin: c.Onset.ThresholdMargin,
			MinOnsetGap:     c.Onset.MinOnsetGap,
			NoveltyFloor:    c.Onset.NoveltyFloor,
		},
		Tempo: temporal.TempoParams{
			MinBPM:        c.Tempo.MinBPM,
			MaxBPM:        c.Tempo.MaxBPM,
			HistorySize:   c.Tempo.HistorySize,
			MinOnsets:     c.Tempo.MinOnsets,
			HysteresisBPM: c.Tempo.HysteresisBPM,
		},
		SmoothingWindow: c.Analysis.SmoothingWindow,
	}, nil
}
