package configs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	// Analysis execution defaults
	if !v.IsSet("analysis.concurrent") {
		v.Set("analysis.concurrent", false)
	}
	if !v.IsSet("analysis.max_concurrency") {
		v.Set("analysis.max_concurrency", 4)
	}
	if !v.IsSet("analysis.smoothing_window") {
		v.Set("analysis.smoothing_window", 5)
	}

	// Audio framing defaults
	if !v.IsSet("audio.sample_rate") {
		v.Set("audio.sample_rate", 44100)
	}
	if !v.IsSet("audio.window_size") {
		v.Set("audio.window_size", 2048)
	}
	if !v.IsSet("audio.hop_size") {
		v.Set("audio.hop_size", 512)
	}
	if !v.IsSet("audio.window_function") {
		v.Set("audio.window_function", "hann")
	}
	if !v.IsSet("audio.chunk_duration") {
		v.Set("audio.chunk_duration", 0.5)
	}

	// Pitch estimation defaults
	if !v.IsSet("pitch.method") {
		v.Set("pitch.method", "yin")
	}
	if !v.IsSet("pitch.min_frequency") {
		v.Set("pitch.min_frequency", 80.0)
	}
	if !v.IsSet("pitch.max_frequency") {
		v.Set("pitch.max_frequency", 1000.0)
	}
	if !v.IsSet("pitch.yin_threshold") {
		v.Set("pitch.yin_threshold", 0.15)
	}
	if !v.IsSet("pitch.silence_floor_db") {
		v.Set("pitch.silence_floor_db", -60.0)
	}

	// Onset detection defaults
	if !v.IsSet("onset.novelty_window") {
		v.Set("onset.novelty_window", 43)
	}
	if !v.IsSet("onset.threshold_margin") {
		v.Set("onset.threshold_margin", 1.5)
	}
	if !v.IsSet("onset.min_onset_gap") {
		v.Set("onset.min_onset_gap", 50*time.Millisecond)
	}
	if !v.IsSet("onset.novelty_floor") {
		v.Set("onset.novelty_floor", 0.001)
	}

	// Tempo tracking defaults
	if !v.IsSet("tempo.min_bpm") {
		v.Set("tempo.min_bpm", 60.0)
	}
	if !v.IsSet("tempo.max_bpm") {
		v.Set("tempo.max_bpm", 200.0)
	}
	if !v.IsSet("tempo.history_size") {
		v.Set("tempo.history_size", 32)
	}
	if !v.IsSet("tempo.min_onsets") {
		v.Set("tempo.min_onsets", 4)
	}
	if !v.IsSet("tempo.hysteresis_bpm") {
		v.Set("tempo.hysteresis_bpm", 8.0)
	}

	// Output defaults
	if !v.IsSet("output.precision") {
		v.Set("output.precision", 3)
	}
	if !v.IsSet("output.include_metadata") {
		v.Set("output.include_metadata", true)
	}
	if !v.IsSet("output.timestamps") {
		v.Set("output.timestamps", true)
	}
	if !v.IsSet("output.colors") {
		v.Set("output.colors", false)
	}
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		// Application settings defaults
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "json",
		ConfigDir:    filepath.Join(home, ".config", "ritmo-radar"),

		// Analysis execution defaults
		Analysis: GetDefaultAnalysisConfig(),

		// Audio framing defaults
		Audio: GetDefaultAudioConfig(),

		// Pitch estimation defaults
		Pitch: GetDefaultPitchConfig(),

		// Onset detection defaults
		Onset: GetDefaultOnsetConfig(),

		// Tempo tracking defaults
		Tempo: GetDefaultTempoConfig(),

		// Output configuration defaults
		Output: GetDefaultOutputConfig(),
	}
}

// GetDefaultAnalysisConfig returns default analysis execution settings
func GetDefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Concurrent:      false,
		MaxConcurrency:  4,
		SmoothingWindow: 5,
	}
}

// GetDefaultAudioConfig returns default audio framing settings
func GetDefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:     44100,
		WindowSize:     2048,
		HopSize:        512,
		WindowFunction: "hann",
		ChunkDuration:  0.5,
	}
}

// GetDefaultPitchConfig returns default pitch estimation settings
func GetDefaultPitchConfig() PitchConfig {
	return PitchConfig{
		Method:         "yin",
		MinFrequency:   80.0,
		MaxFrequency:   1000.0,
		YinThreshold:   0.15,
		SilenceFloorDB: -60.0,
	}
}

// GetDefaultOnsetConfig returns default onset detection settings
func GetDefaultOnsetConfig() OnsetConfig {
	return OnsetConfig{
		NoveltyWindow:   43,
		ThresholdMargin: 1.5,
		MinOnsetGap:     50 * time.Millisecond,
		NoveltyFloor:    0.001,
	}
}

// GetDefaultTempoConfig returns default tempo tracking settings
func GetDefaultTempoConfig() TempoConfig {
	return TempoConfig{
		MinBPM:        60.0,
		MaxBPM:        200.0,
		HistorySize:   32,
		MinOnsets:     4,
		HysteresisBPM: 8.0,
	}
}

// GetDefaultOutputConfig returns default output formatting settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Precision:       3,
		IncludeMetadata: true,
		Timestamps:      true,
		Colors:          false,
	}
}

// GetDefaultOutputConfigForFormat returns output settings adjusted for a
// specific output format
func GetDefaultOutputConfigForFormat(format string) OutputConfig {
	config := GetDefaultOutputConfig()

	switch format {
	case "json", "yaml":
		config.Colors = false
		config.IncludeMetadata = true
	case "csv":
		config.Colors = false
		config.IncludeMetadata = false
		config.Timestamps = false
	case "table":
		config.Colors = true
	}

	return config
}

// HighResolutionAudioConfig returns framing settings that trade latency
// for finer frequency resolution
func HighResolutionAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:     44100,
		WindowSize:     4096,
		HopSize:        1024,
		WindowFunction: "hann",
		ChunkDuration:  1.0,
	}
}

// LowLatencyAudioConfig returns framing settings for live tracking at the
// cost of low-frequency accuracy
func LowLatencyAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:     44100,
		WindowSize:     1024,
		HopSize:        256,
		WindowFunction: "hamming",
		ChunkDuration:  0.1,
	}
}

// SpeechPitchConfig returns pitch settings tuned for spoken voice
func SpeechPitchConfig() PitchConfig {
	return PitchConfig{
		Method:         "yin",
		MinFrequency:   60.0,
		MaxFrequency:   500.0,
		YinThreshold:   0.2,
		SilenceFloorDB: -50.0,
	}
}

// WideTempoConfig returns tempo settings covering extreme tempos at the
// cost of slower octave disambiguation
func WideTempoConfig() TempoConfig {
	return TempoConfig{
		MinBPM:        40.0,
		MaxBPM:        240.0,
		HistorySize:   48,
		MinOnsets:     6,
		HysteresisBPM: 6.0,
	}
}
