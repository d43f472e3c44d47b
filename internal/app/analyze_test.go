package app

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/ritmo-radar/configs"
	"github.com/RyanBlaney/ritmo-radar/pkg/logging"
)

const testSampleRate = 44100

// writeTestWav renders samples to a 16-bit mono WAV file.
func writeTestWav(t *testing.T, path string, samples []float64) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, testSampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: testSampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, v := range samples {
		buf.Data[i] = int(v * 32767)
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

// toneWithClicks renders a sine with short rectangular bursts layered on
// a periodic grid.
func toneWithClicks(freq float64, clickPeriod, offset time.Duration, seconds float64) []float64 {
	n := int(seconds * testSampleRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.35 * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}

	period := int(clickPeriod.Seconds() * testSampleRate)
	for start := int(offset.Seconds() * testSampleRate); start < n; start += period {
		for j := start; j < start+32 && j < n; j++ {
			samples[j] += 0.5
		}
	}
	return samples
}

func newTestApp(config *configs.Config, files ...string) *AnalyzerApp {
	ctx := &Context{InputFiles: files, Logger: logging.NewDefaultLogger()}
	return &AnalyzerApp{ctx: ctx, config: config, logger: ctx.Logger}
}

func TestAnalyzeFileReportsPitchAndTempo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWav(t, path, toneWithClicks(220, 500*time.Millisecond, 250*time.Millisecond, 8))

	app := newTestApp(configs.GetDefaultConfig(), path)
	report := app.analyzeFile(context.Background(), path)

	require.Empty(t, report.Error)
	assert.Equal(t, "wav", report.Format)
	assert.Equal(t, testSampleRate, report.SampleRate)
	assert.Equal(t, 1, report.Channels)
	assert.InDelta(t, 8.0, report.DurationSeconds, 0.01)
	assert.Greater(t, report.Frames, 600)

	assert.Greater(t, report.VoicedRatio, 0.8)
	assert.InDelta(t, 220.0, report.Pitch.MedianFrequency, 5.0)
	assert.Equal(t, "A3", report.Pitch.Note)
	assert.Greater(t, report.Pitch.Confidence, 0.7)

	assert.Equal(t, "tracking", report.Tempo.Phase)
	assert.InDelta(t, 120.0, report.Tempo.BPM, 4.0)
	assert.GreaterOrEqual(t, report.Tempo.OnsetCount, 10)
	assert.Greater(t, report.Tempo.OnsetsPerSecond, 1.0)
}

func TestAnalyzeAllCollectsFailures(t *testing.T) {
	good := filepath.Join(t.TempDir(), "good.wav")
	writeTestWav(t, good, toneWithClicks(220, 500*time.Millisecond, 250*time.Millisecond, 2))
	missing := filepath.Join(t.TempDir(), "missing.wav")

	app := newTestApp(configs.GetDefaultConfig(), good, missing)
	summary := app.analyzeAll(context.Background())

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Files, 2)
	assert.Equal(t, good, summary.Files[0].Path)
	assert.Empty(t, summary.Files[0].Error)
	assert.Equal(t, missing, summary.Files[1].Path)
	assert.NotEmpty(t, summary.Files[1].Error)
}

func TestAnalyzeAllConcurrentMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "a.wav"),
		filepath.Join(dir, "b.wav"),
		filepath.Join(dir, "c.wav"),
	}
	writeTestWav(t, paths[0], toneWithClicks(220, 500*time.Millisecond, 250*time.Millisecond, 4))
	writeTestWav(t, paths[1], toneWithClicks(440, 750*time.Millisecond, 250*time.Millisecond, 4))
	writeTestWav(t, paths[2], toneWithClicks(330, 600*time.Millisecond, 250*time.Millisecond, 4))

	sequential := newTestApp(configs.GetDefaultConfig(), paths...)
	seqSummary := sequential.analyzeAll(context.Background())

	concurrentCfg := configs.GetDefaultConfig()
	concurrentCfg.Analysis.Concurrent = true
	concurrentCfg.Analysis.MaxConcurrency = 3
	concurrent := newTestApp(concurrentCfg, paths...)
	conSummary := concurrent.analyzeAll(context.Background())

	require.Len(t, conSummary.Files, len(seqSummary.Files))
	for i := range seqSummary.Files {
		// Wall-clock fields aside, concurrency must not change results.
		assert.Equal(t, seqSummary.Files[i].Pitch, conSummary.Files[i].Pitch)
		assert.Equal(t, seqSummary.Files[i].Tempo, conSummary.Files[i].Tempo)
		assert.Equal(t, seqSummary.Files[i].Frames, conSummary.Files[i].Frames)
		assert.Equal(t, seqSummary.Files[i].VoicedRatio, conSummary.Files[i].VoicedRatio)
	}
}

func TestAnalyzeFileCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWav(t, path, toneWithClicks(220, 500*time.Millisecond, 250*time.Millisecond, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	app := newTestApp(configs.GetDefaultConfig(), path)
	report := app.analyzeFile(ctx, path)

	assert.Equal(t, context.Canceled.Error(), report.Error)
}

func TestGenerateExampleConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example", "config.yaml")
	require.NoError(t, GenerateExampleConfig(path))

	loaded, err := loadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.GetDefaultConfig(), loaded)
	require.NoError(t, configs.ValidateConfig(loaded))
}

func TestValidateConfigFileRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  hop_size: -4\n"), 0644))

	err := ValidateConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hop size")
}
