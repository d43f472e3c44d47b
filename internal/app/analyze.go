package app

import (
	"context"
	"io"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/ritmo-radar/pkg/audio/decode"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/session"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/tonal"
	"github.com/RyanBlaney/ritmo-radar/pkg/logging"
)

// PitchReport summarizes the tonal content of one file.
type PitchReport struct {
	MedianFrequency float64 `json:"median_frequency"`
	Confidence      float64 `json:"confidence"`
	Note            string  `json:"note,omitempty"`
}

// TempoReport summarizes the rhythmic content of one file.
type TempoReport struct {
	BPM             float64 `json:"bpm"`
	Confidence      float64 `json:"confidence"`
	Phase           string  `json:"phase"`
	OnsetCount      int     `json:"onset_count"`
	OnsetsPerSecond float64 `json:"onsets_per_second"`
}

// FileReport is the per-file analysis result.
type FileReport struct {
	Path            string      `json:"path"`
	Format          string      `json:"format,omitempty"`
	SampleRate      int         `json:"sample_rate,omitempty"`
	Channels        int         `json:"channels,omitempty"`
	DurationSeconds float64     `json:"duration_seconds"`
	Frames          int         `json:"frames"`
	VoicedRatio     float64     `json:"voiced_ratio"`
	Pitch           PitchReport `json:"pitch"`
	Tempo           TempoReport `json:"tempo"`
	AnalysisSeconds float64     `json:"analysis_seconds"`
	Error           string      `json:"error,omitempty"`
}

// Summary aggregates the per-file reports of one run.
type Summary struct {
	StartTime            time.Time    `json:"start_time"`
	TotalDurationSeconds float64      `json:"total_duration_seconds"`
	Succeeded            int          `json:"succeeded"`
	Failed               int          `json:"failed"`
	Files                []FileReport `json:"files"`
}

// analyzeAll runs every input file through the pipeline, sequentially or
// concurrently per configuration. Per-file failures land in the report
// instead of aborting the run.
func (app *AnalyzerApp) analyzeAll(ctx context.Context) *Summary {
	start := time.Now()
	reports := make([]FileReport, len(app.ctx.InputFiles))

	limit := 1
	if app.config.Analysis.Concurrent {
		limit = app.config.Analysis.MaxConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range app.ctx.InputFiles {
		i, path := i, path
		g.Go(func() error {
			reports[i] = *app.analyzeFile(gctx, path)
			return nil
		})
	}
	// Workers never return errors; the group only provides the
	// concurrency limit and context plumbing.
	_ = g.Wait()

	summary := &Summary{
		StartTime:            start,
		TotalDurationSeconds: time.Since(start).Seconds(),
		Files:                reports,
	}
	for i := range reports {
		if reports[i].Error == "" {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// analyzeFile decodes one file and streams it through an analysis session.
func (app *AnalyzerApp) analyzeFile(ctx context.Context, path string) *FileReport {
	report := &FileReport{Path: path}
	started := time.Now()
	defer func() {
		report.AnalysisSeconds = time.Since(started).Seconds()
	}()

	src, err := decode.Open(path)
	if err != nil {
		app.logger.Error(err, "failed to open input", logging.Fields{"path": path})
		report.Error = err.Error()
		return report
	}
	defer src.Close()

	report.Format = decode.SourceFormat(src)
	report.SampleRate = src.SampleRate()
	report.Channels = src.Channels()

	sessCfg, err := app.config.SessionConfig(src.SampleRate())
	if err != nil {
		report.Error = err.Error()
		return report
	}

	sess, err := session.NewSession(sessCfg)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	var voicedFreqs, voicedConfs []float64
	sess.OnFrame = func(fr session.FrameResult) {
		if fr.Pitch.Voiced() {
			voicedFreqs = append(voicedFreqs, fr.Pitch.Frequency)
			voicedConfs = append(voicedConfs, fr.Pitch.Confidence)
		}
	}

	mono := decode.Mono(src)
	chunk := make([]float64, app.chunkSize(src.SampleRate()))
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			report.Error = err.Error()
			return report
		}

		n, rerr := mono.ReadSamples(chunk)
		if n > 0 {
			total += n
			if _, ferr := sess.Feed(chunk[:n]); ferr != nil {
				report.Error = ferr.Error()
				return report
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			app.logger.Error(rerr, "decode failed mid-stream", logging.Fields{"path": path})
			report.Error = rerr.Error()
			return report
		}
	}

	res, err := sess.Close()
	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.DurationSeconds = float64(total) / float64(src.SampleRate())
	report.Frames = res.FramesProcessed
	if res.FramesProcessed > 0 {
		report.VoicedRatio = float64(len(voicedFreqs)) / float64(res.FramesProcessed)
	}
	report.Pitch = buildPitchReport(voicedFreqs, voicedConfs)
	report.Tempo = TempoReport{
		BPM:        res.Tempo.BPM,
		Confidence: res.Tempo.Confidence,
		Phase:      res.Tempo.Phase.String(),
		OnsetCount: res.Tempo.OnsetCount,
	}
	if report.DurationSeconds > 0 {
		report.Tempo.OnsetsPerSecond = float64(res.Tempo.OnsetCount) / report.DurationSeconds
	}

	app.logger.Debug("file analysis complete", logging.Fields{
		"path":         path,
		"frames":       report.Frames,
		"voiced_ratio": report.VoicedRatio,
		"bpm":          report.Tempo.BPM,
	})

	return report
}

// chunkSize converts the configured chunk duration into a sample count.
func (app *AnalyzerApp) chunkSize(sampleRate int) int {
	n := int(app.config.Audio.ChunkDuration * float64(sampleRate))
	if n < 1 {
		n = 4096
	}
	return n
}

// buildPitchReport takes the median over every voiced frame of the file,
// which is robust against octave blips in a way the final smoothed value
// is not.
func buildPitchReport(freqs, confs []float64) PitchReport {
	if len(freqs) == 0 {
		return PitchReport{}
	}

	sortedFreqs := append([]float64(nil), freqs...)
	sortedConfs := append([]float64(nil), confs...)
	sort.Float64s(sortedFreqs)
	sort.Float64s(sortedConfs)

	freq := stat.Quantile(0.5, stat.Empirical, sortedFreqs, nil)
	return PitchReport{
		MedianFrequency: freq,
		Confidence:      stat.Quantile(0.5, stat.Empirical, sortedConfs, nil),
		Note:            tonal.NoteName(freq),
	}
}
