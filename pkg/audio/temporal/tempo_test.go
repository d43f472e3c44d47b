package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTempoTrackerValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TempoParams)
		wantErr bool
	}{
		{"defaults", func(p *TempoParams) {}, false},
		{"zero min bpm", func(p *TempoParams) { p.MinBPM = 0 }, true},
		{"range under an octave", func(p *TempoParams) { p.MinBPM = 100; p.MaxBPM = 150 }, true},
		{"min onsets too low", func(p *TempoParams) { p.MinOnsets = 1 }, true},
		{"history below min onsets", func(p *TempoParams) { p.HistorySize = 3 }, true},
		{"negative hysteresis", func(p *TempoParams) { p.HysteresisBPM = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultTempoParams()
			tt.mutate(&params)
			tr, err := NewTempoTracker(params)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, tr)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, tr)
			}
		})
	}
}

func TestClickTrainLocksOnTempo(t *testing.T) {
	tests := []struct {
		name    string
		period  time.Duration
		wantBPM float64
	}{
		{"120 bpm", 500 * time.Millisecond, 120},
		{"80 bpm", 750 * time.Millisecond, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTempoTracker(DefaultTempoParams())
			require.NoError(t, err)

			for i := 0; i < 16; i++ {
				tr.AddOnset(time.Duration(i) * tt.period)
			}

			st := tr.Current()
			assert.Equal(t, PhaseTracking, st.Phase)
			assert.InDelta(t, tt.wantBPM, st.BPM, 0.5)
			assert.Greater(t, st.Confidence, 0.8)
			assert.Equal(t, 16, st.OnsetCount)
		})
	}
}

func TestFastTrainFoldsIntoRange(t *testing.T) {
	tr, err := NewTempoTracker(DefaultTempoParams())
	require.NoError(t, err)

	// 0.25 s spacing reads as 240 BPM, above the configured ceiling; the
	// estimate folds down an octave.
	for i := 0; i < 16; i++ {
		tr.AddOnset(time.Duration(i) * 250 * time.Millisecond)
	}

	assert.InDelta(t, 120.0, tr.Current().BPM, 0.5)
}

func TestWarmUpUntilMinOnsets(t *testing.T) {
	tr, err := NewTempoTracker(DefaultTempoParams())
	require.NoError(t, err)

	st := tr.Current()
	assert.Equal(t, PhaseWarmingUp, st.Phase)
	assert.Zero(t, st.BPM)
	assert.Zero(t, st.Confidence)
	assert.Empty(t, st.RecentOnsets)

	for i := 0; i < 3; i++ {
		tr.AddOnset(time.Duration(i) * 500 * time.Millisecond)
	}
	assert.Equal(t, PhaseWarmingUp, tr.Current().Phase)
	assert.Zero(t, tr.Current().BPM)

	tr.AddOnset(1500 * time.Millisecond)
	st = tr.Current()
	assert.Equal(t, PhaseTracking, st.Phase)
	assert.InDelta(t, 120.0, st.BPM, 0.5)
}

func TestOnsetHistoryEvictsFIFO(t *testing.T) {
	params := DefaultTempoParams()
	params.HistorySize = 8
	tr, err := NewTempoTracker(params)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		tr.AddOnset(time.Duration(i) * 500 * time.Millisecond)
	}

	st := tr.Current()
	require.Len(t, st.RecentOnsets, 8)
	assert.Equal(t, 6*time.Second, st.RecentOnsets[0])
	assert.Equal(t, 9500*time.Millisecond, st.RecentOnsets[7])
	assert.Equal(t, 20, st.OnsetCount)
}

func TestSingleOutlierDoesNotFlipEstimate(t *testing.T) {
	tr, err := NewTempoTracker(DefaultTempoParams())
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		tr.AddOnset(time.Duration(i) * 500 * time.Millisecond)
	}
	require.Equal(t, PhaseTracking, tr.Current().Phase)
	require.InDelta(t, 120.0, tr.Current().BPM, 0.5)

	// One spurious onset between beats.
	tr.AddOnset(5700 * time.Millisecond)
	st := tr.Current()
	assert.InDelta(t, 120.0, st.BPM, 1.0)
	assert.Equal(t, PhaseTracking, st.Phase)

	// The grid resumes and the estimate stays put.
	for i := 12; i < 18; i++ {
		tr.AddOnset(time.Duration(i) * 500 * time.Millisecond)
	}
	st = tr.Current()
	assert.InDelta(t, 120.0, st.BPM, 1.0)
	assert.Greater(t, st.Confidence, 0.6)
}

func TestHalfTempoSnapsToStableEstimate(t *testing.T) {
	params := DefaultTempoParams()
	params.HistorySize = 12
	tr, err := NewTempoTracker(params)
	require.NoError(t, err)

	for i := 0; i <= 11; i++ {
		tr.AddOnset(time.Duration(i) * 500 * time.Millisecond)
	}
	require.InDelta(t, 120.0, tr.Current().BPM, 0.5)

	// Every other beat goes missing for long enough to flood the whole
	// ring with doubled intervals. The raw winner is 60 BPM, an octave
	// below the stable estimate, and hysteresis keeps the established
	// interpretation.
	last := 5500 * time.Millisecond
	for i := 0; i < 14; i++ {
		last += time.Second
		tr.AddOnset(last)
	}

	st := tr.Current()
	assert.InDelta(t, 120.0, st.BPM, 0.5)
	assert.Equal(t, PhaseTracking, st.Phase)
}

func TestTempoChangeOutsideBandFollows(t *testing.T) {
	tr, err := NewTempoTracker(DefaultTempoParams())
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		tr.AddOnset(time.Duration(i) * 500 * time.Millisecond)
	}
	require.InDelta(t, 120.0, tr.Current().BPM, 0.5)

	// A genuine jump to 150 BPM, well outside the hysteresis band, takes
	// over once the new grid dominates the ring.
	last := 5500 * time.Millisecond
	for i := 0; i < 40; i++ {
		last += 400 * time.Millisecond
		tr.AddOnset(last)
	}

	assert.InDelta(t, 150.0, tr.Current().BPM, 0.5)
}

func TestResetReturnsToWarmUp(t *testing.T) {
	tr, err := NewTempoTracker(DefaultTempoParams())
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		tr.AddOnset(time.Duration(i) * 500 * time.Millisecond)
	}
	require.Equal(t, PhaseTracking, tr.Current().Phase)

	tr.Reset()
	st := tr.Current()
	assert.Equal(t, PhaseWarmingUp, st.Phase)
	assert.Zero(t, st.BPM)
	assert.Zero(t, st.Confidence)
	assert.Zero(t, st.OnsetCount)
	assert.Empty(t, st.RecentOnsets)

	for i := 0; i < 8; i++ {
		tr.AddOnset(time.Duration(i) * 750 * time.Millisecond)
	}
	assert.InDelta(t, 80.0, tr.Current().BPM, 0.5)
}

func TestTrackerPhaseString(t *testing.T) {
	assert.Equal(t, "warming_up", PhaseWarmingUp.String())
	assert.Equal(t, "tracking", PhaseTracking.String())
	assert.Contains(t, TrackerPhase(9).String(), "unknown")
}
