package temporal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/ritmo-radar/pkg/audio/analyzers"
)

// flatFrame builds a spectral frame with every magnitude bin set to mag.
func flatFrame(bins int, mag float64) *analyzers.SpectralFrame {
	m := make([]float64, bins)
	for i := range m {
		m[i] = mag
	}
	return &analyzers.SpectralFrame{
		Magnitude: m,
		Phase:     make([]float64, bins),
	}
}

// hopInterval is the frame spacing used throughout: a 512-sample hop at
// 44.1 kHz.
const hopInterval = time.Duration(512) * time.Second / 44100

func TestNewOnsetDetectorValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  OnsetParams
		wantErr bool
	}{
		{"defaults", DefaultOnsetParams(), false},
		{"window too small", OnsetParams{NoveltyWindow: 1, ThresholdMargin: 1.5}, true},
		{"zero margin", OnsetParams{NoveltyWindow: 43, ThresholdMargin: 0}, true},
		{"negative margin", OnsetParams{NoveltyWindow: 43, ThresholdMargin: -1}, true},
		{"negative gap", OnsetParams{NoveltyWindow: 43, ThresholdMargin: 1.5, MinOnsetGap: -time.Millisecond}, true},
		{"negative floor", OnsetParams{NoveltyWindow: 43, ThresholdMargin: 1.5, NoveltyFloor: -0.001}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			od, err := NewOnsetDetector(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, od)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, od)
			}
		})
	}
}

func TestDetectsIsolatedBursts(t *testing.T) {
	od, err := NewOnsetDetector(DefaultOnsetParams())
	require.NoError(t, err)

	silent := flatFrame(513, 0)
	burst := flatFrame(513, 0.1)

	var onsets []Onset
	var clickTimes []time.Duration
	for i := 0; i < 200; i++ {
		frame := silent
		at := time.Duration(i) * hopInterval
		if i >= 10 && (i-10)%43 == 0 {
			frame = burst
			clickTimes = append(clickTimes, at)
		}
		if on, ok := od.Process(frame, at); ok {
			onsets = append(onsets, on)
		}
	}

	require.Len(t, onsets, len(clickTimes))
	wantStrength := math.Sqrt(513 * 0.1 * 0.1)
	for i, on := range onsets {
		assert.Equal(t, clickTimes[i], on.Time)
		assert.InDelta(t, wantStrength, on.Strength, 1e-9)
	}
}

func TestRefractoryGapSuppressesDoubleTrigger(t *testing.T) {
	od, err := NewOnsetDetector(DefaultOnsetParams())
	require.NoError(t, err)

	silent := flatFrame(9, 0)
	for i := 0; i < 10; i++ {
		od.Process(silent, time.Duration(i)*hopInterval)
	}

	// Two rising frames in a row: the attack spills into the next hop.
	_, first := od.Process(flatFrame(9, 0.5), 10*hopInterval)
	_, second := od.Process(flatFrame(9, 1.0), 11*hopInterval)

	assert.True(t, first)
	assert.False(t, second, "second trigger within the refractory gap must be suppressed")
}

func TestZeroGapAllowsAdjacentOnsets(t *testing.T) {
	params := DefaultOnsetParams()
	params.MinOnsetGap = 0
	od, err := NewOnsetDetector(params)
	require.NoError(t, err)

	silent := flatFrame(9, 0)
	for i := 0; i < 10; i++ {
		od.Process(silent, time.Duration(i)*hopInterval)
	}

	_, first := od.Process(flatFrame(9, 0.5), 10*hopInterval)
	_, second := od.Process(flatFrame(9, 1.0), 11*hopInterval)

	assert.True(t, first)
	assert.True(t, second)
}

func TestSteadyCrescendoFiresAtMostOnce(t *testing.T) {
	od, err := NewOnsetDetector(DefaultOnsetParams())
	require.NoError(t, err)

	// Constant positive flux every frame: the adaptive threshold rides
	// above it, so only the initial attack may fire.
	var fired []int
	for i := 0; i < 100; i++ {
		frame := flatFrame(9, 0.1+0.001*float64(i))
		if _, ok := od.Process(frame, time.Duration(i)*hopInterval); ok {
			fired = append(fired, i)
		}
	}

	require.Len(t, fired, 1)
	assert.LessOrEqual(t, fired[0], 2)
}

func TestNumericJitterStaysBelowFloor(t *testing.T) {
	od, err := NewOnsetDetector(DefaultOnsetParams())
	require.NoError(t, err)

	// A steady tone leaves only rounding noise in the flux: magnitudes
	// wobble on the order of 1e-6 per bin, well under the floor. Without
	// the absolute floor the adaptive threshold would chase this jitter
	// and fire at the refractory cadence.
	for i := 0; i < 300; i++ {
		frame := flatFrame(513, 0.2+1e-6*float64(i%2))
		_, ok := od.Process(frame, time.Duration(i)*hopInterval)
		assert.False(t, ok, "jitter-level flux must never fire (frame %d)", i)
	}

	// A real attack on top of the same tone still fires.
	_, ok := od.Process(flatFrame(513, 0.4), 300*hopInterval)
	assert.True(t, ok)
}

func TestConstantSpectrumNeverFires(t *testing.T) {
	od, err := NewOnsetDetector(DefaultOnsetParams())
	require.NoError(t, err)

	frame := flatFrame(9, 0.3)
	for i := 0; i < 100; i++ {
		_, ok := od.Process(frame, time.Duration(i)*hopInterval)
		assert.False(t, ok)
	}
}

func TestResetReproducesDetections(t *testing.T) {
	od, err := NewOnsetDetector(DefaultOnsetParams())
	require.NoError(t, err)

	run := func() []Onset {
		var out []Onset
		for i := 0; i < 120; i++ {
			frame := flatFrame(65, 0)
			if i >= 5 && (i-5)%50 == 0 {
				frame = flatFrame(65, 0.2)
			}
			if on, ok := od.Process(frame, time.Duration(i)*hopInterval); ok {
				out = append(out, on)
			}
		}
		return out
	}

	first := run()
	od.Reset()
	second := run()

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}
