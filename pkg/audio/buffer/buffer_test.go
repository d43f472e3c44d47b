package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ramp returns n samples where sample i has value i, making frame
// positions easy to verify.
func ramp(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i)
	}
	return s
}

func TestNewFrameBufferValidation(t *testing.T) {
	tests := []struct {
		name       string
		windowSize int
		hopSize    int
		wantErr    bool
	}{
		{"valid non-overlapping", 1024, 1024, false},
		{"valid half overlap", 2048, 1024, false},
		{"valid small hop", 512, 1, false},
		{"window not power of two", 1000, 500, true},
		{"zero window", 0, 0, true},
		{"negative window", -16, 8, true},
		{"zero hop", 1024, 0, true},
		{"negative hop", 1024, -4, true},
		{"hop exceeds window", 1024, 2048, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, err := NewFrameBuffer(tt.windowSize, tt.hopSize)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, fb)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, fb)
			}
		})
	}
}

func TestPopFrameNonOverlapping(t *testing.T) {
	fb, err := NewFrameBuffer(8, 8)
	require.NoError(t, err)

	fb.Push(ramp(20))

	frame, ok := fb.PopFrame()
	require.True(t, ok)
	assert.Equal(t, 0, frame.Index)
	assert.Equal(t, 0, frame.Start)
	assert.Equal(t, ramp(8), frame.Samples)
	assert.False(t, frame.Terminal)

	frame, ok = fb.PopFrame()
	require.True(t, ok)
	assert.Equal(t, 1, frame.Index)
	assert.Equal(t, 8, frame.Start)
	assert.Equal(t, 8.0, frame.Samples[0])
	assert.Equal(t, 15.0, frame.Samples[7])

	// Four samples remain, not enough for a third frame.
	_, ok = fb.PopFrame()
	assert.False(t, ok)
	assert.Equal(t, 4, fb.Len())
}

func TestPopFrameOverlapRetained(t *testing.T) {
	fb, err := NewFrameBuffer(8, 4)
	require.NoError(t, err)

	fb.Push(ramp(16))

	frame, ok := fb.PopFrame()
	require.True(t, ok)
	assert.Equal(t, 0.0, frame.Samples[0])

	frame, ok = fb.PopFrame()
	require.True(t, ok)
	assert.Equal(t, 4, frame.Start)
	assert.Equal(t, 4.0, frame.Samples[0])
	assert.Equal(t, 11.0, frame.Samples[7])

	frame, ok = fb.PopFrame()
	require.True(t, ok)
	assert.Equal(t, 8, frame.Start)
	assert.Equal(t, 8.0, frame.Samples[0])
}

func TestPopFrameNeverShort(t *testing.T) {
	windows := []int{64, 128, 256}
	hops := []int{16, 64, 128, 256}

	for _, w := range windows {
		for _, h := range hops {
			if h > w {
				continue
			}
			fb, err := NewFrameBuffer(w, h)
			require.NoError(t, err)

			// Feed in awkward chunk sizes.
			signal := ramp(w*3 + 17)
			for i := 0; i < len(signal); i += 13 {
				end := min(i+13, len(signal))
				fb.Push(signal[i:end])
			}

			for {
				frame, ok := fb.PopFrame()
				if !ok {
					break
				}
				assert.Len(t, frame.Samples, w)
				assert.False(t, frame.Terminal)
			}

			if frame, ok := fb.Flush(); ok {
				assert.Len(t, frame.Samples, w)
				assert.True(t, frame.Terminal)
			}
		}
	}
}

func TestPushEmptyIsNoOp(t *testing.T) {
	fb, err := NewFrameBuffer(16, 8)
	require.NoError(t, err)

	fb.Push(nil)
	fb.Push([]float64{})
	assert.Equal(t, 0, fb.Len())

	_, ok := fb.PopFrame()
	assert.False(t, ok)
}

func TestFlushPadsTerminalFrame(t *testing.T) {
	fb, err := NewFrameBuffer(8, 8)
	require.NoError(t, err)

	fb.Push(ramp(11))

	_, ok := fb.PopFrame()
	require.True(t, ok)

	frame, ok := fb.Flush()
	require.True(t, ok)
	assert.True(t, frame.Terminal)
	assert.Equal(t, 1, frame.Index)
	assert.Equal(t, 8, frame.Start)
	assert.Equal(t, []float64{8, 9, 10, 0, 0, 0, 0, 0}, frame.Samples)
	assert.Equal(t, 0, fb.Len())

	// Nothing left after the flush.
	_, ok = fb.Flush()
	assert.False(t, ok)
	_, ok = fb.PopFrame()
	assert.False(t, ok)
}

func TestFlushEmptyBuffer(t *testing.T) {
	fb, err := NewFrameBuffer(8, 4)
	require.NoError(t, err)

	_, ok := fb.Flush()
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	fb, err := NewFrameBuffer(8, 4)
	require.NoError(t, err)

	fb.Push(ramp(10))
	_, ok := fb.PopFrame()
	require.True(t, ok)

	fb.Reset()
	assert.Equal(t, 0, fb.Len())

	fb.Push(ramp(8))
	frame, ok := fb.PopFrame()
	require.True(t, ok)
	assert.Equal(t, 0, frame.Index)
	assert.Equal(t, 0, frame.Start)
}
