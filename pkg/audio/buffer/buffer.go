// Package buffer accumulates raw audio samples into fixed-size analysis
// frames with configurable hop, retaining the overlap between consecutive
// frames for streaming short-time analysis.
package buffer

import "fmt"

// Frame is one analysis window of samples cut from the incoming stream.
type Frame struct {
	// Samples always has exactly the configured window size.
	Samples []float64

	// Index counts emitted frames from zero.
	Index int

	// Start is the absolute offset, in samples, of Samples[0] within the
	// stream fed so far.
	Start int

	// Terminal marks the zero-padded final frame emitted by Flush at
	// stream end. Estimates derived from it cover padded silence and are
	// expected to come back with reduced confidence.
	Terminal bool
}

// FrameBuffer collects pushed samples and yields window-size frames that
// advance by hop size, so consecutive frames overlap by window-hop samples.
// Hop equal to window gives non-overlapping frames.
//
// A FrameBuffer is not safe for concurrent use.
type FrameBuffer struct {
	windowSize int
	hopSize    int
	buffer     []float64
	frameIndex int
	start      int
}

// NewFrameBuffer validates the window/hop relationship and returns an empty
// buffer. The window size must be a power of two and the hop size must
// satisfy 0 < hop <= window.
func NewFrameBuffer(windowSize, hopSize int) (*FrameBuffer, error) {
	if windowSize <= 0 || windowSize&(windowSize-1) != 0 {
		return nil, fmt.Errorf("window size must be a power of two, got %d", windowSize)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive, got %d", hopSize)
	}
	if hopSize > windowSize {
		return nil, fmt.Errorf("hop size %d exceeds window size %d", hopSize, windowSize)
	}

	return &FrameBuffer{
		windowSize: windowSize,
		hopSize:    hopSize,
		buffer:     make([]float64, 0, windowSize*2),
	}, nil
}

// Push appends raw samples to the buffer. Pushing an empty slice is a no-op.
func (b *FrameBuffer) Push(samples []float64) {
	if len(samples) == 0 {
		return
	}
	b.buffer = append(b.buffer, samples...)
}

// PopFrame yields the next complete frame if at least a full window of
// samples is buffered, advancing the read position by hop size. The second
// return value reports whether a frame was produced.
func (b *FrameBuffer) PopFrame() (*Frame, bool) {
	if len(b.buffer) < b.windowSize {
		return nil, false
	}

	samples := make([]float64, b.windowSize)
	copy(samples, b.buffer[:b.windowSize])

	frame := &Frame{
		Samples: samples,
		Index:   b.frameIndex,
		Start:   b.start,
	}
	b.frameIndex++
	b.start += b.hopSize

	// Slide the retained overlap to the front.
	if b.hopSize >= len(b.buffer) {
		b.buffer = b.buffer[:0]
	} else {
		copy(b.buffer, b.buffer[b.hopSize:])
		b.buffer = b.buffer[:len(b.buffer)-b.hopSize]
	}

	return frame, true
}

// Flush emits the trailing partial frame zero-padded to window size and
// marked Terminal, draining the buffer. It returns false when no samples
// remain. Callers should drain PopFrame before flushing.
func (b *FrameBuffer) Flush() (*Frame, bool) {
	if len(b.buffer) == 0 {
		return nil, false
	}

	samples := make([]float64, b.windowSize)
	copy(samples, b.buffer)

	frame := &Frame{
		Samples:  samples,
		Index:    b.frameIndex,
		Start:    b.start,
		Terminal: true,
	}
	b.frameIndex++
	b.buffer = b.buffer[:0]

	return frame, true
}

// Len reports the number of samples currently buffered.
func (b *FrameBuffer) Len() int {
	return len(b.buffer)
}

// WindowSize returns the configured analysis window size.
func (b *FrameBuffer) WindowSize() int {
	return b.windowSize
}

// HopSize returns the configured hop between consecutive frames.
func (b *FrameBuffer) HopSize() int {
	return b.hopSize
}

// Reset discards buffered samples and restarts frame indexing from zero.
func (b *FrameBuffer) Reset() {
	b.buffer = b.buffer[:0]
	b.frameIndex = 0
	b.start = 0
}
