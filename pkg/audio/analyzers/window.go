package analyzers

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
)

// WindowType identifies the analysis window applied before the transform.
type WindowType int

const (
	WindowHann WindowType = iota
	WindowHamming
	WindowBlackman
	WindowRectangular
)

// String returns the configuration name of the window type.
func (t WindowType) String() string {
	switch t {
	case WindowHann:
		return "hann"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	case WindowRectangular:
		return "rectangular"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseWindowType maps a configuration string to a WindowType. Strings only
// appear at the configuration boundary; everything past construction works
// with the enum.
func ParseWindowType(name string) (WindowType, error) {
	switch name {
	case "hann", "":
		return WindowHann, nil
	case "hamming":
		return WindowHamming, nil
	case "blackman":
		return WindowBlackman, nil
	case "rectangular":
		return WindowRectangular, nil
	default:
		return WindowHann, fmt.Errorf("unknown window function %q", name)
	}
}

// Window holds precomputed window coefficients for one analysis size.
type Window struct {
	windowType WindowType
	coeffs     []float64
}

// NewWindow generates coefficients for the given type and size.
func NewWindow(windowType WindowType, size int) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	var coeffs []float64
	switch windowType {
	case WindowHann:
		coeffs = window.Hann(size)
	case WindowHamming:
		coeffs = window.Hamming(size)
	case WindowBlackman:
		coeffs = window.Blackman(size)
	case WindowRectangular:
		coeffs = window.Rectangular(size)
	default:
		return nil, fmt.Errorf("unknown window type %d", int(windowType))
	}

	return &Window{windowType: windowType, coeffs: coeffs}, nil
}

// Type returns the window function this Window was generated from.
func (w *Window) Type() WindowType {
	return w.windowType
}

// Size returns the number of coefficients.
func (w *Window) Size() int {
	return len(w.coeffs)
}

// ApplyInPlace multiplies frame by the window coefficients.
func (w *Window) ApplyInPlace(frame []float64) error {
	if len(frame) != len(w.coeffs) {
		return fmt.Errorf("frame length %d does not match window size %d", len(frame), len(w.coeffs))
	}
	for i := range frame {
		frame[i] *= w.coeffs[i]
	}
	return nil
}
