package decode

// Mono downmixes a source to one channel by averaging each frame. Mono
// input passes through untouched.
func Mono(src Source) Source {
	if src.Channels() == 1 {
		return src
	}
	return &monoSource{src: src}
}

type monoSource struct {
	src Source
	tmp []float64
}

func (m *monoSource) SampleRate() int { return m.src.SampleRate() }
func (m *monoSource) Channels() int   { return 1 }
func (m *monoSource) Close() error    { return m.src.Close() }

func (m *monoSource) ReadSamples(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	channels := m.src.Channels()
	need := len(dst) * channels
	if cap(m.tmp) < need {
		m.tmp = make([]float64, need)
	}
	m.tmp = m.tmp[:need]

	n, err := m.src.ReadSamples(m.tmp)
	if n == 0 {
		return 0, err
	}

	frames := n / channels
	switch channels {
	case 2:
		for f := 0; f < frames; f++ {
			dst[f] = (m.tmp[2*f] + m.tmp[2*f+1]) * 0.5
		}
	default:
		inv := 1.0 / float64(channels)
		for f := 0; f < frames; f++ {
			sum := 0.0
			for c := 0; c < channels; c++ {
				sum += m.tmp[f*channels+c]
			}
			dst[f] = sum * inv
		}
	}

	return frames, err
}
