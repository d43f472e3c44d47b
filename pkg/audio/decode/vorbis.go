package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// vorbisDecoder decodes Ogg Vorbis streams.
type vorbisDecoder struct{}

func (vorbisDecoder) Decode(r io.Reader) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("ogg vorbis: %w", err)
	}

	return &vorbisSource{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}

type vorbisSource struct {
	dec        *oggvorbis.Reader
	sampleRate int
	channels   int
	f32        []float32
}

func (s *vorbisSource) SampleRate() int { return s.sampleRate }
func (s *vorbisSource) Channels() int   { return s.channels }
func (s *vorbisSource) Close() error    { return nil }

func (s *vorbisSource) ReadSamples(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	// The vorbis reader requires a whole number of frames per read.
	usable := len(dst) - len(dst)%s.channels
	if usable == 0 {
		return 0, fmt.Errorf("destination holds less than one %d-channel frame", s.channels)
	}

	if cap(s.f32) < usable {
		s.f32 = make([]float32, usable)
	}
	s.f32 = s.f32[:usable]

	n, err := s.dec.Read(s.f32)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		dst[i] = float64(s.f32[i])
	}

	return n, err
}
