package decode

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWavTone writes a mono 16-bit PCM WAV containing a 440 Hz sine.
func writeWavTone(t *testing.T, path string, sampleRate, n int) []float64 {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, n),
		SourceBitDepth: 16,
	}

	want := make([]float64, n)
	for i := 0; i < n; i++ {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
		want[i] = v
		buf.Data[i] = int(v * 32767)
	}

	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return want
}

func TestWavRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	want := writeWavTone(t, path, 44100, 11025)

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	got, err := ReadAll(Mono(src))
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := 0; i < len(want); i += 1000 {
		assert.InDelta(t, want[i], got[i], 1e-3)
	}
}

func TestOpenSniffsMislabeledWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.dat")
	writeWavTone(t, path, 8000, 800)

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 8000, src.SampleRate())
}

func TestOpenRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio at all, just text"), 0o644))

	src, err := Open(path)
	assert.Nil(t, src)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWavDecoderRejectsGarbage(t *testing.T) {
	dec, ok := DefaultRegistry().Get("wav")
	require.True(t, ok)

	src, err := dec.Decode(bytes.NewReader([]byte("definitely not a riff chunk")))
	assert.Nil(t, src)
	assert.ErrorIs(t, err, ErrNotAudio)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		header  []byte
		want    string
		wantErr bool
	}{
		{"wav", []byte("RIFF\x10\x00\x00\x00WAVEfmt "), "wav", false},
		{"ogg", []byte("OggS\x00\x02rest-of-page"), "ogg", false},
		{"mp3 id3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"), "mp3", false},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x64, 0, 0, 0, 0, 0, 0, 0, 0}, "mp3", false},
		{"garbage", []byte("hello world, no audio here"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.header)
			got, err := DetectFormat(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			pos, err := r.Seek(0, io.SeekCurrent)
			require.NoError(t, err)
			assert.Zero(t, pos, "sniffing must rewind the reader")
		})
	}
}

// stubSource yields a fixed interleaved sample block.
type stubSource struct {
	rate     int
	channels int
	data     []float64
	pos      int
}

func (s *stubSource) SampleRate() int { return s.rate }
func (s *stubSource) Channels() int   { return s.channels }
func (s *stubSource) Close() error    { return nil }

func (s *stubSource) ReadSamples(dst []float64) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(dst, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func TestMonoDownmixesStereo(t *testing.T) {
	src := &stubSource{
		rate:     48000,
		channels: 2,
		data:     []float64{0, 1, 0.5, 0.5, -1, 1, 0.25, -0.25},
	}

	mono := Mono(src)
	assert.Equal(t, 1, mono.Channels())
	assert.Equal(t, 48000, mono.SampleRate())

	got, err := ReadAll(mono)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0, 0}, got)
}

func TestMonoPassesThroughMonoSource(t *testing.T) {
	src := &stubSource{rate: 44100, channels: 1, data: []float64{0.1, 0.2}}
	assert.Same(t, Source(src), Mono(src))
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("wav")
	assert.False(t, ok)

	r.Register("wav", wavDecoder{})
	r.Register("aac", wavDecoder{})

	_, ok = r.Get("wav")
	assert.True(t, ok)
	assert.Equal(t, []string{"aac", "wav"}, r.Formats())
}
