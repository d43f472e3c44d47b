// Package decode turns audio files into the mono float64 sample streams
// the analysis session consumes. Formats are registered per extension with
// a content-sniffing fallback for files with misleading names.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat reports a file whose format no registered
	// decoder handles.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrNotAudio reports input that does not parse as the expected
	// audio container.
	ErrNotAudio = errors.New("input does not look like audio")
)

// Source is a stream of interleaved samples in [-1, 1] decoded from some
// container format.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int

	// Channels in the stream; 1 for mono, 2 for stereo.
	Channels() int

	// ReadSamples fills dst with interleaved samples and returns the
	// number of values written. It returns 0 and io.EOF once the stream
	// is exhausted.
	ReadSamples(dst []float64) (int, error)

	// Close releases decoder resources.
	Close() error
}

// Decoder constructs a Source from raw container bytes.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps format keys to decoders.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// Register installs a decoder under a format key, replacing any previous
// registration.
func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[format] = d
}

// Get looks up the decoder for a format key.
func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.codecs[format]
	return d, ok
}

// Formats returns the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	formats := make([]string, 0, len(r.codecs))
	for f := range r.codecs {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// DefaultRegistry returns a registry with every built-in decoder
// installed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("wav", wavDecoder{})
	r.Register("mp3", mp3Decoder{})
	r.Register("ogg", vorbisDecoder{})
	return r
}

// Open decodes an audio file using its extension, falling back to content
// sniffing when the extension is unknown. The returned Source owns the
// file handle; closing the source closes the file.
func Open(path string) (Source, error) {
	return DefaultRegistry().Open(path)
}

// Open decodes an audio file through this registry.
func (r *Registry) Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	dec, ok := r.Get(format)
	if !ok {
		format, err = DetectFormat(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		dec, ok = r.Get(format)
		if !ok {
			f.Close()
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
		}
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", format, err)
	}

	return &fileSource{Source: src, f: f, format: format}, nil
}

// fileSource ties the decoded stream to the underlying file handle.
type fileSource struct {
	Source
	f      *os.File
	format string
}

func (fs *fileSource) Close() error {
	decErr := fs.Source.Close()
	if err := fs.f.Close(); err != nil {
		return err
	}
	return decErr
}

// SourceFormat reports the format key a source was opened under, or ""
// for sources that did not come from a registry.
func SourceFormat(src Source) string {
	if fs, ok := src.(*fileSource); ok {
		return fs.format
	}
	return ""
}

// DetectFormat sniffs the container format from the file magic and seeks
// the reader back to where it was.
func DetectFormat(r io.ReadSeeker) (string, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("failed to record stream position: %w", err)
	}

	magic := make([]byte, 12)
	n, err := io.ReadFull(r, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("failed to read stream header: %w", err)
	}
	magic = magic[:n]

	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind stream: %w", err)
	}

	switch {
	case len(magic) >= 12 && bytes.Equal(magic[:4], []byte("RIFF")) && bytes.Equal(magic[8:12], []byte("WAVE")):
		return "wav", nil
	case len(magic) >= 4 && bytes.Equal(magic[:4], []byte("OggS")):
		return "ogg", nil
	case len(magic) >= 3 && bytes.Equal(magic[:3], []byte("ID3")):
		return "mp3", nil
	case len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		// Raw MPEG audio frame sync without an ID3 tag.
		return "mp3", nil
	default:
		return "", fmt.Errorf("%w: unrecognized header", ErrUnsupportedFormat)
	}
}

// ReadAll drains a source into one slice. Intended for short files and
// tests; streaming callers should loop ReadSamples themselves.
func ReadAll(src Source) ([]float64, error) {
	var out []float64
	buf := make([]float64, 8192)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		if n == 0 {
			return out, nil
		}
	}
}
