package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatterSelection(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, NewFormatter("json"))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter("yaml"))
	assert.IsType(t, &CSVFormatter{}, NewFormatter("csv"))
	assert.IsType(t, &TableFormatter{}, NewFormatter("table"))
	assert.IsType(t, &JSONFormatter{}, NewFormatter("bogus"))
}

func TestJSONFormatterRoundTrips(t *testing.T) {
	data := map[string]any{
		"bpm":        120.5,
		"confidence": 0.91,
		"phase":      "tracking",
	}

	out, err := (&JSONFormatter{}).Format(data, true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "\n"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, 120.5, decoded["bpm"])
	assert.Equal(t, "tracking", decoded["phase"])
}

func TestCSVFormatterFlattensNested(t *testing.T) {
	data := map[string]any{
		"tempo": map[string]any{"bpm": 120.0, "phase": "tracking"},
		"files": []any{"a.wav", "b.wav"},
	}

	out, err := (&CSVFormatter{}).Format(data, false)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "key,value", lines[0])
	assert.Equal(t, "files[0],a.wav", lines[1])
	assert.Equal(t, "files[1],b.wav", lines[2])
	assert.Equal(t, "tempo.bpm,120", lines[3])
	assert.Equal(t, "tempo.phase,tracking", lines[4])
}

func TestCSVFormatterDeterministicOrder(t *testing.T) {
	data := map[string]any{"b": 2, "a": 1, "c": 3}

	first, err := (&CSVFormatter{}).Format(data, false)
	require.NoError(t, err)
	second, err := (&CSVFormatter{}).Format(data, false)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, "key,value\na,1\nb,2\nc,3\n", string(first))
}

func TestTableFormatterAlignsColumns(t *testing.T) {
	data := map[string]any{"bpm": 120.0, "onset_count": 16}

	out, err := (&TableFormatter{}).Format(data, false)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.Contains(t, lines[1], "bpm")
	assert.Contains(t, lines[2], "onset_count")
}

func TestYAMLFormatterStructTags(t *testing.T) {
	data := struct {
		BPM   float64 `yaml:"bpm"`
		Phase string  `yaml:"phase"`
	}{BPM: 80, Phase: "warming_up"}

	out, err := (&YAMLFormatter{}).Format(data, false)
	require.NoError(t, err)
	assert.Contains(t, string(out), "bpm: 80")
	assert.Contains(t, string(out), "phase: warming_up")
}
