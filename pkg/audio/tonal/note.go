package tonal

import (
	"fmt"
	"math"
)

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName maps a frequency to the nearest twelve-tone equal temperament
// note name with its octave, A4 = 440 Hz. Non-positive frequencies return
// the empty string.
func NoteName(freq float64) string {
	if freq <= 0 {
		return ""
	}
	midi := int(math.Round(69 + 12*math.Log2(freq/440.0)))
	if midi < 0 || midi > 127 {
		return ""
	}
	return fmt.Sprintf("%s%d", noteNames[midi%12], midi/12-1)
}
