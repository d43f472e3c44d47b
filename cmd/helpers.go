package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/viper"
)

// ANSI escape codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// colorize wraps s in an ANSI color when colored output is enabled.
func colorize(s, color string) string {
	if !viper.GetBool("output.colors") {
		return s
	}
	return color + s + ColorReset
}

func printSuccess(format string, args ...any) {
	fmt.Printf("%s %s\n", colorize("✓", ColorGreen), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Printf("%s %s\n", colorize("!", ColorYellow), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", colorize("✗", ColorRed), fmt.Sprintf(format, args...))
}

type timedEvent struct {
	name    string
	start   time.Time
	elapsed time.Duration
	done    bool
}

// PerformanceTimer tracks elapsed time for the named stages of a command
// run. Events still open when the summary prints are closed at that
// moment.
type PerformanceTimer struct {
	events []*timedEvent
	index  map[string]*timedEvent
}

// NewPerformanceTimer returns an empty timer.
func NewPerformanceTimer() *PerformanceTimer {
	return &PerformanceTimer{index: make(map[string]*timedEvent)}
}

// StartEvent begins timing a named stage. Restarting a finished stage
// resumes its accumulated time.
func (t *PerformanceTimer) StartEvent(name string) {
	ev, ok := t.index[name]
	if !ok {
		ev = &timedEvent{name: name}
		t.index[name] = ev
		t.events = append(t.events, ev)
	}
	ev.start = time.Now()
	ev.done = false
}

// EndEvent stops timing a named stage.
func (t *PerformanceTimer) EndEvent(name string) {
	ev, ok := t.index[name]
	if !ok || ev.done {
		return
	}
	ev.elapsed += time.Since(ev.start)
	ev.done = true
}

// PrintSummary writes per-stage timings to stderr in start order.
func (t *PerformanceTimer) PrintSummary() {
	w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nSTAGE\tELAPSED")
	for _, ev := range t.events {
		elapsed := ev.elapsed
		if !ev.done {
			elapsed += time.Since(ev.start)
		}
		fmt.Fprintf(w, "%s\t%s\n", ev.name, elapsed.Round(time.Microsecond))
	}
	w.Flush()
}
