package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/ritmo-radar/configs"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/decode"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/session"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/temporal"
)

var (
	tempoListOnsets bool
	tempoMinBPM     float64
	tempoMaxBPM     float64
)

// tempoCmd represents the tempo command
var tempoCmd = &cobra.Command{
	Use:   "tempo [flags] file",
	Short: "Estimate the tempo of an audio file",
	Long: `Decode an audio file, detect onsets and report the tempo estimate with
its confidence and tracking phase. A result in the warming-up phase means
too few onsets were found for a reliable estimate.

Examples:
  # Tempo summary
  ritmo-radar tempo drums.wav

  # Print every detected onset as it fires
  ritmo-radar tempo --list-onsets drums.wav

  # Constrain candidates to a DnB-ish range
  ritmo-radar tempo --min-bpm 80 --max-bpm 190 mix.mp3`,
	Args: cobra.ExactArgs(1),
	RunE: runTempo,
}

func init() {
	rootCmd.AddCommand(tempoCmd)

	tempoCmd.Flags().BoolVarP(&tempoListOnsets, "list-onsets", "l", false,
		"print each detected onset")
	tempoCmd.Flags().Float64Var(&tempoMinBPM, "min-bpm", 0,
		"lowest reported tempo; overrides configuration")
	tempoCmd.Flags().Float64Var(&tempoMaxBPM, "max-bpm", 0,
		"highest reported tempo; overrides configuration")
}

func runTempo(cmd *cobra.Command, args []string) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if tempoMinBPM > 0 {
		config.Tempo.MinBPM = tempoMinBPM
	}
	if tempoMaxBPM > 0 {
		config.Tempo.MaxBPM = tempoMaxBPM
	}
	if err := configs.ValidateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	src, err := decode.Open(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	sessCfg, err := config.SessionConfig(src.SampleRate())
	if err != nil {
		return err
	}
	sess, err := session.NewSession(sessCfg)
	if err != nil {
		return err
	}

	if tempoListOnsets {
		fmt.Printf("%10s %10s\n", "TIME", "STRENGTH")
		sess.OnOnset = func(o temporal.Onset) {
			fmt.Printf("%10.3f %10.3f\n", o.Time.Seconds(), o.Strength)
		}
	}

	res, err := feedSource(sess, src, config)
	if err != nil {
		return err
	}

	printTempoState(res.Tempo, res.FramesProcessed)
	return nil
}

func printTempoState(state temporal.TempoState, frames int) {
	fmt.Println()
	if state.Phase == temporal.PhaseTracking {
		printKeyValue("Tempo", colorize(fmt.Sprintf("%.1f BPM", state.BPM), ColorGreen))
		printKeyValue("Beat period", fmt.Sprintf("%.0f ms", 60000.0/state.BPM))
	} else {
		printKeyValue("Tempo", colorize("undetermined", ColorYellow))
	}
	printKeyValue("Confidence", fmt.Sprintf("%.2f", state.Confidence))
	printKeyValue("Phase", state.Phase.String())
	printKeyValue("Onsets", fmt.Sprintf("%d", state.OnsetCount))
	printKeyValue("Frames", fmt.Sprintf("%d", frames))
}
