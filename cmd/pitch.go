package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/ritmo-radar/configs"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/decode"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/session"
	"github.com/RyanBlaney/ritmo-radar/pkg/audio/tonal"
)

var (
	pitchMethod     string
	pitchVoicedOnly bool
	pitchSmoothed   bool
)

// pitchCmd represents the pitch command
var pitchCmd = &cobra.Command{
	Use:   "pitch [flags] file",
	Short: "Stream per-frame pitch estimates from an audio file",
	Long: `Decode an audio file and print one line per analysis frame with the
frame time, estimated frequency, confidence and nearest note name.
Unvoiced frames report confidence 0.

Examples:
  # Raw per-frame estimates
  ritmo-radar pitch vocals.wav

  # Only voiced frames, median-smoothed
  ritmo-radar pitch --voiced-only --smoothed vocals.wav

  # Spectral-peak method for whistle-like content
  ritmo-radar pitch --method spectral_peak whistle.ogg`,
	Args: cobra.ExactArgs(1),
	RunE: runPitch,
}

func init() {
	rootCmd.AddCommand(pitchCmd)

	pitchCmd.Flags().StringVarP(&pitchMethod, "method", "m", "",
		"pitch method (yin, spectral_peak); overrides configuration")
	pitchCmd.Flags().BoolVar(&pitchVoicedOnly, "voiced-only", false,
		"skip unvoiced frames")
	pitchCmd.Flags().BoolVar(&pitchSmoothed, "smoothed", false,
		"print median-smoothed estimates instead of raw ones")
}

func runPitch(cmd *cobra.Command, args []string) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if pitchMethod != "" {
		config.Pitch.Method = pitchMethod
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

	precision := config.Output.Precision
	withTime := config.Output.Timestamps

	if withTime {
		fmt.Printf("%10s %12s %6s  %-4s\n", "TIME", "FREQ", "CONF", "NOTE")
	} else {
		fmt.Printf("%12s %6s  %-4s\n", "FREQ", "CONF", "NOTE")
	}

	sess.OnFrame = func(fr session.FrameResult) {
		est := fr.Pitch
		if pitchSmoothed {
			est = fr.SmoothedPitch
		}
		if pitchVoicedOnly && !est.Voiced() {
			return
		}
		note := tonal.NoteName(est.Frequency)
		if !est.Voiced() {
			note = "-"
		}
		if withTime {
			fmt.Printf("%10.3f %12.*f %6.2f  %-4s\n",
				fr.Time.Seconds(), precision, est.Frequency, est.Confidence, note)
		} else {
			fmt.Printf("%12.*f %6.2f  %-4s\n",
				precision, est.Frequency, est.Confidence, note)
		}
	}

	res, err := feedSource(sess, src, config)
	if err != nil {
		return err
	}

	printSuccess("%d frames processed", res.FramesProcessed)
	return nil
}

// feedSource streams a source through a session in configured chunks and
// closes the session.
func feedSource(sess *session.Session, src decode.Source, config *configs.Config) (*session.Result, error) {
	mono := decode.Mono(src)

	chunkSamples := int(config.Audio.ChunkDuration * float64(src.SampleRate()))
	if chunkSamples < 1 {
		chunkSamples = 4096
	}
	chunk := make([]float64, chunkSamples)

	for {
		n, err := mono.ReadSamples(chunk)
		if n > 0 {
			if _, ferr := sess.Feed(chunk[:n]); ferr != nil {
				return nil, ferr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode failed mid-stream: %w", err)
		}
	}

	return sess.Close()
}
