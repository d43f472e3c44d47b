package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/ritmo-radar/internal/app"
)

var (
	// Analyze command flags
	analyzeOutputFile    string
	analyzeConcurrent    bool
	analyzeMaxConcurrent int
	analyzeTimeout       time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] files...",
	Short: "Analyze pitch and tempo of audio files",
	Long: `Run the full analysis pipeline over one or more audio files and report
a per-file summary: duration, voiced ratio, median pitch with note name,
tempo estimate with confidence and onset statistics.

Examples:
  # Analyze a single file with JSON output
  ritmo-radar analyze track.wav

  # Analyze a batch concurrently and write a YAML report
  ritmo-radar analyze --concurrent -o yaml --output-file report.yaml *.mp3

  # Use the spectral-peak pitch method via environment override
  RITMO_RADAR_PITCH_METHOD=spectral_peak ritmo-radar analyze take.ogg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeOutputFile, "output-file", "f", "",
		"write results to file instead of stdout")
	analyzeCmd.Flags().BoolVarP(&analyzeConcurrent, "concurrent", "p", false,
		"analyze files concurrently")
	analyzeCmd.Flags().IntVarP(&analyzeMaxConcurrent, "max-concurrent", "c", 0,
		"concurrent file limit (0 uses configuration)")
	analyzeCmd.Flags().DurationVarP(&analyzeTimeout, "timeout", "T", 0,
		"abort analysis after this duration (0 disables)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	timer := NewPerformanceTimer()
	timer.StartEvent("overall")

	appCtx := &app.Context{
		ConfigFile:    configFile,
		OutputFile:    analyzeOutputFile,
		OutputFormat:  viper.GetString("output_format"),
		LogLevel:      viper.GetString("log_level"),
		InputFiles:    args,
		Concurrent:    analyzeConcurrent,
		MaxConcurrent: analyzeMaxConcurrent,
		Verbose:       viper.GetBool("verbose"),
		Quiet:         quiet,
	}

	timer.StartEvent("initialization")
	application, err := app.NewAnalyzerApp(appCtx)
	if err != nil {
		return err
	}
	timer.EndEvent("initialization")

	ctx := context.Background()
	if analyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, analyzeTimeout)
		defer cancel()
	}

	timer.StartEvent("analysis")
	err = application.Run(ctx)
	timer.EndEvent("analysis")
	timer.EndEvent("overall")

	if viper.GetBool("verbose") {
		timer.PrintSummary()
	}

	return err
}
