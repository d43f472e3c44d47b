package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/ritmo-radar/configs"
	"github.com/RyanBlaney/ritmo-radar/internal/app"
)

var configInitOutput string

// configCmd groups the configuration subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage configuration",
}

// configShowCmd displays the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display all effective configuration values",
	Long: `Load the configuration and display all values in a structured format
to verify that config files, environment variables and flags merge the
way you expect.

Examples:
  # Show effective configuration
  ritmo-radar config show

  # Show with a specific config file
  ritmo-radar --config /path/to/config.yaml config show`,
	RunE: runConfigShow,
}

// configInitCmd writes an example configuration file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example configuration file with all defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configInitOutput); err == nil {
			printWarning("overwriting existing file: %s", configInitOutput)
		}
		return app.GenerateExampleConfig(configInitOutput)
	},
}

// configValidateCmd validates a configuration file
var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.ValidateConfigFile(args[0])
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output-file", "f",
		getConfigFilePath(), "where to write the example configuration")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	fmt.Println("RITMO RADAR CONFIGURATION")
	fmt.Println(strings.Repeat("=", 80))

	// Load configuration
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Output Format", config.OutputFormat)
	printKeyValue("Config Directory", config.ConfigDir)

	printSection("ANALYSIS CONFIGURATION")
	printKeyValue("Concurrent", fmt.Sprintf("%t", config.Analysis.Concurrent))
	printKeyValue("Max Concurrency", fmt.Sprintf("%d", config.Analysis.MaxConcurrency))
	printKeyValue("Smoothing Window", fmt.Sprintf("%d frames", config.Analysis.SmoothingWindow))

	printSection("AUDIO CONFIGURATION")
	printKeyValue("Sample Rate", fmt.Sprintf("%d Hz", config.Audio.SampleRate))
	printKeyValue("Window Size", fmt.Sprintf("%d samples", config.Audio.WindowSize))
	printKeyValue("Hop Size", fmt.Sprintf("%d samples", config.Audio.HopSize))
	printKeyValue("Window Function", config.Audio.WindowFunction)
	printKeyValue("Chunk Duration", fmt.Sprintf("%.2f s", config.Audio.ChunkDuration))

	printSection("PITCH CONFIGURATION")
	printKeyValue("Method", config.Pitch.Method)
	printKeyValue("Min Frequency", fmt.Sprintf("%.1f Hz", config.Pitch.MinFrequency))
	printKeyValue("Max Frequency", fmt.Sprintf("%.1f Hz", config.Pitch.MaxFrequency))
	printKeyValue("YIN Threshold", fmt.Sprintf("%.3f", config.Pitch.YinThreshold))
	printKeyValue("Silence Floor", fmt.Sprintf("%.1f dBFS", config.Pitch.SilenceFloorDB))

	printSection("ONSET CONFIGURATION")
	printKeyValue("Novelty Window", fmt.Sprintf("%d frames", config.Onset.NoveltyWindow))
	printKeyValue("Threshold Margin", fmt.Sprintf("%.2f", config.Onset.ThresholdMargin))
	printKeyValue("Min Onset Gap", config.Onset.MinOnsetGap.String())
	printKeyValue("Novelty Floor", fmt.Sprintf("%g", config.Onset.NoveltyFloor))

	printSection("TEMPO CONFIGURATION")
	printKeyValue("Min BPM", fmt.Sprintf("%.1f", config.Tempo.MinBPM))
	printKeyValue("Max BPM", fmt.Sprintf("%.1f", config.Tempo.MaxBPM))
	printKeyValue("History Size", fmt.Sprintf("%d onsets", config.Tempo.HistorySize))
	printKeyValue("Min Onsets", fmt.Sprintf("%d", config.Tempo.MinOnsets))
	printKeyValue("Hysteresis", fmt.Sprintf("%.1f BPM", config.Tempo.HysteresisBPM))

	printSection("OUTPUT CONFIGURATION")
	printKeyValue("Precision", fmt.Sprintf("%d", config.Output.Precision))
	printKeyValue("Include Metadata", fmt.Sprintf("%t", config.Output.IncludeMetadata))
	printKeyValue("Timestamps", fmt.Sprintf("%t", config.Output.Timestamps))
	printKeyValue("Colors", fmt.Sprintf("%t", config.Output.Colors))

	fmt.Println()
	fmt.Println(strings.Repeat("-", 80))
	if err := configs.ValidateConfig(config); err != nil {
		printError("configuration is invalid: %v", err)
		return err
	}
	printSuccess("configuration is valid")

	return nil
}

func printSection(title string) {
	fmt.Printf("\n%s\n", colorize(title, ColorCyan))
	fmt.Println(strings.Repeat("-", len(title)))
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}

func getConfigFilePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "ritmo-radar", "ritmo-radar.yaml")
}
