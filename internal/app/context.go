// Package app wires configuration, decoding and the analysis session into
// the command-line workflows.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/ritmo-radar/configs"
	"github.com/RyanBlaney/ritmo-radar/pkg/logging"
	"github.com/RyanBlaney/ritmo-radar/pkg/output"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile    string
	OutputFile    string
	OutputFormat  string
	LogLevel      string
	InputFiles    []string
	Concurrent    bool
	MaxConcurrent int
	Verbose       bool
	Quiet         bool

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// AnalyzerApp handles the analysis application lifecycle
type AnalyzerApp struct {
	ctx    *Context
	config *configs.Config
	logger logging.Logger
}

// NewAnalyzerApp creates a new analyzer application
func NewAnalyzerApp(ctx *Context) (*AnalyzerApp, error) {
	// Set up logging
	logger := setupLogging(ctx)
	ctx.Logger = logger

	// Load configuration
	config, err := loadAndMergeConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx.Config = config

	logger.Debug("analyzer application initialized", logging.Fields{
		"config_file":   ctx.ConfigFile,
		"output_format": ctx.OutputFormat,
		"input_files":   len(ctx.InputFiles),
		"concurrent":    config.Analysis.Concurrent,
	})

	return &AnalyzerApp{
		ctx:    ctx,
		config: config,
		logger: logger,
	}, nil
}

// Run executes the analysis across all input files
func (app *AnalyzerApp) Run(ctx context.Context) error {
	app.logger.Debug("starting audio analysis", logging.Fields{
		"files": len(app.ctx.InputFiles),
	})

	summary := app.analyzeAll(ctx)

	if err := app.outputResults(summary); err != nil {
		return fmt.Errorf("failed to output results: %w", err)
	}

	// Return error if all files failed
	if summary.Failed > 0 && summary.Succeeded == 0 {
		return fmt.Errorf("all analyses failed")
	}

	return nil
}

// setupLogging configures logging based on context and installs the
// result as the process-wide default so component loggers inherit it.
func setupLogging(ctx *Context) logging.Logger {
	level := ctx.LogLevel
	if ctx.Verbose {
		level = "debug"
	} else if ctx.Quiet {
		level = "error"
	}

	logger := logging.NewLogger(logging.Config{Level: level})
	logging.SetDefault(logger)
	return logger
}

// loadAndMergeConfig loads configuration from viper and merges CLI flags
func loadAndMergeConfig(ctx *Context) (*configs.Config, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load base configuration: %w", err)
	}

	// CLI flags override file and environment values
	if ctx.OutputFormat != "" {
		config.OutputFormat = ctx.OutputFormat
	}
	if ctx.Concurrent {
		config.Analysis.Concurrent = true
	}
	if ctx.MaxConcurrent > 0 {
		config.Analysis.MaxConcurrency = ctx.MaxConcurrent
	}
	if ctx.Verbose {
		config.Verbose = true
	}

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// outputResults handles all result output
func (app *AnalyzerApp) outputResults(summary *Summary) error {
	outputData := map[string]any{
		"analysis_summary": summary,
		"timestamp":        time.Now(),
	}

	if app.config.Output.IncludeMetadata {
		outputData["configuration"] = map[string]any{
			"window_size":     app.config.Audio.WindowSize,
			"hop_size":        app.config.Audio.HopSize,
			"window_function": app.config.Audio.WindowFunction,
			"pitch_method":    app.config.Pitch.Method,
			"tempo_range":     fmt.Sprintf("%.0f-%.0f", app.config.Tempo.MinBPM, app.config.Tempo.MaxBPM),
		}
	}

	formatter := output.NewFormatter(app.config.OutputFormat)
	formattedData, err := formatter.Format(outputData, true)
	if err != nil {
		return fmt.Errorf("failed to format output data: %w", err)
	}

	// Write to file or stdout
	if app.ctx.OutputFile != "" {
		return app.writeToFile(formattedData)
	}

	_, err = os.Stdout.Write(formattedData)
	return err
}

// writeToFile writes data to the specified output file
func (app *AnalyzerApp) writeToFile(data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(app.ctx.OutputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(app.ctx.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}
