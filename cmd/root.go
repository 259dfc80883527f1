package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/safebite/handheld/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfg          *config.Config
	cfgFile      string
	pipeline     string
	profile      string
	logFile      string
	verboseLevel int
)

// logRotator is the open rotating log file, if any.
var logRotator *lumberjack.Logger

var rootCmd = &cobra.Command{
	Use:   "safebite",
	Short: "Control core for the SafeBite handheld",
	Long: `SafeBite drives the handheld's control loop: it records a short voice
clip into memory, keeps a best-effort network link alive and redraws only
the parts of the screen that changed.

Without a subcommand it acts as 'safebite run'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure slog based on verbose level
		setupLogging(verboseLevel, os.Stderr)

		// Use default config path if not specified
		if cfgFile == "" {
			cfgFile = os.ExpandEnv("$HOME/.config/safebite.yaml")
		}

		var err error
		cfg, err = config.LoadIfExists(cfgFile, profile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logFile != "" {
			cfg.Log.File = logFile
		}
		if cfg.Log.File != "" {
			openLogFile(cfg.Log)
			setupLogging(verboseLevel, io.MultiWriter(os.Stderr, logRotator))
		}

		// Validate pipeline if provided
		return validatePipeline()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logRotator != nil {
			return logRotator.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/safebite.yaml)")
	rootCmd.PersistentFlags().StringVarP(&pipeline, "pipeline", "p", "", "pipeline steps: r=record, p=play (e.g., 'rp', 'r')")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "configuration profile to use (overrides active_config from file)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "rotating log file (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(serveCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int, w io.Writer) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(w, opts)
	slog.SetDefault(slog.New(handler))
}

func openLogFile(lc config.LogConfig) {
	if logRotator != nil {
		return
	}
	logRotator = &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		Compress:   true,
	}
}

// logWriter returns where logs go while the terminal is owned by the
// screen: the log file if one is configured, otherwise nowhere.
func logWriter() io.Writer {
	if logRotator != nil {
		return logRotator
	}
	return io.Discard
}
