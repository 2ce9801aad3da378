package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"energy-bench/internal/logging"
)

var (
	logLevel string

	// baseDir is the workspace holding benchmark scratch directories, the
	// RAPL interface library and the results tree.
	baseDir string
)

var rootCmd = &cobra.Command{
	Use:          "energy-bench",
	Short:        "Benchmark energy measurement pipeline",
	Long:         "Measures the energy consumption of benchmark programs with RAPL and perf under controlled machine environments, and compiles the raw measurements into reports",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			if err := logging.SetLogLevel(logLevel); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
		}
		loadEnvironment()
		return resolveBaseDir()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")
}

// Execute runs the command tree. Interrupts cancel the command context so
// in-flight runs unwind their environment and scratch state before exiting.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func loadEnvironment() {
	logger := logging.GetLogger()

	envFile := ".env"
	if _, err := os.Stat(envFile); err != nil {
		execPath, err := os.Executable()
		if err != nil {
			return
		}
		envFile = filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(envFile); err != nil {
			return
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
	} else {
		logger.WithField("file", envFile).Debug("Loaded environment variables")
	}
}

func resolveBaseDir() error {
	if v := strings.TrimSpace(os.Getenv("ENERGY_BENCH_HOME")); v != "" {
		baseDir = v
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".energy-bench")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace %s: %w", baseDir, err)
	}
	return nil
}
