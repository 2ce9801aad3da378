package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"energy-bench/internal/config"
	"energy-bench/internal/languages"
	"energy-bench/internal/logging"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate benchmark files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(files []string) error {
	logger := logging.GetLogger()

	invalid := 0
	for _, file := range files {
		spec, err := config.Load(file)
		if err == nil {
			_, err = languages.Lookup(spec.Language)
		}
		if err != nil {
			invalid++
			logger.WithField("file", file).WithError(err).Error("Benchmark file invalid")
			continue
		}
		logger.WithField("file", file).WithField("benchmark", spec.Name).Info("Benchmark file valid")
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d benchmark files invalid", invalid, len(files))
	}
	return nil
}
