package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"energy-bench/internal/database"
	"energy-bench/internal/logging"
	"energy-bench/internal/report"
)

var reportOpts struct {
	skip        int
	averageRapl bool
	averagePerf bool
	interactive bool
	format      string
	noTrial     bool
	db          bool
}

var reportCmd = &cobra.Command{
	Use:   "report [results...]",
	Short: "Build reports from raw measurements",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(args)
	},
}

func init() {
	flags := reportCmd.Flags()
	flags.IntVarP(&reportOpts.skip, "skip", "s", 0, "Number of rows to skip for each measurement")
	flags.BoolVar(&reportOpts.averageRapl, "average-rapl", false, "Produce a table with averaged RAPL results")
	flags.BoolVar(&reportOpts.averagePerf, "average-perf", false, "Produce a table with averaged perf results")
	flags.BoolVarP(&reportOpts.interactive, "interactive", "i", false, "Emit normalized timeseries data for interactive consumers")
	flags.StringVarP(&reportOpts.format, "format", "f", report.FormatCSV, "Output format for results (csv, json)")
	flags.BoolVar(&reportOpts.noTrial, "no-trial", false, "Exclude trial run reference rows from the output")
	flags.BoolVar(&reportOpts.db, "db", false, "Export the compiled report to InfluxDB")

	rootCmd.AddCommand(reportCmd)
}

func runReport(dirs []string) error {
	if reportOpts.format != report.FormatCSV && reportOpts.format != report.FormatJSON {
		return fmt.Errorf("unsupported output format: %s", reportOpts.format)
	}

	compiler := report.NewCompiler(reportOpts.skip)
	compiler.IncludeTrial = !reportOpts.noTrial

	switch {
	case reportOpts.interactive:
		series, err := compiler.Timeseries(dirs[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(series, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil

	case reportOpts.averageRapl:
		rows, err := compiler.AverageRapl(dirs)
		if err != nil {
			return err
		}
		return report.WriteAvgRows(os.Stdout, rows, reportOpts.format)

	case reportOpts.averagePerf:
		rows, err := compiler.AveragePerf(dirs)
		if err != nil {
			return err
		}
		return report.WritePerfRows(os.Stdout, rows, reportOpts.format)
	}

	rows, err := compiler.Compile(dirs)
	if err != nil {
		return err
	}
	if err := report.WriteRows(os.Stdout, rows, reportOpts.format); err != nil {
		return err
	}

	if reportOpts.db {
		return exportReport(dirs[0], rows)
	}
	return nil
}

// exportReport pushes compiled rows to InfluxDB and falls back to a local
// spool artifact when the write fails, so the measurement is never lost.
func exportReport(dir string, rows []report.Row) error {
	logger := logging.GetLogger()

	info, err := report.SplitEnergyPath(dir)
	if err != nil {
		return err
	}
	runID := info.RunID()

	meta, err := database.CollectRunMetadata(runID)
	if err != nil {
		logger.WithError(err).Warn("Failed to collect run metadata")
	}

	spool := func(cause error) error {
		artifact := database.BuildSpoolArtifact(runID, rows, meta)
		path, spoolErr := database.WriteSpoolArtifact("", artifact)
		if spoolErr != nil {
			return fmt.Errorf("export failed (%v) and spooling failed too: %w", cause, spoolErr)
		}
		logger.WithField("path", path).WithError(cause).Warn("Export failed, report spooled locally")
		return nil
	}

	cfg, err := database.ConfigFromEnv()
	if err != nil {
		return err
	}
	client, err := database.NewClient(cfg)
	if err != nil {
		return spool(err)
	}
	defer client.Close()

	if err := client.WriteReport(runID, rows); err != nil {
		return spool(err)
	}
	if meta != nil {
		if err := client.WriteRunMetadata(meta); err != nil {
			logger.WithError(err).Warn("Failed to write run metadata")
		}
	}
	return nil
}
