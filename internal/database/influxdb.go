package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"energy-bench/internal/config"
	"energy-bench/internal/host"
	"energy-bench/internal/logging"
	"energy-bench/internal/report"
)

// ConfigFromEnv assembles the InfluxDB target from the environment. All four
// variables must be set.
func ConfigFromEnv() (config.DatabaseConfig, error) {
	cfg := config.DatabaseConfig{
		Host:   strings.TrimSpace(os.Getenv("ENERGY_BENCH_DB_HOST")),
		Token:  strings.TrimSpace(os.Getenv("ENERGY_BENCH_DB_TOKEN")),
		Org:    strings.TrimSpace(os.Getenv("ENERGY_BENCH_DB_ORG")),
		Bucket: strings.TrimSpace(os.Getenv("ENERGY_BENCH_DB_BUCKET")),
	}
	if cfg.Host == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return config.DatabaseConfig{}, fmt.Errorf("incomplete database configuration, set ENERGY_BENCH_DB_HOST, ENERGY_BENCH_DB_TOKEN, ENERGY_BENCH_DB_ORG and ENERGY_BENCH_DB_BUCKET")
	}
	return cfg, nil
}

// Client wraps a health-checked InfluxDB connection.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
	logger   *logrus.Logger
}

// NewClient connects to InfluxDB and verifies the instance is healthy before
// anything gets written.
func NewClient(cfg config.DatabaseConfig) (*Client, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		client.Close()
		return nil, err
	}
	if health.Status != "pass" {
		message := ""
		if health.Message != nil {
			message = *health.Message
		}
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": message,
		}).Error("InfluxDB health check failed")
		client.Close()
		return nil, fmt.Errorf("influxdb health check failed with status %s", health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Bucket,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &Client{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
		logger:   logger,
	}, nil
}

// WriteReport exports compiled energy rows as one point per row.
func (c *Client) WriteReport(runID string, rows []report.Row) error {
	ctx := context.Background()

	points := make([]*write.Point, 0, len(rows))
	now := time.Now()
	for _, row := range rows {
		point := influxdb2.NewPoint("energy_report",
			map[string]string{
				"run_id":    runID,
				"mode":      row.Mode,
				"language":  row.Language,
				"benchmark": row.Benchmark,
			},
			map[string]interface{}{
				"time_ms":  row.Time,
				"pkg_j":    row.Pkg,
				"core_j":   row.Core,
				"uncore_j": row.Uncore,
				"dram_j":   row.Dram,
			},
			now)
		points = append(points, point)
	}

	if err := c.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write report points: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"points": len(points),
		"bucket": c.bucket,
	}).Info("Report exported to InfluxDB")
	return nil
}

// RunMetadata describes the host a run was measured on.
type RunMetadata struct {
	RunID         string `json:"run_id"`
	Hostname      string `json:"hostname"`
	OSInfo        string `json:"os_info"`
	KernelVersion string `json:"kernel_version"`
	CPUVendor     string `json:"cpu_vendor"`
	CPUModel      string `json:"cpu_model"`
	CPUThreads    int    `json:"cpu_threads"`
}

// CollectRunMetadata snapshots the current host for a run.
func CollectRunMetadata(runID string) (*RunMetadata, error) {
	hc, err := host.GetHostConfig()
	if err != nil {
		return nil, err
	}
	return &RunMetadata{
		RunID:         runID,
		Hostname:      hc.Hostname,
		OSInfo:        hc.OSInfo,
		KernelVersion: hc.KernelVersion,
		CPUVendor:     hc.CPUVendor,
		CPUModel:      hc.CPUModel,
		CPUThreads:    hc.TotalThreads,
	}, nil
}

// WriteRunMetadata exports one metadata point per run.
func (c *Client) WriteRunMetadata(meta *RunMetadata) error {
	ctx := context.Background()

	point := influxdb2.NewPoint("energy_report_meta",
		map[string]string{
			"run_id":   meta.RunID,
			"hostname": meta.Hostname,
		},
		map[string]interface{}{
			"os_info":        meta.OSInfo,
			"kernel_version": meta.KernelVersion,
			"cpu_vendor":     meta.CPUVendor,
			"cpu_model":      meta.CPUModel,
			"cpu_threads":    meta.CPUThreads,
		},
		time.Now())

	if err := c.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	c.client.Close()
}
