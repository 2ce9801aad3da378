package host

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"energy-bench/internal/logging"
)

// HostConfig contains host system information attached to exported reports.
// It is initialized once at startup and shared afterwards.
type HostConfig struct {
	CPUVendor    string
	CPUModel     string
	TotalThreads int

	Hostname      string
	OSInfo        string
	KernelVersion string
}

var (
	globalHostConfig *HostConfig
	hostConfigOnce   sync.Once
)

// GetHostConfig returns the global host configuration, initializing it on
// first call.
func GetHostConfig() (*HostConfig, error) {
	var err error
	hostConfigOnce.Do(func() {
		globalHostConfig, err = initializeHostConfig()
	})
	if globalHostConfig == nil && err == nil {
		err = fmt.Errorf("host configuration initialization previously failed")
	}
	return globalHostConfig, err
}

func initializeHostConfig() (*HostConfig, error) {
	logger := logging.GetLogger()

	config := &HostConfig{}
	if err := config.initSystemInfo(); err != nil {
		return nil, fmt.Errorf("failed to initialize system info: %w", err)
	}
	config.initCPUInfo()

	logger.WithFields(logrus.Fields{
		"hostname":      config.Hostname,
		"cpu_model":     config.CPUModel,
		"total_threads": config.TotalThreads,
		"kernel":        config.KernelVersion,
	}).Debug("Host configuration initialized")

	return config, nil
}

func (hc *HostConfig) initSystemInfo() error {
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}
	hc.Hostname = hostname
	hc.OSInfo = runtime.GOOS + "/" + runtime.GOARCH

	if data, err := os.ReadFile("/proc/version"); err == nil {
		version := strings.Fields(string(data))
		if len(version) >= 3 {
			hc.KernelVersion = version[2]
		}
	}
	if hc.KernelVersion == "" {
		hc.KernelVersion = "unknown"
	}
	return nil
}

func (hc *HostConfig) initCPUInfo() {
	hc.TotalThreads = runtime.NumCPU()

	file, err := os.Open("/proc/cpuinfo")
	if err != nil {
		hc.CPUVendor = "unknown"
		hc.CPUModel = "unknown"
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "vendor_id") && hc.CPUVendor == "" {
			if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
				hc.CPUVendor = strings.TrimSpace(parts[1])
			}
		} else if strings.HasPrefix(line, "model name") && hc.CPUModel == "" {
			if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
				hc.CPUModel = strings.TrimSpace(parts[1])
			}
		}
		if hc.CPUVendor != "" && hc.CPUModel != "" {
			break
		}
	}

	if hc.CPUVendor == "" {
		hc.CPUVendor = "unknown"
	}
	if hc.CPUModel == "" {
		hc.CPUModel = "unknown"
	}
}
