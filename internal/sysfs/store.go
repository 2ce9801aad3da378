package sysfs

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const cpuDir = "sys/devices/system/cpu"

// WriteFileFunc is the privileged write primitive. Every mutating accessor
// goes through it.
type WriteFileFunc func(path, value string) error

// Store exposes the OS-level power, frequency and topology knobs rooted at a
// filesystem prefix. Production code uses "/"; tests point it at a fixture
// tree.
type Store struct {
	root  string
	write WriteFileFunc
}

func NewStore(root string) *Store {
	return &Store{root: root, write: sudoTee}
}

// SetWriteFunc replaces the privileged write primitive.
func (s *Store) SetWriteFunc(fn WriteFileFunc) {
	s.write = fn
}

func sudoTee(path, value string) error {
	cmd := exec.Command("sudo", "tee", path)
	cmd.Stdin = strings.NewReader(value)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sudo tee %s: %w", path, err)
	}
	return nil
}

func (s *Store) readFile(rel string) (string, error) {
	path := filepath.Join(s.root, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &MissingSysNodeError{Path: path}
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Store) readInt(rel string) (int, error) {
	content, err := s.readFile(rel)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(content)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", rel, err)
	}
	return val, nil
}

func (s *Store) writeFile(rel, value string) error {
	return s.write(filepath.Join(s.root, rel), value)
}

// Vendor identifies the CPU vendor from /proc/cpuinfo.
func (s *Store) Vendor() (string, error) {
	cpuinfo, err := s.readFile("proc/cpuinfo")
	if err != nil {
		return "", err
	}
	if strings.Contains(cpuinfo, "GenuineIntel") {
		return "intel", nil
	}
	if strings.Contains(cpuinfo, "AuthenticAMD") {
		return "amd", nil
	}
	return "", &UnknownVendorError{}
}

// ListCPUs returns the CPU ids listed under the given mode, one of "online",
// "offline", "present" or "possible".
func (s *Store) ListCPUs(mode string) ([]int, error) {
	switch mode {
	case "online", "offline", "present", "possible":
	default:
		return nil, fmt.Errorf("cannot list %q CPUs", mode)
	}
	content, err := s.readFile(filepath.Join(cpuDir, mode))
	if err != nil {
		return nil, err
	}
	return ParseCPUList(content)
}

// ParseCPUList parses a kernel CPU list string like "0-3,7" into an ordered
// sequence of CPU ids. Empty content yields an empty sequence.
func ParseCPUList(content string) ([]int, error) {
	cpus := []int{}
	seen := make(map[int]bool)

	for _, part := range strings.Split(content, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			rangeParts := strings.SplitN(part, "-", 2)
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid CPU range start: %s", rangeParts[0])
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid CPU range end: %s", rangeParts[1])
			}
			if start > end {
				return nil, fmt.Errorf("invalid CPU range: start > end (%d > %d)", start, end)
			}
			for i := start; i <= end; i++ {
				if !seen[i] {
					cpus = append(cpus, i)
					seen[i] = true
				}
			}
		} else {
			cpu, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid CPU number: %s", part)
			}
			if !seen[cpu] {
				cpus = append(cpus, cpu)
				seen[cpu] = true
			}
		}
	}

	return cpus, nil
}

// Aslr returns the current address-space randomization mode.
func (s *Store) Aslr() (int, error) {
	return s.readInt("proc/sys/kernel/randomize_va_space")
}

// SetAslr writes the address-space randomization mode (0, 1 or 2).
func (s *Store) SetAslr(mode int) error {
	if mode < 0 || mode > 2 {
		return fmt.Errorf("unsupported ASLR mode: %d", mode)
	}
	return s.writeFile("proc/sys/kernel/randomize_va_space", strconv.Itoa(mode))
}

const noTurboNode = cpuDir + "/intel_pstate/no_turbo"

// TurboEnabled reports whether Intel Turbo Boost is active. Always false on
// non-Intel machines.
func (s *Store) TurboEnabled() (bool, error) {
	vendor, err := s.Vendor()
	if err != nil {
		return false, err
	}
	if vendor != "intel" {
		return false, nil
	}
	content, err := s.readFile(noTurboNode)
	if err != nil {
		var missing *MissingSysNodeError
		if errors.As(err, &missing) {
			return false, nil
		}
		return false, err
	}
	return content != "1", nil
}

// SetTurbo toggles Intel Turbo Boost. It is a no-op on non-Intel machines and
// on machines without the intel_pstate driver.
func (s *Store) SetTurbo(enable bool) error {
	vendor, err := s.Vendor()
	if err != nil {
		return err
	}
	if vendor != "intel" {
		return nil
	}
	if _, err := os.Stat(filepath.Join(s.root, noTurboNode)); os.IsNotExist(err) {
		return nil
	}
	value := "1"
	if enable {
		value = "0"
	}
	return s.writeFile(noTurboNode, value)
}
