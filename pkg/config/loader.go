// Package config provides configuration file loading for tracer config files.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opd-ai/go-tracer/pkg/metrics"
)

// LoadFromFile loads configuration from a line-oriented config file.
// It parses the file line by line and updates the provided config.
// Lines starting with # are treated as comments and ignored.
// Empty lines are ignored.
// Each configuration line follows the format: Key Value
func LoadFromFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		key := parts[0]
		value := ""
		if len(parts) > 1 {
			value = strings.Join(parts[1:], " ")
		}

		if err := processConfigOption(cfg, key, value); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// processConfigOption applies a single Key Value pair to the config
func processConfigOption(cfg *Config, key, value string) error {
	switch key {
	case "Nodelay":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("Nodelay: %w", err)
		}
		cfg.Nodelay = v
	case "DialTimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("DialTimeout: %w", err)
		}
		cfg.DialTimeout = d
	case "TLSHandshakeTimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TLSHandshakeTimeout: %w", err)
		}
		cfg.TLSHandshakeTimeout = d
	case "BlockingWorkers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("BlockingWorkers: %w", err)
		}
		cfg.BlockingWorkers = n
	case "CaptureHeader":
		if value == "" {
			return fmt.Errorf("CaptureHeader requires a header name")
		}
		if value == "*" {
			cfg.CaptureHeaders.All = true
		} else {
			if cfg.CaptureHeaders.List == nil {
				cfg.CaptureHeaders.List = make(map[string]struct{})
			}
			cfg.CaptureHeaders.List[strings.ToLower(value)] = struct{}{}
		}
	case "Percentile":
		fields := strings.Fields(value)
		if len(fields) != 2 {
			return fmt.Errorf("Percentile requires 'label value', got %q", value)
		}
		p, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("Percentile %s: %w", fields[0], err)
		}
		cfg.Percentiles = append(cfg.Percentiles, metrics.NewPercentile(fields[0], p))
	case "LogLevel":
		cfg.LogLevel = value
	case "MetricsPort":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("MetricsPort: %w", err)
		}
		cfg.MetricsPort = n
	case "EnableMetrics":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("EnableMetrics: %w", err)
		}
		cfg.EnableMetrics = v
	default:
		return fmt.Errorf("unknown configuration option: %s", key)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %q", value)
	}
}
