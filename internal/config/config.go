package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDCapture string
	MQTTClientIDWeb     string

	// Topics
	TopicFrames   string
	TopicCommands string
	TopicReplies  string

	// Capture workflow
	StabilizeDurationSeconds  int
	CalibrationTimeoutSeconds int
	DataTimeoutSeconds        int
	PollIntervalMS            int
	AutoCalibrate             bool

	// Recording
	RecordFPS     float64
	RecordSeconds int
	BVHExportPath string

	// Web Server
	WebServerPort     int
	WebPushIntervalMS int
}

// Package-level unexported variables for the singleton pattern:
// globalConfig is only set through InitGlobal (guarded by configOnce)
// and only read through Get, which takes the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config with every optional field pre-filled.
func defaults() *Config {
	return &Config{
		MQTTClientIDCapture:       "motion-capture-client",
		MQTTClientIDWeb:           "motion-web-subscriber",
		StabilizeDurationSeconds:  20,
		CalibrationTimeoutSeconds: 60,
		DataTimeoutSeconds:        5,
		PollIntervalMS:            10,
		AutoCalibrate:             true,
		RecordFPS:                 60,
		RecordSeconds:             10,
		BVHExportPath:             "capture.bvh",
		WebServerPort:             8080,
		WebPushIntervalMS:         50,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_CAPTURE":
		c.MQTTClientIDCapture = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_FRAMES":
		c.TopicFrames = value
	case "TOPIC_COMMANDS":
		c.TopicCommands = value
	case "TOPIC_REPLIES":
		c.TopicReplies = value

	// Capture workflow
	case "STABILIZE_DURATION_SECONDS":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid STABILIZE_DURATION_SECONDS %q: %w", value, err)
		}
		if seconds < 1 || seconds > 600 {
			return fmt.Errorf("STABILIZE_DURATION_SECONDS must be 1-600, got %d", seconds)
		}
		c.StabilizeDurationSeconds = seconds
	case "CALIBRATION_TIMEOUT_SECONDS":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_TIMEOUT_SECONDS %q: %w", value, err)
		}
		if seconds < 1 || seconds > 600 {
			return fmt.Errorf("CALIBRATION_TIMEOUT_SECONDS must be 1-600, got %d", seconds)
		}
		c.CalibrationTimeoutSeconds = seconds
	case "DATA_TIMEOUT_SECONDS":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DATA_TIMEOUT_SECONDS %q: %w", value, err)
		}
		if seconds < 1 || seconds > 120 {
			return fmt.Errorf("DATA_TIMEOUT_SECONDS must be 1-120, got %d", seconds)
		}
		c.DataTimeoutSeconds = seconds
	case "POLL_INTERVAL_MS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL_MS %q: %w", value, err)
		}
		if interval < 1 || interval > 1000 {
			return fmt.Errorf("POLL_INTERVAL_MS must be 1-1000, got %d", interval)
		}
		c.PollIntervalMS = interval
	case "AUTO_CALIBRATE":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid AUTO_CALIBRATE %q: %w", value, err)
		}
		c.AutoCalibrate = enabled

	// Recording
	case "RECORD_FPS":
		fps, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid RECORD_FPS %q: %w", value, err)
		}
		if fps < 1 || fps > 240 {
			return fmt.Errorf("RECORD_FPS must be 1-240, got %g", fps)
		}
		c.RecordFPS = fps
	case "RECORD_SECONDS":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RECORD_SECONDS %q: %w", value, err)
		}
		if seconds < 1 {
			return fmt.Errorf("RECORD_SECONDS must be positive, got %d", seconds)
		}
		c.RecordSeconds = seconds
	case "BVH_EXPORT_PATH":
		c.BVHExportPath = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port
	case "WEB_PUSH_INTERVAL_MS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_PUSH_INTERVAL_MS %q: %w", value, err)
		}
		if interval < 10 || interval > 5000 {
			return fmt.Errorf("WEB_PUSH_INTERVAL_MS must be 10-5000, got %d", interval)
		}
		c.WebPushIntervalMS = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicFrames == "" {
		return fmt.Errorf("TOPIC_FRAMES is required")
	}
	if c.TopicCommands == "" {
		return fmt.Errorf("TOPIC_COMMANDS is required")
	}
	if c.TopicReplies == "" {
		return fmt.Errorf("TOPIC_REPLIES is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once so repeated calls keep the first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
