// Package config loads fusion tuning parameters from JSON. The schema
// matches the runtime tuning endpoint so the same document can be used
// for both startup configuration and live updates. Fields omitted from
// the file fall back to built-in defaults via the Get* accessors, so
// partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file,
// the single source of truth for default fusion tuning values.
const DefaultConfigPath = "config/fusion.defaults.json"

// TuningConfig is the root fusion tuning document.
type TuningConfig struct {
	// Kalman params
	ProcessNoise         *float64 `json:"process_noise,omitempty"`
	MeasurementNoise     *float64 `json:"measurement_noise,omitempty"`
	DriftRate            *float64 `json:"drift_rate,omitempty"`
	MinPredictIntervalUs *int64   `json:"min_predict_interval_us,omitempty"`
	InitialVariance      *float64 `json:"initial_variance,omitempty"`
	MaxCovarianceDiag    *float64 `json:"max_covariance_diag,omitempty"`
	RegularizationEps    *float64 `json:"regularization_eps,omitempty"`

	// Pipeline defaults
	DefaultSampleRateHz *float64 `json:"default_sample_rate_hz,omitempty"`
	DefaultBufferSize   *int     `json:"default_buffer_size,omitempty"`

	// Streaming params
	StreamListenAddr *string `json:"stream_listen_addr,omitempty"`
	MaxStreamClients *int    `json:"max_stream_clients,omitempty"`
	StreamQueueDepth *int    `json:"stream_queue_depth,omitempty"`

	// Recording params
	RecordingBasePath *string `json:"recording_base_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must
// have a .json extension and the file must be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from
// DefaultConfigPath, searching upward from the current directory.
// Panics if the file cannot be loaded; intended for test setup and
// binaries that have already validated config availability.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/fusion/stream/
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that set values are in range.
func (c *TuningConfig) Validate() error {
	if c.ProcessNoise != nil && *c.ProcessNoise <= 0 {
		return fmt.Errorf("process_noise must be positive, got %f", *c.ProcessNoise)
	}
	if c.MeasurementNoise != nil && *c.MeasurementNoise <= 0 {
		return fmt.Errorf("measurement_noise must be positive, got %f", *c.MeasurementNoise)
	}
	if c.MinPredictIntervalUs != nil && *c.MinPredictIntervalUs < 0 {
		return fmt.Errorf("min_predict_interval_us must be non-negative, got %d", *c.MinPredictIntervalUs)
	}
	if c.InitialVariance != nil && *c.InitialVariance <= 0 {
		return fmt.Errorf("initial_variance must be positive, got %f", *c.InitialVariance)
	}
	if c.MaxCovarianceDiag != nil && *c.MaxCovarianceDiag <= 0 {
		return fmt.Errorf("max_covariance_diag must be positive, got %f", *c.MaxCovarianceDiag)
	}
	if c.DefaultSampleRateHz != nil && *c.DefaultSampleRateHz <= 0 {
		return fmt.Errorf("default_sample_rate_hz must be positive, got %f", *c.DefaultSampleRateHz)
	}
	if c.DefaultBufferSize != nil && *c.DefaultBufferSize <= 0 {
		return fmt.Errorf("default_buffer_size must be positive, got %d", *c.DefaultBufferSize)
	}
	if c.MaxStreamClients != nil && *c.MaxStreamClients <= 0 {
		return fmt.Errorf("max_stream_clients must be positive, got %d", *c.MaxStreamClients)
	}
	if c.StreamQueueDepth != nil && *c.StreamQueueDepth <= 0 {
		return fmt.Errorf("stream_queue_depth must be positive, got %d", *c.StreamQueueDepth)
	}
	return nil
}

// Accessors with built-in defaults. Values mirror config/fusion.defaults.json.

func (c *TuningConfig) GetProcessNoise() float64 {
	if c.ProcessNoise != nil {
		return *c.ProcessNoise
	}
	return 5.0
}

func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise != nil {
		return *c.MeasurementNoise
	}
	return 0.1
}

func (c *TuningConfig) GetDriftRate() float64 {
	if c.DriftRate != nil {
		return *c.DriftRate
	}
	return 0.0
}

func (c *TuningConfig) GetMinPredictIntervalUs() int64 {
	if c.MinPredictIntervalUs != nil {
		return *c.MinPredictIntervalUs
	}
	return 1000 // 1ms
}

func (c *TuningConfig) GetInitialVariance() float64 {
	if c.InitialVariance != nil {
		return *c.InitialVariance
	}
	return 10.0
}

func (c *TuningConfig) GetMaxCovarianceDiag() float64 {
	if c.MaxCovarianceDiag != nil {
		return *c.MaxCovarianceDiag
	}
	return 1000.0
}

func (c *TuningConfig) GetRegularizationEps() float64 {
	if c.RegularizationEps != nil {
		return *c.RegularizationEps
	}
	return 1e-9
}

func (c *TuningConfig) GetDefaultSampleRateHz() float64 {
	if c.DefaultSampleRateHz != nil {
		return *c.DefaultSampleRateHz
	}
	return 60.0
}

func (c *TuningConfig) GetDefaultBufferSize() int {
	if c.DefaultBufferSize != nil {
		return *c.DefaultBufferSize
	}
	return 100
}

func (c *TuningConfig) GetStreamListenAddr() string {
	if c.StreamListenAddr != nil {
		return *c.StreamListenAddr
	}
	return "localhost:50052"
}

func (c *TuningConfig) GetMaxStreamClients() int {
	if c.MaxStreamClients != nil {
		return *c.MaxStreamClients
	}
	return 5
}

func (c *TuningConfig) GetStreamQueueDepth() int {
	if c.StreamQueueDepth != nil {
		return *c.StreamQueueDepth
	}
	return 100
}

func (c *TuningConfig) GetRecordingBasePath() string {
	if c.RecordingBasePath != nil {
		return *c.RecordingBasePath
	}
	return ""
}
