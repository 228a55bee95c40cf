package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestAccessorDefaults(t *testing.T) {
	t.Parallel()

	cfg := EmptyTuningConfig()

	assert.Equal(t, 5.0, cfg.GetProcessNoise())
	assert.Equal(t, 0.1, cfg.GetMeasurementNoise())
	assert.Equal(t, 0.0, cfg.GetDriftRate())
	assert.Equal(t, int64(1000), cfg.GetMinPredictIntervalUs())
	assert.Equal(t, 10.0, cfg.GetInitialVariance())
	assert.Equal(t, 1000.0, cfg.GetMaxCovarianceDiag())
	assert.Equal(t, 1e-9, cfg.GetRegularizationEps())
	assert.Equal(t, 60.0, cfg.GetDefaultSampleRateHz())
	assert.Equal(t, 100, cfg.GetDefaultBufferSize())
	assert.Equal(t, "localhost:50052", cfg.GetStreamListenAddr())
	assert.Equal(t, 5, cfg.GetMaxStreamClients())
	assert.Equal(t, 100, cfg.GetStreamQueueDepth())
	assert.Equal(t, "", cfg.GetRecordingBasePath())
}

func TestAccessorOverrides(t *testing.T) {
	t.Parallel()

	cfg := &TuningConfig{
		ProcessNoise:         ptrFloat64(0.5),
		MeasurementNoise:     ptrFloat64(2.0),
		DriftRate:            ptrFloat64(0.01),
		MinPredictIntervalUs: ptrInt64(250),
		InitialVariance:      ptrFloat64(4.0),
		MaxCovarianceDiag:    ptrFloat64(500.0),
		RegularizationEps:    ptrFloat64(1e-6),
		DefaultSampleRateHz:  ptrFloat64(120.0),
		DefaultBufferSize:    ptrInt(250),
		StreamListenAddr:     ptrString("0.0.0.0:6000"),
		MaxStreamClients:     ptrInt(12),
		StreamQueueDepth:     ptrInt(500),
		RecordingBasePath:    ptrString("/var/lib/fusion/recordings"),
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.5, cfg.GetProcessNoise())
	assert.Equal(t, 2.0, cfg.GetMeasurementNoise())
	assert.Equal(t, 0.01, cfg.GetDriftRate())
	assert.Equal(t, int64(250), cfg.GetMinPredictIntervalUs())
	assert.Equal(t, 4.0, cfg.GetInitialVariance())
	assert.Equal(t, 500.0, cfg.GetMaxCovarianceDiag())
	assert.Equal(t, 1e-6, cfg.GetRegularizationEps())
	assert.Equal(t, 120.0, cfg.GetDefaultSampleRateHz())
	assert.Equal(t, 250, cfg.GetDefaultBufferSize())
	assert.Equal(t, "0.0.0.0:6000", cfg.GetStreamListenAddr())
	assert.Equal(t, 12, cfg.GetMaxStreamClients())
	assert.Equal(t, 500, cfg.GetStreamQueueDepth())
	assert.Equal(t, "/var/lib/fusion/recordings", cfg.GetRecordingBasePath())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*TuningConfig)
		wantErr string
	}{
		{
			name:   "empty config is valid",
			mutate: func(*TuningConfig) {},
		},
		{
			name:    "zero process noise",
			mutate:  func(c *TuningConfig) { c.ProcessNoise = ptrFloat64(0) },
			wantErr: "process_noise",
		},
		{
			name:    "negative measurement noise",
			mutate:  func(c *TuningConfig) { c.MeasurementNoise = ptrFloat64(-0.1) },
			wantErr: "measurement_noise",
		},
		{
			name:    "negative predict interval",
			mutate:  func(c *TuningConfig) { c.MinPredictIntervalUs = ptrInt64(-1) },
			wantErr: "min_predict_interval_us",
		},
		{
			name:   "zero predict interval allowed",
			mutate: func(c *TuningConfig) { c.MinPredictIntervalUs = ptrInt64(0) },
		},
		{
			name:    "zero initial variance",
			mutate:  func(c *TuningConfig) { c.InitialVariance = ptrFloat64(0) },
			wantErr: "initial_variance",
		},
		{
			name:    "negative covariance cap",
			mutate:  func(c *TuningConfig) { c.MaxCovarianceDiag = ptrFloat64(-1) },
			wantErr: "max_covariance_diag",
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *TuningConfig) { c.DefaultSampleRateHz = ptrFloat64(0) },
			wantErr: "default_sample_rate_hz",
		},
		{
			name:    "zero buffer size",
			mutate:  func(c *TuningConfig) { c.DefaultBufferSize = ptrInt(0) },
			wantErr: "default_buffer_size",
		},
		{
			name:    "zero stream clients",
			mutate:  func(c *TuningConfig) { c.MaxStreamClients = ptrInt(0) },
			wantErr: "max_stream_clients",
		},
		{
			name:    "negative queue depth",
			mutate:  func(c *TuningConfig) { c.StreamQueueDepth = ptrInt(-5) },
			wantErr: "stream_queue_depth",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := EmptyTuningConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadTuningConfig(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "tuning.json", `{
			"process_noise": 2.5,
			"min_predict_interval_us": 500,
			"stream_listen_addr": "localhost:6001",
			"recording_base_path": "/tmp/rec"
		}`)

		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)

		want := &TuningConfig{
			ProcessNoise:         ptrFloat64(2.5),
			MinPredictIntervalUs: ptrInt64(500),
			StreamListenAddr:     ptrString("localhost:6001"),
			RecordingBasePath:    ptrString("/tmp/rec"),
		}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("loaded config mismatch (-want +got):\n%s", diff)
		}

		// Unset fields still answer with built-in defaults.
		assert.Equal(t, 0.1, cfg.GetMeasurementNoise())
		assert.Equal(t, 100, cfg.GetDefaultBufferSize())
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "tuning.yaml", `{}`)
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".json extension")
	})

	t.Run("rejects missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to stat config file")
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		t.Parallel()

		big := make([]byte, 1*1024*1024+1)
		for i := range big {
			big[i] = ' '
		}
		path := writeConfigFile(t, "huge.json", string(big))
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config file too large")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "broken.json", `{"process_noise": `)
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config JSON")
	})

	t.Run("rejects out-of-range values", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "bad.json", `{"process_noise": -1.0}`)
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestMustLoadDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := MustLoadDefaultConfig()

	// The shipped defaults document must agree with the accessors'
	// built-in values, so a partial config behaves identically to the
	// full one.
	empty := EmptyTuningConfig()
	assert.Equal(t, empty.GetProcessNoise(), cfg.GetProcessNoise())
	assert.Equal(t, empty.GetMeasurementNoise(), cfg.GetMeasurementNoise())
	assert.Equal(t, empty.GetDriftRate(), cfg.GetDriftRate())
	assert.Equal(t, empty.GetMinPredictIntervalUs(), cfg.GetMinPredictIntervalUs())
	assert.Equal(t, empty.GetInitialVariance(), cfg.GetInitialVariance())
	assert.Equal(t, empty.GetMaxCovarianceDiag(), cfg.GetMaxCovarianceDiag())
	assert.Equal(t, empty.GetRegularizationEps(), cfg.GetRegularizationEps())
	assert.Equal(t, empty.GetDefaultSampleRateHz(), cfg.GetDefaultSampleRateHz())
	assert.Equal(t, empty.GetDefaultBufferSize(), cfg.GetDefaultBufferSize())
	assert.Equal(t, empty.GetStreamListenAddr(), cfg.GetStreamListenAddr())
	assert.Equal(t, empty.GetMaxStreamClients(), cfg.GetMaxStreamClients())
	assert.Equal(t, empty.GetStreamQueueDepth(), cfg.GetStreamQueueDepth())
}
