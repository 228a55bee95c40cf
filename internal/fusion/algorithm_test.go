package fusion

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

func TestAlgorithmKindRoundTrip(t *testing.T) {
	t.Parallel()

	kinds := []AlgorithmKind{
		AlgorithmKalman,
		AlgorithmExtendedKalman,
		AlgorithmUnscentedKalman,
		AlgorithmParticle,
		AlgorithmMovingAverage,
	}
	for _, k := range kinds {
		assert.Equal(t, k, ParseAlgorithmKind(k.String()), "kind %d", int(k))
	}

	assert.Equal(t, AlgorithmUnknown, ParseAlgorithmKind("definitely-not-a-filter"))
	assert.Equal(t, "unknown", AlgorithmKind(-1).String())
	assert.Equal(t, "unknown", AlgorithmKind(999).String())
	assert.Equal(t, "kalman_filter", AlgorithmKalman.String())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Algorithm:          AlgorithmKalman,
		InputDevices:       []string{"eyetracker-01"},
		DataTypes:          []telemetry.DataType{telemetry.DataTypeGaze},
		TargetSampleRateHz: 60,
		BufferSize:         100,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no devices", func(c *Config) { c.InputDevices = nil }},
		{"no data types", func(c *Config) { c.DataTypes = nil }},
		{"invalid data type", func(c *Config) { c.DataTypes = []telemetry.DataType{telemetry.DataType(42)} }},
		{"zero sample rate", func(c *Config) { c.TargetSampleRateHz = 0 }},
		{"negative sample rate", func(c *Config) { c.TargetSampleRateHz = -1 }},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
		{"non-positive weight", func(c *Config) { c.DeviceWeights = map[string]float64{"eyetracker-01": 0} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid.Clone()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigClone(t *testing.T) {
	t.Parallel()

	orig := Config{
		Algorithm:          AlgorithmKalman,
		InputDevices:       []string{"eyetracker-01", "hrm-01"},
		DataTypes:          []telemetry.DataType{telemetry.DataTypeGaze, telemetry.DataTypeHeartRate},
		TargetSampleRateHz: 60,
		BufferSize:         100,
		DeviceWeights:      map[string]float64{"hrm-01": 2},
		Parameters:         map[string]string{"process_noise": "0.5"},
	}

	clone := orig.Clone()
	if diff := cmp.Diff(orig, clone); diff != "" {
		t.Fatalf("clone differs from original (-orig +clone):\n%s", diff)
	}

	// Deep copy: mutating the clone leaves the original intact.
	clone.InputDevices[0] = "mutated"
	clone.DataTypes[0] = telemetry.DataTypeEEG
	clone.DeviceWeights["hrm-01"] = 99
	clone.Parameters["process_noise"] = "99"

	assert.Equal(t, "eyetracker-01", orig.InputDevices[0])
	assert.Equal(t, telemetry.DataTypeGaze, orig.DataTypes[0])
	assert.Equal(t, 2.0, orig.DeviceWeights["hrm-01"])
	assert.Equal(t, "0.5", orig.Parameters["process_noise"])
}

func TestConfigMatches(t *testing.T) {
	t.Parallel()

	cfg := Config{
		InputDevices: []string{"eyetracker-01"},
		DataTypes:    []telemetry.DataType{telemetry.DataTypeGaze},
	}

	assert.True(t, cfg.Matches(gazeSample("eyetracker-01", 1, 0, 0)))
	assert.False(t, cfg.Matches(gazeSample("other", 1, 0, 0)), "device not configured")
	assert.False(t, cfg.Matches(hrSample("eyetracker-01", 1, 70)), "type not configured")
}

func TestNewAlgorithm(t *testing.T) {
	t.Parallel()

	alg, err := newAlgorithm(AlgorithmKalman)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmKalman, alg.Kind())

	alg, err = newAlgorithm(AlgorithmMovingAverage)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmMovingAverage, alg.Kind())

	_, err = newAlgorithm(AlgorithmUnknown)
	assert.Error(t, err)
	_, err = newAlgorithm(AlgorithmParticle)
	assert.Error(t, err)
}

func TestMeasurementVector(t *testing.T) {
	t.Parallel()

	t.Run("eeg collapses to channel mean", func(t *testing.T) {
		z, conf, err := measurementVector(telemetry.Sample{
			DeviceID: "eeg-01",
			Type:     telemetry.DataTypeEEG,
			Payload:  telemetry.EEGData{ChannelValues: []float64{10, 20, 30}},
		})
		require.NoError(t, err)
		require.Len(t, z, 1)
		assert.Equal(t, 20.0, z[0])
		assert.Equal(t, 1.0, conf)
	})

	t.Run("empty eeg rejected", func(t *testing.T) {
		_, _, err := measurementVector(telemetry.Sample{
			DeviceID: "eeg-01",
			Type:     telemetry.DataTypeEEG,
			Payload:  telemetry.EEGData{},
		})
		require.Error(t, err)
	})

	t.Run("zero sensor confidence treated as full", func(t *testing.T) {
		_, conf, err := measurementVector(gazeSample("eyetracker-01", 1, 0.5, 0.5))
		require.NoError(t, err)
		assert.Equal(t, 1.0, conf)
	})

	t.Run("video frames rejected", func(t *testing.T) {
		_, _, err := measurementVector(telemetry.Sample{
			DeviceID: "cam-01",
			Type:     telemetry.DataTypeVideoFrame,
			Payload:  telemetry.VideoFrameData{Width: 640, Height: 480},
		})
		require.Error(t, err)
	})
}
