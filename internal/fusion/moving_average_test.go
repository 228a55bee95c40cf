package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

func newMovingAverage(t *testing.T, cfg Config) *MovingAverage {
	t.Helper()
	m := &MovingAverage{}
	require.NoError(t, m.Initialize(cfg))
	return m
}

func TestMovingAverageSmoothing(t *testing.T) {
	t.Parallel()

	m := newMovingAverage(t, Config{
		Algorithm:          AlgorithmMovingAverage,
		InputDevices:       []string{"hrm-01"},
		DataTypes:          []telemetry.DataType{telemetry.DataTypeHeartRate},
		TargetSampleRateHz: 1,
		BufferSize:         10,
	})

	// First observation seeds the mean directly.
	require.NoError(t, m.ProcessData(hrSample("hrm-01", 1_000, 70)))
	assert.Equal(t, 70.0, m.GetFusedData().Channels["heart_rate_bpm"])

	// Default alpha 0.2: 70 + 0.2*(80-70) = 72.
	require.NoError(t, m.ProcessData(hrSample("hrm-01", 1_001_000, 80)))
	fused := m.GetFusedData()
	assert.InDelta(t, 72.0, fused.Channels["heart_rate_bpm"], 1e-9)
	assert.Equal(t, int64(1_001_000), fused.TimestampMicros)
	assert.Equal(t, []string{"hrm-01"}, fused.SourceDevices)
}

func TestMovingAverageAlphaOverride(t *testing.T) {
	t.Parallel()

	m := newMovingAverage(t, Config{
		Algorithm:          AlgorithmMovingAverage,
		InputDevices:       []string{"hrm-01"},
		DataTypes:          []telemetry.DataType{telemetry.DataTypeHeartRate},
		TargetSampleRateHz: 1,
		BufferSize:         10,
		Parameters:         map[string]string{"alpha": "1.0"},
	})

	require.NoError(t, m.ProcessData(hrSample("hrm-01", 1_000, 70)))
	require.NoError(t, m.ProcessData(hrSample("hrm-01", 2_000, 85)))
	// Alpha 1 tracks the latest measurement exactly.
	assert.Equal(t, 85.0, m.GetFusedData().Channels["heart_rate_bpm"])
}

func TestMovingAverageRejectsBadAlpha(t *testing.T) {
	t.Parallel()

	for _, alpha := range []string{"0", "-0.5", "1.5", "wat"} {
		m := &MovingAverage{}
		err := m.Initialize(Config{
			Algorithm:          AlgorithmMovingAverage,
			InputDevices:       []string{"hrm-01"},
			DataTypes:          []telemetry.DataType{telemetry.DataTypeHeartRate},
			TargetSampleRateHz: 1,
			BufferSize:         10,
			Parameters:         map[string]string{"alpha": alpha},
		})
		require.Error(t, err, "alpha %q", alpha)
	}
}

func TestMovingAverageConfidenceFallsWithNoise(t *testing.T) {
	t.Parallel()

	run := func(values []float64) float64 {
		m := newMovingAverage(t, Config{
			Algorithm:          AlgorithmMovingAverage,
			InputDevices:       []string{"hrm-01"},
			DataTypes:          []telemetry.DataType{telemetry.DataTypeHeartRate},
			TargetSampleRateHz: 1,
			BufferSize:         32,
		})
		us := int64(1_000)
		for _, v := range values {
			require.NoError(t, m.ProcessData(hrSample("hrm-01", us, v)))
			us += 1_000_000
		}
		return m.GetFusedData().Confidence
	}

	steady := run([]float64{72, 72, 72, 72, 72, 72})
	jumpy := run([]float64{72, 40, 110, 35, 120, 30})
	assert.Greater(t, steady, jumpy)
	assert.LessOrEqual(t, steady, 1.0)
	assert.Greater(t, jumpy, 0.0)
}

func TestMovingAverageDeviceWeightCapsAtOne(t *testing.T) {
	t.Parallel()

	m := newMovingAverage(t, Config{
		Algorithm:          AlgorithmMovingAverage,
		InputDevices:       []string{"hrm-01"},
		DataTypes:          []telemetry.DataType{telemetry.DataTypeHeartRate},
		TargetSampleRateHz: 1,
		BufferSize:         10,
		DeviceWeights:      map[string]float64{"hrm-01": 100},
	})

	require.NoError(t, m.ProcessData(hrSample("hrm-01", 1_000, 70)))
	require.NoError(t, m.ProcessData(hrSample("hrm-01", 2_000, 90)))
	// Effective alpha saturates at 1: full tracking, never overshoot.
	assert.Equal(t, 90.0, m.GetFusedData().Channels["heart_rate_bpm"])
}

func TestMovingAverageReset(t *testing.T) {
	t.Parallel()

	m := newMovingAverage(t, Config{
		Algorithm:          AlgorithmMovingAverage,
		InputDevices:       []string{"hrm-01"},
		DataTypes:          []telemetry.DataType{telemetry.DataTypeHeartRate},
		TargetSampleRateHz: 1,
		BufferSize:         10,
	})

	require.NoError(t, m.ProcessData(hrSample("hrm-01", 1_000, 70)))
	m.Reset()

	fused := m.GetFusedData()
	assert.Zero(t, fused.Channels["heart_rate_bpm"])
	assert.Zero(t, fused.Confidence)
	assert.Empty(t, fused.SourceDevices)

	require.NoError(t, m.ProcessData(hrSample("hrm-01", 2_000, 75)))
	assert.Equal(t, 75.0, m.GetFusedData().Channels["heart_rate_bpm"])
}
