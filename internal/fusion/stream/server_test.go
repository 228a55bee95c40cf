package stream

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/cockpit.fusion/internal/devices"
	"github.com/banshee-data/cockpit.fusion/internal/storage"
	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// newTestServer builds a Server over a throwaway sqlite store and a
// publisher that is never started: Subscribe and the broadcast plumbing
// work without a bound socket.
func newTestServer(t *testing.T) (*Server, *Publisher, *storage.DB) {
	t.Helper()
	store, err := storage.NewDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)
	srv := NewServer(pub, store, devices.NewCatalogue(devices.DefaultDevices()), "/var/lib/fusion/recordings")
	return srv, pub, store
}

func TestRecordingLifecycle(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	resp, err := srv.StartRecording(ctx, &RecordingRequest{
		SessionID:  "sess-1",
		UserID:     "pilot-7",
		ExerciseID: "ils-approach",
		Metadata:   map[string]string{"aircraft": "c172"},
	})
	require.NoError(t, err)
	require.True(t, resp.Success, "start: %s", resp.ErrorMessage)
	assert.Equal(t, filepath.Join("/var/lib/fusion/recordings", "sess-1"), resp.RecordingPath)
	assert.Equal(t, []string{"sess-1"}, srv.ActiveRecordings())

	sess, err := store.GetSession("sess-1")
	require.NoError(t, err)
	assert.True(t, sess.Active())
	assert.Equal(t, "pilot-7", sess.UserID)

	// Second start for the same session fails in-band, not as an RPC error.
	dup, err := srv.StartRecording(ctx, &RecordingRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.False(t, dup.Success)
	assert.Contains(t, dup.ErrorMessage, "already active")

	stop, err := srv.StopRecording(ctx, &StopRecordingRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	require.True(t, stop.Success, "stop: %s", stop.ErrorMessage)
	assert.Empty(t, srv.ActiveRecordings())

	sess, err = store.GetSession("sess-1")
	require.NoError(t, err)
	assert.False(t, sess.Active())

	// Stopping again reports the missing recording in-band.
	again, err := srv.StopRecording(ctx, &StopRecordingRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Contains(t, again.ErrorMessage, "no active recording")
}

func TestRecordingCapturesPoints(t *testing.T) {
	srv, pub, store := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, pub.Start())
	defer pub.Stop()

	resp, err := srv.StartRecording(ctx, &RecordingRequest{SessionID: "sess-2"})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.ErrorMessage)

	pub.ObserveSample(telemetry.Sample{
		DeviceID:        "hrm-01",
		Type:            telemetry.DataTypeHeartRate,
		TimestampMicros: 1_000,
		Payload:         telemetry.HeartRateData{BPM: 72},
	})
	// Fused estimates are not persisted; only raw points are.
	pub.ObserveFused(telemetry.FusedData{FusionID: "fus_abc", TimestampMicros: 2_000})

	require.Eventually(t, func() bool {
		n, err := store.CountPoints("sess-2")
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond, "recorded point never reached the store")

	stop, err := srv.StopRecording(ctx, &StopRecordingRequest{SessionID: "sess-2"})
	require.NoError(t, err)
	require.True(t, stop.Success, stop.ErrorMessage)

	points, err := store.QueryPoints(storage.Query{SessionID: "sess-2"})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "hrm-01", points[0].DeviceID)
	assert.Equal(t, telemetry.DeviceTypeHeartRateMonitor, points[0].DeviceType)
}

func TestStartRecordingValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.StartRecording(ctx, &RecordingRequest{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = srv.StopRecording(ctx, &StopRecordingRequest{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	// No store configured: in-band failure rather than an RPC error.
	bare := NewServer(NewPublisher(DefaultConfig()), nil, devices.NewCatalogue(nil), "")
	resp, err := bare.StartRecording(ctx, &RecordingRequest{SessionID: "sess-x"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "storage not configured")
}

func TestGetHistoricalData(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(storage.Session{
		SessionID:   "sess-3",
		StartMicros: 1,
	}))
	for i, bpm := range []float64{70, 71, 72} {
		require.NoError(t, store.InsertPoint("sess-3", telemetry.DeviceTypeHeartRateMonitor, telemetry.Sample{
			DeviceID:        "hrm-01",
			Type:            telemetry.DataTypeHeartRate,
			TimestampMicros: int64(1000 * (i + 1)),
			Payload:         telemetry.HeartRateData{BPM: bpm},
		}))
	}
	require.NoError(t, store.InsertPoint("sess-3", telemetry.DeviceTypeEyeTracker, telemetry.Sample{
		DeviceID:        "eyetracker-01",
		Type:            telemetry.DataTypeGaze,
		TimestampMicros: 1500,
		Payload:         telemetry.GazeData{X: 0.5},
	}))

	series, err := srv.GetHistoricalData(ctx, &HistoricalDataRequest{SessionID: "sess-3"})
	require.NoError(t, err)
	assert.Equal(t, "sess-3", series.SessionID)
	require.Len(t, series.DataPoints, 4)
	// Ordered by timestamp regardless of insert order.
	assert.Equal(t, "eyetracker-01", series.DataPoints[1].DeviceID)

	filtered, err := srv.GetHistoricalData(ctx, &HistoricalDataRequest{
		SessionID: "sess-3",
		DataTypes: []telemetry.DataType{telemetry.DataTypeHeartRate},
		MaxPoints: 2,
	})
	require.NoError(t, err)
	require.Len(t, filtered.DataPoints, 2)
	require.NotNil(t, filtered.DataPoints[0].HeartRate)
	assert.Equal(t, 70.0, filtered.DataPoints[0].HeartRate.BPM)

	bounded, err := srv.GetHistoricalData(ctx, &HistoricalDataRequest{
		SessionID:       "sess-3",
		StartTimeMicros: 1500,
		EndTimeMicros:   2000,
	})
	require.NoError(t, err)
	assert.Len(t, bounded.DataPoints, 2)
}

func TestGetHistoricalDataValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.GetHistoricalData(ctx, &HistoricalDataRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = srv.GetHistoricalData(ctx, &HistoricalDataRequest{
		SessionID:       "sess-3",
		StartTimeMicros: 2000,
		EndTimeMicros:   1000,
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bare := NewServer(NewPublisher(DefaultConfig()), nil, devices.NewCatalogue(nil), "")
	_, err = bare.GetHistoricalData(ctx, &HistoricalDataRequest{SessionID: "sess-3"})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestListDevices(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	all, err := srv.ListDevices(ctx, &DeviceRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Devices, len(devices.DefaultDevices()))

	eyeOnly, err := srv.ListDevices(ctx, &DeviceRequest{
		DeviceTypes: []telemetry.DeviceType{telemetry.DeviceTypeEyeTracker},
	})
	require.NoError(t, err)
	require.Len(t, eyeOnly.Devices, 1)
	assert.Equal(t, "eyetracker-01", eyeOnly.Devices[0].DeviceID)
	assert.Contains(t, eyeOnly.Devices[0].SupportedDataTypes, telemetry.DataTypeGaze)
}

func TestConfigureDevice(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	resp, err := srv.ConfigureDevice(ctx, &DeviceConfig{
		DeviceID:   "eyetracker-01",
		DataTypes:  []telemetry.DataType{telemetry.DataTypeGaze},
		Parameters: map[string]string{"rate_hz": "120"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success, resp.ErrorMessage)

	// Unsupported data type for the device: in-band failure.
	resp, err = srv.ConfigureDevice(ctx, &DeviceConfig{
		DeviceID:  "eyetracker-01",
		DataTypes: []telemetry.DataType{telemetry.DataTypeHeartRate},
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)

	// Unknown device: in-band failure.
	resp, err = srv.ConfigureDevice(ctx, &DeviceConfig{DeviceID: "ghost"})
	require.NoError(t, err)
	assert.False(t, resp.Success)

	// Missing device id is a protocol error.
	_, err = srv.ConfigureDevice(ctx, &DeviceConfig{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
