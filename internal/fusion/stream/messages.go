// Package stream carries the telemetry streaming surface: the wire
// message types from proto/telemetry.proto, a hand-maintained protobuf
// codec for them, the gRPC service plumbing and the fan-out publisher
// that feeds connected clients.
//
// Generated bindings are deliberately not used; the message structs
// below mirror the schema field-for-field and are marshalled with
// protowire. Field numbers live in wire.go.
package stream

import (
	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// StreamDataRequest opens a live stream. An empty Devices list means
// "everything"; ApplyFiltering restricts the stream to fused estimates.
type StreamDataRequest struct {
	SessionID      string
	Devices        []DeviceConfig
	SampleRateHz   float64
	ApplyFiltering bool
}

// DeviceConfig selects a device and optionally narrows the data types
// of interest. It doubles as the ConfigureDevice request.
type DeviceConfig struct {
	DeviceID   string
	DeviceType telemetry.DeviceType
	DataTypes  []telemetry.DataType
	Parameters map[string]string
}

// DataPoint is one streamed observation. Exactly one of the value
// pointers is set; raw sensor points carry the payload matching Type,
// fused estimates carry Fused with Type left at DataTypeUnknown.
type DataPoint struct {
	DeviceID        string
	Type            telemetry.DataType
	TimestampMicros int64

	Gaze          *telemetry.GazeData
	Pupil         *telemetry.PupilData
	HeartRate     *telemetry.HeartRateData
	EEG           *telemetry.EEGData
	SimPosition   *telemetry.SimPositionData
	SimControl    *telemetry.SimControlData
	SimInstrument *telemetry.SimInstrumentData
	VideoFrame    *telemetry.VideoFrameData
	Fused         *FusedUpdate
}

// FusedUpdate is the wire form of a fused estimate.
type FusedUpdate struct {
	FusionID      string
	SourceDevices []string
	SourceTypes   []telemetry.DataType
	Channels      map[string]float64
	Confidence    float64
}

// HistoricalDataRequest bounds a query over recorded data. Zero time
// bounds mean unbounded on that side; MaxPoints <= 0 means no cap.
type HistoricalDataRequest struct {
	SessionID       string
	DeviceTypes     []telemetry.DeviceType
	DataTypes       []telemetry.DataType
	StartTimeMicros int64
	EndTimeMicros   int64
	MaxPoints       int32
}

// DataSeries is the historical query result, ordered by timestamp.
type DataSeries struct {
	SessionID  string
	DataPoints []DataPoint
}

// RecordingRequest starts capturing a session to durable storage.
type RecordingRequest struct {
	SessionID  string
	UserID     string
	ExerciseID string
	Devices    []DeviceConfig
	Metadata   map[string]string
}

// StopRecordingRequest ends an active recording.
type StopRecordingRequest struct {
	SessionID string
}

// RecordingResponse reports the outcome of a recording control call.
// Failures are carried in-band (Success=false plus ErrorMessage) so
// callers can distinguish protocol errors from operational ones.
type RecordingResponse struct {
	Success       bool
	SessionID     string
	ErrorMessage  string
	RecordingPath string
}

// DeviceRequest filters the device listing; empty means all types.
type DeviceRequest struct {
	DeviceTypes []telemetry.DeviceType
}

// Device describes one attached (or known) input device.
type Device struct {
	DeviceID           string
	DeviceType         telemetry.DeviceType
	Model              string
	SerialNumber       string
	FirmwareVersion    string
	SupportedDataTypes []telemetry.DataType
	Capabilities       map[string]string
	IsConnected        bool
	ConnectionInfo     string
}

// DeviceList is the ListDevices result.
type DeviceList struct {
	Devices []Device
}

// DeviceConfigResponse reports the outcome of ConfigureDevice.
type DeviceConfigResponse struct {
	Success      bool
	DeviceID     string
	ErrorMessage string
}

// DataPointFromSample converts a validated sample into its wire form.
func DataPointFromSample(s telemetry.Sample) DataPoint {
	p := DataPoint{
		DeviceID:        s.DeviceID,
		Type:            s.Type,
		TimestampMicros: s.TimestampMicros,
	}
	switch v := s.Payload.(type) {
	case telemetry.GazeData:
		p.Gaze = &v
	case telemetry.PupilData:
		p.Pupil = &v
	case telemetry.HeartRateData:
		p.HeartRate = &v
	case telemetry.EEGData:
		p.EEG = &v
	case telemetry.SimPositionData:
		p.SimPosition = &v
	case telemetry.SimControlData:
		p.SimControl = &v
	case telemetry.SimInstrumentData:
		p.SimInstrument = &v
	case telemetry.VideoFrameData:
		p.VideoFrame = &v
	}
	return p
}

// DataPointFromFused converts a fused estimate into its wire form. The
// pipeline ID stands in for the device ID so clients can attribute the
// stream without inspecting the payload.
func DataPointFromFused(f telemetry.FusedData) DataPoint {
	return DataPoint{
		DeviceID:        f.FusionID,
		Type:            telemetry.DataTypeUnknown,
		TimestampMicros: f.TimestampMicros,
		Fused: &FusedUpdate{
			FusionID:      f.FusionID,
			SourceDevices: append([]string(nil), f.SourceDevices...),
			SourceTypes:   append([]telemetry.DataType(nil), f.SourceTypes...),
			Channels:      cloneChannels(f.Channels),
			Confidence:    f.Confidence,
		},
	}
}

// ToSample recovers the telemetry sample from a raw data point. Fused
// points have no sample form and return ok=false.
func (p DataPoint) ToSample() (telemetry.Sample, bool) {
	s := telemetry.Sample{
		DeviceID:        p.DeviceID,
		Type:            p.Type,
		TimestampMicros: p.TimestampMicros,
	}
	switch {
	case p.Gaze != nil:
		s.Payload = *p.Gaze
	case p.Pupil != nil:
		s.Payload = *p.Pupil
	case p.HeartRate != nil:
		s.Payload = *p.HeartRate
	case p.EEG != nil:
		s.Payload = *p.EEG
	case p.SimPosition != nil:
		s.Payload = *p.SimPosition
	case p.SimControl != nil:
		s.Payload = *p.SimControl
	case p.SimInstrument != nil:
		s.Payload = *p.SimInstrument
	case p.VideoFrame != nil:
		s.Payload = *p.VideoFrame
	default:
		return telemetry.Sample{}, false
	}
	return s, true
}

func cloneChannels(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
