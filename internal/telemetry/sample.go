package telemetry

// Sample is a single timestamped telemetry reading from one device.
// Samples are immutable once constructed; ownership transfers to the
// fusion registry on ingest and anything handed onward is copied.
type Sample struct {
	DeviceID string
	Type     DataType

	// TimestampMicros is microseconds since the Unix epoch.
	TimestampMicros int64

	Payload Payload
}

// Payload is the discriminated payload of a Sample. The concrete type
// must agree with the Sample's DataType.
type Payload interface {
	payloadType() DataType
}

// GazeData is a 3D gaze point with tracker confidence.
type GazeData struct {
	X          float64
	Y          float64
	Z          float64
	Confidence float64
}

func (GazeData) payloadType() DataType { return DataTypeGaze }

// PupilData carries left/right pupil diameters in millimetres.
type PupilData struct {
	LeftDiameterMM  float64
	RightDiameterMM float64
	Confidence      float64
}

func (PupilData) payloadType() DataType { return DataTypePupil }

// HeartRateData is a single heart-rate reading.
type HeartRateData struct {
	BPM        float64
	Confidence float64
}

func (HeartRateData) payloadType() DataType { return DataTypeHeartRate }

// EEGData carries one multi-channel EEG sample.
type EEGData struct {
	ChannelValues []float64
	ChannelNames  []string
	SamplingRate  float64
}

func (EEGData) payloadType() DataType { return DataTypeEEG }

// SimPositionData is the simulated aircraft pose.
type SimPositionData struct {
	X     float64
	Y     float64
	Z     float64
	Roll  float64
	Pitch float64
	Yaw   float64
}

func (SimPositionData) payloadType() DataType { return DataTypeSimPosition }

// SimControlData holds normalised flight-control deflections in [-1, 1]
// (throttle in [0, 1]).
type SimControlData struct {
	Aileron  float64
	Elevator float64
	Rudder   float64
	Throttle float64
}

func (SimControlData) payloadType() DataType { return DataTypeSimControl }

// SimInstrumentData holds basic flight-instrument readouts.
type SimInstrumentData struct {
	AirspeedKts      float64
	AltitudeFt       float64
	HeadingDeg       float64
	VerticalSpeedFpm float64
}

func (SimInstrumentData) payloadType() DataType { return DataTypeSimInstrument }

// VideoFrameData references an encoded camera frame. Frame bytes are
// opaque to the fusion engine; only the streaming surface carries them.
type VideoFrameData struct {
	Width    int
	Height   int
	Encoding string
	Frame    []byte
}

func (VideoFrameData) payloadType() DataType { return DataTypeVideoFrame }

// Validate reports whether the sample's payload matches its declared
// data type. A nil payload is valid only for DataTypeUnknown.
func (s Sample) Validate() bool {
	if s.Payload == nil {
		return false
	}
	return s.Payload.payloadType() == s.Type
}
