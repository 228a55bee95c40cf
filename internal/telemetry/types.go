// Package telemetry defines the shared data model for device samples
// flowing through the fusion engine: data-type and device-type
// enumerations, typed sample payloads, and fused output records.
package telemetry

// DataType discriminates the payload carried by a Sample.
type DataType int

const (
	DataTypeUnknown DataType = iota
	DataTypeGaze
	DataTypePupil
	DataTypeHeartRate
	DataTypeEEG
	DataTypeSimPosition
	DataTypeSimControl
	DataTypeSimInstrument
	DataTypeVideoFrame

	// NumDataTypes is the arena size for arrays indexed by DataType.
	NumDataTypes
)

var dataTypeNames = [NumDataTypes]string{
	DataTypeUnknown:       "unknown",
	DataTypeGaze:          "gaze",
	DataTypePupil:         "pupil",
	DataTypeHeartRate:     "heart_rate",
	DataTypeEEG:           "eeg",
	DataTypeSimPosition:   "sim_position",
	DataTypeSimControl:    "sim_control",
	DataTypeSimInstrument: "sim_instrument",
	DataTypeVideoFrame:    "video_frame",
}

// String returns the canonical wire name for the data type.
func (d DataType) String() string {
	if d < 0 || d >= NumDataTypes {
		return dataTypeNames[DataTypeUnknown]
	}
	return dataTypeNames[d]
}

// ParseDataType maps a wire name back to its DataType. Unrecognised
// names map to DataTypeUnknown rather than failing, so stale or
// forward-versioned producers cannot crash the ingest path.
func ParseDataType(s string) DataType {
	for d, name := range dataTypeNames {
		if name == s {
			return DataType(d)
		}
	}
	return DataTypeUnknown
}

// Valid reports whether the data type is a declared, known value.
func (d DataType) Valid() bool {
	return d > DataTypeUnknown && d < NumDataTypes
}

// DeviceType categorises the physical or simulated source of samples.
type DeviceType int

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeEyeTracker
	DeviceTypeHeartRateMonitor
	DeviceTypeEEGHeadset
	DeviceTypeSimulator
	DeviceTypeCamera

	NumDeviceTypes
)

var deviceTypeNames = [NumDeviceTypes]string{
	DeviceTypeUnknown:          "unknown",
	DeviceTypeEyeTracker:       "eye_tracker",
	DeviceTypeHeartRateMonitor: "heart_rate_monitor",
	DeviceTypeEEGHeadset:       "eeg_headset",
	DeviceTypeSimulator:        "simulator",
	DeviceTypeCamera:           "camera",
}

// String returns the canonical wire name for the device type.
func (d DeviceType) String() string {
	if d < 0 || d >= NumDeviceTypes {
		return deviceTypeNames[DeviceTypeUnknown]
	}
	return deviceTypeNames[d]
}

// ParseDeviceType maps a wire name back to its DeviceType, with
// unrecognised names mapping to DeviceTypeUnknown.
func ParseDeviceType(s string) DeviceType {
	for d, name := range deviceTypeNames {
		if name == s {
			return DeviceType(d)
		}
	}
	return DeviceTypeUnknown
}

// Valid reports whether the device type is a declared, known value.
func (d DeviceType) Valid() bool {
	return d > DeviceTypeUnknown && d < NumDeviceTypes
}
