package devices

import "github.com/banshee-data/cockpit.fusion/internal/telemetry"

// DefaultDevices is the bench rig the daemon registers at startup when
// no explicit device inventory is supplied.
func DefaultDevices() []Device {
	return []Device{
		{
			DeviceID:        "eyetracker-01",
			DeviceType:      telemetry.DeviceTypeEyeTracker,
			Model:           "Tobii Pro Fusion",
			SerialNumber:    "TPF-220831",
			FirmwareVersion: "2.6.1",
			SupportedDataTypes: []telemetry.DataType{
				telemetry.DataTypeGaze,
				telemetry.DataTypePupil,
			},
			Capabilities: map[string]string{
				"max_sample_rate_hz": "250",
				"binocular":          "true",
			},
		},
		{
			DeviceID:        "hrm-01",
			DeviceType:      telemetry.DeviceTypeHeartRateMonitor,
			Model:           "Polar H10",
			SerialNumber:    "PH10-88412",
			FirmwareVersion: "3.2.0",
			SupportedDataTypes: []telemetry.DataType{
				telemetry.DataTypeHeartRate,
			},
			Capabilities: map[string]string{
				"transport": "ble",
			},
		},
		{
			DeviceID:        "eeg-01",
			DeviceType:      telemetry.DeviceTypeEEGHeadset,
			Model:           "Emotiv Epoc X",
			SerialNumber:    "EPX-10277",
			FirmwareVersion: "1.4.9",
			SupportedDataTypes: []telemetry.DataType{
				telemetry.DataTypeEEG,
			},
			Capabilities: map[string]string{
				"channels":         "14",
				"sampling_rate_hz": "256",
			},
		},
		{
			DeviceID:        "sim-01",
			DeviceType:      telemetry.DeviceTypeSimulator,
			Model:           "X-Plane 12 Bridge",
			FirmwareVersion: "12.1.4",
			SupportedDataTypes: []telemetry.DataType{
				telemetry.DataTypeSimPosition,
				telemetry.DataTypeSimControl,
				telemetry.DataTypeSimInstrument,
			},
			Capabilities: map[string]string{
				"update_rate_hz": "60",
			},
		},
		{
			DeviceID:        "cam-01",
			DeviceType:      telemetry.DeviceTypeCamera,
			Model:           "Logitech Brio",
			SerialNumber:    "LB-55180",
			FirmwareVersion: "1.0.27",
			SupportedDataTypes: []telemetry.DataType{
				telemetry.DataTypeVideoFrame,
			},
			Capabilities: map[string]string{
				"resolution": "1920x1080",
				"fps":        "30",
			},
		},
	}
}
