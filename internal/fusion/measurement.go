package fusion

import (
	"fmt"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// Each modellable data type contributes a fixed sub-block of named
// channels to the fused state space. The arrays below are indexed
// directly by the DataType enum (arena style) so block lookup never
// touches a map. Video frames carry no numeric state and are absent:
// a configuration naming them is rejected at Initialize.
var dataTypeChannels = [telemetry.NumDataTypes][]string{
	telemetry.DataTypeGaze:          {"gaze_x", "gaze_y", "gaze_z"},
	telemetry.DataTypePupil:         {"pupil_left_mm", "pupil_right_mm"},
	telemetry.DataTypeHeartRate:     {"heart_rate_bpm"},
	telemetry.DataTypeEEG:           {"eeg_mean_uv"},
	telemetry.DataTypeSimPosition:   {"sim_pos_x", "sim_pos_y", "sim_pos_z", "sim_roll", "sim_pitch", "sim_yaw"},
	telemetry.DataTypeSimControl:    {"sim_aileron", "sim_elevator", "sim_rudder", "sim_throttle"},
	telemetry.DataTypeSimInstrument: {"sim_airspeed_kts", "sim_altitude_ft", "sim_heading_deg", "sim_vsi_fpm"},
}

// channelsFor returns the state channels a data type contributes, or
// nil when the type is not modellable.
func channelsFor(dt telemetry.DataType) []string {
	if dt < 0 || dt >= telemetry.NumDataTypes {
		return nil
	}
	return dataTypeChannels[dt]
}

// measurementVector maps a sample's payload to the flat measurement
// values for its data-type block, plus the sensor-reported confidence
// in (0, 1] (1.0 when the payload carries none). Fails rather than
// guessing when the payload shape does not match the data type.
func measurementVector(s telemetry.Sample) ([]float64, float64, error) {
	switch p := s.Payload.(type) {
	case telemetry.GazeData:
		if s.Type != telemetry.DataTypeGaze {
			break
		}
		return []float64{p.X, p.Y, p.Z}, clampConfidence(p.Confidence), nil
	case telemetry.PupilData:
		if s.Type != telemetry.DataTypePupil {
			break
		}
		return []float64{p.LeftDiameterMM, p.RightDiameterMM}, clampConfidence(p.Confidence), nil
	case telemetry.HeartRateData:
		if s.Type != telemetry.DataTypeHeartRate {
			break
		}
		return []float64{p.BPM}, clampConfidence(p.Confidence), nil
	case telemetry.EEGData:
		if s.Type != telemetry.DataTypeEEG {
			break
		}
		if len(p.ChannelValues) == 0 {
			return nil, 0, fmt.Errorf("eeg sample from %q has no channel values", s.DeviceID)
		}
		var sum float64
		for _, v := range p.ChannelValues {
			sum += v
		}
		return []float64{sum / float64(len(p.ChannelValues))}, 1.0, nil
	case telemetry.SimPositionData:
		if s.Type != telemetry.DataTypeSimPosition {
			break
		}
		return []float64{p.X, p.Y, p.Z, p.Roll, p.Pitch, p.Yaw}, 1.0, nil
	case telemetry.SimControlData:
		if s.Type != telemetry.DataTypeSimControl {
			break
		}
		return []float64{p.Aileron, p.Elevator, p.Rudder, p.Throttle}, 1.0, nil
	case telemetry.SimInstrumentData:
		if s.Type != telemetry.DataTypeSimInstrument {
			break
		}
		return []float64{p.AirspeedKts, p.AltitudeFt, p.HeadingDeg, p.VerticalSpeedFpm}, 1.0, nil
	case telemetry.VideoFrameData:
		return nil, 0, fmt.Errorf("video frames carry no numeric measurement")
	}
	return nil, 0, fmt.Errorf("sample payload %T does not match data type %s", s.Payload, s.Type)
}

// clampConfidence maps a sensor-reported confidence into (0, 1],
// treating zero or absent values as full confidence so legacy devices
// that never populate the field are not discounted.
func clampConfidence(c float64) float64 {
	if c <= 0 || c > 1 {
		return 1.0
	}
	return c
}
