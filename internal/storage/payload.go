package storage

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// Payloads are stored as JSON keyed by the data_type column; the column
// picks the concrete struct on the way back out.

func encodePayload(p telemetry.Payload) (string, error) {
	if p == nil {
		return "", fmt.Errorf("sample has no payload")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(raw), nil
}

func decodePayload(t telemetry.DataType, raw string) (telemetry.Payload, error) {
	var (
		p   telemetry.Payload
		err error
	)
	switch t {
	case telemetry.DataTypeGaze:
		var v telemetry.GazeData
		err = json.Unmarshal([]byte(raw), &v)
		p = v
	case telemetry.DataTypePupil:
		var v telemetry.PupilData
		err = json.Unmarshal([]byte(raw), &v)
		p = v
	case telemetry.DataTypeHeartRate:
		var v telemetry.HeartRateData
		err = json.Unmarshal([]byte(raw), &v)
		p = v
	case telemetry.DataTypeEEG:
		var v telemetry.EEGData
		err = json.Unmarshal([]byte(raw), &v)
		p = v
	case telemetry.DataTypeSimPosition:
		var v telemetry.SimPositionData
		err = json.Unmarshal([]byte(raw), &v)
		p = v
	case telemetry.DataTypeSimControl:
		var v telemetry.SimControlData
		err = json.Unmarshal([]byte(raw), &v)
		p = v
	case telemetry.DataTypeSimInstrument:
		var v telemetry.SimInstrumentData
		err = json.Unmarshal([]byte(raw), &v)
		p = v
	case telemetry.DataTypeVideoFrame:
		var v telemetry.VideoFrameData
		err = json.Unmarshal([]byte(raw), &v)
		p = v
	default:
		return nil, fmt.Errorf("cannot decode payload for data type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
	}
	return p, nil
}
