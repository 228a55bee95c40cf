package telemetry

import (
	"encoding/json"
	"fmt"
)

// JSON framing for samples, used by the UDP ingest path and by tools
// that replay captures. The data type travels as its canonical string
// name and selects the payload struct on decode.
type sampleJSON struct {
	DeviceID        string          `json:"device_id"`
	Type            string          `json:"type"`
	TimestampMicros int64           `json:"timestamp_us"`
	Payload         json.RawMessage `json:"payload"`
}

func (s Sample) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(s.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", s.Type, err)
	}
	return json.Marshal(sampleJSON{
		DeviceID:        s.DeviceID,
		Type:            s.Type.String(),
		TimestampMicros: s.TimestampMicros,
		Payload:         raw,
	})
}

func (s *Sample) UnmarshalJSON(b []byte) error {
	var frame sampleJSON
	if err := json.Unmarshal(b, &frame); err != nil {
		return err
	}
	t := ParseDataType(frame.Type)
	if !t.Valid() {
		return fmt.Errorf("unknown sample type %q", frame.Type)
	}

	out := Sample{
		DeviceID:        frame.DeviceID,
		Type:            t,
		TimestampMicros: frame.TimestampMicros,
	}
	payload, err := decodePayloadJSON(t, frame.Payload)
	if err != nil {
		return err
	}
	out.Payload = payload
	*s = out
	return nil
}

func decodePayloadJSON(t DataType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("sample of type %q has no payload", t)
	}
	var (
		p   Payload
		err error
	)
	switch t {
	case DataTypeGaze:
		var v GazeData
		err = json.Unmarshal(raw, &v)
		p = v
	case DataTypePupil:
		var v PupilData
		err = json.Unmarshal(raw, &v)
		p = v
	case DataTypeHeartRate:
		var v HeartRateData
		err = json.Unmarshal(raw, &v)
		p = v
	case DataTypeEEG:
		var v EEGData
		err = json.Unmarshal(raw, &v)
		p = v
	case DataTypeSimPosition:
		var v SimPositionData
		err = json.Unmarshal(raw, &v)
		p = v
	case DataTypeSimControl:
		var v SimControlData
		err = json.Unmarshal(raw, &v)
		p = v
	case DataTypeSimInstrument:
		var v SimInstrumentData
		err = json.Unmarshal(raw, &v)
		p = v
	case DataTypeVideoFrame:
		var v VideoFrameData
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("cannot decode payload for data type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
	}
	return p, nil
}
