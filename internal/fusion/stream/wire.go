package stream

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// Hand-maintained protobuf wire codec for the messages declared in
// proto/telemetry.proto. Field numbers must stay in lockstep with the
// schema. Encoding follows proto3 conventions: default values are
// omitted, repeated scalars are packed, sint64 fields are zigzagged.

// --- scalar field helpers ---

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendSubmessage(b []byte, num protowire.Number, raw []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, raw)
}

// --- repeated and map helpers ---

func appendPackedDoubles(b []byte, num protowire.Number, vs []float64) []byte {
	if len(vs) == 0 {
		return b
	}
	pk := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		pk = protowire.AppendFixed64(pk, math.Float64bits(v))
	}
	return appendSubmessage(b, num, pk)
}

func appendStringList(b []byte, num protowire.Number, vs []string) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

func appendDataTypes(b []byte, num protowire.Number, vs []telemetry.DataType) []byte {
	if len(vs) == 0 {
		return b
	}
	pk := make([]byte, 0, len(vs))
	for _, v := range vs {
		pk = protowire.AppendVarint(pk, uint64(v))
	}
	return appendSubmessage(b, num, pk)
}

func appendDeviceTypes(b []byte, num protowire.Number, vs []telemetry.DeviceType) []byte {
	if len(vs) == 0 {
		return b
	}
	pk := make([]byte, 0, len(vs))
	for _, v := range vs {
		pk = protowire.AppendVarint(pk, uint64(v))
	}
	return appendSubmessage(b, num, pk)
}

func appendStringMap(b []byte, num protowire.Number, m map[string]string) []byte {
	for k, v := range m {
		var entry []byte
		entry = appendString(entry, 1, k)
		entry = appendString(entry, 2, v)
		b = appendSubmessage(b, num, entry)
	}
	return b
}

func appendDoubleMap(b []byte, num protowire.Number, m map[string]float64) []byte {
	for k, v := range m {
		var entry []byte
		entry = appendString(entry, 1, k)
		entry = appendDouble(entry, 2, v)
		b = appendSubmessage(b, num, entry)
	}
	return b
}

// --- decode helpers ---

func consumeDouble(b []byte) (float64, int, error) {
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return math.Float64frombits(v), n, nil
}

func consumeString(b []byte) (string, int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeSint64(b []byte) (int64, int, error) {
	v, n, err := consumeVarint(b)
	if err != nil {
		return 0, 0, err
	}
	return protowire.DecodeZigZag(v), n, nil
}

func consumeBytes(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

// consumePackedDoubles accepts both packed and unpacked encodings.
func consumePackedDoubles(b []byte, typ protowire.Type, dst []float64) ([]float64, int, error) {
	if typ != protowire.BytesType {
		v, n, err := consumeDouble(b)
		if err != nil {
			return dst, 0, err
		}
		return append(dst, v), n, nil
	}
	pk, n, err := consumeBytes(b)
	if err != nil {
		return dst, 0, err
	}
	for len(pk) > 0 {
		v, m, err := consumeDouble(pk)
		if err != nil {
			return dst, 0, err
		}
		dst = append(dst, v)
		pk = pk[m:]
	}
	return dst, n, nil
}

func consumeDataTypes(b []byte, typ protowire.Type, dst []telemetry.DataType) ([]telemetry.DataType, int, error) {
	if typ != protowire.BytesType {
		v, n, err := consumeVarint(b)
		if err != nil {
			return dst, 0, err
		}
		return append(dst, telemetry.DataType(v)), n, nil
	}
	pk, n, err := consumeBytes(b)
	if err != nil {
		return dst, 0, err
	}
	for len(pk) > 0 {
		v, m, err := consumeVarint(pk)
		if err != nil {
			return dst, 0, err
		}
		dst = append(dst, telemetry.DataType(v))
		pk = pk[m:]
	}
	return dst, n, nil
}

func consumeDeviceTypes(b []byte, typ protowire.Type, dst []telemetry.DeviceType) ([]telemetry.DeviceType, int, error) {
	if typ != protowire.BytesType {
		v, n, err := consumeVarint(b)
		if err != nil {
			return dst, 0, err
		}
		return append(dst, telemetry.DeviceType(v)), n, nil
	}
	pk, n, err := consumeBytes(b)
	if err != nil {
		return dst, 0, err
	}
	for len(pk) > 0 {
		v, m, err := consumeVarint(pk)
		if err != nil {
			return dst, 0, err
		}
		dst = append(dst, telemetry.DeviceType(v))
		pk = pk[m:]
	}
	return dst, n, nil
}

func consumeStringMapEntry(raw []byte) (string, string, error) {
	var key, val string
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return "", "", protowire.ParseError(n)
		}
		raw = raw[n:]
		switch num {
		case 1:
			v, n, err := consumeString(raw)
			if err != nil {
				return "", "", err
			}
			key = v
			raw = raw[n:]
		case 2:
			v, n, err := consumeString(raw)
			if err != nil {
				return "", "", err
			}
			val = v
			raw = raw[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return "", "", protowire.ParseError(n)
			}
			raw = raw[n:]
		}
	}
	return key, val, nil
}

func consumeDoubleMapEntry(raw []byte) (string, float64, error) {
	var key string
	var val float64
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return "", 0, protowire.ParseError(n)
		}
		raw = raw[n:]
		switch num {
		case 1:
			v, n, err := consumeString(raw)
			if err != nil {
				return "", 0, err
			}
			key = v
			raw = raw[n:]
		case 2:
			v, n, err := consumeDouble(raw)
			if err != nil {
				return "", 0, err
			}
			val = v
			raw = raw[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return "", 0, protowire.ParseError(n)
			}
			raw = raw[n:]
		}
	}
	return key, val, nil
}

func skipField(b []byte, num protowire.Number, typ protowire.Type) ([]byte, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return b[n:], nil
}

// --- StreamDataRequest ---

func appendStreamDataRequest(b []byte, m *StreamDataRequest) []byte {
	b = appendString(b, 1, m.SessionID)
	for i := range m.Devices {
		b = appendSubmessage(b, 2, appendDeviceConfig(nil, &m.Devices[i]))
	}
	b = appendDouble(b, 3, m.SampleRateHz)
	b = appendBool(b, 4, m.ApplyFiltering)
	return b
}

func unmarshalStreamDataRequest(b []byte, m *StreamDataRequest) error {
	*m = StreamDataRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.SessionID, n, err = consumeString(b)
		case 2:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				var dc DeviceConfig
				if err = unmarshalDeviceConfig(raw, &dc); err == nil {
					m.Devices = append(m.Devices, dc)
				}
			}
		case 3:
			m.SampleRateHz, n, err = consumeDouble(b)
		case 4:
			var v uint64
			v, n, err = consumeVarint(b)
			m.ApplyFiltering = v != 0
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// --- DeviceConfig ---

func appendDeviceConfig(b []byte, m *DeviceConfig) []byte {
	b = appendString(b, 1, m.DeviceID)
	b = appendVarintField(b, 2, uint64(m.DeviceType))
	b = appendDataTypes(b, 3, m.DataTypes)
	b = appendStringMap(b, 4, m.Parameters)
	return b
}

func unmarshalDeviceConfig(b []byte, m *DeviceConfig) error {
	*m = DeviceConfig{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.DeviceID, n, err = consumeString(b)
		case 2:
			var v uint64
			v, n, err = consumeVarint(b)
			m.DeviceType = telemetry.DeviceType(v)
		case 3:
			m.DataTypes, n, err = consumeDataTypes(b, typ, m.DataTypes)
		case 4:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				var k, v string
				if k, v, err = consumeStringMapEntry(raw); err == nil {
					if m.Parameters == nil {
						m.Parameters = make(map[string]string)
					}
					m.Parameters[k] = v
				}
			}
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// --- DataPoint and payloads ---

func appendDataPoint(b []byte, m *DataPoint) []byte {
	b = appendString(b, 1, m.DeviceID)
	b = appendVarintField(b, 2, uint64(m.Type))
	b = appendSint64(b, 3, m.TimestampMicros)
	switch {
	case m.Gaze != nil:
		b = appendSubmessage(b, 10, appendGazeData(nil, m.Gaze))
	case m.Pupil != nil:
		b = appendSubmessage(b, 11, appendPupilData(nil, m.Pupil))
	case m.HeartRate != nil:
		b = appendSubmessage(b, 12, appendHeartRateData(nil, m.HeartRate))
	case m.EEG != nil:
		b = appendSubmessage(b, 13, appendEEGData(nil, m.EEG))
	case m.SimPosition != nil:
		b = appendSubmessage(b, 14, appendSimPositionData(nil, m.SimPosition))
	case m.SimControl != nil:
		b = appendSubmessage(b, 15, appendSimControlData(nil, m.SimControl))
	case m.SimInstrument != nil:
		b = appendSubmessage(b, 16, appendSimInstrumentData(nil, m.SimInstrument))
	case m.VideoFrame != nil:
		b = appendSubmessage(b, 17, appendVideoFrameData(nil, m.VideoFrame))
	case m.Fused != nil:
		b = appendSubmessage(b, 18, appendFusedUpdate(nil, m.Fused))
	}
	return b
}

func unmarshalDataPoint(b []byte, m *DataPoint) error {
	*m = DataPoint{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.DeviceID, n, err = consumeString(b)
		case 2:
			var v uint64
			v, n, err = consumeVarint(b)
			m.Type = telemetry.DataType(v)
		case 3:
			m.TimestampMicros, n, err = consumeSint64(b)
		case 10, 11, 12, 13, 14, 15, 16, 17, 18:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				err = unmarshalDataPointValue(num, raw, m)
			}
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func unmarshalDataPointValue(num protowire.Number, raw []byte, m *DataPoint) error {
	switch num {
	case 10:
		m.Gaze = new(telemetry.GazeData)
		return unmarshalGazeData(raw, m.Gaze)
	case 11:
		m.Pupil = new(telemetry.PupilData)
		return unmarshalPupilData(raw, m.Pupil)
	case 12:
		m.HeartRate = new(telemetry.HeartRateData)
		return unmarshalHeartRateData(raw, m.HeartRate)
	case 13:
		m.EEG = new(telemetry.EEGData)
		return unmarshalEEGData(raw, m.EEG)
	case 14:
		m.SimPosition = new(telemetry.SimPositionData)
		return unmarshalSimPositionData(raw, m.SimPosition)
	case 15:
		m.SimControl = new(telemetry.SimControlData)
		return unmarshalSimControlData(raw, m.SimControl)
	case 16:
		m.SimInstrument = new(telemetry.SimInstrumentData)
		return unmarshalSimInstrumentData(raw, m.SimInstrument)
	case 17:
		m.VideoFrame = new(telemetry.VideoFrameData)
		return unmarshalVideoFrameData(raw, m.VideoFrame)
	case 18:
		m.Fused = new(FusedUpdate)
		return unmarshalFusedUpdate(raw, m.Fused)
	}
	return fmt.Errorf("unknown data point value field %d", num)
}

func appendGazeData(b []byte, m *telemetry.GazeData) []byte {
	b = appendDouble(b, 1, m.X)
	b = appendDouble(b, 2, m.Y)
	b = appendDouble(b, 3, m.Z)
	b = appendDouble(b, 4, m.Confidence)
	return b
}

func unmarshalGazeData(b []byte, m *telemetry.GazeData) error {
	*m = telemetry.GazeData{}
	return eachDoubleField(b, func(num protowire.Number, v float64) {
		switch num {
		case 1:
			m.X = v
		case 2:
			m.Y = v
		case 3:
			m.Z = v
		case 4:
			m.Confidence = v
		}
	})
}

func appendPupilData(b []byte, m *telemetry.PupilData) []byte {
	b = appendDouble(b, 1, m.LeftDiameterMM)
	b = appendDouble(b, 2, m.RightDiameterMM)
	b = appendDouble(b, 3, m.Confidence)
	return b
}

func unmarshalPupilData(b []byte, m *telemetry.PupilData) error {
	*m = telemetry.PupilData{}
	return eachDoubleField(b, func(num protowire.Number, v float64) {
		switch num {
		case 1:
			m.LeftDiameterMM = v
		case 2:
			m.RightDiameterMM = v
		case 3:
			m.Confidence = v
		}
	})
}

func appendHeartRateData(b []byte, m *telemetry.HeartRateData) []byte {
	b = appendDouble(b, 1, m.BPM)
	b = appendDouble(b, 2, m.Confidence)
	return b
}

func unmarshalHeartRateData(b []byte, m *telemetry.HeartRateData) error {
	*m = telemetry.HeartRateData{}
	return eachDoubleField(b, func(num protowire.Number, v float64) {
		switch num {
		case 1:
			m.BPM = v
		case 2:
			m.Confidence = v
		}
	})
}

func appendEEGData(b []byte, m *telemetry.EEGData) []byte {
	b = appendPackedDoubles(b, 1, m.ChannelValues)
	b = appendStringList(b, 2, m.ChannelNames)
	b = appendDouble(b, 3, m.SamplingRate)
	return b
}

func unmarshalEEGData(b []byte, m *telemetry.EEGData) error {
	*m = telemetry.EEGData{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.ChannelValues, n, err = consumePackedDoubles(b, typ, m.ChannelValues)
		case 2:
			var v string
			v, n, err = consumeString(b)
			m.ChannelNames = append(m.ChannelNames, v)
		case 3:
			m.SamplingRate, n, err = consumeDouble(b)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendSimPositionData(b []byte, m *telemetry.SimPositionData) []byte {
	b = appendDouble(b, 1, m.X)
	b = appendDouble(b, 2, m.Y)
	b = appendDouble(b, 3, m.Z)
	b = appendDouble(b, 4, m.Roll)
	b = appendDouble(b, 5, m.Pitch)
	b = appendDouble(b, 6, m.Yaw)
	return b
}

func unmarshalSimPositionData(b []byte, m *telemetry.SimPositionData) error {
	*m = telemetry.SimPositionData{}
	return eachDoubleField(b, func(num protowire.Number, v float64) {
		switch num {
		case 1:
			m.X = v
		case 2:
			m.Y = v
		case 3:
			m.Z = v
		case 4:
			m.Roll = v
		case 5:
			m.Pitch = v
		case 6:
			m.Yaw = v
		}
	})
}

func appendSimControlData(b []byte, m *telemetry.SimControlData) []byte {
	b = appendDouble(b, 1, m.Aileron)
	b = appendDouble(b, 2, m.Elevator)
	b = appendDouble(b, 3, m.Rudder)
	b = appendDouble(b, 4, m.Throttle)
	return b
}

func unmarshalSimControlData(b []byte, m *telemetry.SimControlData) error {
	*m = telemetry.SimControlData{}
	return eachDoubleField(b, func(num protowire.Number, v float64) {
		switch num {
		case 1:
			m.Aileron = v
		case 2:
			m.Elevator = v
		case 3:
			m.Rudder = v
		case 4:
			m.Throttle = v
		}
	})
}

func appendSimInstrumentData(b []byte, m *telemetry.SimInstrumentData) []byte {
	b = appendDouble(b, 1, m.AirspeedKts)
	b = appendDouble(b, 2, m.AltitudeFt)
	b = appendDouble(b, 3, m.HeadingDeg)
	b = appendDouble(b, 4, m.VerticalSpeedFpm)
	return b
}

func unmarshalSimInstrumentData(b []byte, m *telemetry.SimInstrumentData) error {
	*m = telemetry.SimInstrumentData{}
	return eachDoubleField(b, func(num protowire.Number, v float64) {
		switch num {
		case 1:
			m.AirspeedKts = v
		case 2:
			m.AltitudeFt = v
		case 3:
			m.HeadingDeg = v
		case 4:
			m.VerticalSpeedFpm = v
		}
	})
}

func appendVideoFrameData(b []byte, m *telemetry.VideoFrameData) []byte {
	b = appendVarintField(b, 1, uint64(int64(m.Width)))
	b = appendVarintField(b, 2, uint64(int64(m.Height)))
	b = appendString(b, 3, m.Encoding)
	b = appendBytesField(b, 4, m.Frame)
	return b
}

func unmarshalVideoFrameData(b []byte, m *telemetry.VideoFrameData) error {
	*m = telemetry.VideoFrameData{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			var v uint64
			v, n, err = consumeVarint(b)
			m.Width = int(int32(v))
		case 2:
			var v uint64
			v, n, err = consumeVarint(b)
			m.Height = int(int32(v))
		case 3:
			m.Encoding, n, err = consumeString(b)
		case 4:
			var v []byte
			v, n, err = consumeBytes(b)
			m.Frame = append([]byte(nil), v...)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendFusedUpdate(b []byte, m *FusedUpdate) []byte {
	b = appendString(b, 1, m.FusionID)
	b = appendStringList(b, 2, m.SourceDevices)
	b = appendDataTypes(b, 3, m.SourceTypes)
	b = appendDoubleMap(b, 4, m.Channels)
	b = appendDouble(b, 5, m.Confidence)
	return b
}

func unmarshalFusedUpdate(b []byte, m *FusedUpdate) error {
	*m = FusedUpdate{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.FusionID, n, err = consumeString(b)
		case 2:
			var v string
			v, n, err = consumeString(b)
			m.SourceDevices = append(m.SourceDevices, v)
		case 3:
			m.SourceTypes, n, err = consumeDataTypes(b, typ, m.SourceTypes)
		case 4:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				var k string
				var v float64
				if k, v, err = consumeDoubleMapEntry(raw); err == nil {
					if m.Channels == nil {
						m.Channels = make(map[string]float64)
					}
					m.Channels[k] = v
				}
			}
		case 5:
			m.Confidence, n, err = consumeDouble(b)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// eachDoubleField walks a message made entirely of double fields.
func eachDoubleField(b []byte, set func(protowire.Number, float64)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.Fixed64Type {
			var err error
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		v, n, err := consumeDouble(b)
		if err != nil {
			return err
		}
		set(num, v)
		b = b[n:]
	}
	return nil
}

// --- HistoricalDataRequest / DataSeries ---

func appendHistoricalDataRequest(b []byte, m *HistoricalDataRequest) []byte {
	b = appendString(b, 1, m.SessionID)
	b = appendDeviceTypes(b, 2, m.DeviceTypes)
	b = appendDataTypes(b, 3, m.DataTypes)
	b = appendSint64(b, 4, m.StartTimeMicros)
	b = appendSint64(b, 5, m.EndTimeMicros)
	b = appendVarintField(b, 6, uint64(int64(m.MaxPoints)))
	return b
}

func unmarshalHistoricalDataRequest(b []byte, m *HistoricalDataRequest) error {
	*m = HistoricalDataRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.SessionID, n, err = consumeString(b)
		case 2:
			m.DeviceTypes, n, err = consumeDeviceTypes(b, typ, m.DeviceTypes)
		case 3:
			m.DataTypes, n, err = consumeDataTypes(b, typ, m.DataTypes)
		case 4:
			m.StartTimeMicros, n, err = consumeSint64(b)
		case 5:
			m.EndTimeMicros, n, err = consumeSint64(b)
		case 6:
			var v uint64
			v, n, err = consumeVarint(b)
			m.MaxPoints = int32(v)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendDataSeries(b []byte, m *DataSeries) []byte {
	b = appendString(b, 1, m.SessionID)
	for i := range m.DataPoints {
		b = appendSubmessage(b, 2, appendDataPoint(nil, &m.DataPoints[i]))
	}
	return b
}

func unmarshalDataSeries(b []byte, m *DataSeries) error {
	*m = DataSeries{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.SessionID, n, err = consumeString(b)
		case 2:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				var p DataPoint
				if err = unmarshalDataPoint(raw, &p); err == nil {
					m.DataPoints = append(m.DataPoints, p)
				}
			}
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// --- recording control ---

func appendRecordingRequest(b []byte, m *RecordingRequest) []byte {
	b = appendString(b, 1, m.SessionID)
	b = appendString(b, 2, m.UserID)
	b = appendString(b, 3, m.ExerciseID)
	for i := range m.Devices {
		b = appendSubmessage(b, 4, appendDeviceConfig(nil, &m.Devices[i]))
	}
	b = appendStringMap(b, 5, m.Metadata)
	return b
}

func unmarshalRecordingRequest(b []byte, m *RecordingRequest) error {
	*m = RecordingRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.SessionID, n, err = consumeString(b)
		case 2:
			m.UserID, n, err = consumeString(b)
		case 3:
			m.ExerciseID, n, err = consumeString(b)
		case 4:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				var dc DeviceConfig
				if err = unmarshalDeviceConfig(raw, &dc); err == nil {
					m.Devices = append(m.Devices, dc)
				}
			}
		case 5:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				var k, v string
				if k, v, err = consumeStringMapEntry(raw); err == nil {
					if m.Metadata == nil {
						m.Metadata = make(map[string]string)
					}
					m.Metadata[k] = v
				}
			}
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendStopRecordingRequest(b []byte, m *StopRecordingRequest) []byte {
	return appendString(b, 1, m.SessionID)
}

func unmarshalStopRecordingRequest(b []byte, m *StopRecordingRequest) error {
	*m = StopRecordingRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.SessionID, n, err = consumeString(b)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendRecordingResponse(b []byte, m *RecordingResponse) []byte {
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.SessionID)
	b = appendString(b, 3, m.ErrorMessage)
	b = appendString(b, 4, m.RecordingPath)
	return b
}

func unmarshalRecordingResponse(b []byte, m *RecordingResponse) error {
	*m = RecordingResponse{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			var v uint64
			v, n, err = consumeVarint(b)
			m.Success = v != 0
		case 2:
			m.SessionID, n, err = consumeString(b)
		case 3:
			m.ErrorMessage, n, err = consumeString(b)
		case 4:
			m.RecordingPath, n, err = consumeString(b)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// --- device listing and configuration ---

func appendDeviceRequest(b []byte, m *DeviceRequest) []byte {
	return appendDeviceTypes(b, 1, m.DeviceTypes)
}

func unmarshalDeviceRequest(b []byte, m *DeviceRequest) error {
	*m = DeviceRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.DeviceTypes, n, err = consumeDeviceTypes(b, typ, m.DeviceTypes)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendDevice(b []byte, m *Device) []byte {
	b = appendString(b, 1, m.DeviceID)
	b = appendVarintField(b, 2, uint64(m.DeviceType))
	b = appendString(b, 3, m.Model)
	b = appendString(b, 4, m.SerialNumber)
	b = appendString(b, 5, m.FirmwareVersion)
	b = appendDataTypes(b, 6, m.SupportedDataTypes)
	b = appendStringMap(b, 7, m.Capabilities)
	b = appendBool(b, 8, m.IsConnected)
	b = appendString(b, 9, m.ConnectionInfo)
	return b
}

func unmarshalDevice(b []byte, m *Device) error {
	*m = Device{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			m.DeviceID, n, err = consumeString(b)
		case 2:
			var v uint64
			v, n, err = consumeVarint(b)
			m.DeviceType = telemetry.DeviceType(v)
		case 3:
			m.Model, n, err = consumeString(b)
		case 4:
			m.SerialNumber, n, err = consumeString(b)
		case 5:
			m.FirmwareVersion, n, err = consumeString(b)
		case 6:
			m.SupportedDataTypes, n, err = consumeDataTypes(b, typ, m.SupportedDataTypes)
		case 7:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				var k, v string
				if k, v, err = consumeStringMapEntry(raw); err == nil {
					if m.Capabilities == nil {
						m.Capabilities = make(map[string]string)
					}
					m.Capabilities[k] = v
				}
			}
		case 8:
			var v uint64
			v, n, err = consumeVarint(b)
			m.IsConnected = v != 0
		case 9:
			m.ConnectionInfo, n, err = consumeString(b)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendDeviceList(b []byte, m *DeviceList) []byte {
	for i := range m.Devices {
		b = appendSubmessage(b, 1, appendDevice(nil, &m.Devices[i]))
	}
	return b
}

func unmarshalDeviceList(b []byte, m *DeviceList) error {
	*m = DeviceList{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			var raw []byte
			raw, n, err = consumeBytes(b)
			if err == nil {
				var d Device
				if err = unmarshalDevice(raw, &d); err == nil {
					m.Devices = append(m.Devices, d)
				}
			}
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func appendDeviceConfigResponse(b []byte, m *DeviceConfigResponse) []byte {
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.DeviceID)
	b = appendString(b, 3, m.ErrorMessage)
	return b
}

func unmarshalDeviceConfigResponse(b []byte, m *DeviceConfigResponse) error {
	*m = DeviceConfigResponse{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch num {
		case 1:
			var v uint64
			v, n, err = consumeVarint(b)
			m.Success = v != 0
		case 2:
			m.DeviceID, n, err = consumeString(b)
		case 3:
			m.ErrorMessage, n, err = consumeString(b)
		default:
			b, err = skipField(b, num, typ)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
