package stream

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype under which the hand-maintained
// wire codec is registered. Clients built with NewTelemetryServiceClient
// select it automatically; servers force it via grpc.ForceServerCodec.
const CodecName = "fusionwire"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals the stream message types with the protowire helpers in
// wire.go. It satisfies grpc/encoding.Codec.
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *StreamDataRequest:
		return appendStreamDataRequest(nil, m), nil
	case *DeviceConfig:
		return appendDeviceConfig(nil, m), nil
	case *DataPoint:
		return appendDataPoint(nil, m), nil
	case *HistoricalDataRequest:
		return appendHistoricalDataRequest(nil, m), nil
	case *DataSeries:
		return appendDataSeries(nil, m), nil
	case *RecordingRequest:
		return appendRecordingRequest(nil, m), nil
	case *StopRecordingRequest:
		return appendStopRecordingRequest(nil, m), nil
	case *RecordingResponse:
		return appendRecordingResponse(nil, m), nil
	case *DeviceRequest:
		return appendDeviceRequest(nil, m), nil
	case *DeviceList:
		return appendDeviceList(nil, m), nil
	case *DeviceConfigResponse:
		return appendDeviceConfigResponse(nil, m), nil
	}
	return nil, fmt.Errorf("%s: cannot marshal %T", CodecName, v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *StreamDataRequest:
		return unmarshalStreamDataRequest(data, m)
	case *DeviceConfig:
		return unmarshalDeviceConfig(data, m)
	case *DataPoint:
		return unmarshalDataPoint(data, m)
	case *HistoricalDataRequest:
		return unmarshalHistoricalDataRequest(data, m)
	case *DataSeries:
		return unmarshalDataSeries(data, m)
	case *RecordingRequest:
		return unmarshalRecordingRequest(data, m)
	case *StopRecordingRequest:
		return unmarshalStopRecordingRequest(data, m)
	case *RecordingResponse:
		return unmarshalRecordingResponse(data, m)
	case *DeviceRequest:
		return unmarshalDeviceRequest(data, m)
	case *DeviceList:
		return unmarshalDeviceList(data, m)
	case *DeviceConfigResponse:
		return unmarshalDeviceConfigResponse(data, m)
	}
	return fmt.Errorf("%s: cannot unmarshal into %T", CodecName, v)
}
