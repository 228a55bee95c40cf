package stream

import (
	"context"

	"google.golang.org/grpc"
)

// gRPC service plumbing for TelemetryService, maintained by hand in the
// shape protoc-gen-go-grpc would emit so the rest of the codebase sees
// the familiar surface.

const ServiceName = "cockpitfusion.v1.TelemetryService"

const (
	methodStreamData        = "/" + ServiceName + "/StreamData"
	methodGetHistoricalData = "/" + ServiceName + "/GetHistoricalData"
	methodStartRecording    = "/" + ServiceName + "/StartRecording"
	methodStopRecording     = "/" + ServiceName + "/StopRecording"
	methodListDevices       = "/" + ServiceName + "/ListDevices"
	methodConfigureDevice   = "/" + ServiceName + "/ConfigureDevice"
)

// TelemetryServiceServer is the server API for TelemetryService.
type TelemetryServiceServer interface {
	StreamData(*StreamDataRequest, TelemetryService_StreamDataServer) error
	GetHistoricalData(context.Context, *HistoricalDataRequest) (*DataSeries, error)
	StartRecording(context.Context, *RecordingRequest) (*RecordingResponse, error)
	StopRecording(context.Context, *StopRecordingRequest) (*RecordingResponse, error)
	ListDevices(context.Context, *DeviceRequest) (*DeviceList, error)
	ConfigureDevice(context.Context, *DeviceConfig) (*DeviceConfigResponse, error)
}

type TelemetryService_StreamDataServer interface {
	Send(*DataPoint) error
	grpc.ServerStream
}

type telemetryStreamDataServer struct {
	grpc.ServerStream
}

func (x *telemetryStreamDataServer) Send(m *DataPoint) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterTelemetryServiceServer(s grpc.ServiceRegistrar, srv TelemetryServiceServer) {
	s.RegisterService(&TelemetryService_ServiceDesc, srv)
}

func _TelemetryService_StreamData_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(StreamDataRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TelemetryServiceServer).StreamData(m, &telemetryStreamDataServer{stream})
}

func _TelemetryService_GetHistoricalData_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HistoricalDataRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServiceServer).GetHistoricalData(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetHistoricalData}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TelemetryServiceServer).GetHistoricalData(ctx, req.(*HistoricalDataRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TelemetryService_StartRecording_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RecordingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServiceServer).StartRecording(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodStartRecording}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TelemetryServiceServer).StartRecording(ctx, req.(*RecordingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TelemetryService_StopRecording_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StopRecordingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServiceServer).StopRecording(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodStopRecording}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TelemetryServiceServer).StopRecording(ctx, req.(*StopRecordingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TelemetryService_ListDevices_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeviceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServiceServer).ListDevices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListDevices}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TelemetryServiceServer).ListDevices(ctx, req.(*DeviceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TelemetryService_ConfigureDevice_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeviceConfig)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServiceServer).ConfigureDevice(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodConfigureDevice}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TelemetryServiceServer).ConfigureDevice(ctx, req.(*DeviceConfig))
	}
	return interceptor(ctx, in, info, handler)
}

var TelemetryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelemetryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetHistoricalData", Handler: _TelemetryService_GetHistoricalData_Handler},
		{MethodName: "StartRecording", Handler: _TelemetryService_StartRecording_Handler},
		{MethodName: "StopRecording", Handler: _TelemetryService_StopRecording_Handler},
		{MethodName: "ListDevices", Handler: _TelemetryService_ListDevices_Handler},
		{MethodName: "ConfigureDevice", Handler: _TelemetryService_ConfigureDevice_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamData", Handler: _TelemetryService_StreamData_Handler, ServerStreams: true},
	},
	Metadata: "proto/telemetry.proto",
}

// TelemetryServiceClient is the client API for TelemetryService. All
// calls pin the fusionwire content-subtype.
type TelemetryServiceClient interface {
	StreamData(ctx context.Context, in *StreamDataRequest, opts ...grpc.CallOption) (TelemetryService_StreamDataClient, error)
	GetHistoricalData(ctx context.Context, in *HistoricalDataRequest, opts ...grpc.CallOption) (*DataSeries, error)
	StartRecording(ctx context.Context, in *RecordingRequest, opts ...grpc.CallOption) (*RecordingResponse, error)
	StopRecording(ctx context.Context, in *StopRecordingRequest, opts ...grpc.CallOption) (*RecordingResponse, error)
	ListDevices(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*DeviceList, error)
	ConfigureDevice(ctx context.Context, in *DeviceConfig, opts ...grpc.CallOption) (*DeviceConfigResponse, error)
}

type TelemetryService_StreamDataClient interface {
	Recv() (*DataPoint, error)
	grpc.ClientStream
}

type telemetryStreamDataClient struct {
	grpc.ClientStream
}

func (x *telemetryStreamDataClient) Recv() (*DataPoint, error) {
	m := new(DataPoint)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type telemetryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTelemetryServiceClient(cc grpc.ClientConnInterface) TelemetryServiceClient {
	return &telemetryServiceClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *telemetryServiceClient) StreamData(ctx context.Context, in *StreamDataRequest, opts ...grpc.CallOption) (TelemetryService_StreamDataClient, error) {
	s, err := c.cc.NewStream(ctx, &TelemetryService_ServiceDesc.Streams[0], methodStreamData, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &telemetryStreamDataClient{s}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *telemetryServiceClient) GetHistoricalData(ctx context.Context, in *HistoricalDataRequest, opts ...grpc.CallOption) (*DataSeries, error) {
	out := new(DataSeries)
	if err := c.cc.Invoke(ctx, methodGetHistoricalData, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *telemetryServiceClient) StartRecording(ctx context.Context, in *RecordingRequest, opts ...grpc.CallOption) (*RecordingResponse, error) {
	out := new(RecordingResponse)
	if err := c.cc.Invoke(ctx, methodStartRecording, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *telemetryServiceClient) StopRecording(ctx context.Context, in *StopRecordingRequest, opts ...grpc.CallOption) (*RecordingResponse, error) {
	out := new(RecordingResponse)
	if err := c.cc.Invoke(ctx, methodStopRecording, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *telemetryServiceClient) ListDevices(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*DeviceList, error) {
	out := new(DeviceList)
	if err := c.cc.Invoke(ctx, methodListDevices, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *telemetryServiceClient) ConfigureDevice(ctx context.Context, in *DeviceConfig, opts ...grpc.CallOption) (*DeviceConfigResponse, error) {
	out := new(DeviceConfigResponse)
	if err := c.cc.Invoke(ctx, methodConfigureDevice, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
