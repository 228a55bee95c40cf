package stream

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/cockpit.fusion/internal/devices"
	"github.com/banshee-data/cockpit.fusion/internal/storage"
	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// Ensure Server implements the gRPC interface.
var _ TelemetryServiceServer = (*Server)(nil)

// Server implements the TelemetryService gRPC server. Live streaming
// comes from the publisher; historical data and recording go through
// the session store. The store may be nil, in which case those calls
// report storage as unavailable.
type Server struct {
	publisher     *Publisher
	store         *storage.DB
	catalogue     *devices.Catalogue
	recordingBase string

	recMu      sync.Mutex
	recordings map[string]*recording
}

// recording tracks one active capture: its publisher subscription and
// the goroutine draining it into the store.
type recording struct {
	sessionID string
	path      string
	unsub     func()
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewServer creates the service implementation. recordingBase is the
// directory reported in RecordingResponse paths; data itself lives in
// the session store.
func NewServer(publisher *Publisher, store *storage.DB, catalogue *devices.Catalogue, recordingBase string) *Server {
	return &Server{
		publisher:     publisher,
		store:         store,
		catalogue:     catalogue,
		recordingBase: recordingBase,
		recordings:    make(map[string]*recording),
	}
}

// StreamData implements the live streaming RPC.
func (s *Server) StreamData(req *StreamDataRequest, stream TelemetryService_StreamDataServer) error {
	if req.SessionID == "" {
		return status.Error(codes.InvalidArgument, "session_id is required")
	}

	clientID := fmt.Sprintf("grpc-%d", time.Now().UnixNano())
	filter := filterFromDevices(req.Devices, req.ApplyFiltering)
	pointCh, unsub, err := s.publisher.Subscribe(clientID, filter)
	if err != nil {
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	defer unsub()

	log.Printf("[Stream] StreamData started: session=%s devices=%d filtering=%v rate=%.1f",
		req.SessionID, len(req.Devices), req.ApplyFiltering, req.SampleRateHz)

	// Client-requested downsampling applies to raw points only; fused
	// estimates already run at the pipeline's cadence.
	var minInterval time.Duration
	if req.SampleRateHz > 0 {
		minInterval = time.Duration(float64(time.Second) / req.SampleRateHz)
	}
	lastSent := make(map[string]time.Time)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Stream] StreamData cancelled: session=%s", req.SessionID)
			return ctx.Err()
		case point := <-pointCh:
			if minInterval > 0 && point.Fused == nil {
				key := point.DeviceID + "/" + point.Type.String()
				now := time.Now()
				if last, ok := lastSent[key]; ok && now.Sub(last) < minInterval {
					continue
				}
				lastSent[key] = now
			}
			if err := stream.Send(point); err != nil {
				log.Printf("[Stream] Send error: %v", err)
				return err
			}
		}
	}
}

// GetHistoricalData implements the historical query RPC.
func (s *Server) GetHistoricalData(ctx context.Context, req *HistoricalDataRequest) (*DataSeries, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unavailable, "session storage not configured")
	}
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if req.StartTimeMicros != 0 && req.EndTimeMicros != 0 && req.StartTimeMicros > req.EndTimeMicros {
		return nil, status.Error(codes.InvalidArgument, "start_time_us is after end_time_us")
	}

	points, err := s.store.QueryPoints(storage.Query{
		SessionID:   req.SessionID,
		DeviceTypes: req.DeviceTypes,
		DataTypes:   req.DataTypes,
		StartMicros: req.StartTimeMicros,
		EndMicros:   req.EndTimeMicros,
		MaxPoints:   int(req.MaxPoints),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "historical query failed: %v", err)
	}

	series := &DataSeries{SessionID: req.SessionID}
	for _, p := range points {
		dp := DataPointFromSample(telemetry.Sample{
			DeviceID:        p.DeviceID,
			Type:            p.DataType,
			TimestampMicros: p.TimestampMicros,
			Payload:         p.Payload,
		})
		series.DataPoints = append(series.DataPoints, dp)
	}
	return series, nil
}

// StartRecording implements the recording start RPC. Operational
// failures (storage off, duplicate session) come back in-band.
func (s *Server) StartRecording(ctx context.Context, req *RecordingRequest) (*RecordingResponse, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if s.store == nil {
		return &RecordingResponse{
			SessionID:    req.SessionID,
			ErrorMessage: "session storage not configured",
		}, nil
	}

	s.recMu.Lock()
	defer s.recMu.Unlock()

	if _, ok := s.recordings[req.SessionID]; ok {
		return &RecordingResponse{
			SessionID:    req.SessionID,
			ErrorMessage: fmt.Sprintf("recording already active for session %q", req.SessionID),
		}, nil
	}

	path := filepath.Join(s.recordingBase, req.SessionID)
	err := s.store.CreateSession(storage.Session{
		SessionID:     req.SessionID,
		UserID:        req.UserID,
		ExerciseID:    req.ExerciseID,
		StartMicros:   time.Now().UnixMicro(),
		RecordingPath: path,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return &RecordingResponse{
			SessionID:    req.SessionID,
			ErrorMessage: err.Error(),
		}, nil
	}

	// Raw points only; fused estimates can be recomputed from them.
	pointCh, unsub, err := s.publisher.Subscribe("rec-"+req.SessionID, filterFromDevices(req.Devices, false))
	if err != nil {
		return &RecordingResponse{
			SessionID:    req.SessionID,
			ErrorMessage: err.Error(),
		}, nil
	}

	rec := &recording{
		sessionID: req.SessionID,
		path:      path,
		unsub:     unsub,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	s.recordings[req.SessionID] = rec
	go s.recordLoop(rec, pointCh)

	log.Printf("[Stream] Recording started: session=%s user=%s exercise=%s",
		req.SessionID, req.UserID, req.ExerciseID)

	return &RecordingResponse{
		Success:       true,
		SessionID:     req.SessionID,
		RecordingPath: path,
	}, nil
}

// recordLoop drains a recording subscription into the store.
func (s *Server) recordLoop(rec *recording, pointCh <-chan *DataPoint) {
	defer close(rec.doneCh)
	var stored, failed int
	for {
		select {
		case <-rec.stopCh:
			log.Printf("[Stream] Recording stopped: session=%s stored=%d failed=%d",
				rec.sessionID, stored, failed)
			return
		case point := <-pointCh:
			sample, ok := point.ToSample()
			if !ok {
				continue
			}
			deviceType := s.catalogue.TypeOf(sample.DeviceID)
			if err := s.store.InsertPoint(rec.sessionID, deviceType, sample); err != nil {
				failed++
				if failed%100 == 1 {
					log.Printf("[Stream] Recording insert failed (session=%s): %v", rec.sessionID, err)
				}
				continue
			}
			stored++
		}
	}
}

// StopRecording implements the recording stop RPC. Stopping a session
// that is not recording is an in-band failure, not an RPC error.
func (s *Server) StopRecording(ctx context.Context, req *StopRecordingRequest) (*RecordingResponse, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}

	s.recMu.Lock()
	rec, ok := s.recordings[req.SessionID]
	if ok {
		delete(s.recordings, req.SessionID)
	}
	s.recMu.Unlock()

	if !ok {
		return &RecordingResponse{
			SessionID:    req.SessionID,
			ErrorMessage: fmt.Sprintf("no active recording for session %q", req.SessionID),
		}, nil
	}

	rec.unsub()
	close(rec.stopCh)
	<-rec.doneCh

	if err := s.store.EndSession(rec.sessionID, time.Now().UnixMicro()); err != nil {
		return &RecordingResponse{
			SessionID:    req.SessionID,
			ErrorMessage: err.Error(),
		}, nil
	}

	return &RecordingResponse{
		Success:       true,
		SessionID:     req.SessionID,
		RecordingPath: rec.path,
	}, nil
}

// ListDevices implements the device enumeration RPC.
func (s *Server) ListDevices(ctx context.Context, req *DeviceRequest) (*DeviceList, error) {
	list := &DeviceList{}
	for _, d := range s.catalogue.List(req.DeviceTypes) {
		list.Devices = append(list.Devices, Device{
			DeviceID:           d.DeviceID,
			DeviceType:         d.DeviceType,
			Model:              d.Model,
			SerialNumber:       d.SerialNumber,
			FirmwareVersion:    d.FirmwareVersion,
			SupportedDataTypes: d.SupportedDataTypes,
			Capabilities:       d.Capabilities,
			IsConnected:        d.IsConnected,
			ConnectionInfo:     d.ConnectionInfo,
		})
	}
	return list, nil
}

// ConfigureDevice implements the device configuration RPC. Unknown
// devices and unsupported data types are in-band failures.
func (s *Server) ConfigureDevice(ctx context.Context, req *DeviceConfig) (*DeviceConfigResponse, error) {
	if req.DeviceID == "" {
		return nil, status.Error(codes.InvalidArgument, "device_id is required")
	}
	if err := s.catalogue.Configure(req.DeviceID, req.DataTypes, req.Parameters); err != nil {
		return &DeviceConfigResponse{
			DeviceID:     req.DeviceID,
			ErrorMessage: err.Error(),
		}, nil
	}
	return &DeviceConfigResponse{Success: true, DeviceID: req.DeviceID}, nil
}

// ActiveRecordings returns the IDs of sessions currently recording.
func (s *Server) ActiveRecordings() []string {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	out := make([]string, 0, len(s.recordings))
	for id := range s.recordings {
		out = append(out, id)
	}
	return out
}
