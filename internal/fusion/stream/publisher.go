package stream

import (
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// Config holds configuration for the telemetry gRPC server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50052")
	ListenAddr string

	// MaxClients is the maximum number of concurrent streaming clients
	MaxClients int

	// QueueDepth is the broadcast channel capacity; points beyond it
	// are dropped rather than blocking the ingest path
	QueueDepth int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50052",
		MaxClients: 5,
		QueueDepth: 100,
	}
}

// Publisher manages the gRPC server and data point broadcasting. It
// implements fusion.Observer so it can be attached directly to a
// fusion registry as the live tap.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	// Point broadcasting
	pointChan chan *DataPoint
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	// Stats
	pointCount     atomic.Uint64
	clientCount    atomic.Int32
	droppedPoints  atomic.Uint64
	lastStatsTime  time.Time
	lastPointCount uint64
	lastStatsMu    sync.Mutex

	// Lifecycle
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// clientStream represents a connected subscriber, either a gRPC stream
// handler or an internal consumer such as a session recorder.
type clientStream struct {
	id      string
	filter  pointFilter
	pointCh chan *DataPoint
	doneCh  chan struct{}
}

// pointFilter narrows which data points a subscriber receives. The
// zero value admits everything.
type pointFilter struct {
	// fusedOnly drops raw sensor points, leaving fused estimates.
	fusedOnly bool

	// devices restricts raw points to the listed device IDs; the value
	// lists the admitted data types for that device (empty = all).
	// A nil map admits every device.
	devices map[string][]telemetry.DataType
}

func filterFromDevices(devices []DeviceConfig, fusedOnly bool) pointFilter {
	f := pointFilter{fusedOnly: fusedOnly}
	if len(devices) == 0 {
		return f
	}
	f.devices = make(map[string][]telemetry.DataType, len(devices))
	for _, d := range devices {
		f.devices[d.DeviceID] = append([]telemetry.DataType(nil), d.DataTypes...)
	}
	return f
}

// admit reports whether the point passes the filter. Fused estimates
// always pass: a subscriber narrowing by device still wants the
// aggregate built from those devices.
func (f pointFilter) admit(p *DataPoint) bool {
	if p.Fused != nil {
		return true
	}
	if f.fusedOnly {
		return false
	}
	if f.devices == nil {
		return true
	}
	types, ok := f.devices[p.DeviceID]
	if !ok {
		return false
	}
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == p.Type {
			return true
		}
	}
	return false
}

// NewPublisher creates a new Publisher with the given configuration.
func NewPublisher(cfg Config) *Publisher {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultConfig().QueueDepth
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultConfig().MaxClients
	}
	return &Publisher{
		config:    cfg,
		server:    grpc.NewServer(grpc.ForceServerCodec(Codec{})),
		pointChan: make(chan *DataPoint, cfg.QueueDepth),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// Start binds the listener and starts the gRPC server and the
// broadcast loop. Services must be registered on GRPCServer before
// calling Start.
func (p *Publisher) Start() error {
	if p.running.Load() {
		return fmt.Errorf("publisher already running")
	}

	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	p.listener = lis

	p.running.Store(true)

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Printf("[Stream] gRPC server listening on %s", p.config.ListenAddr)
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			log.Printf("[Stream] gRPC server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the gRPC server and waits for the broadcast
// loop to drain.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	close(p.stopCh)

	if p.server != nil {
		p.server.GracefulStop()
	}
	if p.listener != nil {
		p.listener.Close()
	}

	p.wg.Wait()
	log.Printf("[Stream] gRPC server stopped")
}

// ObserveSample implements fusion.Observer for raw sensor samples.
func (p *Publisher) ObserveSample(sample telemetry.Sample) {
	dp := DataPointFromSample(sample)
	p.Publish(&dp)
}

// ObserveFused implements fusion.Observer for fused estimates.
func (p *Publisher) ObserveFused(fused telemetry.FusedData) {
	dp := DataPointFromFused(fused)
	p.Publish(&dp)
}

// Publish queues a point for broadcast to all subscribers. Points are
// dropped, not blocked on, when the queue is full.
func (p *Publisher) Publish(point *DataPoint) {
	if !p.running.Load() || point == nil {
		return
	}

	select {
	case p.pointChan <- point:
		count := p.pointCount.Add(1)
		p.logPeriodicStats(count)
	default:
		dropped := p.droppedPoints.Add(1)
		if dropped%100 == 1 {
			log.Printf("[Stream] DROPPED point from %s (total dropped: %d), queue full",
				point.DeviceID, dropped)
		}
	}
}

// logPeriodicStats logs throughput stats every 5 seconds.
func (p *Publisher) logPeriodicStats(pointCount uint64) {
	p.lastStatsMu.Lock()
	defer p.lastStatsMu.Unlock()

	now := time.Now()
	if p.lastStatsTime.IsZero() {
		p.lastStatsTime = now
		p.lastPointCount = pointCount
		return
	}

	elapsed := now.Sub(p.lastStatsTime)
	if elapsed >= 5*time.Second {
		pointsInInterval := pointCount - p.lastPointCount
		rate := float64(pointsInInterval) / elapsed.Seconds()
		log.Printf("[Stream] Stats: rate=%.1f/s points=%d dropped=%d clients=%d queue=%d/%d",
			rate, pointsInInterval, p.droppedPoints.Load(), p.clientCount.Load(),
			len(p.pointChan), p.config.QueueDepth)
		p.lastStatsTime = now
		p.lastPointCount = pointCount
	}
}

// broadcastLoop distributes points to all subscribers.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case point := <-p.pointChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				if !client.filter.admit(point) {
					continue
				}
				select {
				case client.pointCh <- point:
				default:
					// Client is slow, drop the point for this client.
					p.droppedPoints.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// Subscribe registers a subscriber and returns its channel plus an
// unsubscribe function. Returns an error once MaxClients is reached.
func (p *Publisher) Subscribe(id string, filter pointFilter) (<-chan *DataPoint, func(), error) {
	p.clientsMu.Lock()
	if len(p.clients) >= p.config.MaxClients {
		p.clientsMu.Unlock()
		return nil, nil, fmt.Errorf("client limit reached (%d)", p.config.MaxClients)
	}
	client := &clientStream{
		id:      id,
		filter:  filter,
		pointCh: make(chan *DataPoint, 10),
		doneCh:  make(chan struct{}),
	}
	p.clients[id] = client
	p.clientsMu.Unlock()

	p.clientCount.Add(1)
	log.Printf("[Stream] Client connected: %s (total: %d)", id, p.clientCount.Load())

	return client.pointCh, func() { p.removeClient(id) }, nil
}

// removeClient unregisters a subscriber.
func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	client, ok := p.clients[id]
	if ok {
		close(client.doneCh)
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()
	if ok {
		p.clientCount.Add(-1)
		log.Printf("[Stream] Client disconnected: %s (remaining: %d)", id, p.clientCount.Load())
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		PointCount:    p.pointCount.Load(),
		DroppedPoints: p.droppedPoints.Load(),
		ClientCount:   p.clientCount.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	PointCount    uint64
	DroppedPoints uint64
	ClientCount   int32
	Running       bool
}

// GRPCServer returns the underlying gRPC server for service
// registration.
func (p *Publisher) GRPCServer() *grpc.Server {
	return p.server
}
