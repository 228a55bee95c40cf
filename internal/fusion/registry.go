package fusion

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/cockpit.fusion/internal/monitoring"
	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// Callback receives each newly produced FusedData for a pipeline. It
// is invoked synchronously from ProcessData but outside the registry
// lock, so implementations may call back into the registry.
type Callback func(telemetry.FusedData)

// Observer taps the registry's traffic: every ingested raw sample and
// every produced fused record. The streaming publisher implements this
// to feed live consumers.
type Observer interface {
	ObserveSample(sample telemetry.Sample)
	ObserveFused(fused telemetry.FusedData)
}

// pipeline owns one configuration/algorithm pair plus its callback and
// cached latest fused record. The inner mutex guards callback/latest
// so ProcessData can update them without the registry table lock.
type pipeline struct {
	id  string
	cfg Config
	alg Algorithm

	mu       sync.Mutex
	callback Callback
	latest   *telemetry.FusedData
}

// Registry owns zero or more independently configured fusion pipelines
// and routes incoming samples to every pipeline whose input set
// matches. It is an explicitly constructed, explicitly owned instance:
// callers hold a reference rather than reaching for package state, and
// teardown is an ordinary Close call.
//
// Concurrency: the table lock covers lookups and lifecycle only; it is
// released before any pipeline callback runs, so arbitrary external
// code never executes under the registry lock and reentrant calls
// cannot deadlock. Each algorithm guards its own internal state.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*pipeline
	tuning    Tuning
	observer  Observer
	closed    bool

	// Fill-ins for configs that leave rate/buffer unset.
	defaultRateHz float64
	defaultBuffer int
}

// NewRegistry creates an empty registry with the given tuning.
func NewRegistry(tuning Tuning) *Registry {
	if tuning == (Tuning{}) {
		tuning = DefaultTuning()
	}
	return &Registry{
		pipelines:     make(map[string]*pipeline),
		tuning:        tuning,
		defaultRateHz: 60,
		defaultBuffer: 100,
	}
}

// SetPipelineDefaults overrides the sample rate and buffer size used
// when a pipeline config leaves them unset. Non-positive arguments
// keep the current values.
func (r *Registry) SetPipelineDefaults(rateHz float64, bufferSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rateHz > 0 {
		r.defaultRateHz = rateHz
	}
	if bufferSize > 0 {
		r.defaultBuffer = bufferSize
	}
}

// SetObserver installs the traffic tap. Pass nil to detach.
func (r *Registry) SetObserver(obs Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = obs
}

// CreateFusion validates the configuration, allocates a new algorithm
// of the requested variant and stores the pipeline, returning a fresh
// unique identifier. Configuration errors and initialization failures
// are reported synchronously, never coerced.
func (r *Registry) CreateFusion(cfg Config) (string, error) {
	r.mu.RLock()
	if cfg.TargetSampleRateHz == 0 {
		cfg.TargetSampleRateHz = r.defaultRateHz
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = r.defaultBuffer
	}
	r.mu.RUnlock()

	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid fusion config: %w", err)
	}

	alg, err := newAlgorithm(cfg.Algorithm)
	if err != nil {
		return "", err
	}
	if kf, ok := alg.(*KalmanFilter); ok {
		kf.SetTuning(r.tuning)
	}
	if err := alg.Initialize(cfg); err != nil {
		return "", fmt.Errorf("algorithm initialization failed: %w", err)
	}

	p := &pipeline{
		id:  "fus_" + uuid.NewString(),
		cfg: cfg.Clone(),
		alg: alg,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", fmt.Errorf("registry is closed")
	}
	r.pipelines[p.id] = p
	monitoring.Logf("[Fusion] Created pipeline %s: algorithm=%s devices=%v types=%v",
		p.id, cfg.Algorithm, cfg.InputDevices, cfg.DataTypes)
	return p.id, nil
}

// RemoveFusion removes and releases the pipeline. Returns false if the
// identifier is unknown (not fatal).
func (r *Registry) RemoveFusion(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pipelines[id]; !ok {
		return false
	}
	delete(r.pipelines, id)
	monitoring.Logf("[Fusion] Removed pipeline %s", id)
	return true
}

// GetFusionConfig returns a copy of the pipeline's configuration.
func (r *Registry) GetFusionConfig(id string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[id]
	if !ok {
		return Config{}, false
	}
	return p.cfg.Clone(), true
}

// SetFusionCallback registers the function invoked with each newly
// produced FusedData; at most one callback per pipeline, replacing any
// prior registration. Returns false for an unknown pipeline.
func (r *Registry) SetFusionCallback(id string, cb Callback) bool {
	r.mu.RLock()
	p, ok := r.pipelines[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	p.mu.Lock()
	p.callback = cb
	p.mu.Unlock()
	return true
}

// GetFusionIDs returns the identifiers of all live pipelines.
func (r *Registry) GetFusionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.pipelines))
	for id := range r.pipelines {
		ids = append(ids, id)
	}
	return ids
}

// GetLatestFusedData returns the pipeline's cached latest fused record.
func (r *Registry) GetLatestFusedData(id string) (telemetry.FusedData, bool) {
	r.mu.RLock()
	p, ok := r.pipelines[id]
	r.mu.RUnlock()
	if !ok {
		return telemetry.FusedData{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return telemetry.FusedData{}, false
	}
	return p.latest.Clone(), true
}

// ProcessData fans the sample out to every pipeline whose device and
// data-type sets both include the sample's fields. A sample matching
// no pipeline is silently dropped: pipelines are opt-in subscriptions,
// not a delivery guarantee. Algorithm failures are recovered locally
// (the algorithm resets itself) and logged; one bad sample never takes
// down a pipeline or the registry.
func (r *Registry) ProcessData(sample telemetry.Sample) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return
	}
	obs := r.observer
	matched := make([]*pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		if p.cfg.Matches(sample) {
			matched = append(matched, p)
		}
	}
	r.mu.RUnlock()

	if obs != nil {
		obs.ObserveSample(sample)
	}

	for _, p := range matched {
		if err := p.alg.ProcessData(sample); err != nil {
			monitoring.Logf("[Fusion] Pipeline %s rejected sample from %s/%s: %v",
				p.id, sample.DeviceID, sample.Type, err)
			continue
		}

		fused := p.alg.GetFusedData()
		fused.FusionID = p.id

		p.mu.Lock()
		cached := fused.Clone()
		p.latest = &cached
		cb := p.callback
		p.mu.Unlock()

		// Callbacks run outside every lock: they may block, stream, or
		// call back into the registry.
		if cb != nil {
			cb(fused)
		}
		if obs != nil {
			obs.ObserveFused(fused)
		}
	}
}

// Close removes all pipelines and rejects further use. Idempotent.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.pipelines = make(map[string]*pipeline)
	monitoring.Logf("[Fusion] Registry closed")
}
