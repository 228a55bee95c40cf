package fusion

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// MovingAverage is the exponential-moving-average fusion variant: a
// cheap smoother for pipelines that do not need covariance tracking.
// Per-channel deviation is tracked alongside the mean so the variant
// still reports a confidence that falls as its inputs get noisier.
type MovingAverage struct {
	mu sync.Mutex

	cfg   Config
	alpha float64

	blockOffset [telemetry.NumDataTypes]int
	blockDim    [telemetry.NumDataTypes]int
	channels    []string

	values      []float64
	deviations  []float64 // EMA of absolute innovation per channel
	initialized []bool    // first observation seeds the mean directly

	lastFuseMicros int64
	seenDevices    map[string]bool
	seenTypes      [telemetry.NumDataTypes]bool

	// Rolling mean-deviation history bounded by cfg.BufferSize.
	devHistory []float64

	ready bool
}

// Kind implements Algorithm.
func (m *MovingAverage) Kind() AlgorithmKind { return AlgorithmMovingAverage }

// Initialize implements Algorithm.
func (m *MovingAverage) Initialize(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.alpha = 0.2
	if v, ok := cfg.Parameters["alpha"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("moving average alpha must be in (0, 1], got %q", v)
		}
		m.alpha = f
	}

	for i := range m.blockOffset {
		m.blockOffset[i] = -1
		m.blockDim[i] = 0
	}
	dim := 0
	var channels []string
	for dt := telemetry.DataType(0); dt < telemetry.NumDataTypes; dt++ {
		if !cfg.AcceptsType(dt) {
			continue
		}
		block := channelsFor(dt)
		if len(block) == 0 {
			return fmt.Errorf("moving average cannot model data type %s", dt)
		}
		m.blockOffset[dt] = dim
		m.blockDim[dt] = len(block)
		channels = append(channels, block...)
		dim += len(block)
	}

	m.cfg = cfg.Clone()
	m.channels = channels
	m.resetLocked()
	m.ready = true
	return nil
}

func (m *MovingAverage) resetLocked() {
	n := len(m.channels)
	m.values = make([]float64, n)
	m.deviations = make([]float64, n)
	m.initialized = make([]bool, n)
	m.lastFuseMicros = 0
	m.seenDevices = make(map[string]bool)
	for i := range m.seenTypes {
		m.seenTypes[i] = false
	}
	m.devHistory = m.devHistory[:0]
}

// Reset implements Algorithm.
func (m *MovingAverage) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		m.resetLocked()
	}
}

// ProcessData implements Algorithm. Device weight scales the effective
// alpha so heavier devices pull the mean harder.
func (m *MovingAverage) ProcessData(sample telemetry.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return fmt.Errorf("moving average not initialized")
	}
	if !m.cfg.AcceptsDevice(sample.DeviceID) {
		return fmt.Errorf("device %q is not in the pipeline input set", sample.DeviceID)
	}
	dt := sample.Type
	if dt < 0 || dt >= telemetry.NumDataTypes || m.blockOffset[dt] < 0 {
		return fmt.Errorf("data type %s is not configured for this pipeline", dt)
	}

	z, _, err := measurementVector(sample)
	if err != nil {
		return err
	}
	off := m.blockOffset[dt]

	a := m.alpha * m.cfg.weightFor(sample.DeviceID)
	if a > 1 {
		a = 1
	}

	for i, v := range z {
		idx := off + i
		if !m.initialized[idx] {
			m.values[idx] = v
			m.initialized[idx] = true
			continue
		}
		innov := v - m.values[idx]
		m.values[idx] += a * innov
		if innov < 0 {
			innov = -innov
		}
		m.deviations[idx] = (1-m.alpha)*m.deviations[idx] + m.alpha*innov
	}

	if sample.TimestampMicros > m.lastFuseMicros {
		m.lastFuseMicros = sample.TimestampMicros
	}
	m.seenDevices[sample.DeviceID] = true
	m.seenTypes[dt] = true

	var sum float64
	for _, d := range m.deviations {
		sum += d
	}
	m.devHistory = append(m.devHistory, sum/float64(len(m.deviations)))
	if len(m.devHistory) > m.cfg.BufferSize {
		m.devHistory = m.devHistory[len(m.devHistory)-m.cfg.BufferSize:]
	}

	return nil
}

// GetFusedData implements Algorithm.
func (m *MovingAverage) GetFusedData() telemetry.FusedData {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := telemetry.FusedData{
		TimestampMicros: m.lastFuseMicros,
		Channels:        make(map[string]float64, len(m.channels)),
		Confidence:      m.confidenceLocked(),
	}
	for i, name := range m.channels {
		out.Channels[name] = m.values[i]
	}
	for dev := range m.seenDevices {
		out.SourceDevices = append(out.SourceDevices, dev)
	}
	sort.Strings(out.SourceDevices)
	for dt := telemetry.DataType(0); dt < telemetry.NumDataTypes; dt++ {
		if m.seenTypes[dt] {
			out.SourceTypes = append(out.SourceTypes, dt)
		}
	}
	return out
}

// confidenceLocked maps the mean per-channel deviation over the
// retained history into (0, 1], falling as inputs get noisier.
func (m *MovingAverage) confidenceLocked() float64 {
	if len(m.devHistory) == 0 {
		return 0
	}
	var sum float64
	for _, d := range m.devHistory {
		sum += d
	}
	return 1 / (1 + sum/float64(len(m.devHistory)))
}
