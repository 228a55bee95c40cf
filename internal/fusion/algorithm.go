// Package fusion implements the multi-sensor data-fusion engine: the
// algorithm capability interface, the Kalman-filter and moving-average
// variants, and the pipeline registry that routes device samples to
// configured pipelines.
package fusion

import (
	"fmt"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// AlgorithmKind identifies a fusion algorithm variant.
type AlgorithmKind int

const (
	AlgorithmUnknown AlgorithmKind = iota
	AlgorithmKalman
	AlgorithmExtendedKalman
	AlgorithmUnscentedKalman
	AlgorithmParticle
	AlgorithmMovingAverage

	numAlgorithmKinds
)

var algorithmNames = [numAlgorithmKinds]string{
	AlgorithmUnknown:         "unknown",
	AlgorithmKalman:          "kalman_filter",
	AlgorithmExtendedKalman:  "extended_kalman",
	AlgorithmUnscentedKalman: "unscented_kalman",
	AlgorithmParticle:        "particle_filter",
	AlgorithmMovingAverage:   "moving_average",
}

// String returns the canonical name for the algorithm kind.
func (k AlgorithmKind) String() string {
	if k < 0 || k >= numAlgorithmKinds {
		return algorithmNames[AlgorithmUnknown]
	}
	return algorithmNames[k]
}

// ParseAlgorithmKind maps a name back to its AlgorithmKind.
// Unrecognised names map to AlgorithmUnknown.
func ParseAlgorithmKind(s string) AlgorithmKind {
	for k, name := range algorithmNames {
		if name == s {
			return AlgorithmKind(k)
		}
	}
	return AlgorithmUnknown
}

// Config describes one fusion pipeline. It is supplied at pipeline
// creation and immutable for the pipeline's lifetime; reconfiguring
// requires removing and recreating the pipeline.
type Config struct {
	Algorithm    AlgorithmKind
	InputDevices []string
	DataTypes    []telemetry.DataType

	// TargetSampleRateHz is the expected output rate; used for history
	// sizing heuristics, not enforced on irregular device arrival.
	TargetSampleRateHz float64

	// BufferSize bounds the state-history ring used for confidence
	// computation. Oldest entries drop on overflow.
	BufferSize int

	// DeviceWeights scales per-device trust. A weight above 1 shrinks
	// the effective measurement noise for that device; missing entries
	// default to 1.0.
	DeviceWeights map[string]float64

	// Parameters is a free-form bag for algorithm-specific tuning
	// (e.g. "process_noise", "alpha").
	Parameters map[string]string
}

// Validate rejects incomplete or out-of-range configurations. Errors
// here are configuration errors: reported synchronously and never
// coerced.
func (c Config) Validate() error {
	if len(c.InputDevices) == 0 {
		return fmt.Errorf("config has no input devices")
	}
	if len(c.DataTypes) == 0 {
		return fmt.Errorf("config has no data types")
	}
	for _, dt := range c.DataTypes {
		if !dt.Valid() {
			return fmt.Errorf("config references unknown data type %d", int(dt))
		}
	}
	if c.TargetSampleRateHz <= 0 {
		return fmt.Errorf("sample rate must be positive, got %f", c.TargetSampleRateHz)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	for dev, w := range c.DeviceWeights {
		if w <= 0 {
			return fmt.Errorf("weight for device %q must be positive, got %f", dev, w)
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate a pipeline's
// configuration after creation.
func (c Config) Clone() Config {
	out := c
	out.InputDevices = append([]string(nil), c.InputDevices...)
	out.DataTypes = append([]telemetry.DataType(nil), c.DataTypes...)
	if c.DeviceWeights != nil {
		out.DeviceWeights = make(map[string]float64, len(c.DeviceWeights))
		for k, v := range c.DeviceWeights {
			out.DeviceWeights[k] = v
		}
	}
	if c.Parameters != nil {
		out.Parameters = make(map[string]string, len(c.Parameters))
		for k, v := range c.Parameters {
			out.Parameters[k] = v
		}
	}
	return out
}

// AcceptsDevice reports whether the device is in the input set.
func (c Config) AcceptsDevice(deviceID string) bool {
	for _, d := range c.InputDevices {
		if d == deviceID {
			return true
		}
	}
	return false
}

// AcceptsType reports whether the data type is in the accepted set.
func (c Config) AcceptsType(dt telemetry.DataType) bool {
	for _, t := range c.DataTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// Matches reports whether a sample should be routed to this pipeline:
// both the device identifier and data type must be configured. Partial
// matches are ignored, not queued.
func (c Config) Matches(s telemetry.Sample) bool {
	return c.AcceptsDevice(s.DeviceID) && c.AcceptsType(s.Type)
}

// weightFor returns the fusion weight for a device, defaulting to 1.
func (c Config) weightFor(deviceID string) float64 {
	if w, ok := c.DeviceWeights[deviceID]; ok && w > 0 {
		return w
	}
	return 1.0
}

// Algorithm is the fusion capability: consumes device samples and
// maintains internal estimation state. Implementations guard their own
// state; ProcessData and GetFusedData may be called from different
// goroutines and readers observe either the pre- or post-update state
// atomically.
type Algorithm interface {
	// Initialize allocates internal state sized to the configuration.
	// Fails if the configuration references a data type the variant
	// cannot model, or sample rate / buffer size are non-positive.
	Initialize(cfg Config) error

	// ProcessData advances internal state (predict) and incorporates
	// the sample (update). Fails if the sample's device or data type
	// is not part of the configuration, or on a numerical fault (in
	// which case the algorithm resets itself and remains usable).
	ProcessData(sample telemetry.Sample) error

	// GetFusedData returns a read-only snapshot of the current state.
	GetFusedData() telemetry.FusedData

	// Reset re-initializes state to the same configuration, clearing
	// history.
	Reset()

	// Kind identifies the concrete variant.
	Kind() AlgorithmKind
}

// newAlgorithm instantiates the requested variant. Only the Kalman and
// moving-average variants are implemented; the remaining declared kinds
// parse and round-trip but are rejected here.
func newAlgorithm(kind AlgorithmKind) (Algorithm, error) {
	switch kind {
	case AlgorithmKalman:
		return &KalmanFilter{}, nil
	case AlgorithmMovingAverage:
		return &MovingAverage{}, nil
	case AlgorithmExtendedKalman, AlgorithmUnscentedKalman, AlgorithmParticle:
		return nil, fmt.Errorf("algorithm %q is not implemented", kind)
	default:
		return nil, fmt.Errorf("unknown algorithm kind %d", int(kind))
	}
}
