package fusion

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// Tuning holds the numerical parameters shared by fusion algorithms.
// Values mirror config/fusion.defaults.json; per-pipeline overrides
// arrive through the Config.Parameters bag.
type Tuning struct {
	ProcessNoise         float64 // state variance growth per second per channel
	MeasurementNoise     float64 // base sensor variance before weighting
	DriftRate            float64 // transition drift coefficient (identity-plus-drift)
	MinPredictIntervalUs int64   // below this, predict is skipped for the data type
	InitialVariance      float64 // covariance diagonal at initialization
	MaxCovarianceDiag    float64 // diagonal cap against unbounded growth
	RegularizationEps    float64 // jitter added when covariance degenerates
}

// DefaultTuning returns the built-in tuning defaults.
func DefaultTuning() Tuning {
	return Tuning{
		ProcessNoise:         5.0,
		MeasurementNoise:     0.1,
		DriftRate:            0.0,
		MinPredictIntervalUs: 1000,
		InitialVariance:      10.0,
		MaxCovarianceDiag:    1000.0,
		RegularizationEps:    1e-9,
	}
}

// KalmanFilter fuses heterogeneous device samples into a single state
// estimate. The state vector is the union of the configured data-type
// sub-blocks; the transition model is identity-plus-drift because
// device arrival is irregular rather than fixed-rate, and elapsed time
// is tracked per data type since devices sample at independent rates.
//
// All methods are safe for concurrent use: ProcessData and
// GetFusedData may run on different goroutines (producer vs streaming)
// and readers observe either the pre- or post-update state atomically.
type KalmanFilter struct {
	mu sync.Mutex

	cfg    Config
	tuning Tuning

	// State layout, indexed by DataType (arena style; -1 offset means
	// the type is not configured).
	dim         int
	blockOffset [telemetry.NumDataTypes]int
	blockDim    [telemetry.NumDataTypes]int
	channels    []string

	state *mat.VecDense
	cov   *mat.Dense

	// Per-data-type last update time (µs). Zero means never updated.
	lastUpdateMicros [telemetry.NumDataTypes]int64
	lastFuseMicros   int64

	// Contributing sources since the last reset.
	seenDevices map[string]bool
	seenTypes   [telemetry.NumDataTypes]bool

	// Rolling covariance-trace history for confidence computation,
	// bounded by cfg.BufferSize (oldest dropped on overflow).
	traceHistory []float64

	initialized bool
}

// SetTuning installs tuning parameters. Must be called before
// Initialize; the zero value falls back to DefaultTuning.
func (kf *KalmanFilter) SetTuning(t Tuning) {
	kf.tuning = t
}

// Kind implements Algorithm.
func (kf *KalmanFilter) Kind() AlgorithmKind { return AlgorithmKalman }

// Initialize implements Algorithm. The state dimension derives from
// the union of configured data-type sub-blocks. Fails if the
// configuration names a data type this variant cannot model.
func (kf *KalmanFilter) Initialize(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	kf.mu.Lock()
	defer kf.mu.Unlock()

	if kf.tuning == (Tuning{}) {
		kf.tuning = DefaultTuning()
	}
	kf.applyParameterOverrides(cfg.Parameters)

	for i := range kf.blockOffset {
		kf.blockOffset[i] = -1
		kf.blockDim[i] = 0
	}

	dim := 0
	var channels []string
	// Walk types in enum order so the layout is deterministic
	// regardless of the order the config listed them.
	for dt := telemetry.DataType(0); dt < telemetry.NumDataTypes; dt++ {
		if !cfg.AcceptsType(dt) {
			continue
		}
		block := channelsFor(dt)
		if len(block) == 0 {
			return fmt.Errorf("kalman filter cannot model data type %s", dt)
		}
		kf.blockOffset[dt] = dim
		kf.blockDim[dt] = len(block)
		channels = append(channels, block...)
		dim += len(block)
	}

	kf.cfg = cfg.Clone()
	kf.dim = dim
	kf.channels = channels
	kf.resetStateLocked()
	kf.initialized = true
	return nil
}

// applyParameterOverrides applies per-pipeline tuning from the
// free-form parameter bag. Unparseable values are ignored in favour of
// the existing tuning; they were already free-form at the boundary.
func (kf *KalmanFilter) applyParameterOverrides(params map[string]string) {
	if v, ok := params["process_noise"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			kf.tuning.ProcessNoise = f
		}
	}
	if v, ok := params["measurement_noise"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			kf.tuning.MeasurementNoise = f
		}
	}
	if v, ok := params["drift_rate"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			kf.tuning.DriftRate = f
		}
	}
	if v, ok := params["min_predict_interval_us"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			kf.tuning.MinPredictIntervalUs = n
		}
	}
	if v, ok := params["initial_variance"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			kf.tuning.InitialVariance = f
		}
	}
}

// resetStateLocked re-creates state, covariance and history. Caller
// holds kf.mu.
func (kf *KalmanFilter) resetStateLocked() {
	kf.state = mat.NewVecDense(kf.dim, nil)
	kf.cov = mat.NewDense(kf.dim, kf.dim, nil)
	for i := 0; i < kf.dim; i++ {
		kf.cov.Set(i, i, kf.tuning.InitialVariance)
	}
	for i := range kf.lastUpdateMicros {
		kf.lastUpdateMicros[i] = 0
	}
	kf.lastFuseMicros = 0
	kf.seenDevices = make(map[string]bool)
	for i := range kf.seenTypes {
		kf.seenTypes[i] = false
	}
	kf.traceHistory = kf.traceHistory[:0]
}

// Reset implements Algorithm: re-initializes state to the same
// configuration, clearing history. Used after anomalies or pipeline
// restart.
func (kf *KalmanFilter) Reset() {
	kf.mu.Lock()
	defer kf.mu.Unlock()
	if kf.initialized {
		kf.resetStateLocked()
	}
}

// ProcessData implements Algorithm: predict for the sample's data-type
// block, then apply the standard Kalman correction. Numerical faults
// reset the filter state (non-fatal) and are reported as an error
// rather than propagating NaNs.
func (kf *KalmanFilter) ProcessData(sample telemetry.Sample) error {
	kf.mu.Lock()
	defer kf.mu.Unlock()

	if !kf.initialized {
		return fmt.Errorf("kalman filter not initialized")
	}
	if !kf.cfg.AcceptsDevice(sample.DeviceID) {
		return fmt.Errorf("device %q is not in the pipeline input set", sample.DeviceID)
	}
	dt := sample.Type
	if dt < 0 || dt >= telemetry.NumDataTypes || kf.blockOffset[dt] < 0 {
		return fmt.Errorf("data type %s is not configured for this pipeline", dt)
	}

	z, sensorConf, err := measurementVector(sample)
	if err != nil {
		return err
	}
	off := kf.blockOffset[dt]
	b := kf.blockDim[dt]
	if len(z) != b {
		return fmt.Errorf("measurement for %s has %d values, state block has %d", dt, len(z), b)
	}

	kf.predictLocked(dt, sample.TimestampMicros)

	if err := kf.updateLocked(off, b, z, kf.cfg.weightFor(sample.DeviceID)*sensorConf); err != nil {
		// Numerical fault: recover locally so one bad sample cannot
		// take down the pipeline.
		kf.resetStateLocked()
		return fmt.Errorf("kalman update failed, state reset: %w", err)
	}

	kf.lastUpdateMicros[dt] = sample.TimestampMicros
	if sample.TimestampMicros > kf.lastFuseMicros {
		kf.lastFuseMicros = sample.TimestampMicros
	}
	kf.seenDevices[sample.DeviceID] = true
	kf.seenTypes[dt] = true

	// Append covariance trace to the bounded history ring.
	kf.traceHistory = append(kf.traceHistory, kf.traceLocked())
	if len(kf.traceHistory) > kf.cfg.BufferSize {
		kf.traceHistory = kf.traceHistory[len(kf.traceHistory)-kf.cfg.BufferSize:]
	}

	return nil
}

// predictLocked propagates the data type's sub-block through the
// identity-plus-drift transition and inflates its covariance by
// process noise scaled to the elapsed time since that type's last
// update. Elapsed time is per data type, not global, because devices
// sample at independent rates. Out-of-order timestamps yield a
// degraded (zero) interval rather than a failure.
func (kf *KalmanFilter) predictLocked(dt telemetry.DataType, nowMicros int64) {
	last := kf.lastUpdateMicros[dt]
	if last == 0 {
		return // first sample for this type; nothing to propagate
	}
	elapsedUs := nowMicros - last
	if elapsedUs < kf.tuning.MinPredictIntervalUs {
		return
	}
	dtSec := float64(elapsedUs) / 1e6

	off := kf.blockOffset[dt]
	b := kf.blockDim[dt]

	// x' = F x with F = I + drift*dt on the block diagonal.
	if kf.tuning.DriftRate != 0 {
		f := 1 + kf.tuning.DriftRate*dtSec
		for i := off; i < off+b; i++ {
			kf.state.SetVec(i, kf.state.AtVec(i)*f)
		}
	}

	// P' = F P F^T + Q, with Q = processNoise*dt on the block diagonal.
	q := kf.tuning.ProcessNoise * dtSec
	for i := off; i < off+b; i++ {
		v := kf.cov.At(i, i) + q
		if v > kf.tuning.MaxCovarianceDiag {
			v = kf.tuning.MaxCovarianceDiag
		}
		kf.cov.Set(i, i, v)
	}
}

// updateLocked applies the standard Kalman correction for a block
// measurement. H is the fixed projection from the full state space to
// the block's channels; weight scales the measurement-noise covariance
// (higher weight, more trust).
func (kf *KalmanFilter) updateLocked(off, b int, z []float64, weight float64) error {
	if weight <= 0 {
		weight = 1.0
	}
	rEff := kf.tuning.MeasurementNoise / weight

	// H: b x dim selection matrix for the block.
	H := mat.NewDense(b, kf.dim, nil)
	for i := 0; i < b; i++ {
		H.Set(i, off+i, 1)
	}

	// S = H P H^T + R
	var pht mat.Dense
	pht.Mul(kf.cov, H.T())
	var s mat.Dense
	s.Mul(H, &pht)
	for i := 0; i < b; i++ {
		s.Set(i, i, s.At(i, i)+rEff)
	}

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		// Singular innovation covariance: regularize and retry once
		// before giving up, rather than propagating NaNs.
		for i := 0; i < b; i++ {
			s.Set(i, i, s.At(i, i)+kf.tuning.RegularizationEps)
		}
		if err := sInv.Inverse(&s); err != nil {
			return fmt.Errorf("innovation covariance is singular: %w", err)
		}
	}

	// K = P H^T S^-1
	var gain mat.Dense
	gain.Mul(&pht, &sInv)

	// Innovation y = z - H x
	y := mat.NewVecDense(b, nil)
	for i := 0; i < b; i++ {
		y.SetVec(i, z[i]-kf.state.AtVec(off+i))
	}

	// x' = x + K y
	var corr mat.VecDense
	corr.MulVec(&gain, y)
	kf.state.AddVec(kf.state, &corr)

	// P' = (I - K H) P
	var kh mat.Dense
	kh.Mul(&gain, H)
	ikh := mat.NewDense(kf.dim, kf.dim, nil)
	for i := 0; i < kf.dim; i++ {
		for j := 0; j < kf.dim; j++ {
			v := -kh.At(i, j)
			if i == j {
				v++
			}
			ikh.Set(i, j, v)
		}
	}
	var newP mat.Dense
	newP.Mul(ikh, kf.cov)

	// Re-symmetrize against numerical drift, floor the diagonal so the
	// matrix stays positive-semi-definite, and cap growth.
	for i := 0; i < kf.dim; i++ {
		for j := i; j < kf.dim; j++ {
			v := (newP.At(i, j) + newP.At(j, i)) / 2
			kf.cov.Set(i, j, v)
			kf.cov.Set(j, i, v)
		}
		d := kf.cov.At(i, i)
		if d < kf.tuning.RegularizationEps {
			kf.cov.Set(i, i, kf.tuning.RegularizationEps)
		} else if d > kf.tuning.MaxCovarianceDiag {
			kf.cov.Set(i, i, kf.tuning.MaxCovarianceDiag)
		}
	}

	if !kf.isFiniteLocked() {
		return fmt.Errorf("state vector or covariance is no longer finite")
	}
	return nil
}

// isFiniteLocked reports whether every state element and covariance
// diagonal entry is finite. Guard against numerical instability from
// degenerate inputs.
func (kf *KalmanFilter) isFiniteLocked() bool {
	for i := 0; i < kf.dim; i++ {
		if v := kf.state.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if v := kf.cov.At(i, i); math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// traceLocked returns the covariance trace.
func (kf *KalmanFilter) traceLocked() float64 {
	var tr float64
	for i := 0; i < kf.dim; i++ {
		tr += kf.cov.At(i, i)
	}
	return tr
}

// confidenceLocked derives a confidence in (0, 1] from the mean
// covariance trace over the retained history: lower spread yields
// higher confidence, monotonically decreasing in covariance magnitude.
func (kf *KalmanFilter) confidenceLocked() float64 {
	var meanTrace float64
	if len(kf.traceHistory) > 0 {
		var sum float64
		for _, t := range kf.traceHistory {
			sum += t
		}
		meanTrace = sum / float64(len(kf.traceHistory))
	} else {
		meanTrace = kf.traceLocked()
	}
	if kf.dim == 0 {
		return 0
	}
	return 1 / (1 + meanTrace/float64(kf.dim))
}

// GetFusedData implements Algorithm: a read-only snapshot of the
// current state. Safe to call concurrently with ProcessData.
func (kf *KalmanFilter) GetFusedData() telemetry.FusedData {
	kf.mu.Lock()
	defer kf.mu.Unlock()

	out := telemetry.FusedData{
		TimestampMicros: kf.lastFuseMicros,
		Channels:        make(map[string]float64, kf.dim),
		Confidence:      kf.confidenceLocked(),
	}
	for i, name := range kf.channels {
		out.Channels[name] = kf.state.AtVec(i)
	}
	for dev := range kf.seenDevices {
		out.SourceDevices = append(out.SourceDevices, dev)
	}
	sort.Strings(out.SourceDevices)
	for dt := telemetry.DataType(0); dt < telemetry.NumDataTypes; dt++ {
		if kf.seenTypes[dt] {
			out.SourceTypes = append(out.SourceTypes, dt)
		}
	}
	return out
}

// CovarianceDiagonal returns a copy of the covariance diagonal, for
// tests asserting positive-semi-definiteness.
func (kf *KalmanFilter) CovarianceDiagonal() []float64 {
	kf.mu.Lock()
	defer kf.mu.Unlock()
	diag := make([]float64, kf.dim)
	for i := 0; i < kf.dim; i++ {
		diag[i] = kf.cov.At(i, i)
	}
	return diag
}
