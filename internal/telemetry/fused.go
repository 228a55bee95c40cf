package telemetry

// FusedData is a fusion pipeline's current best estimate. A new record
// supersedes the previous one on every predict/update cycle; the
// registry caches only the latest per pipeline.
type FusedData struct {
	FusionID        string
	TimestampMicros int64

	// Contributing sources.
	SourceDevices []string
	SourceTypes   []DataType

	// Channels maps named output channels (e.g. "gaze_x",
	// "heart_rate_bpm") to fused scalar values.
	Channels map[string]float64

	// Confidence is in [0, 1]; higher means lower estimate spread.
	Confidence float64
}

// Clone returns a deep copy. Fused records cross goroutine boundaries
// via callbacks and caches, so shared slices/maps are never aliased.
func (f FusedData) Clone() FusedData {
	out := f
	out.SourceDevices = append([]string(nil), f.SourceDevices...)
	out.SourceTypes = append([]DataType(nil), f.SourceTypes...)
	if f.Channels != nil {
		out.Channels = make(map[string]float64, len(f.Channels))
		for k, v := range f.Channels {
			out.Channels[k] = v
		}
	}
	return out
}
