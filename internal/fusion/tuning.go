package fusion

import "github.com/banshee-data/cockpit.fusion/internal/config"

// TuningFromConfig builds a Tuning from a loaded TuningConfig. Use
// this in production code where the tuning file is already loaded;
// DefaultTuning covers tests and ad-hoc construction.
func TuningFromConfig(cfg *config.TuningConfig) Tuning {
	return Tuning{
		ProcessNoise:         cfg.GetProcessNoise(),
		MeasurementNoise:     cfg.GetMeasurementNoise(),
		DriftRate:            cfg.GetDriftRate(),
		MinPredictIntervalUs: cfg.GetMinPredictIntervalUs(),
		InitialVariance:      cfg.GetInitialVariance(),
		MaxCovarianceDiag:    cfg.GetMaxCovarianceDiag(),
		RegularizationEps:    cfg.GetRegularizationEps(),
	}
}
