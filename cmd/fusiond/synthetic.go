package main

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/banshee-data/cockpit.fusion/internal/devices"
	"github.com/banshee-data/cockpit.fusion/internal/fusion"
	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// runSynthetic drives the registry with a plausible bench scenario:
// smooth gaze scanning, slow heart-rate drift and a gentle left-hand
// orbit from the simulator. Useful for exercising pipelines and stream
// clients without hardware attached.
func runSynthetic(ctx context.Context, registry *fusion.Registry, catalogue *devices.Catalogue, rateHz float64) {
	if rateHz <= 0 {
		rateHz = 60
	}
	interval := time.Duration(float64(time.Second) / rateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, id := range []string{"eyetracker-01", "hrm-01", "sim-01"} {
		catalogue.SetConnected(id, true, "synthetic")
	}
	log.Printf("Synthetic telemetry at %.1f Hz per data type", rateHz)

	start := time.Now()
	var hrCountdown time.Duration

	for {
		select {
		case <-ctx.Done():
			log.Println("Synthetic generator shutting down")
			return
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			ts := now.UnixMicro()

			registry.ProcessData(telemetry.Sample{
				DeviceID:        "eyetracker-01",
				Type:            telemetry.DataTypeGaze,
				TimestampMicros: ts,
				Payload: telemetry.GazeData{
					X:          0.5 + 0.3*math.Sin(2*math.Pi*0.2*t),
					Y:          0.5 + 0.2*math.Sin(2*math.Pi*0.31*t),
					Confidence: 0.95,
				},
			})
			registry.ProcessData(telemetry.Sample{
				DeviceID:        "eyetracker-01",
				Type:            telemetry.DataTypePupil,
				TimestampMicros: ts,
				Payload: telemetry.PupilData{
					LeftDiameterMM:  3.5 + 0.4*math.Sin(2*math.Pi*0.05*t),
					RightDiameterMM: 3.6 + 0.4*math.Sin(2*math.Pi*0.05*t+0.1),
					Confidence:      0.9,
				},
			})

			// Heart rate updates once a second regardless of the tick rate.
			hrCountdown -= interval
			if hrCountdown <= 0 {
				hrCountdown = time.Second
				registry.ProcessData(telemetry.Sample{
					DeviceID:        "hrm-01",
					Type:            telemetry.DataTypeHeartRate,
					TimestampMicros: ts,
					Payload: telemetry.HeartRateData{
						BPM:        72 + 6*math.Sin(2*math.Pi*0.02*t),
						Confidence: 1.0,
					},
				})
			}

			headingRad := 2 * math.Pi * 0.01 * t
			registry.ProcessData(telemetry.Sample{
				DeviceID:        "sim-01",
				Type:            telemetry.DataTypeSimPosition,
				TimestampMicros: ts,
				Payload: telemetry.SimPositionData{
					X:     2000 * math.Cos(headingRad),
					Y:     2000 * math.Sin(headingRad),
					Z:     1500,
					Roll:  -15,
					Pitch: 1.5,
					Yaw:   math.Mod(headingRad*180/math.Pi+90, 360),
				},
			})
			registry.ProcessData(telemetry.Sample{
				DeviceID:        "sim-01",
				Type:            telemetry.DataTypeSimControl,
				TimestampMicros: ts,
				Payload: telemetry.SimControlData{
					Aileron:  -0.1 + 0.02*math.Sin(2*math.Pi*0.5*t),
					Elevator: 0.05,
					Rudder:   0,
					Throttle: 0.65,
				},
			})
			registry.ProcessData(telemetry.Sample{
				DeviceID:        "sim-01",
				Type:            telemetry.DataTypeSimInstrument,
				TimestampMicros: ts,
				Payload: telemetry.SimInstrumentData{
					AirspeedKts:      110 + 2*math.Sin(2*math.Pi*0.1*t),
					AltitudeFt:       4900 + 30*math.Sin(2*math.Pi*0.03*t),
					HeadingDeg:       math.Mod(headingRad*180/math.Pi+90, 360),
					VerticalSpeedFpm: 50 * math.Sin(2*math.Pi*0.03*t),
				},
			})
		}
	}
}
