// fusiond is the cockpit fusion daemon: it ingests device telemetry
// over UDP (JSON frames), runs the configured fusion pipelines, and
// serves live and historical data over gRPC.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/cockpit.fusion/internal/config"
	"github.com/banshee-data/cockpit.fusion/internal/devices"
	"github.com/banshee-data/cockpit.fusion/internal/fusion"
	"github.com/banshee-data/cockpit.fusion/internal/fusion/stream"
	"github.com/banshee-data/cockpit.fusion/internal/storage"
	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
	"github.com/banshee-data/cockpit.fusion/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to tuning config JSON (defaults apply when empty)")
	dbFile        = flag.String("db", "fusion_data.db", "Path to the SQLite session database")
	migrationsDir = flag.String("migrations", "migrations", "Path to the schema migrations directory")
	runMigrations = flag.Bool("migrate", false, "Apply pending schema migrations at startup")
	listenAddr    = flag.String("listen", "", "gRPC listen address (overrides config)")
	udpPort       = flag.Int("udp-port", 9901, "UDP port to listen for telemetry frames")
	udpAddress    = flag.String("udp-addr", "", "UDP bind address (default: all interfaces)")
	rcvBuf        = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes")
	fusionAlg     = flag.String("fusion-algorithm", "kalman_filter", "Algorithm for the startup pipeline")
	fusionDevices = flag.String("fusion-devices", "", "Comma-separated device IDs for a startup pipeline")
	fusionTypes   = flag.String("fusion-types", "", "Comma-separated data types for a startup pipeline")
	synthetic     = flag.Bool("synthetic", false, "Generate synthetic bench telemetry instead of listening for devices")
	syntheticHz   = flag.Float64("synthetic-rate", 60, "Synthetic sample rate per data type in Hz")
	showVersion   = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("fusiond %s (commit %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	log.Printf("Starting fusiond %s (commit %s)", version.Version, version.GitSHA)

	cfg := &config.TuningConfig{}
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid tuning config: %v", err)
	}

	store, err := storage.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open session database: %v", err)
	}
	defer store.Close()

	if *runMigrations {
		if err := store.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Migrations failed: %v", err)
		}
		schemaVersion, dirty, err := store.MigrateVersion(*migrationsDir)
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		log.Printf("Database at migration version %d (dirty=%v)", schemaVersion, dirty)
	}

	catalogue := devices.NewCatalogue(devices.DefaultDevices())

	registry := fusion.NewRegistry(fusion.TuningFromConfig(cfg))
	registry.SetPipelineDefaults(cfg.GetDefaultSampleRateHz(), cfg.GetDefaultBufferSize())
	defer registry.Close()

	grpcAddr := cfg.GetStreamListenAddr()
	if *listenAddr != "" {
		grpcAddr = *listenAddr
	}
	publisher := stream.NewPublisher(stream.Config{
		ListenAddr: grpcAddr,
		MaxClients: cfg.GetMaxStreamClients(),
		QueueDepth: cfg.GetStreamQueueDepth(),
	})
	registry.SetObserver(publisher)

	server := stream.NewServer(publisher, store, catalogue, cfg.GetRecordingBasePath())
	stream.RegisterTelemetryServiceServer(publisher.GRPCServer(), server)

	if err := publisher.Start(); err != nil {
		log.Fatalf("Failed to start gRPC publisher: %v", err)
	}
	defer publisher.Stop()

	if *fusionTypes != "" {
		if err := createStartupPipeline(registry); err != nil {
			log.Fatalf("Failed to create startup pipeline: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if *synthetic {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runSynthetic(ctx, registry, catalogue, *syntheticHz)
		}()
	} else {
		udpListenAddr := fmt.Sprintf("%s:%d", *udpAddress, *udpPort)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listenUDP(ctx, registry, catalogue, udpListenAddr); err != nil && err != context.Canceled {
				log.Printf("UDP listener error: %v", err)
			}
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// createStartupPipeline builds one pipeline from the -fusion-* flags.
func createStartupPipeline(registry *fusion.Registry) error {
	kind := fusion.ParseAlgorithmKind(*fusionAlg)
	var types []telemetry.DataType
	for _, s := range strings.Split(*fusionTypes, ",") {
		t := telemetry.ParseDataType(strings.TrimSpace(s))
		if !t.Valid() {
			return fmt.Errorf("unknown data type %q", s)
		}
		types = append(types, t)
	}
	var deviceIDs []string
	if *fusionDevices != "" {
		for _, s := range strings.Split(*fusionDevices, ",") {
			deviceIDs = append(deviceIDs, strings.TrimSpace(s))
		}
	}

	id, err := registry.CreateFusion(fusion.Config{
		Algorithm:    kind,
		InputDevices: deviceIDs,
		DataTypes:    types,
	})
	if err != nil {
		return err
	}
	log.Printf("Startup pipeline %s: algorithm=%s devices=%v types=%v", id, kind, deviceIDs, types)
	return nil
}

// listenUDP receives JSON-framed telemetry samples and feeds them to
// the fusion registry. One frame per datagram.
func listenUDP(ctx context.Context, registry *fusion.Registry, catalogue *devices.Catalogue, address string) error {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(*rcvBuf); err != nil {
		log.Printf("Warning: failed to set UDP receive buffer to %d bytes: %v", *rcvBuf, err)
	}
	log.Printf("Listening for telemetry frames on %s", address)

	var received, rejected int64
	lastLog := time.Now()

	// Sized for the largest expected frame (video frames dominate).
	buffer := make([]byte, 64*1024)

	for {
		select {
		case <-ctx.Done():
			log.Println("UDP listener shutting down")
			return ctx.Err()
		default:
			if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
				log.Printf("Error setting read deadline: %v", err)
				continue
			}
			n, _, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				log.Printf("Error reading UDP frame: %v", err)
				continue
			}

			var sample telemetry.Sample
			if err := json.Unmarshal(buffer[:n], &sample); err != nil {
				rejected++
				if rejected%100 == 1 {
					log.Printf("Rejected telemetry frame (%d total): %v", rejected, err)
				}
				continue
			}
			if sample.TimestampMicros == 0 {
				sample.TimestampMicros = time.Now().UnixMicro()
			}
			if !sample.Validate() {
				rejected++
				continue
			}

			catalogue.SetConnected(sample.DeviceID, true, "udp")
			registry.ProcessData(sample)
			received++

			if elapsed := time.Since(lastLog); elapsed >= 10*time.Second {
				log.Printf("Telemetry ingest: %.1f samples/sec, %d rejected",
					float64(received)/elapsed.Seconds(), rejected)
				received, rejected = 0, 0
				lastLog = time.Now()
			}
		}
	}
}
