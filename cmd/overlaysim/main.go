// overlaysim drives the overlay engine against a simulated host map:
// it loads routes, attaches the overlay, flies the camera around, and
// reports frame rate statistics. It exists to exercise the full stack
// without a real rendering host.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/yairtitelboim/Maps-sub002/internal/clock"
	"github.com/yairtitelboim/Maps-sub002/internal/config"
	"github.com/yairtitelboim/Maps-sub002/internal/core"
	"github.com/yairtitelboim/Maps-sub002/internal/events"
	"github.com/yairtitelboim/Maps-sub002/internal/frameloop"
	"github.com/yairtitelboim/Maps-sub002/internal/geo"
	"github.com/yairtitelboim/Maps-sub002/internal/hostmap"
	"github.com/yairtitelboim/Maps-sub002/internal/influx"
	"github.com/yairtitelboim/Maps-sub002/internal/layer"
	"github.com/yairtitelboim/Maps-sub002/internal/logging"
	"github.com/yairtitelboim/Maps-sub002/internal/monitor"
	intOtel "github.com/yairtitelboim/Maps-sub002/internal/otel"
	"github.com/yairtitelboim/Maps-sub002/internal/overlay"
	"github.com/yairtitelboim/Maps-sub002/internal/routes"
	"github.com/yairtitelboim/Maps-sub002/internal/scheduler"
)

// Version can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"

	EngineName = "overlaysim"
)

var (
	SessionStartTime = time.Now()

	LogFilePath string
	LogFile     *os.File

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// zlog is the zerolog logger used by the event-driven components
	zlog zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider
)

func init() {
	var err error

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	if err = config.Load("."); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	LogFilePath = logging.LogFilePath(logsDir, EngineName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	// OTel provider if enabled (after the log file exists)
	if viper.GetBool("otel.enabled") {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  EngineName,
			BatchTimeout: 5 * time.Second,
			LogWriter:    LogFile,
			Endpoint:     viper.GetString("otel.endpoint"),
			Insecure:     viper.GetBool("otel.insecure"),
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath)
		}
	}

	// Re-setup logging with file output, session context, and optional OTel
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.String("session", SessionStartTime.Format("20060102_150405"))}
	})
	SlogManager.Setup(LogFile, viper.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)

	zlog = setupZerolog(LogFile)
}

// setupZerolog builds the zerolog logger shared by the event bus,
// scheduler, and stores: console with colors, file without, optional
// GELF to Graylog.
func setupZerolog(file *os.File) zerolog.Logger {
	var level zerolog.Level
	switch strings.ToUpper(viper.GetString("logLevel")) {
	case "DEBUG":
		level = zerolog.DebugLevel
	case "INFO":
		level = zerolog.InfoLevel
	case "WARN":
		level = zerolog.WarnLevel
	case "ERROR":
		level = zerolog.ErrorLevel
	case "TRACE":
		level = zerolog.TraceLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	if viper.GetBool("graylog.enabled") {
		gelfWriter, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Error("Failed to connect GELF writer", "error", err)
		} else {
			writers = append(writers, gelfWriter)
		}
	}

	mlw := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(mlw).With().Timestamp().Str("version", Version).Logger()
}

// engine bundles every running service for wiring and shutdown.
type engine struct {
	bus     *events.Bus
	loop    *frameloop.Loop
	sim     *hostmap.Sim
	mgr     *overlay.Manager
	sched   *scheduler.Scheduler
	monitor *monitor.Service
	influx  *influx.Manager
	store   routes.Store
}

func buildEngine() (*engine, error) {
	bus, err := events.New(logging.NewBusLogger(zlog))
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}

	loop := frameloop.New(config.GetFrameInterval())

	sim := hostmap.NewSim(zlog, bus,
		hostmap.WithInitialView(core.ViewState{Longitude: -71.06, Latitude: 42.36, Zoom: 12}),
		hostmap.WithReadyAfter(300*time.Millisecond),
	)

	schedCfg := config.GetSchedulerConfig()
	perfCfg := config.GetPerfConfig()

	var influxManager *influx.Manager
	if viper.GetBool("influx.enabled") {
		backupPath := logging.LogFilePath(viper.GetString("logsDir"), "influx_backup", SessionStartTime) + ".gz"
		influxManager = influx.NewManager(zlog, backupPath)
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable", "error", err)
		}
	}

	monitorService := monitor.NewService(monitor.Dependencies{
		LogManager: SlogManager,
		Influx:     influxManager,
		Session:    SessionStartTime.Format("20060102_150405"),
		StatusDir:  viper.GetString("logsDir"),
	}, monitor.Config{
		SampleInterval:   time.Second,
		LowThreshold:     perfCfg.LowFPSThreshold,
		RecoverThreshold: perfCfg.RecoverFPSThreshold,
	})

	sched, err := scheduler.New(zlog, loop, scheduler.Config{
		BatchSize:    schedCfg.BatchSize,
		BatchDelay:   schedCfg.BatchDelay,
		StaggerDelay: schedCfg.StaggerDelay,
	}, scheduler.WithDegraded(monitorService.Degraded))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	pulseCfg := config.GetPulseConfig()
	tripCfg := config.GetTripConfig()

	registry := layer.NewRegistry(
		layer.PulseParams{
			ID:        "pulse-origin",
			Position:  geo.MercatorFromLonLat(-71.06, 42.36),
			Color:     core.Color{R: 255, G: 64, B: 64, A: 200},
			RadiusMin: pulseCfg.RadiusMin,
			RadiusMax: pulseCfg.RadiusMax,
		},
		layer.TripParams{
			ID:          "flow-routes",
			Color:       core.Color{G: 200, B: 255, A: 255},
			TrailLength: tripCfg.TrailLength,
			LoopLength:  tripCfg.LoopLength,
		},
	)

	store, err := routes.New(zlog, config.GetRoutesConfig())
	if err != nil {
		return nil, fmt.Errorf("routes store: %w", err)
	}
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("routes store init: %w", err)
	}
	if err := loadTrips(store, registry, tripCfg); err != nil {
		Logger.Warn("Route data unavailable, flow layer starts empty", "error", err)
	}

	mgr, err := overlay.NewManager(overlay.Dependencies{
		Log:      zlog,
		Loop:     loop,
		Host:     sim,
		Bus:      bus,
		Registry: registry,
		Sched:    sched,
		Monitor:  monitorService,
		Pulse: &clock.PulseClock{
			Period: pulseCfg.Period,
			Min:    pulseCfg.RadiusMin,
			Max:    pulseCfg.RadiusMax,
		},
		Trip: &clock.TripClock{LoopLength: tripCfg.LoopLength},
	}, overlay.Config{ReadyTimeout: config.GetReadyTimeout()})
	if err != nil {
		return nil, fmt.Errorf("overlay manager: %w", err)
	}

	monitorService.OnTransition(func(degraded bool) {
		if degraded {
			Logger.Warn("Frame rate degraded, shedding low-priority animation work")
		} else {
			Logger.Info("Frame rate recovered")
		}
	})

	mgr.OnCleanup(func(d overlay.CleanupDetail) {
		if d.Status == overlay.StatusFailed {
			Logger.Error("Overlay attach failed", "reason", d.Reason, "message", d.Message)
		} else {
			Logger.Info("Overlay lifecycle ended", "status", string(d.Status), "degradedStart", d.DegradedStart)
		}
		if influxManager != nil {
			bucket, point := influx.LifecyclePoint(
				SessionStartTime.Format("20060102_150405"), string(d.Status), time.Now())
			influxManager.WritePoint(context.Background(), bucket, point)
		}
	})

	return &engine{
		bus:     bus,
		loop:    loop,
		sim:     sim,
		mgr:     mgr,
		sched:   sched,
		monitor: monitorService,
		influx:  influxManager,
		store:   store,
	}, nil
}

// loadTrips reads routes from the store, seeding the demo set when the
// store is empty, and installs the built trip particles.
func loadTrips(store routes.Store, registry *layer.Registry, tripCfg config.TripConfig) error {
	loaded, err := routes.Load(zlog, store)
	if err != nil {
		return err
	}
	if len(loaded) == 0 {
		Logger.Info("No routes in store, seeding demo routes")
		if err := seedDemoRoutes(store); err != nil {
			return err
		}
		loaded, err = routes.Load(zlog, store)
		if err != nil {
			return err
		}
	}

	trips, skipped := geo.BuildTrips(loaded, geo.TripConfig{
		SpeedUnitsPerSecond: tripCfg.SpeedUnitsPerSecond,
		TrailLength:         tripCfg.TrailLength,
		LoopLength:          tripCfg.LoopLength,
	})
	registry.SetTrips(trips)
	Logger.Info("Routes loaded", "routes", len(loaded), "trips", len(trips), "skipped", skipped)
	return nil
}

func (e *engine) start() {
	e.loop.Start()
	if err := e.monitor.Start(); err != nil {
		Logger.Error("Failed to start monitor", "error", err)
	}
}

func (e *engine) shutdown() {
	Logger.Info("Shutting down")

	e.mgr.Detach()
	time.Sleep(100 * time.Millisecond) // let the detach drain on the loop

	e.monitor.Stop()
	e.sched.Clear()
	e.loop.Stop()

	if e.influx != nil {
		e.influx.Close()
	}
	if err := e.store.Close(); err != nil {
		Logger.Error("Error closing routes store", "error", err)
	}
}

func main() {
	Logger.Info("Starting up...", "version", Version, "buildDate", BuildDate)

	eng, err := buildEngine()
	if err != nil {
		Logger.Error("Engine construction failed", "error", err)
		os.Exit(1)
	}
	eng.start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	args := os.Args[1:]
	mode := "demo"
	if len(args) > 0 {
		mode = strings.ToLower(args[0])
	}

	done := make(chan struct{})
	switch mode {
	case "demo":
		go func() {
			defer close(done)
			runDemo(eng)
		}()
	case "seed":
		if err := seedDemoRoutes(eng.store); err != nil {
			Logger.Error("Seeding failed", "error", err)
		} else {
			Logger.Info("Demo routes seeded")
		}
		close(done)
	default:
		fmt.Printf("unknown mode %q, expected demo or seed\n", mode)
		close(done)
	}

	select {
	case <-sigCh:
		Logger.Info("Signal received")
	case <-done:
	}

	eng.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		LogFile.Close()
	}
}
