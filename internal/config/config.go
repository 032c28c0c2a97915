package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SchedulerConfig holds animation scheduler batching settings.
type SchedulerConfig struct {
	BatchSize    int           `json:"batchSize" mapstructure:"batchSize"`
	BatchDelay   time.Duration `json:"batchDelay" mapstructure:"batchDelay"`
	StaggerDelay time.Duration `json:"staggerDelay" mapstructure:"staggerDelay"`
}

// PerfConfig holds performance monitor thresholds.
type PerfConfig struct {
	LowFPSThreshold     float64 `json:"lowFpsThreshold" mapstructure:"lowFpsThreshold"`
	RecoverFPSThreshold float64 `json:"recoverFpsThreshold" mapstructure:"recoverFpsThreshold"`
}

// PulseConfig holds pulse-circle animation settings.
type PulseConfig struct {
	Period    time.Duration `json:"period" mapstructure:"period"`
	RadiusMin float64       `json:"radiusMin" mapstructure:"radiusMin"`
	RadiusMax float64       `json:"radiusMax" mapstructure:"radiusMax"`
}

// TripConfig holds flow-trips animation settings.
type TripConfig struct {
	LoopLength  float64 `json:"loopLength" mapstructure:"loopLength"`
	TrailLength float64 `json:"trailLength" mapstructure:"trailLength"`
	// SpeedUnitsPerSecond converts path distance into trip timestamps.
	SpeedUnitsPerSecond float64 `json:"speedUnitsPerSecond" mapstructure:"speedUnitsPerSecond"`
}

// RoutesConfig holds geometry-data source settings.
type RoutesConfig struct {
	Type string `json:"type" mapstructure:"type"`
	Path string `json:"path" mapstructure:"path"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./overlaylogs")

	viper.SetDefault("frame.intervalMs", 16)

	viper.SetDefault("overlay.readyTimeoutMs", 2000)

	viper.SetDefault("scheduler.batchSize", 3)
	viper.SetDefault("scheduler.batchDelayMs", 50)
	viper.SetDefault("scheduler.staggerDelayMs", 10)

	viper.SetDefault("perf.lowFpsThreshold", 30.0)
	viper.SetDefault("perf.recoverFpsThreshold", 30.0)

	viper.SetDefault("animation.pulse.periodMs", 2000)
	viper.SetDefault("animation.pulse.radiusMin", 50.0)
	viper.SetDefault("animation.pulse.radiusMax", 200.0)

	viper.SetDefault("animation.trip.loopLength", 1800.0)
	viper.SetDefault("animation.trip.trailLength", 180.0)
	viper.SetDefault("animation.trip.speedUnitsPerSecond", 120.0)

	viper.SetDefault("routes.type", "memory")
	viper.SetDefault("routes.path", "./routes.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "overlay")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "overlay-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("overlay.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetSchedulerConfig returns the animation scheduler settings.
func GetSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BatchSize:    viper.GetInt("scheduler.batchSize"),
		BatchDelay:   time.Duration(viper.GetInt("scheduler.batchDelayMs")) * time.Millisecond,
		StaggerDelay: time.Duration(viper.GetInt("scheduler.staggerDelayMs")) * time.Millisecond,
	}
}

// GetPerfConfig returns the performance monitor thresholds.
func GetPerfConfig() PerfConfig {
	return PerfConfig{
		LowFPSThreshold:     viper.GetFloat64("perf.lowFpsThreshold"),
		RecoverFPSThreshold: viper.GetFloat64("perf.recoverFpsThreshold"),
	}
}

// GetPulseConfig returns the pulse animation settings.
func GetPulseConfig() PulseConfig {
	return PulseConfig{
		Period:    time.Duration(viper.GetInt("animation.pulse.periodMs")) * time.Millisecond,
		RadiusMin: viper.GetFloat64("animation.pulse.radiusMin"),
		RadiusMax: viper.GetFloat64("animation.pulse.radiusMax"),
	}
}

// GetTripConfig returns the flow-trips animation settings.
func GetTripConfig() TripConfig {
	return TripConfig{
		LoopLength:          viper.GetFloat64("animation.trip.loopLength"),
		TrailLength:         viper.GetFloat64("animation.trip.trailLength"),
		SpeedUnitsPerSecond: viper.GetFloat64("animation.trip.speedUnitsPerSecond"),
	}
}

// GetRoutesConfig returns the geometry-data source settings.
func GetRoutesConfig() RoutesConfig {
	return RoutesConfig{
		Type: viper.GetString("routes.type"),
		Path: viper.GetString("routes.path"),
	}
}

// GetReadyTimeout returns the host-map readiness timeout.
func GetReadyTimeout() time.Duration {
	return time.Duration(viper.GetInt("overlay.readyTimeoutMs")) * time.Millisecond
}

// GetFrameInterval returns the frame loop tick interval.
func GetFrameInterval() time.Duration {
	return time.Duration(viper.GetInt("frame.intervalMs")) * time.Millisecond
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
