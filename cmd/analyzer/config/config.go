// Package config provides configuration parsing and management for the
// analyzer.
//
// It handles command-line flags and environment variables, with flags taking
// precedence over environment variables. Physical plant parameters (boiler
// volume, transport delays, detection thresholds) can additionally be loaded
// from a YAML file via --plant-file; a handful of plant flags override the
// file for quick experiments.
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Plant YAML file (plant parameters only)
//  4. Default values
//
// Source-specific configuration is provided via environment variables with
// the SOURCE_ prefix, mirroring how the source factory consumes its generic
// config map. For example: SOURCE_PATH, SOURCE_URL, SOURCE_COLUMN_PATHS.
package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HatiCode/hydronic/pkg/analysis"
	"github.com/HatiCode/hydronic/pkg/tls"
)

// Config holds all analyzer configuration.
type Config struct {
	Listen    string
	LogFormat string
	LogLevel  string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	PostgresDSN   string
	TLS           tls.Config

	Site         string
	Source       string
	SourceConfig map[string]string
	Window       time.Duration
	Interval     time.Duration

	PlantFile string

	// Plant overrides. Zero means "not set": the plant file or the built-in
	// defaults win.
	BoilerVolume        float64
	GradientThreshold   float64
	FallbackBurnerPower float64

	InfluxURL          string
	InfluxToken        string
	InfluxOrg          string
	InfluxBucket       string
	InfluxMeasurement  string
	InfluxOutsideField string
	InfluxRoomField    string
	InfluxMaxAge       time.Duration
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Environment variables are used as fallbacks when flags are not
// provided. Each analyzer instance manages a single site.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8082"), "HTTP listen address")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory, redis, or postgres")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 24*time.Hour), "Redis report TTL")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", getEnv("POSTGRES_DSN", ""), "Postgres connection string (required when storage=postgres)")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable TLS for HTTP server")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for client verification")

	flag.StringVar(&cfg.Site, "site", getEnv("SITE", ""), "Site name (required)")
	flag.StringVar(&cfg.Source, "source", getEnv("SOURCE", ""), "Source kind: csv, http, kafka, or synthetic (required)")
	flag.DurationVar(&cfg.Window, "window", getEnvDuration("WINDOW", 7*24*time.Hour), "Historical window to analyze")
	flag.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", 0), "Analysis loop interval (0 = run once and keep serving)")

	flag.StringVar(&cfg.PlantFile, "plant-file", getEnv("PLANT_FILE", ""), "YAML file with plant parameters")
	flag.Float64Var(&cfg.BoilerVolume, "boiler-volume", getEnvFloat("BOILER_VOLUME", 0), "Boiler volume in liters (overrides plant file)")
	flag.Float64Var(&cfg.GradientThreshold, "gradient-threshold", getEnvFloat("GRADIENT_THRESHOLD", 0), "Burner detection gradient threshold in °C/s (overrides plant file)")
	flag.Float64Var(&cfg.FallbackBurnerPower, "fallback-power", getEnvFloat("FALLBACK_POWER", 0), "Fallback burner power in kW (overrides plant file)")

	flag.StringVar(&cfg.InfluxURL, "influx-url", getEnv("INFLUX_URL", ""), "InfluxDB URL for climate enrichment (empty = disabled)")
	flag.StringVar(&cfg.InfluxToken, "influx-token", getEnv("INFLUX_TOKEN", ""), "InfluxDB API token")
	flag.StringVar(&cfg.InfluxOrg, "influx-org", getEnv("INFLUX_ORG", ""), "InfluxDB organization")
	flag.StringVar(&cfg.InfluxBucket, "influx-bucket", getEnv("INFLUX_BUCKET", ""), "InfluxDB bucket")
	flag.StringVar(&cfg.InfluxMeasurement, "influx-measurement", getEnv("INFLUX_MEASUREMENT", "climate"), "InfluxDB measurement name")
	flag.StringVar(&cfg.InfluxOutsideField, "influx-outside-field", getEnv("INFLUX_OUTSIDE_FIELD", ""), "InfluxDB field for outside temperature")
	flag.StringVar(&cfg.InfluxRoomField, "influx-room-field", getEnv("INFLUX_ROOM_FIELD", ""), "InfluxDB field for averaged room temperature")
	flag.DurationVar(&cfg.InfluxMaxAge, "influx-max-age", getEnvDuration("INFLUX_MAX_AGE", 10*time.Minute), "Max climate reading age to carry forward")

	flag.Parse()

	cfg.SourceConfig = parseSourceConfig()

	if cfg.Site == "" {
		fmt.Fprintln(os.Stderr, "Error: --site is required")
		os.Exit(1)
	}
	if cfg.Source == "" {
		fmt.Fprintln(os.Stderr, "Error: --source is required")
		os.Exit(1)
	}

	return cfg
}

var siteNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// Validate checks the parsed configuration for fatal misconfiguration.
func (c *Config) Validate() error {
	if !siteNameRegex.MatchString(c.Site) {
		return fmt.Errorf("invalid site name %q (must be alphanumeric with dash/underscore, 1-253 chars)", c.Site)
	}

	switch c.Storage {
	case "memory", "redis":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("storage=postgres requires --postgres-dsn")
		}
	default:
		return fmt.Errorf("invalid storage backend %q (must be memory, redis, or postgres)", c.Storage)
	}

	if c.Window <= 0 {
		return fmt.Errorf("window must be > 0")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval cannot be negative")
	}

	if c.InfluxURL != "" && (c.InfluxOutsideField == "" && c.InfluxRoomField == "") {
		return fmt.Errorf("influx enrichment enabled but no fields configured")
	}

	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("tls: %w", err)
	}

	return nil
}

// plantFile is the YAML schema for plant parameters. Pointer fields so
// absent keys keep the built-in defaults.
type plantFile struct {
	NominalPeriod       *duration `yaml:"nominalPeriod"`
	BurnerStartDelay    *duration `yaml:"burnerStartDelay"`
	BurnerStopDelay     *duration `yaml:"burnerStopDelay"`
	GradientThreshold   *float64  `yaml:"gradientThreshold"`
	GradientSmoothing   *duration `yaml:"gradientSmoothing"`
	IdleFlowThreshold   *float64  `yaml:"idleFlowThreshold"`
	MinRunDuration      *duration `yaml:"minRunDuration"`
	FallbackBurnerPower *float64  `yaml:"fallbackBurnerPower"`
	ResidualSmoothing   *duration `yaml:"residualSmoothing"`
	SteadyRoomTolerance *float64  `yaml:"steadyRoomTolerance"`
	SteadyRoomWindow    *duration `yaml:"steadyRoomWindow"`
	SteadyFlowWindow    *duration `yaml:"steadyFlowWindow"`
	SteadyFlowSlope     *float64  `yaml:"steadyFlowSlope"`
	WaterDensity        *float64  `yaml:"waterDensity"`
	WaterSpecificHeat   *float64  `yaml:"waterSpecificHeat"`
	BoilerVolume        *float64  `yaml:"boilerVolume"`
}

// duration is a time.Duration that unmarshals from YAML strings like "60s".
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

// LoadAnalysisConfig builds the pipeline configuration: built-in defaults,
// overlaid by the plant file if configured, overlaid by explicit plant
// flags.
func (c *Config) LoadAnalysisConfig() (analysis.Config, error) {
	plant := analysis.DefaultConfig()

	if c.PlantFile != "" {
		data, err := os.ReadFile(c.PlantFile)
		if err != nil {
			return analysis.Config{}, fmt.Errorf("read plant file: %w", err)
		}

		var pf plantFile
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return analysis.Config{}, fmt.Errorf("parse plant file %q: %w", c.PlantFile, err)
		}
		applyPlantFile(&plant, &pf)
	}

	if c.BoilerVolume > 0 {
		plant.BoilerVolume = c.BoilerVolume
	}
	if c.GradientThreshold > 0 {
		plant.GradientThreshold = c.GradientThreshold
	}
	if c.FallbackBurnerPower > 0 {
		plant.FallbackBurnerPower = c.FallbackBurnerPower
	}

	if err := plant.Validate(); err != nil {
		return analysis.Config{}, fmt.Errorf("plant configuration: %w", err)
	}

	return plant, nil
}

func applyPlantFile(plant *analysis.Config, pf *plantFile) {
	if pf.NominalPeriod != nil {
		plant.NominalPeriod = time.Duration(*pf.NominalPeriod)
	}
	if pf.BurnerStartDelay != nil {
		plant.BurnerStartDelay = time.Duration(*pf.BurnerStartDelay)
	}
	if pf.BurnerStopDelay != nil {
		plant.BurnerStopDelay = time.Duration(*pf.BurnerStopDelay)
	}
	if pf.GradientThreshold != nil {
		plant.GradientThreshold = *pf.GradientThreshold
	}
	if pf.GradientSmoothing != nil {
		plant.GradientSmoothing = time.Duration(*pf.GradientSmoothing)
	}
	if pf.IdleFlowThreshold != nil {
		plant.IdleFlowThreshold = *pf.IdleFlowThreshold
	}
	if pf.MinRunDuration != nil {
		plant.MinRunDuration = time.Duration(*pf.MinRunDuration)
	}
	if pf.FallbackBurnerPower != nil {
		plant.FallbackBurnerPower = *pf.FallbackBurnerPower
	}
	if pf.ResidualSmoothing != nil {
		plant.ResidualSmoothing = time.Duration(*pf.ResidualSmoothing)
	}
	if pf.SteadyRoomTolerance != nil {
		plant.SteadyRoomTolerance = *pf.SteadyRoomTolerance
	}
	if pf.SteadyRoomWindow != nil {
		plant.SteadyRoomWindow = time.Duration(*pf.SteadyRoomWindow)
	}
	if pf.SteadyFlowWindow != nil {
		plant.SteadyFlowWindow = time.Duration(*pf.SteadyFlowWindow)
	}
	if pf.SteadyFlowSlope != nil {
		plant.SteadyFlowSlope = *pf.SteadyFlowSlope
	}
	if pf.WaterDensity != nil {
		plant.WaterDensity = *pf.WaterDensity
	}
	if pf.WaterSpecificHeat != nil {
		plant.WaterSpecificHeat = *pf.WaterSpecificHeat
	}
	if pf.BoilerVolume != nil {
		plant.BoilerVolume = *pf.BoilerVolume
	}
}

// parseSourceConfig parses SOURCE_* environment variables into the generic
// configuration map consumed by the source factory. Environment variable
// names are converted to camelCase for the map keys (SOURCE_COLUMN_PATHS →
// columnPaths).
func parseSourceConfig() map[string]string {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		if len(env) > 7 && env[:7] == "SOURCE_" {
			parts := splitEnv(env)
			if len(parts) == 2 {
				key := toLowerCamelCase(parts[0][7:])
				config[key] = parts[1]
			}
		}
	}

	return config
}

func splitEnv(env string) []string {
	for i := 0; i < len(env); i++ {
		if env[i] == '=' {
			return []string{env[:i], env[i+1:]}
		}
	}
	return []string{env}
}

func toLowerCamelCase(s string) string {
	if s == "" {
		return s
	}
	parts := []rune(s)
	result := make([]rune, 0, len(parts))
	nextUpper := false
	for i, r := range parts {
		if r == '_' {
			nextUpper = true
			continue
		}
		if i == 0 {
			result = append(result, toLower(r))
		} else if nextUpper {
			result = append(result, r)
			nextUpper = false
		} else {
			result = append(result, toLower(r))
		}
	}
	return string(result)
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + 32
	}
	return r
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
