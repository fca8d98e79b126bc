package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scm-scheduler/src/helpers"
	"scm-scheduler/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Environment overrides, read from the process and from a .env file next to
// the YAML config. The process environment wins.
const (
	EnvHost        = "SCM_HOST"
	EnvPort        = "SCM_PORT"
	EnvGrpcPort    = "SCM_GRPC_PORT"
	EnvLogLevel    = "SCM_LOG_LEVEL"
	EnvBackend     = "SCM_STORAGE_BACKEND"
	EnvDataDir     = "SCM_DATA_DIR"
	EnvDBPath      = "SCM_DB_PATH"
	EnvDBDSN       = "SCM_DB_DSN"
	EnvRedisAddr   = "SCM_REDIS_ADDR"
	EnvCacheEnable = "SCM_CACHE_ENABLED"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, configError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, configError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	// 3. Overlay .env and process environment
	envFile := filepath.Join(filepath.Dir(configPath), ".env")
	if err := config.ApplyEnv(envFile); err != nil {
		return nil, configError("failed to apply environment", err)
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, configError("config validation failed", err)
	}

	return config, nil
}

func configError(message string, cause error) *helpers.ConfigurationError {
	return &helpers.ConfigurationError{SchedulerError: helpers.SchedulerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

// Default returns the stock configuration reading CSV datasets from dataDir.
func Default(dataDir string) *Config {
	c := &Config{MConfig: &models.MConfig{
		Name:    "scm-scheduler",
		Host:    "0.0.0.0",
		Port:    5000,
		Storage: models.MStorageConfig{Backend: BackendCSV, DataDir: dataDir},
	}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every unset field with the stock dataset layout.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = 50051
	}

	s := &c.Stream
	if s.DefaultIntervalSeconds <= 0 {
		s.DefaultIntervalSeconds = 1
	}
	if s.PongWaitSeconds <= 0 {
		s.PongWaitSeconds = 60
	}
	if s.PingPeriodSeconds <= 0 {
		s.PingPeriodSeconds = s.PongWaitSeconds * 9 / 10
	}
	if s.WriteWaitSeconds <= 0 {
		s.WriteWaitSeconds = 2
	}

	st := &c.Storage
	if st.Backend == "" {
		st.Backend = BackendCSV
	}
	if st.DataDir == "" {
		st.DataDir = "Data"
	}
	if st.Schema == "" {
		st.Schema = "scheduling"
	}

	p := &c.Providers
	if len(p.ProductLines) == 0 {
		p.ProductLines = []models.MProductLine{
			{Name: "Blue Pump"},
			{Name: "Green Pump"},
			{Name: "Orange Pump"},
		}
	}
	for i := range p.ProductLines {
		if p.ProductLines[i].Key == "" {
			p.ProductLines[i].Key = ProductKey(p.ProductLines[i].Name)
		}
	}

	fillDataset(&p.Forecast, "all_pump_forecasts.csv", "vw_all_pump_forecasts_updated", "Date")
	if p.Forecast.ProductColumn == "" {
		p.Forecast.ProductColumn = "PRODUCT_NAME"
	}
	if p.Forecast.QuantityColumn == "" {
		p.Forecast.QuantityColumn = "Forecasted_Demand"
	}
	fillDataset(&p.ProductionOrders, "production_orders.csv", "vw_production_orders", "Date")
	fillDataset(&p.ProductionSchedule, "production_schedule.csv", "vw_production_schedule", "Scheduled_Date")
	if p.ProductionSchedule.QuantityColumn == "" {
		p.ProductionSchedule.QuantityColumn = "Scheduled_Quantity"
	}
	fillDataset(&p.ShiftA, "station_schedule_shift_a.csv", "vw_station_schedule_shift_a", "Scheduled_Date")
	fillDataset(&p.ShiftB, "station_schedule_shift_b.csv", "vw_station_schedule_shift_b", "Scheduled_Date")

	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 300
	}
}

// -----------------------------------------------------------------------------

func fillDataset(d *models.MDatasetConfig, file, table, dateColumn string) {
	if d.File == "" {
		d.File = file
	}
	if d.Table == "" {
		d.Table = table
	}
	if d.DateColumn == "" {
		d.DateColumn = dateColumn
	}
}

// -----------------------------------------------------------------------------

// ProductKey turns "Blue Pump" into "blue_pump".
func ProductKey(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "_")
}

// -----------------------------------------------------------------------------

// ApplyEnv overlays SCM_* variables. A missing envFile is not an error.
func (c *Config) ApplyEnv(envFile string) error {
	fileEnv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read env file '%s': %w", envFile, err)
		}
		fileEnv = map[string]string{}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}

	if v, ok := lookup(EnvHost); ok {
		c.Host = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvBackend); ok {
		c.Storage.Backend = v
	}
	if v, ok := lookup(EnvDataDir); ok {
		c.Storage.DataDir = v
	}
	if v, ok := lookup(EnvDBPath); ok {
		c.Storage.DBPath = v
	}
	if v, ok := lookup(EnvDBDSN); ok {
		c.Storage.DBConnectionString = v
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		c.Cache.RedisAddr = v
	}
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvGrpcPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvGrpcPort, v, err)
		}
		c.GrpcPort = port
	}
	if v, ok := lookup(EnvCacheEnable); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCacheEnable, v, err)
		}
		c.Cache.Enabled = enabled
	}
	return nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Stream
	if c.Stream.DefaultIntervalSeconds < 1 {
		return fmt.Errorf("default interval must be at least 1 second")
	}
	if c.Stream.PingPeriodSeconds >= c.Stream.PongWaitSeconds {
		return fmt.Errorf("ping period (%ds) must be shorter than pong wait (%ds)", c.Stream.PingPeriodSeconds, c.Stream.PongWaitSeconds)
	}

	// Storage
	switch c.Storage.Backend {
	case BackendCSV:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("data directory cannot be empty for csv")
		}
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case BackendPostgres:
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	// Providers
	seen := make(map[string]bool)
	for i, pl := range c.Providers.ProductLines {
		if pl.Name == "" || pl.Key == "" {
			return fmt.Errorf("product line %d must have a name and key", i)
		}
		if seen[pl.Key] {
			return fmt.Errorf("duplicate product line key %q", pl.Key)
		}
		seen[pl.Key] = true
	}
	if c.Providers.Forecast.ProductColumn == "" || c.Providers.Forecast.QuantityColumn == "" {
		return fmt.Errorf("forecast dataset needs product and quantity columns")
	}
	if c.Providers.ProductionSchedule.QuantityColumn == "" {
		return fmt.Errorf("production schedule dataset needs a quantity column")
	}
	for name, ds := range c.Datasets() {
		if ds.DateColumn == "" {
			return fmt.Errorf("dataset %s needs a date column", name)
		}
	}

	// Cache
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty when cache is enabled")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Datasets returns the five date-keyed datasets by provider name.
func (c *Config) Datasets() map[string]models.MDatasetConfig {
	p := c.Providers
	return map[string]models.MDatasetConfig{
		models.ProviderForecast:           p.Forecast,
		models.ProviderProductionOrders:   p.ProductionOrders,
		models.ProviderProductionSchedule: p.ProductionSchedule,
		models.ProviderShiftA:             p.ShiftA,
		models.ProviderShiftB:             p.ShiftB,
	}
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
