package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	GrpcHost  string           `yaml:"grpc_host"`
	GrpcPort  int              `yaml:"grpc_port"`
	Stream    MStreamConfig    `yaml:"stream"`
	Storage   MStorageConfig   `yaml:"storage"`
	Providers MProvidersConfig `yaml:"providers"`
	Cache     MCacheConfig     `yaml:"cache"`
}

type MStreamConfig struct {
	DefaultIntervalSeconds int `yaml:"default_interval_seconds"`
	PingPeriodSeconds      int `yaml:"ping_period_seconds"`
	PongWaitSeconds        int `yaml:"pong_wait_seconds"`
	WriteWaitSeconds       int `yaml:"write_wait_seconds"`
}

// MStorageConfig selects where provider rows come from.
// Backend is one of "csv", "sqlite" or "postgres".
type MStorageConfig struct {
	Backend            string `yaml:"backend"`
	DataDir            string `yaml:"data_dir"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	Schema             string `yaml:"schema"`
}

type MProvidersConfig struct {
	ProductLines       []MProductLine `yaml:"product_lines"`
	Forecast           MDatasetConfig `yaml:"forecast"`
	ProductionOrders   MDatasetConfig `yaml:"production_orders"`
	ProductionSchedule MDatasetConfig `yaml:"production_schedule"`
	ShiftA             MDatasetConfig `yaml:"shift_a"`
	ShiftB             MDatasetConfig `yaml:"shift_b"`
}

// MDatasetConfig describes one date-keyed table. File is used by the csv
// backend (relative to data_dir), Table by the sql backends.
type MDatasetConfig struct {
	File           string `yaml:"file"`
	Table          string `yaml:"table"`
	DateColumn     string `yaml:"date_column"`
	ProductColumn  string `yaml:"product_column,omitempty"`
	QuantityColumn string `yaml:"quantity_column,omitempty"`
}

// MProductLine is a tracked product line: Name is matched case-insensitively
// against the forecast product column, Key is the field in the frame.
type MProductLine struct {
	Name string `yaml:"name" json:"name"`
	Key  string `yaml:"key" json:"key"`
}

type MCacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
}

// GetLogLevel exposes the configured level to the logger.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}
