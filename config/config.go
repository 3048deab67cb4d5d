package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type GRPC struct {
	Addr             string        `yaml:"addr"`
	ProbeIntervalRaw string        `yaml:"probeInterval"` // 10s
	ProbeInterval    time.Duration `yaml:"-"`
}

type HTTP struct {
	Addr               string        `yaml:"addr"`
	CORSOrigins        []string      `yaml:"corsOrigins"`
	ReadTimeoutRaw     string        `yaml:"readTimeout"`     // 15s
	IdleTimeoutRaw     string        `yaml:"idleTimeout"`     // 60s
	ShutdownTimeoutRaw string        `yaml:"shutdownTimeout"` // 10s
	ReadTimeout        time.Duration `yaml:"-"`
	IdleTimeout        time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // interview-room
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type JWT struct {
	Secret       string        `yaml:"secret"`
	Issuer       string        `yaml:"issuer"`
	ClockSkewRaw string        `yaml:"clockSkew"` // 0s
	ClockSkew    time.Duration `yaml:"-"`
}

type Security struct {
	JWT JWT `yaml:"jwt"`
}

type Interviews struct {
	Driver string `yaml:"driver"` // postgres|sqlite
}

type Postgres struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"maxConns"`
	MinConns         int32         `yaml:"minConns"`
	ConnectRetries   int           `yaml:"connectRetries"`
	RetryIntervalRaw string        `yaml:"retryInterval"` // 500ms
	RetryInterval    time.Duration `yaml:"-"`
}

type SeedInterview struct {
	ID     int64  `yaml:"id"`
	Title  string `yaml:"title"`
	Status string `yaml:"status"`
}

type SQLite struct {
	Path string          `yaml:"path"`
	Seed []SeedInterview `yaml:"seed"` // только для dev
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"` // revoked_jti
}

type Rooms struct {
	MaxParticipants  int           `yaml:"maxParticipants"` // 2
	LookupTimeoutRaw string        `yaml:"lookupTimeout"`   // 5s
	TranscriptLimit  int           `yaml:"transcriptLimit"` // 10
	MaxMessageBytes  int           `yaml:"maxMessageBytes"` // 4096
	LookupTimeout    time.Duration `yaml:"-"`
}

type WS struct {
	PingIntervalRaw string        `yaml:"pingInterval"` // 15s
	WriteTimeoutRaw string        `yaml:"writeTimeout"` // 5s
	ReadLimit       int64         `yaml:"readLimit"`    // 1MiB
	SendBuffer      int           `yaml:"sendBuffer"`   // 64
	PingInterval    time.Duration `yaml:"-"`
	WriteTimeout    time.Duration `yaml:"-"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	HTTP       HTTP       `yaml:"http"`
	GRPC       GRPC       `yaml:"grpc"`
	Logging    Logging    `yaml:"logging"`
	Security   Security   `yaml:"security"`
	Interviews Interviews `yaml:"interviews"`
	Postgres   Postgres   `yaml:"postgres"`
	SQLite     SQLite     `yaml:"sqlite"`
	Redis      Redis      `yaml:"redis"`
	Rooms      Rooms      `yaml:"rooms"`
	WS         WS         `yaml:"ws"`
	Metrics    Metrics    `yaml:"metrics"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// секреты и адреса можно переопределить из окружения (.env)
func (c *Config) applyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Security.JWT.Secret = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLIENT_URL"); v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}
	if c.Security.JWT.Secret == "" {
		return errors.New("security.jwt.secret is required")
	}

	switch c.Interviews.Driver {
	case "":
		c.Interviews.Driver = DriverPostgres
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("interviews.driver: unknown driver %q", c.Interviews.Driver)
	}
	if c.Interviews.Driver == DriverPostgres && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Interviews.Driver == DriverSQLite && c.SQLite.Path == "" {
		c.SQLite.Path = "./data/interviews.db"
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	if c.Rooms.MaxParticipants < 0 {
		return errors.New("rooms.maxParticipants must be >= 0")
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "interview-room"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Rooms.MaxParticipants == 0 {
		c.Rooms.MaxParticipants = 2
	}
	if c.Rooms.TranscriptLimit <= 0 {
		c.Rooms.TranscriptLimit = 10
	}
	if c.Rooms.MaxMessageBytes <= 0 {
		c.Rooms.MaxMessageBytes = 4096
	}
	if c.WS.ReadLimit <= 0 {
		c.WS.ReadLimit = 1 << 20
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 64
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "revoked_jti"
	}
	if c.Postgres.ConnectRetries < 0 {
		c.Postgres.ConnectRetries = 0
	}

	c.HTTP.ReadTimeout = parseDurationOr(15*time.Second, c.HTTP.ReadTimeoutRaw)
	c.HTTP.IdleTimeout = parseDurationOr(60*time.Second, c.HTTP.IdleTimeoutRaw)
	c.HTTP.ShutdownTimeout = parseDurationOr(10*time.Second, c.HTTP.ShutdownTimeoutRaw)
	c.GRPC.ProbeInterval = parseDurationOr(10*time.Second, c.GRPC.ProbeIntervalRaw)
	c.Security.JWT.ClockSkew = parseDurationOr(0, c.Security.JWT.ClockSkewRaw)
	c.Postgres.RetryInterval = parseDurationOr(500*time.Millisecond, c.Postgres.RetryIntervalRaw)
	c.Rooms.LookupTimeout = parseDurationOr(5*time.Second, c.Rooms.LookupTimeoutRaw)
	c.WS.PingInterval = parseDurationOr(15*time.Second, c.WS.PingIntervalRaw)
	c.WS.WriteTimeout = parseDurationOr(5*time.Second, c.WS.WriteTimeoutRaw)
	return nil
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
