package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

const (
	DriverPostgres = "postgres"
	// DriverMemory keeps everything in process behind one store-wide lock.
	// It is meant for tests and local runs, never for production traffic.
	DriverMemory = "memory"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	TicketTopic string   `yaml:"ticket_topic"`
	FlightTopic string   `yaml:"flight_topic"`
	GroupID     string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type BookingConfig struct {
	TimeoutMs        int    `yaml:"timeout_ms"`
	LockTTLSeconds   int    `yaml:"lock_ttl_seconds"`
	FlightsCacheTTL  int    `yaml:"flights_cache_ttl_seconds"`
	DeletePolicy     string `yaml:"delete_policy"`
	DistributedLocks bool   `yaml:"distributed_locks"`
}

func (b BookingConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BookingConfig) CacheTTL() time.Duration {
	return time.Duration(b.FlightsCacheTTL) * time.Second
}

type WorkerConfig struct {
	ReconcileSweepMinutes int  `yaml:"reconcile_sweep_minutes"`
	RepairDrift           bool `yaml:"repair_drift"`
}

// AuthConfig holds the admin gate key material. It is read once at process
// start and passed by value; nothing mutates it afterwards.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		HTTP:     HTTPConfig{Address: ":8080"},
		Database: DatabaseConfig{Driver: DriverPostgres, Port: 5432, SSLMode: "disable", MaxConns: 10},
		Kafka:    KafkaConfig{TicketTopic: "tickets", FlightTopic: "flights", GroupID: "skyinventory-worker"},
		Booking: BookingConfig{
			TimeoutMs:       5000,
			LockTTLSeconds:  10,
			FlightsCacheTTL: 30,
			DeletePolicy:    "reject",
		},
		Worker: WorkerConfig{ReconcileSweepMinutes: 10},
		Auth:   AuthConfig{Issuer: "skyinventory"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("BOOKING_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Booking.TimeoutMs = ms
		}
	}
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Booking.DeletePolicy {
	case "reject", "cascade":
	default:
		return fmt.Errorf("unknown booking.delete_policy %q", c.Booking.DeletePolicy)
	}
	if c.Booking.TimeoutMs <= 0 {
		return errors.New("booking.timeout_ms must be positive")
	}
	return nil
}
