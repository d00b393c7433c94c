package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Name               string `yaml:"name"`
	SSLMode            string `yaml:"ssl_mode"`
	MaxConns           int32  `yaml:"max_conns"`
	LockTimeoutSeconds int    `yaml:"lock_timeout_seconds"`
	Migrate            bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (d DatabaseConfig) LockTimeout() time.Duration {
	return time.Duration(d.LockTimeoutSeconds) * time.Second
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
	PublishTimeoutMS   int      `yaml:"publish_timeout_ms"`
}

func (k KafkaConfig) PublishTimeout() time.Duration {
	return time.Duration(k.PublishTimeoutMS) * time.Millisecond
}

type BookingConfig struct {
	TimeZone                 string `yaml:"timezone"`
	AvailabilityCacheTTL     int    `yaml:"availability_cache_ttl_seconds"`
	EventsCacheTTL           int    `yaml:"events_cache_ttl_seconds"`
	MyReservationsLimit      int    `yaml:"my_reservations_limit"`
	MySignupsLimit           int    `yaml:"my_signups_limit"`
	DashboardReservationsMax int    `yaml:"dashboard_reservations_limit"`
}

// Location resolves TimeZone; empty means the process local zone.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(b.TimeZone)
}

func (b BookingConfig) AvailabilityTTL() time.Duration {
	return time.Duration(b.AvailabilityCacheTTL) * time.Second
}

func (b BookingConfig) EventsTTL() time.Duration {
	return time.Duration(b.EventsCacheTTL) * time.Second
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type StorageConfig struct {
	// Driver is "postgres" or "memory". The memory store keeps everything in
	// process and is only safe for a single instance.
	Driver string `yaml:"driver"`
	// SeedPath is a catalog file loaded into the memory store at startup.
	SeedPath string `yaml:"seed_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		c.HTTP.Address = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.LockTimeoutSeconds == 0 {
		c.Database.LockTimeoutSeconds = 5
	}
	if c.Kafka.PublishTimeoutMS == 0 {
		c.Kafka.PublishTimeoutMS = 2000
	}
	if c.Booking.AvailabilityCacheTTL == 0 {
		c.Booking.AvailabilityCacheTTL = 30
	}
	if c.Booking.EventsCacheTTL == 0 {
		c.Booking.EventsCacheTTL = 300
	}
	if c.Booking.MyReservationsLimit == 0 {
		c.Booking.MyReservationsLimit = 50
	}
	if c.Booking.MySignupsLimit == 0 {
		c.Booking.MySignupsLimit = 5
	}
	if c.Booking.DashboardReservationsMax == 0 {
		c.Booking.DashboardReservationsMax = 5
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("database.host and database.name are required for the postgres driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if _, err := c.Booking.Location(); err != nil {
		errs = append(errs, fmt.Errorf("booking.timezone: %w", err))
	}
	if c.Database.LockTimeoutSeconds < 0 {
		errs = append(errs, errors.New("database.lock_timeout_seconds must not be negative"))
	}
	if c.Kafka.PublishTimeoutMS < 0 {
		errs = append(errs, errors.New("kafka.publish_timeout_ms must not be negative"))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
