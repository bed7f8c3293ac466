package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/notify"
	"github.com/cwrk-planet/lobby-service/internal/postgres"
	serverhttp "github.com/cwrk-planet/lobby-service/internal/server/http"
	grpcx "github.com/cwrk-planet/lobby-service/internal/transport/grpc"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// секреты можно не держать в yaml
const (
	envRiotAPIKey = "LOBBY_RIOT_API_KEY"
	envJWTSecret  = "LOBBY_JWT_SECRET"
)

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // lobby-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Storage struct {
	Driver string `yaml:"driver"` // memory|postgres
	// Migrate - goose up при старте (только postgres).
	Migrate bool `yaml:"migrate"`
}

type Auth struct {
	HMACSecret    string        `yaml:"hmac_secret"`
	PublicKeyPath string        `yaml:"public_key_path"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	ClockSkew     time.Duration `yaml:"clock_skew"`
}

type Provisioning struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Region      string        `yaml:"region"`
	UseStub     bool          `yaml:"use_stub"`
	Timeout     time.Duration `yaml:"timeout"`
	CallbackURL string        `yaml:"callback_url"`
	Concurrency int           `yaml:"concurrency"`
}

type Lobby struct {
	CodeAttempts      int           `yaml:"code_attempts"`
	AuditBuffer       int           `yaml:"audit_buffer"`
	AuditWriteTimeout time.Duration `yaml:"audit_write_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Telemetry struct {
	Tracing Tracing `yaml:"tracing"`
	Metrics bool    `yaml:"metrics"`
}

type SeedUser struct {
	Email    string `yaml:"email"`
	Nickname string `yaml:"nickname"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	HTTP         serverhttp.Config `yaml:"http"`
	GRPC         grpcx.Config      `yaml:"grpc"`
	Logging      Logging           `yaml:"logging"`
	Storage      Storage           `yaml:"storage"`
	Postgres     postgres.Config   `yaml:"postgres"`
	Redis        notify.Config     `yaml:"redis"`
	Auth         Auth              `yaml:"auth"`
	Provisioning Provisioning      `yaml:"provisioning"`
	Lobby        Lobby             `yaml:"lobby"`
	Telemetry    Telemetry         `yaml:"telemetry"`
	Seed         []SeedUser        `yaml:"seed"`
	CORS         CORS              `yaml:"cors"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse разбирает yaml, подставляет env-секреты и дефолты.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if v := os.Getenv(envRiotAPIKey); v != "" {
		cfg.Provisioning.APIKey = v
	}
	if v := os.Getenv(envJWTSecret); v != "" {
		cfg.Auth.HMACSecret = v
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = StorageMemory
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == StoragePostgres && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}

	if c.Provisioning.CallbackURL == "" {
		return errors.New("provisioning.callback_url is required")
	}
	if !c.Provisioning.UseStub && c.Provisioning.APIKey == "" {
		return errors.New("provisioning.api_key is required for the live API")
	}
	if c.Provisioning.Concurrency < 0 {
		return errors.New("provisioning.concurrency must not be negative")
	}

	for i, u := range c.Seed {
		if !strings.Contains(u.Email, "@") {
			return fmt.Errorf("seed[%d]: invalid email %q", i, u.Email)
		}
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "lobby-service"
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
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout <= 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Provisioning.Timeout <= 0 {
		c.Provisioning.Timeout = 10 * time.Second
	}
	if c.Lobby.RequestTimeout <= 0 {
		c.Lobby.RequestTimeout = 60 * time.Second
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = notify.DefaultPrefix
	}
	if c.Telemetry.Tracing.SampleRatio <= 0 {
		c.Telemetry.Tracing.SampleRatio = 1
	}
	return nil
}
