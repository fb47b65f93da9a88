package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ModeStandalone = "standalone"
	ModeEmbedded   = "embedded"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Archive   Archive   `envPrefix:"ARCHIVE_"`
		Tiles     Tiles     `envPrefix:"TILES_"`
	}

	HTTP struct {
		Server Server `envPrefix:"SERVER_"`
	}

	Server struct {
		Host         string        `env:"HOST" envDefault:"127.0.0.1"`
		Port         string        `env:"PORT" envDefault:"17778" validate:"required,numeric"`
		Mode         string        `env:"MODE" envDefault:"standalone" validate:"oneof=standalone embedded"`
		StaticDir    string        `env:"STATIC_DIR" envDefault:"./dist" validate:"required_if=Mode embedded"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-mbtiles"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317" validate:"required_if=Enabled true"`
	}

	// Archive points at the MBTiles file. The path is resolved by whoever
	// deploys the server; nothing here derives it.
	Archive struct {
		Path string `env:"PATH,required" validate:"required"`
	}

	Tiles struct {
		Prefix    string `env:"PREFIX" envDefault:"malabo" validate:"required"`
		Extension string `env:"EXTENSION" envDefault:"png" validate:"required,alphanum"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
