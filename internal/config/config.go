package config

import (
	"errors"

	"github.com/ilyakaznacheev/cleanenv"

	"records-service/internal/MinIO"
	"records-service/pkg/database/postgres"
	"records-service/pkg/database/redis"
)

type Config struct {
	HTTPPort  string `env:"HTTP_PORT" env-default:"8080"`
	JWTSecret string `env:"JWT_TOKEN"`
	Postgres  postgres.Config
	Redis     redis.Config
	MinIO     MinIO.Config
}

func New() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(".env", &cfg); err != nil {
		return nil, errors.New("cannot read config")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_TOKEN must be set")
	}
	return &cfg, nil
}
