package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Address  string        `yaml:"address" env-required:"true"`
	Env      string        `yaml:"env" env-default:"dev"`
	DB       DB            `yaml:"db" env-required:"true"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"72h"`

	// shared with the tasks service, provisioned via environment only
	TokenSecret string
}

type DB struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"db_name" env-required:"true"`
}

func MustLoadConfig() *Config {
	godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		panic("no config path in env")
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic(err)
	}

	cfg.TokenSecret = os.Getenv("JWT_SECRET")
	if cfg.TokenSecret == "" {
		panic("JWT_SECRET in env is empty")
	}
	return &cfg
}
