package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/dkarpov/taskboard/internal/broker"
)

type Config struct {
	Address string        `yaml:"address" env-required:"true"`
	Env     string        `yaml:"env" env-default:"dev"`
	Params  Params        `yaml:"params" env-required:"true"`
	DB      DB            `yaml:"db" env-required:"true"`
	Broker  broker.Config `yaml:"broker" env-required:"true"`
	Search  Search        `yaml:"search"`

	// shared with the auth issuer, provisioned via environment only
	TokenSecret string
}

type Params struct {
	Text MinMaxLen `yaml:"text"`
}

type MinMaxLen struct {
	Min int `yaml:"min" env-required:"true"`
	Max int `yaml:"max" env-required:"true"`
}

type DB struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"db_name" env-required:"true"`
}

type Search struct {
	Enabled   bool     `yaml:"enabled" env-default:"false"`
	Addresses []string `yaml:"addresses"`
	Index     string   `yaml:"index" env-default:"tasks"`
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
