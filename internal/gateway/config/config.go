package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Address     string      `yaml:"address" env-required:"true"`
	Env         string      `yaml:"env" env-default:"dev"`
	AuthURL     string      `yaml:"auth_url" env-required:"true"`
	TasksURL    string      `yaml:"tasks_url" env-required:"true"`
	Redis       Redis       `yaml:"redis" env-required:"true"`
	RateLimiter RateLimiter `yaml:"rate_limiter" env-required:"true"`
}

type Redis struct {
	Address  string `yaml:"address" env-required:"true"`
	Password string
	DB       int `yaml:"db" env-default:"0"`
}

type RateLimiter struct {
	RPS   int `yaml:"rps" env-default:"20"`
	Burst int `yaml:"burst" env-default:"40"`
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

	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	return &cfg
}
