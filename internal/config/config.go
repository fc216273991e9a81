package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Game     Game    `yaml:"game"`
	Redis    Redis   `yaml:"redis"`
	Archive  Archive `yaml:"archive"`
}

type Game struct {
	// AILevel is the default search depth of the computer opponent.
	AILevel       int           `yaml:"ai-level" env:"GAME_AI_LEVEL" env-default:"4"`
	AIPacing      time.Duration `yaml:"ai-pacing" env:"GAME_AI_PACING" env-default:"1s"`
	EvictionGrace time.Duration `yaml:"eviction-grace" env:"GAME_EVICTION_GRACE" env-default:"3s"`
}

// Redis - when enabled, match events are fanned out through redis pub/sub.
type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Archive struct {
	// SQLitePath empty disables the results archive.
	SQLitePath string `yaml:"sqlite-path" env:"ARCHIVE_SQLITE_PATH" env-default:""`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
