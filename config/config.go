package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the runtime settings of the attendance server
type Config struct {
	Debug         bool
	HTTPAddr      string
	Store         string // sqlite, redis or memory
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ExportDir     string
	ExportCron    string // empty disables scheduled exports
}

// Load reads the configuration from defaults, an optional config/.env.<env> file
// under dir, and ENV-prefixed environment variables (e.g. DEV_HTTPADDR).
func Load(dir string) (*Config, error) {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("httpAddr", ":8080")
	conf.SetDefault("store", "sqlite")
	conf.SetDefault("sqlitePath", filepath.Join("data", "asbaaq.db"))
	conf.SetDefault("redisAddr", "127.0.0.1:6379")
	conf.SetDefault("redisPassword", "")
	conf.SetDefault("redisDB", 0)
	conf.SetDefault("exportDir", filepath.Join("data", "reports"))
	conf.SetDefault("exportCron", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, PROD
	if env == "" {
		env = "DEV"
	}
	env = strings.ToUpper(env)
	if env == "TEST" {
		conf.SetDefault("store", "memory")
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(dir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "config.godotenv(%s)", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config.os.Stat(%s)", dotEnvPath)
	}
	conf.AutomaticEnv()

	cfg := &Config{
		Debug:         conf.GetBool("debug"),
		HTTPAddr:      conf.GetString("httpAddr"),
		Store:         strings.ToLower(conf.GetString("store")),
		SQLitePath:    conf.GetString("sqlitePath"),
		RedisAddr:     conf.GetString("redisAddr"),
		RedisPassword: conf.GetString("redisPassword"),
		RedisDB:       conf.GetInt("redisDB"),
		ExportDir:     conf.GetString("exportDir"),
		ExportCron:    conf.GetString("exportCron"),
	}
	switch cfg.Store {
	case "sqlite", "redis", "memory":
	default:
		return nil, errors.Errorf("config: unknown store %q (want sqlite, redis or memory)", cfg.Store)
	}
	return cfg, nil
}
