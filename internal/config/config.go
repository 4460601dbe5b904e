// Package config loads the server configuration. Values come from the
// config file first, then environment variables with the CARDROOM prefix
// override. A .env file in the working directory is honored for local
// development.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"cardroom-server/internal/util"
)

// Config provides configuration for the cardroom server
type Config struct {
	ListenAddr     string `yaml:"listenAddr" envconfig:"listen_addr"`
	PGDSN          string `yaml:"pgDsn" envconfig:"pg_dsn"`
	MigrationsPath string `yaml:"migrationsPath" envconfig:"migrations_path"`
	JWT            struct {
		PublicKey  string `yaml:"publicKey" envconfig:"public_key"`
		PrivateKey string `yaml:"privateKey" envconfig:"private_key"`
	} `yaml:"jwt"`
	Log struct {
		Level             string `yaml:"level" envconfig:"level"`
		Format            string `yaml:"format" envconfig:"format"`
		DisableAccessLogs bool   `yaml:"disableAccessLogs" envconfig:"disable_access_logs"`
	} `yaml:"log"`
}

// DefaultConfig returns the configuration defaults
func DefaultConfig() Config {
	var c Config
	c.ListenAddr = ":5000"
	c.PGDSN = "postgres://postgres@localhost:5432/postgres?sslmode=disable"
	c.MigrationsPath = "./sql"
	c.JWT.PublicKey = "jwt-public.pem"
	c.JWT.PrivateKey = "jwt-private.pem"
	c.Log.Level = "info"

	return c
}

// Load will load the configuration
func Load() (Config, error) {
	_ = godotenv.Load()

	c := DefaultConfig()

	configFile := util.Getenv("CARDROOM_CONFIG_FILE", "config.yaml")
	file, err := os.Open(configFile)
	if err == nil {
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&c); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	if err := envconfig.Process("cardroom", &c); err != nil {
		return Config{}, err
	}

	return c, nil
}
