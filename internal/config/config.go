// Package config resolves the database URL and pool settings from config
// files and the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem used for config and query-file lookups. Tests swap
// in a memory filesystem.
var AppFs = afero.NewOsFs()

// Config holds the application configuration.
type Config struct {
	DatabaseURL  string
	MaxOpenConns int
	MaxIdleConns int
}

// Load reads configuration from, in increasing priority: a .records.yaml
// file in the home or working directory, a .env file, and RECORDS_-prefixed
// environment variables. DATABASE_URL remains the conventional fallback for
// the connection string.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(".records")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "records"))

	v.SetEnvPrefix("RECORDS")
	v.AutomaticEnv()

	v.SetDefault("max_open_conns", 10)
	v.SetDefault("max_idle_conns", 2)

	// Config file is optional.
	_ = v.ReadInConfig()

	// Load .env if present; failure to parse it is not fatal.
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	databaseURL := v.GetString("database_url")
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		DatabaseURL:  databaseURL,
		MaxOpenConns: v.GetInt("max_open_conns"),
		MaxIdleConns: v.GetInt("max_idle_conns"),
	}, nil
}
