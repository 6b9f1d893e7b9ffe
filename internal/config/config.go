// Package config loads layered configuration: built-in defaults, an optional
// YAML file, then ALBUMRUN_-prefixed environment variables. Secrets are
// expected via the environment (a .env file is honored when present).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment overrides. A double underscore
// separates nesting levels so multi-word keys survive:
// ALBUMRUN_STRAVA__CLIENT_ID -> strava.client_id.
const envPrefix = "ALBUMRUN_"

type Thresholds struct {
	Listen     float64 `koanf:"listen"`
	Completion float64 `koanf:"completion"`
}

type Match struct {
	ToleranceMinutes         int `koanf:"tolerance_minutes"`
	DiscoverToleranceMinutes int `koanf:"discover_tolerance_minutes"`
}

type Paths struct {
	PlayActivity     string `koanf:"play_activity"`
	ContainerDetails string `koanf:"container_details"`
	Report           string `koanf:"report"`
	Registry         string `koanf:"registry"`
}

type Strava struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	AccessToken  string `koanf:"access_token"`
	RefreshToken string `koanf:"refresh_token"`
}

type Spotify struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

type Server struct {
	Addr string `koanf:"addr"`
}

type Log struct {
	Level string `koanf:"level"`
}

type Config struct {
	Thresholds Thresholds `koanf:"thresholds"`
	Match      Match      `koanf:"match"`
	Paths      Paths      `koanf:"paths"`
	Strava     Strava     `koanf:"strava"`
	Spotify    Spotify    `koanf:"spotify"`
	Server     Server     `koanf:"server"`
	Log        Log        `koanf:"log"`
}

// Default mirrors the original analyzer configuration.
func Default() *Config {
	return &Config{
		Thresholds: Thresholds{Listen: 0.50, Completion: 0.70},
		Match:      Match{ToleranceMinutes: 60, DiscoverToleranceMinutes: 60},
		Paths: Paths{
			PlayActivity:     "Apple Music Play Activity.csv",
			ContainerDetails: "Apple Music - Container Details.csv",
			Report:           "outputs/data.json",
			Registry:         "data/registry.db",
		},
		Server: Server{Addr: ":8080"},
		Log:    Log{Level: "info"},
	}
}

// Load builds the configuration. path may be empty; a missing config file is
// not an error, only an unparseable one is.
func Load(path string) (*Config, error) {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// MatchTolerance returns the reconciliation tolerance window.
func (c *Config) MatchTolerance() time.Duration {
	return time.Duration(c.Match.ToleranceMinutes) * time.Minute
}

// DiscoverTolerance returns the speculative-discovery window.
func (c *Config) DiscoverTolerance() time.Duration {
	return time.Duration(c.Match.DiscoverToleranceMinutes) * time.Minute
}
