// Package config loads the server configuration from the environment.
//
// A .env file in the working directory is read first when it exists;
// variables already set in the process environment win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort            = 8080
	defaultDBPath          = "data/weather.db"
	defaultWeatherAPIURL   = "https://api.open-meteo.com/v1/forecast"
	defaultRefreshInterval = "15m"
	defaultFetchTimeout    = "10s"
	defaultLogLevel        = "info"
)

// Config holds everything cmd/server needs to build the server.
type Config struct {
	Port   int
	DBPath string

	// WeatherAPIURL is the Open-Meteo forecast endpoint.
	WeatherAPIURL string

	// RefreshInterval is the period between forecast refreshes of a city.
	RefreshInterval time.Duration

	// FetchTimeout bounds one upstream request.
	FetchTimeout time.Duration

	LogLevel slog.Level
}

// Load reads the .env file (if any) and the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an
// error.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:        getenvDefault("DB_PATH", defaultDBPath),
		WeatherAPIURL: getenvDefault("WEATHER_API_URL", defaultWeatherAPIURL),
	}

	port, err := strconv.Atoi(getenvDefault("PORT", strconv.Itoa(defaultPort)))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", os.Getenv("PORT"))
	}
	cfg.Port = port

	cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", defaultRefreshInterval)
	if err != nil {
		return nil, err
	}
	cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", defaultFetchTimeout)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel, err = parseLevel(getenvDefault("LOG_LEVEL", defaultLogLevel))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
}
