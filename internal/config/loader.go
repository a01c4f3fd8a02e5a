package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the daemon.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	APIBaseURL      string
	PreferencesPath string
	Secret          string
	APIKey          string
	DispatchRate    int
	DispatchTimeout time.Duration
	LogFormat       string
	LogLevel        string
	Timezone        string
}

// Location resolves Timezone. "Local" and the empty string mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// LoadEnvFile exports the variables of a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Missing required values and invalid
// values are each reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "homesched.db",
		PreferencesPath: "preferences.yaml",
		DispatchRate:    5,
		DispatchTimeout: 10 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",
		Timezone:        "Local",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := env("HOMESCHED_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "HOMESCHED_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("HOMESCHED_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if baseURL := env("HOMESCHED_API_BASE_URL"); baseURL == "" {
		missing = append(missing, "HOMESCHED_API_BASE_URL")
	} else if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		invalid = append(invalid, "HOMESCHED_API_BASE_URL")
	} else {
		cfg.APIBaseURL = strings.TrimRight(baseURL, "/")
	}

	if path := env("HOMESCHED_PREFERENCES_PATH"); path != "" {
		cfg.PreferencesPath = path
	}

	if secret := env("HOMESCHED_SECRET"); secret == "" {
		missing = append(missing, "HOMESCHED_SECRET")
	} else {
		cfg.Secret = secret
	}

	cfg.APIKey = env("HOMESCHED_API_KEY")

	if rateValue := env("HOMESCHED_DISPATCH_RATE"); rateValue != "" {
		rate, err := strconv.Atoi(rateValue)
		if err != nil || rate <= 0 {
			invalid = append(invalid, "HOMESCHED_DISPATCH_RATE")
		} else {
			cfg.DispatchRate = rate
		}
	}

	if timeoutValue := env("HOMESCHED_DISPATCH_TIMEOUT"); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "HOMESCHED_DISPATCH_TIMEOUT")
		} else {
			cfg.DispatchTimeout = timeout
		}
	}

	if format := strings.ToLower(env("HOMESCHED_LOG_FORMAT")); format != "" {
		if format != "json" && format != "console" {
			invalid = append(invalid, "HOMESCHED_LOG_FORMAT")
		} else {
			cfg.LogFormat = format
		}
	}

	if level := strings.ToLower(env("HOMESCHED_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "HOMESCHED_LOG_LEVEL")
		}
	}

	if tz := env("HOMESCHED_TIMEZONE"); tz != "" {
		if _, err := (Config{Timezone: tz}).Location(); err != nil {
			invalid = append(invalid, "HOMESCHED_TIMEZONE")
		} else {
			cfg.Timezone = tz
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
