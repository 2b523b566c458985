package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads an integer environment variable. An unset or empty variable yields the fallback.
func GetEnvInt(key string, fallback int) (int, error) {
	value := GetEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// GetEnvBool reads a boolean environment variable using strconv.ParseBool.
func GetEnvBool(key string, fallback bool) (bool, error) {
	value := GetEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

// GetEnvDuration reads a duration such as "5s" or "250ms".
func GetEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := GetEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
