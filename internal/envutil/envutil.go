package envutil

import (
	"os"
	"strconv"
	"time"
)

// GetEnvOrFallback gets the environment variable for the specified key, but if
// it doesn't find a value, it'll instead return fallback.
func GetEnvOrFallback(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		value = fallback
	}
	return value
}

// GetDaysOrFallback reads a number of days from the environment.
func GetDaysOrFallback(key string, fallback int) (time.Duration, error) {
	days := fallback
	if v := os.Getenv(key); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return 0, err
		}
		days = d
	}
	return 24 * time.Hour * time.Duration(days), nil
}
