package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	if v := GetEnvTrimmed(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns defaultValue when key is unset or not a boolean.
func GetEnvBool(key string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(GetEnvTrimmed(key)); err == nil {
		return parsed
	}
	return defaultValue
}

// GetEnvList splits a comma-separated variable, dropping blank items.
func GetEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(GetEnvTrimmed(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// GetEnvPositiveInt returns defaultValue unless key holds an integer > 0.
func GetEnvPositiveInt(key string, defaultValue int) int {
	if parsed, err := strconv.Atoi(GetEnvTrimmed(key)); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// GetEnvPositiveInt64 is GetEnvPositiveInt for byte counts and similar.
func GetEnvPositiveInt64(key string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(GetEnvTrimmed(key), 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// GetEnvPositiveDuration returns defaultValue unless key holds a duration > 0.
func GetEnvPositiveDuration(key string, defaultValue time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(GetEnvTrimmed(key)); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}
