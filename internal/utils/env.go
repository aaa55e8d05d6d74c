package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	raw := GetEnv(key, "", log)
	if raw == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		if log != nil {
			log.Warn("Environment variable is not an int, using default", "value", raw, "default", defaultVal)
		}
		return defaultVal
	}
	return parsed
}

func GetEnvAsFloat(key string, defaultVal float64, log *logger.Logger) float64 {
	raw := GetEnv(key, "", log)
	if raw == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable is not a float, using default", "value", raw, "default", defaultVal)
		}
		return defaultVal
	}
	return parsed
}

func GetEnvAsBool(key string, defaultVal bool, log *logger.Logger) bool {
	raw := strings.ToLower(strings.TrimSpace(GetEnv(key, "", log)))
	switch raw {
	case "":
		return defaultVal
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
