package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Fixed tunables. These match the dispatch protocol rather than the
// environment, so they are constants, not knobs.
const (
	LockTTL        = 2000 * time.Millisecond
	LockBackoff    = 100 * time.Millisecond
	StoreBackoff   = 1 * time.Second
	DequeueTimeout = 1000 * time.Millisecond
	HealthInterval = 5 * time.Second
)

const (
	defaultRedisAddr     = "localhost:6379"
	defaultPort          = 8080
	defaultWorkers       = 8
	defaultServiceType   = "all"
	defaultProcessorURL  = "http://payment-processor-default:8080"
	fallbackProcessorURL = "http://payment-processor-fallback:8080"
)

type Config struct {
	RedisAddr            string
	Port                 int
	ServiceType          string // "api", "worker" or "all"
	Workers              int
	DefaultProcessorURL  string
	FallbackProcessorURL string
}

func Load() *Config {
	redisAddr := strings.TrimPrefix(os.Getenv("REDIS_URL"), "redis://")
	if redisAddr == "" {
		redisAddr = defaultRedisAddr
	}

	serviceType := os.Getenv("SERVICE_TYPE")
	if serviceType == "" {
		serviceType = defaultServiceType
	}

	return &Config{
		RedisAddr:            redisAddr,
		Port:                 envInt("PORT", defaultPort),
		ServiceType:          serviceType,
		Workers:              envInt("WORKERS", defaultWorkers),
		DefaultProcessorURL:  envString("PROCESSOR_DEFAULT_URL", defaultProcessorURL),
		FallbackProcessorURL: envString("PROCESSOR_FALLBACK_URL", fallbackProcessorURL),
	}
}

// RunsWorkers reports whether this process hosts the dispatch workers and
// the health monitor, or acts purely as an HTTP front-end.
func (c *Config) RunsWorkers() bool {
	return c.ServiceType == "worker" || c.ServiceType == "all"
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
