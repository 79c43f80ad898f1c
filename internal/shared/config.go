package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCatalogURL is the published spreadsheet export the site reads tours from.
const DefaultCatalogURL = "https://script.google.com/macros/s/AKfycbw6k_STSNcKQSsNFEe38OjV_rI72PfTs6cECGbdNwV1sXCDTJJqZ31dxi3x5xtkxe4T/exec"

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	CatalogURL     string
	CatalogTimeout time.Duration
	CatalogRPS     int
	RenderWait     time.Duration
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	RetryLimit     int
	RetryWindow    time.Duration
	TrustProxy     bool
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("invalid integer in env, using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		CatalogURL:     env("CATALOG_URL", DefaultCatalogURL),
		CatalogTimeout: time.Duration(atoi("CATALOG_TIMEOUT_SECONDS", 20)) * time.Second,
		CatalogRPS:     atoi("CATALOG_RPS", 2),
		RenderWait:     time.Duration(atoi("RENDER_WAIT_MS", 3000)) * time.Millisecond,
		// empty disables the fetch log
		MySQLDSN: env("MYSQL_DSN", ""),
		// empty falls back to the in-process limiter
		RedisAddr:   env("REDIS_ADDR", ""),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		RetryLimit:  atoi("RETRY_LIMIT", 5),
		RetryWindow: time.Duration(atoi("RETRY_WINDOW_SECONDS", 60)) * time.Second,
		// forwarding headers name the client only behind a proxy that sets them
		TrustProxy: env("TRUSTED_PROXY", "") == "1",
	}
	if c.MySQLDSN == "" {
		log.Warn().Msg("MYSQL_DSN is empty, fetch attempts will not be recorded")
	}
	if c.RetryLimit <= 0 {
		log.Warn().Int("limit", c.RetryLimit).Msg("RETRY_LIMIT must be positive, using 5")
		c.RetryLimit = 5
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
