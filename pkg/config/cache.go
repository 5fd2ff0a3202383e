package config

import (
	"time"

	"gopkg.in/ini.v1"
)

// CacheConfig is the CACHE section: the per-PLC cache's refresh, validity,
// and cleanup periods. Grounded on config/cache_config.py.
type CacheConfig struct {
	RequestPeriod time.Duration
	ValidPeriod   time.Duration
	CleanupPeriod time.Duration
}

func loadCacheConfig(file *ini.File) CacheConfig {
	section := file.Section("CACHE")

	return CacheConfig{
		RequestPeriod: time.Duration(section.Key("request_period_s").MustInt(int(DefaultCacheRequestPeriod/time.Second))) * time.Second,
		ValidPeriod:   time.Duration(section.Key("valid_period_s").MustInt(int(DefaultCacheValidPeriod/time.Second))) * time.Second,
		CleanupPeriod: time.Duration(section.Key("cleanup_period_s").MustInt(int(DefaultCacheCleanupPeriod/time.Second))) * time.Second,
	}
}
