package config

import "time"

// Documented defaults for every INI section, mirroring config_defaults.py's
// DEFAULT_CONFIG. These are the values used whenever a key is missing from
// the config file, and are never themselves read from disk.
const (
	DefaultEthEnabled           = true
	DefaultEthBindAddress       = "0.0.0.0"
	DefaultEthPort              = 8442
	DefaultEthAutodetectEnabled = true
	DefaultEthAutodetectAddress = ""

	DefaultPushEnabled = false
	DefaultPushTimeout = 24 * time.Hour

	DefaultCanEnabled   = false
	DefaultCanChannel   = "can0"
	DefaultCanInterface = "socketcan_native"
	DefaultCanBitrate   = 100000

	DefaultAbusTimeout         = 200 * time.Millisecond
	DefaultAbusNumberOfRetries = 3

	DefaultCacheRequestPeriod = 0 * time.Second
	DefaultCacheValidPeriod   = 0 * time.Second
	DefaultCacheCleanupPeriod = 0 * time.Second

	DefaultScgiBindAddress           = ""
	DefaultScgiPort                  = 4000
	DefaultScgiRequestTimeout        = 10 * time.Second
	DefaultScgiReplyWithDescriptions = true
	DefaultScgiTLSEnabled            = false
	DefaultScgiKeepalive             = 0 * time.Second
	DefaultScgiOnlyUserVariables     = false

	DefaultLocationsAppDir = "."
	DefaultLocationsLogDir = "./log"
	DefaultLocationsAlcDir = "./alc"

	DefaultDebugLogEnabled        = true
	DefaultDebugLogToFile         = true
	DefaultDebugLogVerboseLevel   = "DEBUG"
	DefaultDebugLogMaxFileSizeKB  = 1024
	DefaultDebugLogMaxBackupCount = 5
)
