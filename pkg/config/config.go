// Package config loads the gateway's own local INI configuration file —
// ETH/PUSH/CAN/ABUS/CACHE/SCGI/LOCATIONS/DEBUGLOG/ALIAS sections plus one
// `c<nad>` section per static PLC. This is a local-settings concern, not
// the remote-node object-dictionary configuration the teacher's original
// pkg/config addressed (see DESIGN.md for why that code was dropped).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-envparse"
	"gopkg.in/ini.v1"
)

// Config aggregates every section of the gateway's INI config file.
type Config struct {
	Eth        EthConfig
	Push       PushConfig
	Can        CanConfig
	Abus       AbusConfig
	Cache      CacheConfig
	Scgi       ScgiConfig
	Locations  LocationsConfig
	DebugLog   DebugLogConfig
	StaticPlcs []StaticPlcConfig
	Alias      AliasConfig
}

// Load reads path as an INI file, overlays an optional `<path>.env`
// sidecar (SECTION_KEY=value pairs, one per line), and fills in documented
// defaults for anything left unset.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := overlayEnvFile(file, path+".env"); err != nil {
		return nil, err
	}

	eth, err := loadEthConfig(file)
	if err != nil {
		return nil, err
	}

	abus, err := loadAbusConfig(file)
	if err != nil {
		return nil, err
	}

	locations, err := loadLocationsConfig(file, DefaultLocationsAppDir)
	if err != nil {
		return nil, err
	}

	staticPlcs, err := loadStaticPlcConfigs(file)
	if err != nil {
		return nil, err
	}

	alias, err := loadAliasConfig(file)
	if err != nil {
		return nil, err
	}

	return &Config{
		Eth:        eth,
		Push:       loadPushConfig(file),
		Can:        loadCanConfig(file),
		Abus:       abus,
		Cache:      loadCacheConfig(file),
		Scgi:       loadScgiConfig(file),
		Locations:  locations,
		DebugLog:   loadDebugLogConfig(file),
		StaticPlcs: staticPlcs,
		Alias:      alias,
	}, nil
}

// overlayEnvFile applies `SECTION_KEY=value` overrides from an optional
// sidecar env file onto the parsed INI, supplementing the distilled spec
// for container deployments (HASSIO-style options projected into env vars
// ahead of the add-on starting). Absence of the sidecar is not an error.
func overlayEnvFile(file *ini.File, envPath string) error {
	f, err := os.Open(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", envPath, err)
	}
	defer f.Close()

	vars, err := envparse.Parse(f)
	if err != nil {
		return fmt.Errorf("config: parsing %s: %w", envPath, err)
	}

	for key, value := range vars {
		section, name, ok := splitEnvKey(key)
		if !ok {
			continue
		}
		file.Section(section).Key(name).SetValue(value)
	}
	return nil
}

// splitEnvKey splits a `SECTION_KEY` env var name into its INI section
// and key, at the first underscore. "PUSH_TIMEOUT_H" -> ("PUSH",
// "timeout_h").
func splitEnvKey(envKey string) (section, key string, ok bool) {
	idx := strings.IndexByte(envKey, '_')
	if idx < 0 {
		return "", "", false
	}
	return envKey[:idx], strings.ToLower(envKey[idx+1:]), true
}
