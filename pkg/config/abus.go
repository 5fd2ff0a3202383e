package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

// AbusConfig is the ABUS section: exchange timeout, retry count, and an
// optional password. The password is parsed and validated here only; a PLC
// entry without a password of its own does not fall back to it.
// Grounded on config/abus_config.py.
type AbusConfig struct {
	Timeout         time.Duration
	NumberOfRetries int
	Password        *int
}

func loadAbusConfig(file *ini.File) (AbusConfig, error) {
	section := file.Section("ABUS")

	timeoutMs := section.Key("timeout_ms").MustInt(int(DefaultAbusTimeout / time.Millisecond))

	password, err := parseOptionalPassword(section.Key("password").String())
	if err != nil {
		return AbusConfig{}, fmt.Errorf("config: ABUS.password: %w", err)
	}

	return AbusConfig{
		Timeout:         time.Duration(timeoutMs) * time.Millisecond,
		NumberOfRetries: section.Key("number_of_retries").MustInt(DefaultAbusNumberOfRetries),
		Password:        password,
	}, nil
}

// parseOptionalPassword parses a password field that is either empty (no
// password) or a base-10 integer — mirroring AbusConfig.create's handling,
// which raises InvalidPassword on anything else.
func parseOptionalPassword(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid password %q", raw)
	}
	return &value, nil
}
