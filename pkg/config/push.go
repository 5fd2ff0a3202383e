package config

import (
	"time"

	"gopkg.in/ini.v1"
)

// PushConfig is the PUSH section: whether the gateway accepts unsolicited
// push frames, and how long an entry learned via a push may stay in the
// directory without a fresh ack. Grounded on config/push_config.py.
type PushConfig struct {
	Enabled bool
	Timeout time.Duration
}

func loadPushConfig(file *ini.File) PushConfig {
	section := file.Section("PUSH")
	timeoutHours := section.Key("timeout_h").MustInt(int(DefaultPushTimeout / time.Hour))

	return PushConfig{
		Enabled: section.Key("enabled").MustBool(DefaultPushEnabled),
		Timeout: time.Duration(timeoutHours) * time.Hour,
	}
}
