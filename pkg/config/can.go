package config

import "gopkg.in/ini.v1"

// CanConfig is the CAN section: whether the CAN endpoint is enabled and
// its bus parameters. Grounded on config/can_config.py.
type CanConfig struct {
	Enabled   bool
	Channel   string
	Interface string
	Bitrate   int
}

func loadCanConfig(file *ini.File) CanConfig {
	section := file.Section("CAN")

	return CanConfig{
		Enabled:   section.Key("enabled").MustBool(DefaultCanEnabled),
		Channel:   section.Key("channel").MustString(DefaultCanChannel),
		Interface: section.Key("interface").MustString(DefaultCanInterface),
		Bitrate:   section.Key("bitrate").MustInt(DefaultCanBitrate),
	}
}
