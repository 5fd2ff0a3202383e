package config

import (
	"fmt"
	"regexp"

	"gopkg.in/ini.v1"
)

var staticPlcSectionPattern = regexp.MustCompile(`^c(\d+)$`)

// StaticPlcConfig is one `c<nad>` section: a statically configured PLC
// entry that the directory carries regardless of detection traffic.
// Grounded on config/static_plc_config.py.
type StaticPlcConfig struct {
	Nad      int
	IP       string
	Port     int
	Password *int
}

// loadStaticPlcConfigs scans every section whose name matches `c<nad>` and
// builds one StaticPlcConfig per match, mirroring StaticPlcsConfig.load.
func loadStaticPlcConfigs(file *ini.File) ([]StaticPlcConfig, error) {
	var configs []StaticPlcConfig

	for _, section := range file.Sections() {
		match := staticPlcSectionPattern.FindStringSubmatch(section.Name())
		if match == nil {
			continue
		}

		nad := 0
		if _, err := fmt.Sscanf(match[1], "%d", &nad); err != nil {
			return nil, fmt.Errorf("config: invalid static PLC section %q", section.Name())
		}

		password, err := parseOptionalPassword(section.Key("password").String())
		if err != nil {
			return nil, fmt.Errorf("config: %s.password: %w", section.Name(), err)
		}

		configs = append(configs, StaticPlcConfig{
			Nad:      nad,
			IP:       section.Key("ip").String(),
			Port:     section.Key("port").MustInt(DefaultEthPort),
			Password: password,
		})
	}
	return configs, nil
}
