package config

import (
	"fmt"
	"net"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/cybroplc/abus-gateway/pkg/socket"
)

// EthConfig is the ETH section: whether the UDP endpoint is enabled, its
// bind address/port, broadcast autodetection, and the socket-event variable
// table (the `socket` key). Grounded on config/eth_config.py.
type EthConfig struct {
	Enabled           bool
	BindAddress       string
	Port              int
	AutodetectEnabled bool
	AutodetectAddress string
	Sockets           socket.Config
}

func loadEthConfig(file *ini.File) (EthConfig, error) {
	section := file.Section("ETH")

	bindAddress := section.Key("bind_address").MustString(DefaultEthBindAddress)
	if bindAddress == "" {
		bindAddress = DefaultEthBindAddress
	}

	autodetectEnabled := section.Key("autodetect_enabled").MustBool(DefaultEthAutodetectEnabled)
	autodetectAddress := section.Key("autodetect_address").MustString(DefaultEthAutodetectAddress)
	if autodetectEnabled && autodetectAddress == "" {
		addr, err := resolveBroadcastAddress()
		if err != nil {
			return EthConfig{}, fmt.Errorf("config: resolving broadcast address: %w", err)
		}
		autodetectAddress = addr
	}

	sockets, err := loadSocketDefinitions(section)
	if err != nil {
		return EthConfig{}, err
	}

	return EthConfig{
		Enabled:           section.Key("enabled").MustBool(DefaultEthEnabled),
		BindAddress:       bindAddress,
		Port:              section.Key("port").MustInt(DefaultEthPort),
		AutodetectEnabled: autodetectEnabled,
		AutodetectAddress: autodetectAddress,
		Sockets:           sockets,
	}, nil
}

// loadSocketDefinitions parses the multi-line `socket` key, one line per
// socket number, each delegated to socket.ParseDefinition.
func loadSocketDefinitions(section *ini.Section) (socket.Config, error) {
	raw := section.Key("socket").String()
	if strings.TrimSpace(raw) == "" {
		return socket.Config{}, nil
	}

	cfg := make(socket.Config)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		num, def, err := socket.ParseDefinition(line)
		if err != nil {
			return nil, fmt.Errorf("config: ETH.socket: %w", err)
		}
		cfg[num] = def
	}
	return cfg, nil
}

// resolveBroadcastAddress picks the broadcast address of the first active,
// non-loopback IPv4 interface — the Go counterpart of
// ip_resolver.resolve_broadcast_address.
func resolveBroadcastAddress() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			bcast := make(net.IP, len(ip4))
			for i := range ip4 {
				bcast[i] = ip4[i] | ^ipNet.Mask[i]
			}
			return bcast.String(), nil
		}
	}
	return "", fmt.Errorf("config: no suitable network interface for broadcast autodetection")
}
