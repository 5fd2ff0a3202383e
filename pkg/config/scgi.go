package config

import (
	"time"

	"gopkg.in/ini.v1"
)

// ScgiConfig is the SCGI section: the HTTP/SCGI surface's bind address,
// timeouts, TLS, and auth. Grounded on config/scgi_config.py.
type ScgiConfig struct {
	BindAddress           string
	Port                  int
	RequestTimeout        time.Duration
	ReplyWithDescriptions bool
	TLSEnabled            bool
	AccessToken           string
	ServerAddress         string
	Keepalive             time.Duration
	OnlyUserVariables     bool
}

func loadScgiConfig(file *ini.File) ScgiConfig {
	section := file.Section("SCGI")

	token := section.Key("token").MustString("")

	return ScgiConfig{
		BindAddress:           section.Key("bind_address").MustString(DefaultScgiBindAddress),
		Port:                  section.Key("port").MustInt(DefaultScgiPort),
		RequestTimeout:        time.Duration(section.Key("timeout_s").MustInt(int(DefaultScgiRequestTimeout/time.Second))) * time.Second,
		ReplyWithDescriptions: section.Key("reply_with_descriptions").MustBool(DefaultScgiReplyWithDescriptions),
		TLSEnabled:            section.Key("tls_enabled").MustBool(DefaultScgiTLSEnabled),
		AccessToken:           token,
		ServerAddress:         section.Key("server_address").MustString(""),
		Keepalive:             time.Duration(section.Key("keepalive").MustFloat64(float64(DefaultScgiKeepalive/time.Second)) * float64(time.Second)),
		OnlyUserVariables:     section.Key("only_user_variables").MustBool(DefaultScgiOnlyUserVariables),
	}
}
