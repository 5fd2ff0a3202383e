package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaultsWhenSectionsMissing(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultEthEnabled, cfg.Eth.Enabled)
	assert.Equal(t, DefaultEthPort, cfg.Eth.Port)
	assert.Equal(t, DefaultCanChannel, cfg.Can.Channel)
	assert.Equal(t, DefaultAbusNumberOfRetries, cfg.Abus.NumberOfRetries)
	assert.Nil(t, cfg.Abus.Password)
	assert.Empty(t, cfg.StaticPlcs)
}

func TestLoadParsesEthSocketDefinitions(t *testing.T) {
	path := writeConfig(t, "[ETH]\nsocket = 5;flag,ready;count;total\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	def, ok := cfg.Eth.Sockets[5]
	require.True(t, ok)
	assert.Equal(t, []string{"flag", "ready"}, def.Bit)
	assert.Equal(t, []string{"count"}, def.UInt)
	assert.Equal(t, []string{"total"}, def.Long)
}

func TestLoadParsesStaticPlcSections(t *testing.T) {
	path := writeConfig(t, "[c10010]\nip = 192.168.1.47\nport = 8442\npassword = 1234\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.StaticPlcs, 1)

	plc := cfg.StaticPlcs[0]
	assert.Equal(t, 10010, plc.Nad)
	assert.Equal(t, "192.168.1.47", plc.IP)
	assert.Equal(t, 8442, plc.Port)
	require.NotNil(t, plc.Password)
	assert.Equal(t, 1234, *plc.Password)
}

func TestLoadRejectsInvalidAbusPassword(t *testing.T) {
	path := writeConfig(t, "[ABUS]\npassword = notanumber\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOverlaysEnvSidecar(t *testing.T) {
	path := writeConfig(t, "[ETH]\nport = 8442\n")
	require.NoError(t, os.WriteFile(path+".env", []byte("ETH_PORT=9000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Eth.Port)
}

func TestLoadMissingEnvSidecarIsNotAnError(t *testing.T) {
	path := writeConfig(t, "[ETH]\nport = 8442\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8442, cfg.Eth.Port)
}
