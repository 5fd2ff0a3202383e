package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func TestLoadAliasConfigResolvesBothDirections(t *testing.T) {
	file := ini.Empty()
	_, err := file.Section("ALIAS").NewKey("c10010", "alpha")
	require.NoError(t, err)

	alias, err := loadAliasConfig(file)
	require.NoError(t, err)

	assert.Equal(t, "alpha.rtc_sec", alias.ToAliasName("c10010.rtc_sec"))
	assert.Equal(t, "c10010.rtc_sec", alias.ToNadName("alpha.rtc_sec"))
	assert.Equal(t, "unknown.foo", alias.ToAliasName("unknown.foo"))
}

func TestLoadAliasConfigStrictModeRejectsRawNad(t *testing.T) {
	file := ini.Empty()
	_, err := file.Section("ALIAS").NewKey("c10010", "alpha")
	require.NoError(t, err)

	alias, err := loadAliasConfig(file)
	require.NoError(t, err)

	_, err = alias.ToNadNameStrict("c10010.rtc_sec")
	assert.Error(t, err)

	resolved, err := alias.ToNadNameStrict("alpha.rtc_sec")
	require.NoError(t, err)
	assert.Equal(t, "c10010.rtc_sec", resolved)
}

func TestLoadAliasConfigRejectsNonAlphanumericValue(t *testing.T) {
	file := ini.Empty()
	_, err := file.Section("ALIAS").NewKey("c10010", "bad!alias")
	require.NoError(t, err)

	_, err = loadAliasConfig(file)
	assert.Error(t, err)
}
