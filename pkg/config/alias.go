package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// aliasDelimiter separates the NAD/alias segment of a tag from its
// variable name, e.g. "c10010.rtc_sec" or "alpha.rtc_sec".
const aliasDelimiter = "."

// AliasConfig holds the ALIAS section: a map from a PLC's raw `c<nad>`
// name to the short alias configured for it (e.g. "c10010" -> "alpha").
// Grounded on config/alias_config.py and lib/services/alias_service.py,
// which operate on only the first "."-delimited segment of a tag, leaving
// the variable name untouched.
type AliasConfig struct {
	aliasByNad map[string]string
	nadByAlias map[string]string
}

func loadAliasConfig(file *ini.File) (AliasConfig, error) {
	section := file.Section("ALIAS")

	pairs := make(map[string]string, len(section.Keys()))
	for _, key := range section.Keys() {
		pairs[key.Name()] = key.Value()
	}
	return NewAliasConfig(pairs)
}

// NewAliasConfig builds an AliasConfig directly from nad->alias pairs,
// without going through an INI file — useful for callers that already hold
// the mapping (tests, or a non-file config source).
func NewAliasConfig(nadToAlias map[string]string) (AliasConfig, error) {
	aliasByNad := make(map[string]string, len(nadToAlias))
	nadByAlias := make(map[string]string, len(nadToAlias))
	for nad, alias := range nadToAlias {
		if !isAliasValue(alias) {
			return AliasConfig{}, fmt.Errorf("config: ALIAS.%s: alias name can contain only alphanumeric characters: %q", nad, alias)
		}
		aliasByNad[nad] = alias
		nadByAlias[alias] = nad
	}
	return AliasConfig{aliasByNad: aliasByNad, nadByAlias: nadByAlias}, nil
}

func isAliasValue(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r == '_' {
			continue
		}
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// ToAliasName replaces the NAD segment of a qualified tag with its
// configured alias, e.g. "c10010.rtc_sec" -> "alpha.rtc_sec". Satisfies
// pkg/socket.AliasResolver, grounded on AliasService.to_alias_name.
func (c AliasConfig) ToAliasName(name string) string {
	return c.replaceFirstSegment(name, c.aliasByNad)
}

// ToNadName replaces the alias segment of a qualified tag with its raw
// `c<nad>` name, e.g. "alpha.rtc_sec" -> "c10010.rtc_sec". Grounded on
// AliasService.to_nad_name.
func (c AliasConfig) ToNadName(name string) string {
	return c.replaceFirstSegment(name, c.nadByAlias)
}

// ToNadNameStrict behaves like ToNadName but rejects a raw `c<nad>` segment
// when that PLC has a configured alias — a client must use the alias once
// one exists. Grounded on AliasService.to_nad_name_strict.
func (c AliasConfig) ToNadNameStrict(name string) (string, error) {
	segment, _, _ := strings.Cut(name, aliasDelimiter)
	if _, hasAlias := c.aliasByNad[segment]; hasAlias {
		return "", fmt.Errorf("config: alias for %s not used", segment)
	}
	return c.ToNadName(name), nil
}

func (c AliasConfig) replaceFirstSegment(name string, table map[string]string) string {
	segment, rest, hasRest := strings.Cut(name, aliasDelimiter)
	replaced, ok := table[segment]
	if !ok {
		replaced = segment
	}
	if !hasRest {
		return replaced
	}
	return replaced + aliasDelimiter + rest
}
