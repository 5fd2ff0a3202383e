package socket

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDefinition parses one `socket` INI line — grounded on
// config/eth_config.py's handling of the `socket` key, a line of the form
// "<socket_num>;<bit_csv>;<uint_csv>;<long_csv>" (a trailing field may be
// empty, and fields omitted entirely when there are no variables of that
// type).
func ParseDefinition(line string) (int, Definition, error) {
	fields := strings.Split(line, ";")
	if len(fields) == 0 {
		return 0, Definition{}, fmt.Errorf("socket: empty definition line")
	}

	num, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, Definition{}, fmt.Errorf("socket: invalid socket number %q: %w", fields[0], err)
	}

	def := Definition{
		Bit:  csvField(fields, 1),
		UInt: csvField(fields, 2),
		Long: csvField(fields, 3),
	}
	return num, def, nil
}

func csvField(fields []string, idx int) []string {
	if idx >= len(fields) {
		return nil
	}
	raw := strings.TrimSpace(fields[idx])
	if raw == "" {
		return nil
	}

	var names []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
