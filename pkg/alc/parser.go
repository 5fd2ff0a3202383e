package alc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// lineColumns matches one non-comment ALC line into its nine whitespace
// separated columns, grounded on the original AlcParser's single regex:
// address(hex) id(hex) array_size offset size scope data_type name
// description — the same shape, reimplemented with Go's RE2 engine (no
// backreferences needed).
var lineColumns = regexp.MustCompile(
	`^(\w*)\s*(\w*)\s*(\w*)\s*(\w*)\s*(\w*)\s*(\w*)\s*(\w*)\s*([\w.]*)\s*(.*)$`,
)

// ParseError reports a line that could not be interpreted as an ALC entry.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("alc: line %d: %s", e.Line, e.Reason)
}

// Parse tokenizes ALC text into a tag-name to VarInfo table. Comment lines
// (starting with ';') and blank lines are skipped. Array declarations
// expand into synthetic "name[i]" entries with address = base + i*size, per
// spec.md's data model.
//
// Parse is deterministic: the same text always yields the same map.
func Parse(text string) (map[string]VarInfo, error) {
	result := make(map[string]VarInfo)

	for lineNo, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimRight(rawLine, "\r\n \t")
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		entries, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo + 1, Reason: err.Error()}
		}

		for _, v := range entries {
			result[v.Name] = v
		}
	}

	return result, nil
}

func parseLine(line string) ([]VarInfo, error) {
	m := lineColumns.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("unparsable line %q", line)
	}

	address, err := strconv.ParseInt(m[1], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("bad address %q: %w", m[1], err)
	}
	id, err := strconv.ParseInt(m[2], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("bad id %q: %w", m[2], err)
	}
	arraySize, err := parseIntOrZero(m[3])
	if err != nil {
		return nil, fmt.Errorf("bad array_size %q: %w", m[3], err)
	}
	offset, err := parseIntOrZero(m[4])
	if err != nil {
		return nil, fmt.Errorf("bad offset %q: %w", m[4], err)
	}
	declaredSize, err := parseIntOrZero(m[5])
	if err != nil {
		return nil, fmt.Errorf("bad size %q: %w", m[5], err)
	}
	scope := m[6]
	dataTypeName := m[7]
	name := m[8]
	description := m[9]

	isArray := arraySize > 1

	// Address is offset-adjusted once, before any array expansion — this
	// matters for timers/counters whose declared address is base-relative.
	address += int64(offset)

	dataType, sizeFromType, known := parseDataType(strings.ToUpper(dataTypeName))
	size := declaredSize
	if known {
		size = sizeFromType
	} else {
		dataType = DataTypeNone
	}

	if !isArray {
		return []VarInfo{{
			ID:          int(id),
			Name:        name,
			IsArray:     isArray,
			ArraySize:   arraySize,
			Address:     int(address),
			Offset:      offset,
			Size:        size,
			Scope:       scope,
			DataType:    dataType,
			Description: description,
		}}, nil
	}

	entries := make([]VarInfo, arraySize)
	for i := 0; i < arraySize; i++ {
		entries[i] = VarInfo{
			ID:          int(id),
			Name:        fmt.Sprintf("%s[%d]", name, i),
			IsArray:     isArray,
			ArraySize:   arraySize,
			Address:     int(address) + i*size,
			Offset:      offset,
			Size:        size,
			Scope:       scope,
			DataType:    dataType,
			Description: description,
		}
	}
	return entries, nil
}

func parseIntOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
