// Package httpapi is the gateway's client-facing surface (spec.md §6):
// one HTTP endpoint serving `GET /?<query>` reads/writes as XML, a
// WebSocket upgrade on the same port for socket-event push, bearer-token
// auth and optional TLS.
//
// Grounded on
// original_source/.../input_output/scgi/scgi_server.py (request flow:
// parse query, classify operations, dispatch to RWService, serialize),
// operation.py (query-token -> read/write/error operation extraction),
// alias_service.py (strict-mode alias enforcement) and
// rw_responses_xml_serializer.py (the XML shape, including the
// alias_error_tags exception and the synthesized empty-result var).
package httpapi

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/cybroplc/abus-gateway/pkg/config"
	"github.com/cybroplc/abus-gateway/pkg/rw"
)

var nadSectionPattern = regexp.MustCompile(`^c(\d+)$`)

// ErrorResponse pairs a query token whose key failed to resolve with the
// DEVICE_NOT_FOUND response it produces, grounded on
// ScgiServer._create_device_not_found. RawAlias is true only when the
// failure was the strict-mode alias check itself — then Response.Name
// carries the exact token the client sent and must bypass alias
// conversion at render time, matching rw_responses_xml_serializer.py's
// alias_error_tags exception; any other classification failure carries an
// already nad-resolved name and renders through the normal alias lookup.
type ErrorResponse struct {
	RawAlias bool
	Response rw.Response
}

// ParsedQuery is one query string's classification result.
type ParsedQuery struct {
	Reads  []rw.Request
	Writes []rw.Request
	Errors []ErrorResponse
}

// ParseQuery splits query on "&", resolves each token's key through
// aliases in strict mode, and classifies it by target. A token "k" is a
// read; "k=v" is also recorded as a write while still counting as a read
// of the same key (so a write's new value is echoed back), mirroring
// OperationUtil._extract_operations_from_query_string's dict-of-reads +
// list-of-writes split.
func ParseQuery(query string, aliases config.AliasConfig) ParsedQuery {
	var result ParsedQuery
	seenReads := make(map[string]bool)

	for _, token := range strings.Split(query, "&") {
		if token == "" {
			continue
		}

		rawKey, rawValue, isWrite := cutToken(token)

		key, err := aliases.ToNadNameStrict(rawKey)
		if err != nil {
			result.Errors = append(result.Errors, ErrorResponse{
				RawAlias: true,
				Response: deviceNotFound(rawKey),
			})
			continue
		}

		req, ok := classify(key)
		if !ok {
			result.Errors = append(result.Errors, ErrorResponse{
				Response: deviceNotFound(key),
			})
			continue
		}

		if isWrite {
			wReq := req
			wReq.Value = rawValue
			result.Writes = append(result.Writes, wReq)
		}

		if !seenReads[key] {
			seenReads[key] = true
			result.Reads = append(result.Reads, req)
		}
	}

	return result
}

// cutToken splits one query token into its key and, if present, its
// percent-decoded value. A malformed percent-escape falls back to the raw
// text rather than failing the whole request.
func cutToken(token string) (key, value string, isWrite bool) {
	rawKey, rawValue, hasValue := strings.Cut(token, "=")

	key = urlDecode(rawKey)
	if !hasValue {
		return key, "", false
	}
	return key, urlDecode(rawValue), true
}

func urlDecode(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// classify determines a resolved key's rw.Target, mirroring spec.md §6's
// reserved `sys.*`/`c<n>.sys.*` keys; anything else is a plain PLC
// variable. Name is always what gets echoed in the response (the resolved,
// non-alias key); TagName is the internal lookup key — the bare ALC
// variable name for TargetPlc (vars maps are keyed by bare name) or the
// bare status key for the two system targets.
func classify(key string) (rw.Request, bool) {
	segment, rest, hasRest := strings.Cut(key, ".")
	if !hasRest {
		return rw.Request{}, false
	}

	if segment == "sys" {
		return rw.Request{Name: key, TagName: rest, Target: rw.TargetSystem}, true
	}

	match := nadSectionPattern.FindStringSubmatch(segment)
	if match == nil {
		return rw.Request{}, false
	}
	nad, err := strconv.Atoi(match[1])
	if err != nil {
		return rw.Request{}, false
	}

	if sysName, ok := strings.CutPrefix(rest, "sys."); ok {
		return rw.Request{Name: key, TagName: sysName, Target: rw.TargetPlcSystem, Nad: nad}, true
	}

	return rw.Request{Name: key, TagName: rest, Target: rw.TargetPlc, Nad: nad}, true
}

func deviceNotFound(name string) rw.Response {
	return rw.Response{Name: name, TagName: "", Valid: false, Code: rw.CodeDeviceNotFound}
}
