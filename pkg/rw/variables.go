package rw

import (
	"fmt"
	"strconv"

	"github.com/cybroplc/abus-gateway/pkg/alc"
	"github.com/cybroplc/abus-gateway/pkg/plcclient"
)

// resolvedRead pairs a read request with the ALC symbol it resolved to, so
// the decoded value can be matched back to its request after the batched
// random-memory read returns.
type resolvedRead struct {
	request Request
	info    alc.VarInfo
}

// filterUserVars narrows an ALC symbol table down to user-flagged
// variables, so a lookup against a system variable misses exactly like a
// lookup against an undeclared name — resolved as CodeUnknown by
// buildReadParams/buildWriteParams. Grounded on
// plc_comm_service_request_processor.py's only_user_variables check.
func filterUserVars(vars map[string]alc.VarInfo) map[string]alc.VarInfo {
	filtered := make(map[string]alc.VarInfo, len(vars))
	for name, info := range vars {
		if info.IsUserVar() {
			filtered[name] = info
		}
	}
	return filtered
}

// buildReadParams groups resolved requests into one RParams batch by
// address width, and reports which requests have no matching ALC symbol
// (these become UNKNOWN responses rather than being sent to the
// controller at all).
func buildReadParams(requests []Request, vars map[string]alc.VarInfo) (plcclient.RParams, []resolvedRead, []Request) {
	var params plcclient.RParams
	var order []resolvedRead
	var unresolved []Request

	for _, req := range requests {
		info, ok := vars[req.TagName]
		if !ok {
			unresolved = append(unresolved, req)
			continue
		}

		addr := uint16(info.Address)
		switch info.Size {
		case 1:
			params.OneB = append(params.OneB, addr)
		case 2:
			params.TwoB = append(params.TwoB, addr)
		default:
			params.FourB = append(params.FourB, addr)
			params.FourTypes = append(params.FourTypes, info.DataType)
		}
		order = append(order, resolvedRead{request: req, info: info})
	}

	return params, order, unresolved
}

// decodeReadResponses reassembles the decoded 1/2/4-byte value slices back
// into one Response per resolved request, in the same one/two/four-byte
// grouping order buildReadParams produced them in.
func decodeReadResponses(order []resolvedRead, oneB []uint8, twoB []int16, fourB []float64, cached bool) []Response {
	responses := make([]Response, 0, len(order))

	oneIdx, twoIdx, fourIdx := 0, 0, 0
	for _, r := range order {
		var value string
		switch r.info.Size {
		case 1:
			value = strconv.Itoa(int(oneB[oneIdx]))
			oneIdx++
		case 2:
			value = strconv.Itoa(int(twoB[twoIdx]))
			twoIdx++
		default:
			value = formatFourByteValue(fourB[fourIdx], r.info.DataType)
			fourIdx++
		}
		responses = append(responses, newResponse(r.request.Name, r.request.TagName, value, r.info.Description, true, CodeNoError, cached))
	}

	return responses
}

func formatFourByteValue(v float64, dt alc.DataType) string {
	if dt == alc.DataTypeReal {
		return strconv.FormatFloat(v, 'g', -1, 32)
	}
	return strconv.FormatInt(int64(v), 10)
}

// buildWriteParams mirrors buildReadParams for writes: it parses each
// request's string Value into the typed form WParams needs, per its
// resolved ALC symbol's data type.
func buildWriteParams(requests []Request, vars map[string]alc.VarInfo) (plcclient.WParams, []Request, error) {
	var params plcclient.WParams
	var unresolved []Request

	for _, req := range requests {
		info, ok := vars[req.TagName]
		if !ok {
			unresolved = append(unresolved, req)
			continue
		}

		addr := uint16(info.Address)
		switch info.Size {
		case 1:
			n, err := strconv.ParseUint(req.Value, 10, 8)
			if err != nil {
				return plcclient.WParams{}, nil, fmt.Errorf("rw: parsing %q as byte for %q: %w", req.Value, req.TagName, err)
			}
			params.OneBAddrs = append(params.OneBAddrs, addr)
			params.OneBValues = append(params.OneBValues, uint8(n))
		case 2:
			n, err := strconv.ParseInt(req.Value, 10, 16)
			if err != nil {
				return plcclient.WParams{}, nil, fmt.Errorf("rw: parsing %q as word for %q: %w", req.Value, req.TagName, err)
			}
			params.TwoBAddrs = append(params.TwoBAddrs, addr)
			params.TwoBValues = append(params.TwoBValues, int16(n))
		default:
			v, err := parseFourByteValue(req.Value, info.DataType)
			if err != nil {
				return plcclient.WParams{}, nil, fmt.Errorf("rw: parsing %q for %q: %w", req.Value, req.TagName, err)
			}
			params.FourBAddrs = append(params.FourBAddrs, addr)
			params.FourBValues = append(params.FourBValues, v)
			params.FourTypes = append(params.FourTypes, info.DataType)
		}
	}

	return params, unresolved, nil
}

func parseFourByteValue(s string, dt alc.DataType) (float64, error) {
	if dt == alc.DataTypeReal {
		return strconv.ParseFloat(s, 32)
	}
	n, err := strconv.ParseInt(s, 10, 32)
	return float64(n), err
}
