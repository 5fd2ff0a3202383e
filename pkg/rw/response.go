package rw

import "fmt"

// Code is the per-tag result code, grounded on
// lib/input_output/scgi/r_response.py's RResponse.Code.
type Code int

const (
	CodeNoError Code = iota
	CodeTimeout
	CodeUnknown
	CodeDeviceNotFound
	CodePlcHeadError
	CodeNoAlcError
)

func (c Code) String() string {
	switch c {
	case CodeNoError:
		return "NO_ERROR"
	case CodeTimeout:
		return "TIMEOUT"
	case CodeUnknown:
		return "UNKNOWN"
	case CodeDeviceNotFound:
		return "DEVICE_NOT_FOUND"
	case CodePlcHeadError:
		return "PLC_HEAD_ERROR"
	case CodeNoAlcError:
		return "NO_ALC_ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(c))
	}
}

// Response is one answered tag request, grounded on RResponse.
type Response struct {
	Name        string
	TagName     string
	Value       string
	Description string
	Valid       bool
	Code        Code
	Cached      bool
}

func (r Response) String() string {
	s := fmt.Sprintf("%s=%s", r.Name, r.Value)
	if r.Code != CodeNoError {
		s += " " + r.Code.String()
	}
	if r.Description != "" {
		s += fmt.Sprintf(" %q", r.Description)
	}
	return s
}

func newResponse(name, tagName, value, description string, valid bool, code Code, cached bool) Response {
	return Response{
		Name:        name,
		TagName:     tagName,
		Value:       value,
		Description: description,
		Valid:       valid,
		Code:        code,
		Cached:      cached,
	}
}

func responsesWithCode(requests []Request, code Code) []Response {
	responses := make([]Response, len(requests))
	for i, r := range requests {
		responses[i] = newResponse(r.Name, r.TagName, r.Value, "", false, code, false)
	}
	return responses
}
