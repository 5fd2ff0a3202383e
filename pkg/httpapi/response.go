package httpapi

import (
	"encoding/xml"

	"github.com/cybroplc/abus-gateway/pkg/config"
	"github.com/cybroplc/abus-gateway/pkg/rw"
)

type xmlData struct {
	XMLName xml.Name `xml:"data"`
	Vars    []xmlVar `xml:"var"`
}

type xmlVar struct {
	Name        string `xml:"name"`
	Value       string `xml:"value"`
	Description string `xml:"description,omitempty"`
	ErrorCode   *int   `xml:"error_code,omitempty"`
}

// BuildXML serializes a batch of resolved responses plus the query's error
// responses into the `<data><var>...</var></data>` document, grounded on
// RRResponsesXmlSerializer.to_xml. Every response's name is passed through
// aliases.ToAliasName, except the ones in rawAliasNames — a response whose
// key itself failed strict alias resolution is echoed exactly as the
// client sent it.
//
// Array-valued ALC variables are not a separate case here: arrays are
// already expanded into individually addressable `name[i]` entries by
// pkg/alc's parser, so every response is a plain scalar and the original's
// `<item>` sequence never applies.
func BuildXML(responses []rw.Response, rawAliasNames map[string]bool, aliases config.AliasConfig, replyWithDescriptions bool) ([]byte, error) {
	if len(responses) == 0 {
		responses = []rw.Response{{Name: "", Value: "", Valid: false, Code: rw.CodeDeviceNotFound}}
	}

	doc := xmlData{Vars: make([]xmlVar, 0, len(responses))}
	for _, r := range responses {
		name := r.Name
		if !rawAliasNames[r.Name] {
			name = aliases.ToAliasName(r.Name)
		}

		value := r.Value
		if !r.Valid {
			value = "?"
		}

		xv := xmlVar{Name: name, Value: value}
		if replyWithDescriptions {
			xv.Description = r.Description
		}
		if r.Code != rw.CodeNoError {
			code := int(r.Code)
			xv.ErrorCode = &code
		}
		doc.Vars = append(doc.Vars, xv)
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?>`), body...), nil
}
