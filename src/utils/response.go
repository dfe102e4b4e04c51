package utils

import (
	"encoding/json"
	"fmt"
)

// ParseEnvelope unwraps a provider response of the shape
// {"orders": {"order": <object or list>}} into a uniform slice.
//
// Some providers collapse a one-element collection into a bare object, and
// report "no results" as a "null" string in place of the inner map. Both
// cases normalize to a slice here so callers never see the cardinality of
// the wire response.
func ParseEnvelope[T any](response []byte) ([]T, error) {
	header := make(map[string]json.RawMessage)
	if err := json.Unmarshal(response, &header); err != nil {
		return nil, fmt.Errorf("ParseEnvelope: failed to unmarshal header in response: %w", err)
	}

	if len(header) != 1 {
		return nil, fmt.Errorf("ParseEnvelope: expected 1 key in header, got %v: %s", len(header), response)
	}

	var inner json.RawMessage
	for _, v := range header {
		inner = v
	}

	if string(inner) == `"null"` || string(inner) == "null" {
		return []T{}, nil
	}

	data := make(map[string]json.RawMessage)
	if err := json.Unmarshal(inner, &data); err != nil {
		return nil, fmt.Errorf("ParseEnvelope: failed to unmarshal data in response: %w", err)
	}

	if len(data) != 1 {
		return nil, fmt.Errorf("ParseEnvelope: expected 1 key in data, got %v: %s", len(data), inner)
	}

	var items json.RawMessage
	for _, v := range data {
		items = v
	}

	var dtos []T
	var single T
	if err := json.Unmarshal(items, &single); err == nil {
		dtos = append(dtos, single)
	} else if err := json.Unmarshal(items, &dtos); err != nil {
		return nil, fmt.Errorf("ParseEnvelope: failed to unmarshal dtos in response: %w", err)
	}

	return dtos, nil
}
