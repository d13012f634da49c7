package providers

import (
	"encoding/json"
	"fmt"

	"github.com/skyroute-io/skyroute/internal/forecast"
)

// Each provider group returns a structurally different payload, so each
// gets its own parser: omega ships a positional array under "data", nova a
// coordinate-keyed object under "data", arc a keyed object at the top
// level. Parsers ignore unknown fields and tolerate the neighbouring shape
// when a provider drifts, because contract drift here is a known hazard.

func parsePayload(group string, raw []byte) (forecast.Payload, error) {
	// A 2xx body can still carry a JSON error field.
	var envelope struct {
		Error string `json:"Error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		return forecast.Payload{}, fmt.Errorf("provider error: %s", envelope.Error)
	}

	switch group {
	case "omega":
		return parseOmega(raw)
	case "nova":
		return parseNova(raw)
	case "arc":
		return parseArc(raw)
	}

	// Groups added to the catalog ahead of a dedicated parser get the
	// most tolerant treatment.
	if p, err := parseOmega(raw); err == nil {
		return p, nil
	}
	return parseArc(raw)
}

// parseOmega handles the array-shaped payload: {"data":[{...},{...}]},
// one record per coordinate in request order.
func parseOmega(raw []byte) (forecast.Payload, error) {
	var wrapped struct {
		Data []forecast.Record `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		return forecast.Payload{Records: wrapped.Data}, nil
	}

	var records []forecast.Record
	if err := json.Unmarshal(raw, &records); err == nil {
		return forecast.Payload{Records: records}, nil
	}

	return forecast.Payload{}, fmt.Errorf("malformed omega payload")
}

// parseNova handles the keyed payload: {"data":{"26.85,80.95":{...}}}.
func parseNova(raw []byte) (forecast.Payload, error) {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		if keyed, err := decodeKeyed(wrapped.Data); err == nil {
			return forecast.Payload{Keyed: keyed}, nil
		}
		var records []forecast.Record
		if err := json.Unmarshal(wrapped.Data, &records); err == nil {
			return forecast.Payload{Records: records}, nil
		}
		return forecast.Payload{}, fmt.Errorf("malformed nova payload")
	}

	if keyed, err := decodeKeyed(raw); err == nil {
		return forecast.Payload{Keyed: keyed}, nil
	}
	return forecast.Payload{}, fmt.Errorf("malformed nova payload")
}

// parseArc handles the top-level keyed payload: {"26.85_80.95":{...}}.
func parseArc(raw []byte) (forecast.Payload, error) {
	if keyed, err := decodeKeyed(raw); err == nil {
		return forecast.Payload{Keyed: keyed}, nil
	}

	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		if keyed, err := decodeKeyed(wrapped.Data); err == nil {
			return forecast.Payload{Keyed: keyed}, nil
		}
	}
	return forecast.Payload{}, fmt.Errorf("malformed arc payload")
}

// decodeKeyed decodes a location-keyed object, skipping values that are
// not objects (status fields and the like ride alongside real records).
func decodeKeyed(raw []byte) (map[string]forecast.Record, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, err
	}
	keyed := make(map[string]forecast.Record, len(outer))
	for key, val := range outer {
		var rec forecast.Record
		if err := json.Unmarshal(val, &rec); err != nil {
			continue
		}
		keyed[key] = rec
	}
	if len(keyed) == 0 {
		return nil, fmt.Errorf("no location records found")
	}
	return keyed, nil
}
