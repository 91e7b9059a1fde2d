package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMalformed is returned for empty, truncated or non-JSON frames.
	ErrMalformed = errors.New("malformed frame")
	// ErrNotBeacon is returned for well-formed traffic that is not ours.
	ErrNotBeacon = errors.New("not a lorapass beacon")
	// ErrNoSender is returned for beacons without a device id.
	ErrNoSender = errors.New("beacon has no sender id")
)

// DecodeError explains why a frame was rejected.
type DecodeError struct {
	Kind   error
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Kind }

// EncodePacket builds the beacon announcing profile p from device id.
func EncodePacket(p Profile, id DeviceID) ([]byte, error) {
	pkt := Packet{
		Type:     beaconType,
		ID:       string(id),
		Name:     p.Name,
		Country:  p.Country,
		Favorite: p.Favorite,
		FutureOS: p.FutureOS,
		Message:  p.Message,
		Version:  beaconVersion,
	}
	data, err := json.Marshal(pkt)
	if err != nil {
		return nil, fmt.Errorf("encode beacon: %w", err)
	}
	return data, nil
}

// DecodePacket parses a raw frame. The channel is shared, so any failure is
// a *DecodeError that callers are expected to drop quietly. Keys must match
// exactly; other devices may send look-alike objects with different casing.
func DecodePacket(data []byte) (Packet, error) {
	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), ""))
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Packet{}, &DecodeError{Kind: ErrMalformed, Detail: "empty"}
	}
	if data[0] != '{' {
		if json.Valid(data) {
			return Packet{}, &DecodeError{Kind: ErrNotBeacon, Detail: "not an object"}
		}
		return Packet{}, &DecodeError{Kind: ErrMalformed, Detail: "not json"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Packet{}, &DecodeError{Kind: ErrMalformed, Detail: err.Error()}
	}

	var pkt Packet
	raw, ok := fields["type"]
	if !ok || json.Unmarshal(raw, &pkt.Type) != nil || pkt.Type != beaconType {
		return Packet{}, &DecodeError{Kind: ErrNotBeacon, Detail: fmt.Sprintf("type %s", raw)}
	}

	targets := []struct {
		key string
		dst any
	}{
		{"id", &pkt.ID},
		{"name", &pkt.Name},
		{"country", &pkt.Country},
		{"favorite", &pkt.Favorite},
		{"future_os", &pkt.FutureOS},
		{"message", &pkt.Message},
		{"version", &pkt.Version},
	}
	for _, t := range targets {
		raw, ok := fields[t.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, t.dst); err != nil {
			return Packet{}, &DecodeError{Kind: ErrMalformed, Detail: fmt.Sprintf("field %s: %v", t.key, err)}
		}
	}

	if pkt.ID == "" {
		return Packet{}, &DecodeError{Kind: ErrNoSender}
	}
	return pkt, nil
}
