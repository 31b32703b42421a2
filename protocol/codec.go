package protocol

import (
	"fmt"

	"github.com/bytedance/sonic"

	"convokit/core"
)

// Marshal creates a JSON-encoded WireEvent from an id and payload.
func Marshal(id string, payload any) ([]byte, error) {
	wire := WireEvent{ID: id}
	if payload != nil {
		b, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal payload for %q: %w", id, err)
		}
		wire.Payload = b
	}
	return sonic.Marshal(wire)
}

// MarshalPacket encodes an event packet, keeping its uid and timestamp on the envelope.
func MarshalPacket(packet *core.EventPacket) ([]byte, error) {
	payload, err := sonic.Marshal(packet.Event)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal event %q: %w", packet.Event.GetId(), err)
	}
	ts := packet.Timestamp
	return sonic.Marshal(WireEvent{
		ID:        packet.Event.GetId(),
		UID:       packet.Uid,
		Timestamp: &ts,
		Payload:   payload,
	})
}

// Unmarshal parses a JSON-encoded WireEvent.
func Unmarshal(data []byte) (WireEvent, error) {
	var wire WireEvent
	if err := sonic.Unmarshal(data, &wire); err != nil {
		return WireEvent{}, fmt.Errorf("protocol: unmarshal envelope: %w", err)
	}
	if wire.ID == "" {
		return WireEvent{}, fmt.Errorf("protocol: envelope missing id field")
	}
	return wire, nil
}

// UnmarshalPayload decodes a raw JSON payload into a typed struct. An absent payload yields the
// zero value.
func UnmarshalPayload[T any](raw []byte) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("protocol: unmarshal payload: %w", err)
	}
	return v, nil
}
