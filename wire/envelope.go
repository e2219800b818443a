// Package wire defines the UDP datagram envelope shared by hello messages
// and user events, and the hello payload shape.
package wire

import (
	"encoding/json"
	"fmt"
)

// HelloEvent is the reserved event name for the periodic presence
// announcement.
const HelloEvent = "hello"

// Envelope is the schema of every datagram on the wire: one JSON object per
// datagram, unframed.
type Envelope struct {
	Event    string          `json:"event"`
	PID      string          `json:"pid"`
	IID      string          `json:"iid"`
	HostName string          `json:"hostName,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// HelloData is the `data` shape for the built-in hello event.
type HelloData struct {
	IsMaster         bool            `json:"isMaster"`
	IsMasterEligible bool            `json:"isMasterEligible"`
	Weight           float64         `json:"weight"`
	Address          string          `json:"address"`
	Advertisement    json.RawMessage `json:"advertisement,omitempty"`
}

// EncodeHello builds the envelope bytes for a hello datagram.
func EncodeHello(pid, iid, hostname string, data HelloData) ([]byte, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode hello data: %w", err)
	}
	env := Envelope{
		Event:    HelloEvent,
		PID:      pid,
		IID:      iid,
		HostName: hostname,
		Data:     dataBytes,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}

// EncodeUserEvent builds the envelope bytes for a user-published event.
func EncodeUserEvent(pid, iid, hostname, event string, payload interface{}) ([]byte, error) {
	dataBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	env := Envelope{
		Event:    event,
		PID:      pid,
		IID:      iid,
		HostName: hostname,
		Data:     dataBytes,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}

// Decode parses a raw datagram into an envelope. Malformed JSON is reported
// so the caller can drop the datagram silently, per the error-handling
// policy (the wire is shared and adversarially noisy).
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// DecodeHelloData parses and validates the `data` field of a hello
// envelope. `isMaster`, `isMasterEligible`, `weight`, and `address` are each
// required and type-checked individually; any one missing or of the wrong
// type fails the whole decode so the caller drops the datagram rather than
// silently defaulting the field to its zero value.
func DecodeHelloData(raw json.RawMessage) (HelloData, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return HelloData{}, err
	}

	isMaster, ok := fields["isMaster"].(bool)
	if !ok {
		return HelloData{}, fmt.Errorf("hello data: isMaster missing or not a bool")
	}
	isMasterEligible, ok := fields["isMasterEligible"].(bool)
	if !ok {
		return HelloData{}, fmt.Errorf("hello data: isMasterEligible missing or not a bool")
	}
	weight, ok := fields["weight"].(float64)
	if !ok {
		return HelloData{}, fmt.Errorf("hello data: weight missing or not a number")
	}
	address, ok := fields["address"].(string)
	if !ok {
		return HelloData{}, fmt.Errorf("hello data: address missing or not a string")
	}

	var advertisement json.RawMessage
	if v, present := fields["advertisement"]; present {
		if b, err := json.Marshal(v); err == nil {
			advertisement = b
		}
	}

	return HelloData{
		IsMaster:         isMaster,
		IsMasterEligible: isMasterEligible,
		Weight:           weight,
		Address:          address,
		Advertisement:    advertisement,
	}, nil
}
