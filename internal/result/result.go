package result

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

type payloadKind int

const (
	kindNone payloadKind = iota
	kindString
	kindBinary
	kindJSON
)

// Payload is the value carried by a PluginResult. The zero value is "none".
type Payload struct {
	kind  payloadKind
	text  string
	bytes []byte
	value any
}

// None is the empty payload.
func None() Payload { return Payload{} }

// String wraps a string payload. It is base64 encoded on the wire.
func String(s string) Payload { return Payload{kind: kindString, text: s} }

// Binary wraps a byte payload. It is base64 encoded on the wire. The slice is
// copied so the caller may reuse its buffer.
func Binary(b []byte) Payload {
	return Payload{kind: kindBinary, bytes: append([]byte(nil), b...)}
}

// JSON wraps any value that encoding/json can marshal.
func JSON(v any) Payload { return Payload{kind: kindJSON, value: v} }

// IsNone reports whether the payload is empty.
func (p Payload) IsNone() bool { return p.kind == kindNone }

// PluginResult is the outcome of one plugin call, addressed to a callback id
// by whoever sends it.
type PluginResult struct {
	Status       Status
	Payload      Payload
	KeepCallback bool
}

// New creates a result with the given status and payload.
func New(status Status, payload Payload) *PluginResult {
	return &PluginResult{Status: status, Payload: payload}
}

// Envelope is the serialized form of a PluginResult as delivered to the web
// side.
type Envelope struct {
	Status       Status      `json:"status"`
	RetValue     string      `json:"retValue"`
	KeepCallback bool        `json:"keepCallback"`
	MessageType  MessageType `json:"messageType,omitempty"`
}

// Encode converts the result into its wire envelope. Strings and byte
// buffers are always base64 encoded because the envelope ends up embedded in
// generated program text. When a JSON payload cannot be marshaled the
// returned envelope carries StatusJSON and the error text, and the error is
// returned for logging.
func (r *PluginResult) Encode() (Envelope, error) {
	env := Envelope{Status: r.Status, KeepCallback: r.KeepCallback}

	switch r.Payload.kind {
	case kindNone:
	case kindString:
		env.RetValue = base64.StdEncoding.EncodeToString([]byte(r.Payload.text))
		env.MessageType = MessageTypeString
	case kindBinary:
		env.RetValue = base64.StdEncoding.EncodeToString(r.Payload.bytes)
		env.MessageType = MessageTypeArrayBuffer
	case kindJSON:
		data, err := json.Marshal(r.Payload.value)
		if err != nil {
			err = fmt.Errorf("encoding result payload: %w", err)
			return Envelope{
				Status:       StatusJSON,
				RetValue:     base64.StdEncoding.EncodeToString([]byte(err.Error())),
				KeepCallback: r.KeepCallback,
				MessageType:  MessageTypeString,
			}, err
		}
		env.RetValue = string(data)
	}
	return env, nil
}

// Marshal renders the envelope as JSON text.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ErrMalformedEnvelope is returned by Decode for input that is not a result
// envelope.
var ErrMalformedEnvelope = errors.New("malformed result envelope")

// Decode parses an envelope as produced by Envelope.Marshal.
func Decode(data []byte) (Envelope, error) {
	if !gjson.ValidBytes(data) {
		return Envelope{}, fmt.Errorf("%w: invalid JSON", ErrMalformedEnvelope)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Envelope{}, fmt.Errorf("%w: not an object", ErrMalformedEnvelope)
	}

	status := doc.Get("status")
	if status.Type != gjson.Number {
		return Envelope{}, fmt.Errorf("%w: missing status", ErrMalformedEnvelope)
	}
	env := Envelope{
		Status:       Status(status.Int()),
		RetValue:     doc.Get("retValue").String(),
		KeepCallback: doc.Get("keepCallback").Bool(),
		MessageType:  MessageType(doc.Get("messageType").Int()),
	}
	if !env.Status.Valid() {
		return Envelope{}, fmt.Errorf("%w: status %d out of range", ErrMalformedEnvelope, status.Int())
	}
	return env, nil
}

// Value returns the decoded payload bytes: the original string or buffer for
// base64 payloads, the JSON text otherwise.
func (e Envelope) Value() ([]byte, error) {
	switch e.MessageType {
	case MessageTypeString, MessageTypeArrayBuffer:
		b, err := base64.StdEncoding.DecodeString(e.RetValue)
		if err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", e.MessageType, err)
		}
		return b, nil
	case MessageTypeJSON:
		return []byte(e.RetValue), nil
	}
	return nil, fmt.Errorf("%w: unknown message type %d", ErrMalformedEnvelope, int(e.MessageType))
}
