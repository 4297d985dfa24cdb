// Package result defines the vocabulary of outcomes exchanged across the
// bridge: status codes, payloads and the wire envelope the web side decodes.
package result

import "fmt"

// Status is the numeric outcome of a plugin call. The values are part of the
// wire contract and must stay in the 0-9 range the web runtime understands.
type Status int

const (
	StatusNoResult Status = iota
	StatusOK
	StatusClassNotFound
	StatusIllegalAccess
	StatusInstantiation
	StatusMalformedURL
	StatusIO
	StatusInvalidAction
	StatusJSON
	StatusError
)

var statusNames = [...]string{
	"NO_RESULT",
	"OK",
	"CLASS_NOT_FOUND_EXCEPTION",
	"ILLEGAL_ACCESS_EXCEPTION",
	"INSTANTIATION_EXCEPTION",
	"MALFORMED_URL_EXCEPTION",
	"IO_EXCEPTION",
	"INVALID_ACTION",
	"JSON_EXCEPTION",
	"ERROR",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the defined status codes.
func (s Status) Valid() bool {
	return s >= StatusNoResult && s <= StatusError
}

// IsSuccess reports whether the web side should route the result to the
// success callback. NO_RESULT counts as success, as it does in the JS runtime.
func (s Status) IsSuccess() bool {
	return s == StatusOK || s == StatusNoResult
}

// MessageType tells the receiving side how to decode retValue.
type MessageType int

const (
	// MessageTypeJSON is implied when the envelope omits messageType.
	MessageTypeJSON MessageType = iota
	MessageTypeString
	MessageTypeArrayBuffer
)

func (m MessageType) String() string {
	switch m {
	case MessageTypeJSON:
		return "JSON"
	case MessageTypeString:
		return "STRING"
	case MessageTypeArrayBuffer:
		return "ARRAYBUFFER"
	}
	return fmt.Sprintf("MessageType(%d)", int(m))
}
