// Package protocol defines the JSON frames exchanged over the WebSocket,
// one frame per transport message.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client -> server frame types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeMutation    = "mutation"
)

// Server -> client frame types.
const (
	TypeUpdate         = "update"
	TypeMutationResult = "mutationResult"
	TypeError          = "error"
)

// ClientFrame is an incoming frame. Params stays raw; validation and
// canonicalization happen downstream.
type ClientFrame struct {
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	SubID     string          `json:"subId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// ServerFrame is an outgoing frame. Data is pre-marshaled so error frames
// omit it cleanly and update payloads keep their exact encoding.
type ServerFrame struct {
	Type      string          `json:"type"`
	Name      string          `json:"name,omitempty"`
	SubID     string          `json:"subId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Decode parses and checks an incoming frame.
func Decode(raw []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("invalid frame: %w", err)
	}
	switch f.Type {
	case TypeSubscribe, TypeUnsubscribe:
		if f.Name == "" || f.SubID == "" {
			return f, fmt.Errorf("%s frame requires name and subId", f.Type)
		}
	case TypeMutation:
		if f.Name == "" || f.RequestID == "" {
			return f, fmt.Errorf("mutation frame requires name and requestId")
		}
	default:
		return f, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return f, nil
}

// Update builds an update frame for one subscription.
func Update(name, subID string, data json.RawMessage) ServerFrame {
	return ServerFrame{Type: TypeUpdate, Name: name, SubID: subID, Data: data}
}

// MutationResult builds the reply to a mutation frame.
func MutationResult(name, requestID string, data json.RawMessage) ServerFrame {
	return ServerFrame{Type: TypeMutationResult, Name: name, RequestID: requestID, Data: data}
}

// Error builds an error frame; any of name, subID and requestID may be empty.
func Error(name, subID, requestID, message string) ServerFrame {
	return ServerFrame{Type: TypeError, Name: name, SubID: subID, RequestID: requestID, Message: message}
}
