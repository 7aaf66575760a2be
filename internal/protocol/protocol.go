// Package protocol defines the messages winbridge streams to remote
// listeners over WebSocket.
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType defines the type of a streamed message
type MessageType string

const (
	// TypeHello is sent by the server right after a client connects
	TypeHello MessageType = "hello"

	// TypeInput carries one low-level keyboard or mouse event
	TypeInput MessageType = "input"

	// TypeHotkey is sent when a hotkey or its tray item fires
	TypeHotkey MessageType = "hotkey"

	// TypeWinEvent carries one accessibility event
	TypeWinEvent MessageType = "winevent"
)

// Message is the generic container for all streamed messages
type Message struct {
	Type MessageType `json:"type"`
	// Seq numbers the messages of one server, starting at 1 after hello.
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds a message with payload encoded as JSON. A nil payload is
// omitted.
func New(t MessageType, payload any) (Message, error) {
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("protocol: encode %s payload: %w", t, err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("protocol: %s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("protocol: decode %s payload: %w", m.Type, err)
	}
	return nil
}

// HelloPayload is the payload for TypeHello
type HelloPayload struct {
	Source  string `json:"source"` // the command producing the stream
	Version string `json:"version"`
}

// HotkeyPayload is the payload for TypeHotkey
type HotkeyPayload struct {
	Label  string `json:"label"`
	Origin string `json:"origin"` // "hotkey" or "tray"
}

// WinEventPayload is the payload for TypeWinEvent
type WinEventPayload struct {
	Kind      string `json:"kind"`
	Window    uint64 `json:"hwnd"`
	ObjectID  int32  `json:"object_id"`
	ChildID   int32  `json:"child_id"`
	Thread    uint32 `json:"thread"`
	Timestamp uint32 `json:"ts"`
}
