// ABOUTME: Remote control message envelope and payload types
// ABOUTME: JSON encoding of hello, command, status, event and error messages
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is carried in both hello messages
const ProtocolVersion = 1

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeCommand     = "player/command"
	TypeStatus      = "player/status"
	TypeEvent       = "player/event"
	TypeError       = "server/error"
)

// Command actions
const (
	ActionPlay   = "play"
	ActionPause  = "pause"
	ActionStop   = "stop"
	ActionRepeat = "repeat"
	ActionSeek   = "seek"
	ActionLoop   = "loop"
	ActionVolume = "volume"
	ActionStatus = "status"
)

// ErrUnknownAction is returned by Apply for actions it does not know
var ErrUnknownAction = errors.New("unknown action")

// Message is the top-level wrapper for all remote messages
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage encodes payload into a message of the given type
func NewMessage(msgType, id string, payload any) (Message, error) {
	msg := Message{Type: msgType, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// Decode unmarshals the payload into v
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

// ClientHello opens a session
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello answers client/hello
type ServerHello struct {
	ServerID  string `json:"server_id"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
}

// Command asks the player to do something. Value is the frame for seek
// and hundredths of a decibel for volume; Enabled switches loop.
type Command struct {
	Action  string `json:"action"`
	Value   int    `json:"value,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
}

// Status reports the player state
type Status struct {
	State       string `json:"state"`
	Position    int    `json:"position"`
	Total       int    `json:"total"`
	SampleRate  int    `json:"sample_rate"`
	Volume      int    `json:"volume"`
	Loop        bool   `json:"loop"`
	LoopCount   int    `json:"loop_count"`
	LoopCounter int    `json:"loop_counter"`
	Title       string `json:"title,omitempty"`
	Format      string `json:"format,omitempty"`
}

// Event reports a wait result from the player
type Event struct {
	Kind  string `json:"kind"`
	Index int    `json:"index,omitempty"`
}

// ErrorPayload carries a failed command's reason
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Player is what the server drives
type Player interface {
	Play() error
	Pause() error
	Stop() error
	Repeat() error
	Seek(frame int) error
	SetLoop(on bool) error
	SetVolume(volume int) error
	Status() Status
}

// Apply runs cmd against p
func Apply(p Player, cmd Command) error {
	switch cmd.Action {
	case ActionPlay:
		return p.Play()
	case ActionPause:
		return p.Pause()
	case ActionStop:
		return p.Stop()
	case ActionRepeat:
		return p.Repeat()
	case ActionSeek:
		return p.Seek(cmd.Value)
	case ActionLoop:
		return p.SetLoop(cmd.Enabled)
	case ActionVolume:
		return p.SetVolume(cmd.Value)
	case ActionStatus:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}
