// Package conversation rebuilds a stateless AI interview across telephony turns.
// The transcript travels inside an opaque session token the platform echoes back.
package conversation

import (
	"errors"
	"fmt"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the transcript. Final marks the assistant entry
// that closed the interview.
type Message struct {
	Role    Role   `json:"role" cbor:"role"`
	Content string `json:"content" cbor:"content"`
	Final   bool   `json:"final,omitempty" cbor:"final,omitempty"`
}

// Transcript is the ordered exchange with the AI engine.
// At most one system entry exists and it is always first. A final entry, if
// any, is an assistant entry and always last.
type Transcript []Message

// ErrMalformedToken is returned when a session token cannot be turned back into a transcript.
var ErrMalformedToken = errors.New("malformed session token")

// Validate checks the role and ordering invariants.
func (t Transcript) Validate() error {
	for i, m := range t {
		switch m.Role {
		case RoleSystem:
			if i != 0 {
				return fmt.Errorf("system entry at position %d", i)
			}
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("unknown role %q at position %d", m.Role, i)
		}
		if m.Final && (m.Role != RoleAssistant || i != len(t)-1) {
			return fmt.Errorf("final %s entry at position %d", m.Role, i)
		}
	}
	return nil
}

// With returns a copy of t with m appended, leaving t untouched.
func (t Transcript) With(m Message) Transcript {
	out := make(Transcript, len(t), len(t)+1)
	copy(out, t)
	return append(out, m)
}
