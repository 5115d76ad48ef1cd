// Package admission decides whether a caller holding a one-time access token
// may proceed to the interview, and consumes the token once they do.
package admission

import (
	"errors"

	"github.com/celerix-dev/celerix-ivr/pkg/schema"
)

// Code is the coarse outcome of a validation, surfaced verbatim to the telephony platform.
type Code string

const (
	Found                      Code = "Found"
	NotFound                   Code = "NotFound"
	PhoneNotMatch              Code = "PhoneNotMatch"
	AlreadyCalled              Code = "AlreadyCalled"
	JobExpired                 Code = "JobExpired"
	NotAcceptingMoreCandidates Code = "NotAcceptingMoreCandidates"
)

// Admitted reports whether the code lets the caller proceed.
func (c Code) Admitted() bool { return c == Found }

// Result is the business outcome of a validation. Candidate is set only for Found.
// Infrastructure faults are never a Result; they travel as the error return.
type Result struct {
	Code      Code              `json:"result"`
	Candidate *schema.Candidate `json:"candidate,omitempty"`
}

// ErrMissingInput is returned when the token or phone number is empty.
var ErrMissingInput = errors.New("token and phone number are required")
