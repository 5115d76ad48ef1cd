// Package schema defines the data structures shared by the Celerix IVR handlers, stores and CLI.
package schema

import "time"

// CallerRecord represents one invited candidate for one job posting.
// It is stored in the caller table keyed by Token and is created out-of-band
// before the interview is offered.
type CallerRecord struct {
	Token               string `json:"token"`
	CandidateName       string `json:"candidateName"`
	JobPostID           string `json:"jobPostId"`
	OpportunityResultID string `json:"opportunityResultId"`
	CandidateEmail      string `json:"candidateEmail"`
	RecruiterEmail      string `json:"recruiterEmail"`
	MaxCandidates       int64  `json:"maxCandidates"`
	Consumed            bool   `json:"consumed"`
	Expiry              int64  `json:"expiry"` // epoch seconds
	PhoneNumber         string `json:"phoneNumber"`
	Active              bool   `json:"active"`
}

// Expired reports whether the record can no longer be admitted at now.
func (r CallerRecord) Expired(now time.Time) bool {
	return r.Expiry <= now.Unix() || !r.Active
}

// Public returns the fields that may be handed back to the telephony platform.
func (r CallerRecord) Public() Candidate {
	return Candidate{
		CandidateName:       r.CandidateName,
		JobPostID:           r.JobPostID,
		OpportunityResultID: r.OpportunityResultID,
		CandidateEmail:      r.CandidateEmail,
		RecruiterEmail:      r.RecruiterEmail,
	}
}

// Candidate is the caller-facing view of a CallerRecord.
type Candidate struct {
	CandidateName       string `json:"candidateName"`
	JobPostID           string `json:"jobPostId"`
	OpportunityResultID string `json:"opportunityResultId"`
	CandidateEmail      string `json:"candidateEmail"`
	RecruiterEmail      string `json:"recruiterEmail"`
}

// JobPrompt holds the initial instruction for the interview of one job posting.
// It is stored in the prompt table keyed by JobPostID.
type JobPrompt struct {
	JobPostID     string `json:"jobPostId"`
	InitialPrompt string `json:"initialPrompt"`
}

// SeedFile is the document format accepted by the admin CLI seed command.
type SeedFile struct {
	Callers []CallerRecord `json:"callers"`
	Prompts []JobPrompt    `json:"prompts"`
}
