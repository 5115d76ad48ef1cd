package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/celerix-dev/celerix-ivr/pkg/schema"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// State is the position of a telephony session in the interview.
type State int

const (
	// StateBootstrap: no prior token, the transcript must be seeded.
	StateBootstrap State = iota
	// StateActive: the interview is ongoing.
	StateActive
	// StateEnded: the AI engine emitted EndMarker. Terminal.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateBootstrap:
		return "bootstrap"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrEmptyUtterance is returned when a turn carries no caller speech.
	ErrEmptyUtterance = errors.New("utterance is required")
	// ErrUnknownJob is returned when no initial instruction exists for a job posting.
	ErrUnknownJob = errors.New("no initial instruction for job post")
	// ErrConversationEnded is returned for a turn on a session token whose interview already ended.
	ErrConversationEnded = errors.New("conversation already ended")
)

// Engine is the conversational AI. It keeps no memory between calls.
type Engine interface {
	Complete(ctx context.Context, t Transcript) (string, error)
}

// InstructionSource looks up a job's initial instruction.
type InstructionSource interface {
	InitialInstruction(ctx context.Context, jobPostID string) (string, error)
}

// --- Pure transition ---

// StateOf classifies a decoded transcript.
func StateOf(t Transcript) State {
	if len(t) == 0 {
		return StateBootstrap
	}
	if t[len(t)-1].Final {
		return StateEnded
	}
	return StateActive
}

// Prepare is the first half of a turn. On bootstrap the transcript is seeded with the
// system instruction, then the caller's utterance is appended.
func Prepare(prior Transcript, systemInstruction, utterance string) Transcript {
	pending := prior
	if StateOf(prior) == StateBootstrap {
		pending = Transcript{{Role: RoleSystem, Content: systemInstruction}}
	}
	return pending.With(Message{Role: RoleUser, Content: utterance})
}

// Conclude is the second half: it records the AI reply and decides whether the
// interview is over. An ending reply is stored as the final entry so the next
// token decodes as StateEnded.
func Conclude(pending Transcript, reply string) (next Transcript, visible string, state State) {
	visible, ended := DetectEnd(reply)
	next = pending.With(Message{Role: RoleAssistant, Content: visible, Final: ended})
	if ended {
		return next, visible, StateEnded
	}
	return next, visible, StateActive
}

// --- I/O shell ---

// TurnRequest is what the telephony platform sends on every turn.
type TurnRequest struct {
	SessionToken  string `json:"sessionToken"`
	Utterance     string `json:"utterance" binding:"required"`
	CandidateName string `json:"candidateName"`
	JobPostID     string `json:"jobPostId"`
}

// TurnResponse is what the telephony platform needs to speak and continue or hang up.
type TurnResponse struct {
	Reply        string `json:"reply"`
	SessionToken string `json:"sessionToken"`
	Ended        bool   `json:"isConversationEnded"`
	State        State  `json:"-"`
}

// Orchestrator runs one conversational turn per call.
type Orchestrator struct {
	Codec        *Codec
	Engine       Engine
	Instructions InstructionSource
	Logger       *slog.Logger
}

// Turn reconstructs the transcript from the request token, runs the AI engine and
// returns the next token. On any failure no token is produced, so the platform keeps
// the previous one. A token from an ended interview is rejected before the AI
// engine is called.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	if strings.TrimSpace(req.Utterance) == "" {
		return TurnResponse{}, ErrEmptyUtterance
	}

	prior, err := o.Codec.Decode(req.SessionToken)
	if err != nil {
		return TurnResponse{}, err
	}
	if StateOf(prior) == StateEnded {
		return TurnResponse{State: StateEnded}, ErrConversationEnded
	}

	var system string
	if StateOf(prior) == StateBootstrap {
		instruction, err := o.Instructions.InitialInstruction(ctx, req.JobPostID)
		if err != nil {
			return TurnResponse{}, fmt.Errorf("bootstrap %s: %w", req.JobPostID, err)
		}
		system = RenderInstruction(instruction, req.CandidateName)
	}

	pending := Prepare(prior, system, req.Utterance)
	reply, err := o.Engine.Complete(ctx, pending)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("ai engine: %w", err)
	}

	next, visible, state := Conclude(pending, reply)
	token, err := o.Codec.Encode(next)
	if err != nil {
		return TurnResponse{}, err
	}

	o.logger().Info("conversation turn", "job_post_id", req.JobPostID, "state", state.String(), "entries", len(next))
	return TurnResponse{
		Reply:        visible,
		SessionToken: token,
		Ended:        state == StateEnded,
		State:        state,
	}, nil
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// PromptTable reads initial instructions from the record store.
type PromptTable struct {
	Records sdk.ItemReader
	Table   string
}

func (p *PromptTable) InitialInstruction(ctx context.Context, jobPostID string) (string, error) {
	if strings.TrimSpace(jobPostID) == "" {
		return "", ErrUnknownJob
	}
	prompt, err := sdk.Get[schema.JobPrompt](ctx, p.Records, p.Table, jobPostID)
	if errors.Is(err, sdk.ErrNotFound) {
		return "", ErrUnknownJob
	}
	if err != nil {
		return "", err
	}
	if prompt.InitialPrompt == "" {
		return "", ErrUnknownJob
	}
	return prompt.InitialPrompt, nil
}
