package conversation

import "strings"

const (
	// EndMarker is emitted by the AI engine when it wants to close the interview.
	EndMarker = "{END_CONVERSATION}"
	// EndMarkerWindow is how many trailing characters of a reply are scanned for EndMarker.
	EndMarkerWindow = 20
	// NamePlaceholder is replaced with the candidate's name in the initial instruction.
	NamePlaceholder = "{USER_NAME}"
)

// DetectEnd looks for EndMarker in the last EndMarkerWindow characters of reply.
// When found, only that trailing occurrence is removed and leading and trailing
// whitespace of the result is trimmed. Earlier occurrences stay in the text.
// Without a marker reply is returned unchanged, whitespace included.
func DetectEnd(reply string) (visible string, ended bool) {
	runes := []rune(reply)
	tail := runes
	if len(runes) > EndMarkerWindow {
		tail = runes[len(runes)-EndMarkerWindow:]
	}
	if !strings.Contains(string(tail), EndMarker) {
		return reply, false
	}

	// The marker seen in the tail is the last occurrence in reply.
	i := strings.LastIndex(reply, EndMarker)
	return strings.TrimSpace(reply[:i] + reply[i+len(EndMarker):]), true
}

// RenderInstruction substitutes the candidate's name into the job's initial instruction.
func RenderInstruction(instruction, candidateName string) string {
	return strings.ReplaceAll(instruction, NamePlaceholder, candidateName)
}
