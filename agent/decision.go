package agent

import (
	"strings"
)

// Line protocol markers.
const (
	FunctionCallMarker = "FUNCTION_CALL:"
	FinalAnswerMarker  = "FINAL_ANSWER:"
)

// DecisionKind tags a Decision.
type DecisionKind int

const (
	Unparseable DecisionKind = iota
	FunctionCall
	FinalAnswer
)

// String returns the kind name.
func (k DecisionKind) String() string {
	switch k {
	case FunctionCall:
		return "function_call"
	case FinalAnswer:
		return "final_answer"
	default:
		return "unparseable"
	}
}

// Decision is the parsed classification of one oracle reply.
type Decision struct {
	Kind  DecisionKind
	Name  string   // FunctionCall
	Args  []string // FunctionCall, raw and in order
	Value string   // FinalAnswer, raw (brackets kept)
	Raw   string   // The line that was classified
}

// ParseDecision classifies an oracle reply. The first line that starts with
// FUNCTION_CALL: wins; otherwise the whole trimmed reply is classified.
func ParseDecision(text string) Decision {
	line := strings.TrimSpace(text)
	for _, l := range strings.Split(line, "\n") {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, FunctionCallMarker) {
			line = l
			break
		}
	}

	switch {
	case strings.HasPrefix(line, FunctionCallMarker):
		_, info, _ := strings.Cut(line, ":")
		parts := strings.Split(info, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return Decision{
			Kind: FunctionCall,
			Name: parts[0],
			Args: parts[1:],
			Raw:  line,
		}

	case strings.HasPrefix(line, FinalAnswerMarker):
		return Decision{
			Kind:  FinalAnswer,
			Value: strings.TrimSpace(strings.TrimPrefix(line, FinalAnswerMarker)),
			Raw:   line,
		}

	default:
		return Decision{Kind: Unparseable, Raw: line}
	}
}
