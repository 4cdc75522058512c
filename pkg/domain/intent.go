package domain

import "strings"

// Intent labels with engine-level meaning.
const (
	IntentUnknown  = "unknown"
	IntentOffTopic = "off_topic"
)

// IntentResult is what the external NLU collaborator reports for a message.
type IntentResult struct {
	Intent         string         `json:"intent"`
	Entities       map[string]any `json:"entities"`
	Confidence     float64        `json:"confidence"`
	Stage          string         `json:"stage"`
	MissingSlots   []string       `json:"missing_slots"`
	AllSlotsFilled bool           `json:"all_slots_filled"`
}

// HasIntentPrefix reports whether the intent starts with one of the prefixes.
func HasIntentPrefix(intent string, prefixes ...string) bool {
	intent = strings.ToLower(intent)
	for _, p := range prefixes {
		if strings.HasPrefix(intent, p) {
			return true
		}
	}
	return false
}

// Scenario names used for response generation.
const (
	ScenarioDefault        = "default"
	ScenarioOffTopic       = "off_topic"
	ScenarioMissingSlots   = "missing_slots"
	ScenarioAllSlotsFilled = "all_slots_filled"
	ScenarioConfirmation   = "confirmation"
	ScenarioCompletion     = "completion"
)

// GenerationRequest carries everything the NLG collaborator may use to phrase
// a reply. Fallback is the template text used when generation fails.
type GenerationRequest struct {
	Node         *Node
	Context      map[string]any
	Slots        map[string]any
	Message      string
	Intent       string
	Scenario     string
	MissingSlots []string
	Fallback     string
}
