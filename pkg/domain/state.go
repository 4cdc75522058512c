package domain

import (
	"sort"
	"strings"
	"time"
)

// Slot sources recorded on slot updates.
const (
	SourceNLU     = "nlu"
	SourceHandler = "handler"
	SourceUser    = "user"
)

// Slot is a collected piece of information with provenance.
type Slot struct {
	Value      any       `json:"value"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Filled reports whether the slot carries a usable value: non-nil and, for
// text, non-blank after trimming.
func (s Slot) Filled() bool {
	return IsFilledValue(s.Value)
}

// IsFilledValue applies the slot "filled" rule to a raw value.
func IsFilledValue(v any) bool {
	if v == nil {
		return false
	}
	if str, ok := v.(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return true
}

// SlotUpdate is a handler's proposal for a slot.
type SlotUpdate struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// DialogueState is the per-session record persisted between turns.
type DialogueState struct {
	SessionID    string          `json:"session_id"`
	CurrentNode  string          `json:"current_node"`
	PreviousNode string          `json:"previous_node,omitempty"`
	Slots        map[string]Slot `json:"slots"`
	Context      TurnContext     `json:"context"`
	TurnCount    int             `json:"turn_count"`
	Complete     bool            `json:"complete"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewDialogueState creates a fresh state positioned at the start node.
func NewDialogueState(sessionID, startNode string, now time.Time) *DialogueState {
	return &DialogueState{
		SessionID:   sessionID,
		CurrentNode: startNode,
		Slots:       make(map[string]Slot),
		Context: TurnContext{
			NodeTurns: 1,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so the runtime can mutate a working copy and
// discard it if the turn fails.
func (s *DialogueState) Clone() *DialogueState {
	if s == nil {
		return nil
	}
	out := *s
	out.Slots = make(map[string]Slot, len(s.Slots))
	for k, v := range s.Slots {
		v.Value = copyValue(v.Value)
		out.Slots[k] = v
	}
	out.Context = s.Context.Clone()
	return &out
}

// ApplySlotUpdates writes proposed slot values stamped with now.
func (s *DialogueState) ApplySlotUpdates(updates map[string]SlotUpdate, now time.Time) {
	if len(updates) == 0 {
		return
	}
	if s.Slots == nil {
		s.Slots = make(map[string]Slot, len(updates))
	}
	for name, u := range updates {
		source := u.Source
		if source == "" {
			source = SourceHandler
		}
		s.Slots[name] = Slot{
			Value:      u.Value,
			Confidence: clamp01(u.Confidence),
			Source:     source,
			UpdatedAt:  now,
		}
	}
}

// FilledSlots returns the values of all filled slots.
func (s *DialogueState) FilledSlots() map[string]any {
	out := make(map[string]any, len(s.Slots))
	for name, slot := range s.Slots {
		if slot.Filled() {
			out[name] = slot.Value
		}
	}
	return out
}

// SlotFilled reports whether a named slot is filled.
func (s *DialogueState) SlotFilled(name string) bool {
	slot, ok := s.Slots[name]
	return ok && slot.Filled()
}

// MissingSlots returns the required slots that are not yet filled, in the
// order they were required.
func (s *DialogueState) MissingSlots(required []string) []string {
	missing := make([]string, 0, len(required))
	for _, name := range required {
		if !s.SlotFilled(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// SlotNames returns slot names in sorted order.
func (s *DialogueState) SlotNames() []string {
	names := make([]string, 0, len(s.Slots))
	for name := range s.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// End marks the session complete with a reason.
func (s *DialogueState) End(reason string) {
	s.Complete = true
	s.Context.SessionEnded = true
	if s.Context.EndReason == "" {
		s.Context.EndReason = reason
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
