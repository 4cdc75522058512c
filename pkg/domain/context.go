package domain

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Context keys understood by TurnContext. Handlers propose updates keyed by
// these names; anything else lands in Extra.
const (
	KeyLastIntent            = "last_intent"
	KeyLastEntities          = "last_entities"
	KeyLastConfidence        = "last_confidence"
	KeyLastStage             = "last_stage"
	KeyLastMissingSlots      = "last_missing_slots"
	KeyLastAllSlotsFilled    = "last_all_slots_filled"
	KeyLastUserMessage       = "last_user_message"
	KeyMissingSlots          = "missing_slots"
	KeyAllSlotsFilled        = "all_slots_filled"
	KeyNodeTurns             = "node_turns"
	KeyTotalTurns            = "total_turns"
	KeyVisitedNodes          = "visited_nodes"
	KeyOffTopicCount         = "off_topic_count"
	KeyLastOffTopicMessage   = "last_off_topic_message"
	KeyGreeted               = "greeted"
	KeyConfirmationResult    = "confirmation_result"
	KeyLastValidationSuccess = "last_validation_success"
	KeyLastValidationErrors  = "last_validation_errors"
	KeySessionEnded          = "session_ended"
	KeyEndReason             = "end_reason"
)

// End reasons recorded when a session completes.
const (
	EndReasonCompleted       = "completed"
	EndReasonReachedEnd      = "reached_end"
	EndReasonTooManyOffTopic = "too_many_off_topic"
	EndReasonTurnLimit       = "turn_limit"
	EndReasonMaxTurns        = "max_turns"
	EndReasonCancelled       = "cancelled"
)

// TurnContext holds the last-turn signals of a session. Missing values keep
// their zero value, so an absent intent reads as "" and an absent flag as false.
type TurnContext struct {
	LastIntent         string         `json:"last_intent,omitempty" mapstructure:"last_intent"`
	LastEntities       map[string]any `json:"last_entities,omitempty" mapstructure:"last_entities"`
	LastConfidence     *float64       `json:"last_confidence,omitempty" mapstructure:"last_confidence"`
	LastStage          Stage          `json:"last_stage,omitempty" mapstructure:"last_stage"`
	LastMissingSlots   []string       `json:"last_missing_slots,omitempty" mapstructure:"last_missing_slots"`
	LastAllSlotsFilled bool           `json:"last_all_slots_filled,omitempty" mapstructure:"last_all_slots_filled"`
	LastUserMessage    string         `json:"last_user_message,omitempty" mapstructure:"last_user_message"`

	MissingSlots   []string `json:"missing_slots,omitempty" mapstructure:"missing_slots"`
	AllSlotsFilled bool     `json:"all_slots_filled,omitempty" mapstructure:"all_slots_filled"`

	NodeTurns    int      `json:"node_turns" mapstructure:"node_turns"`
	TotalTurns   int      `json:"total_turns" mapstructure:"total_turns"`
	VisitedNodes []string `json:"visited_nodes,omitempty" mapstructure:"visited_nodes"`

	OffTopicCount       int    `json:"off_topic_count,omitempty" mapstructure:"off_topic_count"`
	LastOffTopicMessage string `json:"last_off_topic_message,omitempty" mapstructure:"last_off_topic_message"`

	Greeted               bool                `json:"greeted,omitempty" mapstructure:"greeted"`
	ConfirmationResult    string              `json:"confirmation_result,omitempty" mapstructure:"confirmation_result"`
	LastValidationSuccess *bool               `json:"last_validation_success,omitempty" mapstructure:"last_validation_success"`
	LastValidationErrors  map[string][]string `json:"last_validation_errors,omitempty" mapstructure:"last_validation_errors"`

	SessionEnded bool   `json:"session_ended,omitempty" mapstructure:"session_ended"`
	EndReason    string `json:"end_reason,omitempty" mapstructure:"end_reason"`

	// Extra carries handler-defined keys that have no dedicated field.
	Extra map[string]any `json:"extra,omitempty" mapstructure:"-"`
}

// Apply merges a handler's proposed context updates. Known keys are decoded
// into their typed fields (weakly typed, so "3" fills an int); unknown keys are
// stored in Extra. A nil value for an unknown key removes it from Extra.
func (c *TurnContext) Apply(updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		Metadata:         &md,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build context decoder: %w", err)
	}
	if err := dec.Decode(updates); err != nil {
		return fmt.Errorf("failed to apply context updates: %w", err)
	}

	for _, key := range md.Unused {
		v := updates[key]
		if v == nil {
			delete(c.Extra, key)
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[key] = v
	}
	return nil
}

// Confidence returns the last NLU confidence and whether one was recorded.
func (c *TurnContext) Confidence() (float64, bool) {
	if c.LastConfidence == nil {
		return 0, false
	}
	return *c.LastConfidence, true
}

// SetConfidence records the last NLU confidence.
func (c *TurnContext) SetConfidence(v float64) {
	c.LastConfidence = &v
}

// OffTopic reports whether the last detected intent or stage signals chit-chat.
func (c *TurnContext) OffTopic() bool {
	return c.LastIntent == IntentOffTopic || c.LastStage == StageGeneralChat
}

// Visited reports whether the node id appears in the visited history.
func (c *TurnContext) Visited(nodeID string) bool {
	for _, v := range c.VisitedNodes {
		if v == nodeID {
			return true
		}
	}
	return false
}

// AsMap renders the context as a loose map for rule evaluation and templates.
// Extra keys never shadow typed fields.
func (c *TurnContext) AsMap() map[string]any {
	m := make(map[string]any, 24+len(c.Extra))
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.LastIntent != "" {
		m[KeyLastIntent] = c.LastIntent
	}
	if c.LastEntities != nil {
		m[KeyLastEntities] = copyMap(c.LastEntities)
	}
	if c.LastConfidence != nil {
		m[KeyLastConfidence] = *c.LastConfidence
	}
	if c.LastStage != "" {
		m[KeyLastStage] = string(c.LastStage)
	}
	if c.LastMissingSlots != nil {
		m[KeyLastMissingSlots] = stringsToAny(c.LastMissingSlots)
	}
	m[KeyLastAllSlotsFilled] = c.LastAllSlotsFilled
	if c.LastUserMessage != "" {
		m[KeyLastUserMessage] = c.LastUserMessage
	}
	if c.MissingSlots != nil {
		m[KeyMissingSlots] = stringsToAny(c.MissingSlots)
	}
	m[KeyAllSlotsFilled] = c.AllSlotsFilled
	m[KeyNodeTurns] = c.NodeTurns
	m[KeyTotalTurns] = c.TotalTurns
	m[KeyVisitedNodes] = stringsToAny(c.VisitedNodes)
	m[KeyOffTopicCount] = c.OffTopicCount
	if c.LastOffTopicMessage != "" {
		m[KeyLastOffTopicMessage] = c.LastOffTopicMessage
	}
	m[KeyGreeted] = c.Greeted
	if c.ConfirmationResult != "" {
		m[KeyConfirmationResult] = c.ConfirmationResult
	}
	if c.LastValidationSuccess != nil {
		m[KeyLastValidationSuccess] = *c.LastValidationSuccess
	}
	if c.LastValidationErrors != nil {
		errs := make(map[string]any, len(c.LastValidationErrors))
		for k, v := range c.LastValidationErrors {
			errs[k] = stringsToAny(v)
		}
		m[KeyLastValidationErrors] = errs
	}
	m[KeySessionEnded] = c.SessionEnded
	if c.EndReason != "" {
		m[KeyEndReason] = c.EndReason
	}
	return m
}

// Clone returns a deep copy of the context.
func (c TurnContext) Clone() TurnContext {
	out := c
	out.LastEntities = copyMap(c.LastEntities)
	if c.LastConfidence != nil {
		v := *c.LastConfidence
		out.LastConfidence = &v
	}
	out.LastMissingSlots = copyStrings(c.LastMissingSlots)
	out.MissingSlots = copyStrings(c.MissingSlots)
	out.VisitedNodes = copyStrings(c.VisitedNodes)
	if c.LastValidationSuccess != nil {
		v := *c.LastValidationSuccess
		out.LastValidationSuccess = &v
	}
	if c.LastValidationErrors != nil {
		out.LastValidationErrors = make(map[string][]string, len(c.LastValidationErrors))
		for k, v := range c.LastValidationErrors {
			out.LastValidationErrors[k] = copyStrings(v)
		}
	}
	out.Extra = copyMap(c.Extra)
	return out
}

// ExtraKeys returns the Extra keys in sorted order.
func (c *TurnContext) ExtraKeys() []string {
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return copyMap(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return copyStrings(x)
	default:
		return v
	}
}
