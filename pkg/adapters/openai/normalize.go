package openai

import (
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultConfidence is assumed when the model reports none.
const DefaultConfidence = 0.5

// offTopicIntents are collapsed into domain.IntentOffTopic.
var offTopicIntents = map[string]bool{
	"off_topic":       true,
	"chitchat":        true,
	"small_talk":      true,
	"weather_inquiry": true,
}

// Normalize turns a loosely shaped model answer into an IntentResult: a missing
// intent becomes "unknown", confidence defaults to 0.5 and is clamped, entities
// and missing_slots of the wrong shape are dropped, and stage labels are mapped
// onto the engine's stages ("fallback" counts as general chat, unknown labels
// are kept as-is). Off-topic style intents force intent off_topic and stage
// general_chat.
func Normalize(raw map[string]any) *domain.IntentResult {
	r := &domain.IntentResult{
		Intent:     domain.IntentUnknown,
		Entities:   map[string]any{},
		Confidence: DefaultConfidence,
	}

	if s, ok := raw["intent"].(string); ok && strings.TrimSpace(s) != "" {
		r.Intent = strings.TrimSpace(s)
	}
	if m, ok := raw["entities"].(map[string]any); ok {
		for k, v := range m {
			if domain.IsFilledValue(v) {
				r.Entities[k] = v
			}
		}
	}
	r.Confidence = confidence(raw["confidence"])

	if list, ok := raw["missing_slots"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				r.MissingSlots = append(r.MissingSlots, s)
			}
		}
	}
	if b, ok := raw["all_slots_filled"].(bool); ok {
		r.AllSlotsFilled = b
	} else {
		r.AllSlotsFilled = len(r.MissingSlots) == 0 && raw["missing_slots"] != nil
	}

	if s, ok := raw["stage"].(string); ok {
		r.Stage = string(domain.ParseStage(s))
	}

	if offTopicIntents[strings.ToLower(r.Intent)] {
		r.Intent = domain.IntentOffTopic
		r.Stage = string(domain.StageGeneralChat)
	}
	return r
}

func confidence(v any) float64 {
	var c float64
	switch t := v.(type) {
	case float64:
		c = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return DefaultConfidence
		}
		c = f
	default:
		return DefaultConfidence
	}
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
