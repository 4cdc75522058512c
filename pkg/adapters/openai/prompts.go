package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

const nluSystemPrompt = `You are an NLU analyzer for a task-oriented assistant. Determine the intent,
the entities and the current stage of the user's message in one pass. Output valid JSON only.

Rules:
- Output exactly one JSON object, with no markdown or commentary.
- Prefer intents and slots defined in the node config.
- Set confidence below 0.7 when unsure.
- entities is a key/value object; values are strings or arrays of strings.
- missing_slots lists required slots that are still empty (empty array if none).
- all_slots_filled says whether every required slot is filled.
- stage should be one defined in the node config; otherwise pick one of
  greeting, slot_filling, confirmation, completion, general_chat, fallback.
- If the user makes small talk unrelated to the node's purpose, set intent to
  "off_topic" and stage to "general_chat".
- Use lower snake_case intent names (e.g. order_check, address_confirm).`

const nluSchema = `Respond only with this schema:
{
  "intent": "string",
  "stage": "string",
  "entities": { "name": "value" },
  "missing_slots": ["slot_name"],
  "all_slots_filled": true,
  "confidence": 0.85
}`

const nlgSystemPrompt = `You are a helpful, natural-sounding assistant.

Follow these guidelines:
1. Reply conversationally in the user's language.
2. Acknowledge what the user said.
3. Keep the conversation on the purpose of the current step.
4. Ask for any information that is still needed.
5. If the user drifts off topic, steer them back kindly.
6. Be short and clear but warm.
7. Do not use emoji.`

// nodeView is the part of a node worth showing the model.
type nodeView struct {
	ID            string            `json:"id"`
	Stage         domain.Stage      `json:"stage,omitempty"`
	Description   string            `json:"description,omitempty"`
	RequiredSlots []string          `json:"required_slots,omitempty"`
	Responses     map[string]string `json:"responses,omitempty"`
}

func viewOf(n *domain.Node) nodeView {
	if n == nil {
		return nodeView{}
	}
	return nodeView{
		ID:            n.ID,
		Stage:         n.Stage,
		Description:   n.Description,
		RequiredSlots: n.RequiredSlots(),
		Responses:     n.Responses,
	}
}

func nluUserPrompt(message string, node *domain.Node, dialogueCtx map[string]any) (string, error) {
	nodeJSON, err := json.MarshalIndent(viewOf(node), "", "  ")
	if err != nil {
		return "", err
	}
	if dialogueCtx == nil {
		dialogueCtx = map[string]any{}
	}
	ctxJSON, err := json.MarshalIndent(dialogueCtx, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("User message: %s\n\nNode config (JSON): %s\n\nConversation context (JSON): %s\n\n%s",
		message, nodeJSON, ctxJSON, nluSchema), nil
}

func nlgUserPrompt(req domain.GenerationRequest) (string, error) {
	nodeJSON, err := json.MarshalIndent(viewOf(req.Node), "", "  ")
	if err != nil {
		return "", err
	}
	slotsJSON, err := json.Marshal(req.Slots)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User input: %q\n\n", req.Message)
	b.WriteString("Current situation:\n")
	if req.Node != nil {
		fmt.Fprintf(&b, "- Step: %s\n", req.Node.Description)
	}
	fmt.Fprintf(&b, "- Turn: %v\n", req.Context[domain.KeyTotalTurns])
	fmt.Fprintf(&b, "- Intent: %s\n", req.Intent)
	fmt.Fprintf(&b, "- Collected information: %s\n\n", slotsJSON)
	fmt.Fprintf(&b, "Node config: %s\n", nodeJSON)

	switch {
	case req.Intent == domain.IntentOffTopic || req.Scenario == domain.ScenarioOffTopic:
		b.WriteString("\nNote: the user said something unrelated to this step. Guide them back kindly.\n")
	case len(req.MissingSlots) > 0:
		fmt.Fprintf(&b, "\nStill needed: %s. Ask for it naturally.\n", strings.Join(req.MissingSlots, ", "))
	case req.Scenario == domain.ScenarioAllSlotsFilled:
		b.WriteString("\nAll required information is collected. Confirm it and explain the next step.\n")
	}
	if req.Fallback != "" {
		fmt.Fprintf(&b, "\nThe scripted reply for this step is: %q. Keep its meaning.\n", req.Fallback)
	}
	b.WriteString("\nWrite a natural, helpful reply to the user.")
	return b.String(), nil
}
