package stage

import (
	"strings"
	"unicode"

	"github.com/aretw0/arbor/pkg/domain"
)

// Signals are the context facts the transition table looks at.
type Signals struct {
	AllSlotsFilled    bool
	Intent            string
	Message           string
	ValidationSuccess *bool
}

// NextStage returns the stage the conversation should move to from current.
func NextStage(current domain.Stage, s Signals) domain.Stage {
	switch current {
	case domain.StageGreeting:
		return domain.StageSlotFilling
	case domain.StageSlotFilling:
		if s.AllSlotsFilled || domain.HasIntentPrefix(s.Intent, "confirm") {
			return domain.StageConfirmation
		}
		return domain.StageSlotFilling
	case domain.StageValidation:
		if s.ValidationSuccess != nil && *s.ValidationSuccess {
			return domain.StageConfirmation
		}
		return domain.StageSlotFilling
	case domain.StageConfirmation:
		switch Answer(s.Message, s.Intent) {
		case AnswerYes:
			return domain.StageCompletion
		case AnswerNo:
			return domain.StageSlotFilling
		}
		return domain.StageConfirmation
	case domain.StageProcessing:
		return domain.StageCompletion
	case domain.StageError:
		return domain.StageGeneralChat
	case domain.StageCompletion, domain.StageFinal:
		return current
	default:
		if s.AllSlotsFilled {
			return domain.StageConfirmation
		}
		return domain.StageSlotFilling
	}
}

// SelectNode picks a node among candidates of the desired stage: a successor
// of the current node first, then the first unvisited candidate, then the
// first candidate. It returns "" when there are no candidates.
func SelectNode(candidates, successors []string, visited func(string) bool) string {
	if len(candidates) == 0 {
		return ""
	}
	next := make(map[string]bool, len(successors))
	for _, s := range successors {
		next[s] = true
	}
	for _, c := range candidates {
		if next[c] {
			return c
		}
	}
	for _, c := range candidates {
		if visited == nil || !visited(c) {
			return c
		}
	}
	return candidates[0]
}

// AnswerKind classifies a reply to a yes/no question.
type AnswerKind int

const (
	AnswerUnclear AnswerKind = iota
	AnswerYes
	AnswerNo
	AnswerModify
)

var (
	yesWords = wordSet("yes", "y", "yeah", "yep", "yup", "ok", "okay", "sure", "correct", "right",
		"confirm", "confirmed", "agree", "네", "예", "응", "확인", "맞아요", "맞습니다", "좋아요")
	noWords = wordSet("no", "n", "nope", "nah", "cancel", "wrong", "incorrect", "stop",
		"아니요", "아니오", "아니", "취소")
	modifyWords = wordSet("modify", "change", "edit", "update", "fix", "수정", "변경")

	yesIntents = wordSet("confirm", "yes", "affirm", "agree")
	noIntents  = wordSet("cancel", "deny", "no", "reject")
)

// Answer interprets a message (and optionally the NLU intent) as yes, no or a
// request to modify. Messages carrying both yes and no words are unclear.
func Answer(message, intent string) AnswerKind {
	intent = strings.ToLower(strings.TrimSpace(intent))
	words := Words(message)

	var yes, no, modify bool
	for _, w := range words {
		yes = yes || yesWords[w]
		no = no || noWords[w]
		modify = modify || modifyWords[w]
	}
	yes = yes || yesIntents[intent]
	no = no || noIntents[intent]

	switch {
	case modify:
		return AnswerModify
	case yes && !no:
		return AnswerYes
	case no && !yes:
		return AnswerNo
	}
	return AnswerUnclear
}

// Words lower-cases and splits a message on anything that is not a letter or
// digit.
func Words(message string) []string {
	return strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
