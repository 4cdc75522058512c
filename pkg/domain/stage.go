package domain

import "strings"

// Stage is the coarse conversational purpose of a node.
type Stage string

const (
	StageGreeting     Stage = "greeting"
	StageSlotFilling  Stage = "slot_filling"
	StageValidation   Stage = "validation"
	StageConfirmation Stage = "confirmation"
	StageProcessing   Stage = "processing"
	StageCompletion   Stage = "completion"
	StageFinal        Stage = "final"
	StageError        Stage = "error"
	StageGeneralChat  Stage = "general_chat"
	StageDefault      Stage = "default"
)

// stageAliases maps labels used by upstream configurations and NLU services
// onto the canonical stage set.
var stageAliases = map[string]Stage{
	"greeting":         StageGreeting,
	"greetings":        StageGreeting,
	"greet":            StageGreeting,
	"start":            StageGreeting,
	"initial":          StageGreeting,
	"welcome":          StageGreeting,
	"slot_filling":     StageSlotFilling,
	"form_filling":     StageSlotFilling,
	"info_collection":  StageSlotFilling,
	"data_collection":  StageSlotFilling,
	"information":      StageSlotFilling,
	"nlu":              StageSlotFilling,
	"intent_detection": StageSlotFilling,
	"validation":       StageValidation,
	"verify":           StageValidation,
	"confirmation":     StageConfirmation,
	"confirm":          StageConfirmation,
	"processing":       StageProcessing,
	"process":          StageProcessing,
	"api_call":         StageProcessing,
	"api_integration":  StageProcessing,
	"completion":       StageCompletion,
	"complete":         StageCompletion,
	"final":            StageFinal,
	"end":              StageFinal,
	"goodbye":          StageFinal,
	"error":            StageError,
	"general_chat":     StageGeneralChat,
	"general":          StageGeneralChat,
	"fallback":         StageGeneralChat,
	"chitchat":         StageGeneralChat,
	"default":          StageDefault,
}

// ParseStage normalizes a stage label. Known aliases map to their canonical
// stage; unknown labels are returned lower-cased so custom handlers can still
// be registered for them. An empty label yields "".
func ParseStage(label string) Stage {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "-", "_")
	if stage, ok := stageAliases[s]; ok {
		return stage
	}
	return Stage(s)
}

// Known reports whether the stage belongs to the canonical set.
func (s Stage) Known() bool {
	_, ok := stagePriority[s]
	return ok
}

func (s Stage) String() string {
	return string(s)
}

// stagePriority orders stages for classifier tie-breaks. Higher wins.
var stagePriority = map[Stage]int{
	StageError:        9,
	StageProcessing:   8,
	StageValidation:   7,
	StageConfirmation: 6,
	StageSlotFilling:  5,
	StageCompletion:   4,
	StageFinal:        3,
	StageGreeting:     2,
	StageGeneralChat:  1,
	StageDefault:      0,
}

// Priority returns the tie-break rank of the stage. Unknown stages rank lowest.
func (s Stage) Priority() int {
	if p, ok := stagePriority[s]; ok {
		return p
	}
	return -1
}

// Terminal reports whether the stage ends a conversation.
func (s Stage) Terminal() bool {
	return s == StageCompletion || s == StageFinal
}
