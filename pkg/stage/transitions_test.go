package stage_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/stage"
	"github.com/stretchr/testify/assert"
)

func TestNextStage(t *testing.T) {
	ok := true
	bad := false
	cases := []struct {
		name    string
		current domain.Stage
		signals stage.Signals
		want    domain.Stage
	}{
		{"greeting", domain.StageGreeting, stage.Signals{}, domain.StageSlotFilling},
		{"slot filling pending", domain.StageSlotFilling, stage.Signals{}, domain.StageSlotFilling},
		{"slot filling done", domain.StageSlotFilling, stage.Signals{AllSlotsFilled: true}, domain.StageConfirmation},
		{"slot filling confirm intent", domain.StageSlotFilling, stage.Signals{Intent: "confirm_order"}, domain.StageConfirmation},
		{"validation ok", domain.StageValidation, stage.Signals{ValidationSuccess: &ok}, domain.StageConfirmation},
		{"validation failed", domain.StageValidation, stage.Signals{ValidationSuccess: &bad}, domain.StageSlotFilling},
		{"confirmation yes", domain.StageConfirmation, stage.Signals{Message: "Yes, please"}, domain.StageCompletion},
		{"confirmation yes intent", domain.StageConfirmation, stage.Signals{Intent: "confirm"}, domain.StageCompletion},
		{"confirmation korean yes", domain.StageConfirmation, stage.Signals{Message: "네 확인"}, domain.StageCompletion},
		{"confirmation no", domain.StageConfirmation, stage.Signals{Message: "no thanks"}, domain.StageSlotFilling},
		{"confirmation unclear", domain.StageConfirmation, stage.Signals{Message: "maybe"}, domain.StageConfirmation},
		{"general with slots", domain.StageGeneralChat, stage.Signals{AllSlotsFilled: true}, domain.StageConfirmation},
		{"default without slots", domain.StageDefault, stage.Signals{}, domain.StageSlotFilling},
		{"processing", domain.StageProcessing, stage.Signals{}, domain.StageCompletion},
		{"completion", domain.StageCompletion, stage.Signals{}, domain.StageCompletion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stage.NextStage(tc.current, tc.signals))
		})
	}
}

func TestSelectNode(t *testing.T) {
	visited := func(id string) bool { return id == "a" }

	assert.Equal(t, "c", stage.SelectNode([]string{"a", "b", "c"}, []string{"c"}, visited))
	assert.Equal(t, "b", stage.SelectNode([]string{"a", "b"}, nil, visited))
	assert.Equal(t, "a", stage.SelectNode([]string{"a"}, nil, visited))
	assert.Equal(t, "", stage.SelectNode(nil, nil, visited))
}

func TestAnswer(t *testing.T) {
	assert.Equal(t, stage.AnswerYes, stage.Answer("yes", ""))
	assert.Equal(t, stage.AnswerYes, stage.Answer("", "confirm"))
	assert.Equal(t, stage.AnswerNo, stage.Answer("Cancel that", ""))
	assert.Equal(t, stage.AnswerModify, stage.Answer("I want to change my name", ""))
	assert.Equal(t, stage.AnswerUnclear, stage.Answer("yes and no", ""))
	assert.Equal(t, stage.AnswerUnclear, stage.Answer("banana", ""), "substring n must not count as no")
}
