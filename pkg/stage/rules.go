package stage

import (
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Features is the textual and structural surface a node is classified on.
type Features struct {
	ID            string
	Text          string
	Actions       string
	RequiredSlots bool
	Validation    bool
	InDegree      int
	OutDegree     int
}

// Rule contributes Weight to Stage when Match holds.
type Rule struct {
	Name   string
	Stage  domain.Stage
	Weight int
	Match  func(Features) bool
}

// Match is a scored candidate stage.
type Match struct {
	Stage   domain.Stage
	Score   int
	Reasons []string
}

func keywords(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(` + strings.Join(words, "|") + `)\b`)
}

var (
	greetingWords     = keywords("welcome", "greet", "greeting", "greetings", "hello", "hi", "start", "intro", "introduction")
	slotWords         = keywords("collect", "collection", "input", "enter", "provide", "select", "information", "info", "ask", "form")
	confirmationWords = keywords("confirm", "confirmation", "agree", "agreement", "terms", "review")
	validationWords   = keywords("validate", "validation", "verify", "verification", "check")
	processingWords   = keywords("process", "processing", "submit", "execute", "api", "request")
	completionWords   = keywords("complete", "completion", "completed", "done", "success", "finish", "finished", "approved", "thanks", "thank")
	finalWords        = keywords("goodbye", "bye", "farewell", "end", "exit")
	errorWords        = keywords("error", "fail", "failure", "failed", "exception", "retry")

	validationActions = keywords("validate", "validation", "check", "verify")
	apiActions        = keywords("api", "api call", "http", "request", "webhook", "call api")
)

func textRule(name string, s domain.Stage, weight int, re *regexp.Regexp) Rule {
	return Rule{Name: name, Stage: s, Weight: weight, Match: func(f Features) bool { return re.MatchString(f.Text) }}
}

func idRule(name string, s domain.Stage, weight int, re *regexp.Regexp) Rule {
	return Rule{Name: name, Stage: s, Weight: weight, Match: func(f Features) bool { return re.MatchString(f.ID) }}
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "declares required slots", Stage: domain.StageSlotFilling, Weight: 5, Match: func(f Features) bool { return f.RequiredSlots }},
		{Name: "declares validation rules", Stage: domain.StageValidation, Weight: 5, Match: func(f Features) bool { return f.Validation }},
		{Name: "has no predecessors", Stage: domain.StageGreeting, Weight: 3, Match: func(f Features) bool { return f.InDegree == 0 && f.OutDegree > 0 }},
		{Name: "has no successors", Stage: domain.StageCompletion, Weight: 3, Match: func(f Features) bool { return f.OutDegree == 0 && f.InDegree > 0 }},
		{Name: "validation action", Stage: domain.StageValidation, Weight: 3, Match: func(f Features) bool { return validationActions.MatchString(f.Actions) }},
		{Name: "api call action", Stage: domain.StageProcessing, Weight: 3, Match: func(f Features) bool { return apiActions.MatchString(f.Actions) }},

		textRule("greeting keywords", domain.StageGreeting, 4, greetingWords),
		textRule("slot keywords", domain.StageSlotFilling, 3, slotWords),
		textRule("confirmation keywords", domain.StageConfirmation, 4, confirmationWords),
		textRule("validation keywords", domain.StageValidation, 4, validationWords),
		textRule("processing keywords", domain.StageProcessing, 4, processingWords),
		textRule("completion keywords", domain.StageCompletion, 4, completionWords),
		textRule("final keywords", domain.StageFinal, 4, finalWords),
		textRule("error keywords", domain.StageError, 4, errorWords),

		idRule("greeting name", domain.StageGreeting, 3, greetingWords),
		idRule("slot name", domain.StageSlotFilling, 3, slotWords),
		idRule("confirmation name", domain.StageConfirmation, 3, confirmationWords),
		idRule("validation name", domain.StageValidation, 3, validationWords),
		idRule("processing name", domain.StageProcessing, 3, processingWords),
		idRule("completion name", domain.StageCompletion, 3, completionWords),
		idRule("final name", domain.StageFinal, 3, finalWords),
		idRule("error name", domain.StageError, 3, errorWords),
	}
}

// Score accumulates rule weights per stage.
func Score(rules []Rule, f Features) map[domain.Stage]*Match {
	scores := make(map[domain.Stage]*Match)
	for _, r := range rules {
		if r.Match == nil || !r.Match(f) {
			continue
		}
		m, ok := scores[r.Stage]
		if !ok {
			m = &Match{Stage: r.Stage}
			scores[r.Stage] = m
		}
		m.Score += r.Weight
		m.Reasons = append(m.Reasons, r.Name)
	}
	return scores
}

// Pick selects the winning stage: highest score, ties broken by priority.
// It returns false when nothing scored.
func Pick(scores map[domain.Stage]*Match) (Match, bool) {
	if len(scores) == 0 {
		return Match{}, false
	}
	all := make([]*Match, 0, len(scores))
	for _, m := range scores {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Stage.Priority() > all[j].Stage.Priority()
	})
	return *all[0], true
}

// Confidence normalizes a score against ceiling, clamped to [0,1].
func Confidence(score, ceiling int) float64 {
	if ceiling <= 0 || score <= 0 {
		return 0
	}
	c := float64(score) / float64(ceiling)
	if c > 1 {
		return 1
	}
	return c
}

var separators = strings.NewReplacer("_", " ", "-", " ", ".", " ", "/", " ")

// normalize lower-cases text and splits identifier separators so word
// boundaries work on names like final_confirm.
func normalize(parts ...string) string {
	return separators.Replace(strings.ToLower(strings.Join(parts, " ")))
}
