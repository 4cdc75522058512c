package executor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/condition"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

// Render substitutes {name} placeholders from vars. Dotted names walk nested
// maps. Unknown placeholders are left untouched.
func Render(template string, vars map[string]any) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		v := condition.Lookup(vars, key)
		if v == nil {
			return m
		}
		return format(v)
	})
}

// Vars builds the template variables of a request: the turn context, filled
// slots, turn_count, session_id and user_message, then extra.
func Vars(req *Request, extra map[string]any) map[string]any {
	vars := req.State.Context.AsMap()
	for k, v := range req.State.FilledSlots() {
		vars[k] = v
	}
	vars["turn_count"] = req.State.TurnCount
	vars["session_id"] = req.State.SessionID
	vars["user_message"] = req.Message
	vars["current_node"] = req.Node.ID
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

// Summary lists filled slots as "name: value" lines in name order.
func Summary(slots map[string]any) string {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = name + ": " + format(slots[name])
	}
	return strings.Join(lines, "\n")
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = format(p)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
