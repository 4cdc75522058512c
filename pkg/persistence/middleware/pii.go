package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, before saving, slot
// values and entity/extra keys whose names match any of the patterns. The
// caller's state is left untouched; masked values do not come back on Load.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.DialogueState) error {
	cloned := state.Clone()
	for name, slot := range cloned.Slots {
		if m.sensitive(name) && slot.Filled() {
			slot.Value = Mask
			cloned.Slots[name] = slot
		}
	}
	m.maskMap(cloned.Context.LastEntities)
	m.maskMap(cloned.Context.Extra)
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.DialogueState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) Cleanup(ctx context.Context) (int, error) {
	return cleanup(ctx, m.next)
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) maskMap(values map[string]any) {
	for k, v := range values {
		if m.sensitive(k) {
			values[k] = Mask
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			m.maskMap(sub)
		}
	}
}
