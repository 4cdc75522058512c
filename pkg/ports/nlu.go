package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// IntentExtractor analyses a user message in the context of the current node.
// Callers treat every error as recoverable.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, message string, node *domain.Node, dialogueCtx map[string]any) (*domain.IntentResult, error)
}

// ResponseGenerator phrases a reply. req.Fallback holds the template text the
// caller will use if generation fails.
type ResponseGenerator interface {
	GenerateResponse(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// Understander is a language service providing both directions.
type Understander interface {
	IntentExtractor
	ResponseGenerator
}
