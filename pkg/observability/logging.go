package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LoggingHooks writes every lifecycle event to logger at debug level, except
// failures and external errors which are warnings.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_start", "session_id", e.SessionID)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			level := slog.LevelDebug
			if e.Failed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "turn_end",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"stage", e.Stage,
				"duration", e.Duration,
				"failed", e.Failed,
			)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node_id", e.NodeID, "stage", e.Stage)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnSessionComplete: func(ctx context.Context, e *domain.SessionEvent) {
			logger.DebugContext(ctx, "session_complete",
				"session_id", e.SessionID, "node_id", e.NodeID, "end_reason", e.EndReason, "turns", e.Turns)
		},
		OnExternalError: func(ctx context.Context, e *domain.ExternalErrorEvent) {
			logger.WarnContext(ctx, "external_error",
				"session_id", e.SessionID, "node_id", e.NodeID, "op", e.Op, "error", e.Err)
		},
	}
}
