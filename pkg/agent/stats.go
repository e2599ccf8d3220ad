package agent

import (
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/store"
)

// ComputeStats aggregates the per-message annotations of a finished
// conversation. The annotated-time percentage shows how much of the wall
// clock is covered by model calls and tool executions; a low figure points
// at time lost to host-app pauses.
func ComputeStats(conv *domain.Conversation, wall time.Duration) store.Stats {
	var s store.Stats
	for _, m := range conv.Messages {
		s.TotalInputTokens += m.Annotations.InputTokens
		s.TotalOutputTokens += m.Annotations.OutputTokens
		s.TotalAnnotatedMS += m.Annotations.LatencyMS
	}
	s.TotalWallMS = wall.Milliseconds()
	if s.TotalWallMS > 0 {
		s.AnnotatedPercent = float64(s.TotalAnnotatedMS) / float64(s.TotalWallMS) * 100
	}
	return s
}
