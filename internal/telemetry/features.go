package telemetry

import (
	"context"

	"github.com/petasbytes/toolbridge/internal/metrics"
)

// EmitTextFeatures records size features of text produced or consumed during a
// turn. Only counts are written, never the text itself.
func EmitTextFeatures(ctx context.Context, source, text string) {
	if !ObserveEnabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	Emit("text_features", map[string]any{
		"turn_id":          turnID,
		"source":           source,
		"features_version": "1",
		"features":         metrics.Measure(text).Fields(),
	})
}
