package insight

import "panelforge/pkg/models"

// ApplySideEffects writes the three fields the aggregator is responsible
// for back onto the FocusGroup row: despite its
// name, polarization_score is derived from the overall idea score (not
// directly from per-question polarization) — this mirrors the source
// system's invariant and must not be "corrected" to use the raw
// polarization value.
func ApplySideEffects(fg *models.FocusGroup, blob models.InsightBlob) {
	fg.PolarizationScore = clip(blob.Overall.IdeaScore/100.0, 0, 1)
	fg.OverallConsistencyScore = blob.Overall.Engagement.MeanConsistencyScore
	fg.Summary = map[string]any{"insight_blob": blob}
}
