// Package insight exposes aggregated focus-group insight over net/http,
// grounded on pkg/api/valuation.Handler's style.
package insight

import (
	"encoding/json"
	"net/http"

	"panelforge/pkg/core/insight"
	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/platform"
	"panelforge/pkg/core/store"
)

var (
	focusGroups *store.MemoryStore
	responses *store.MemoryStore
	embedder llm.EmbeddingClient
	pctx *platform.Context
)

// InitHandler wires the package-level collaborators this handler reads
// through.
func InitHandler(fgStore, responseStore *store.MemoryStore, embed llm.EmbeddingClient, c *platform.Context) {
	focusGroups = fgStore
	responses = responseStore
	embedder = embed
	pctx = c
}

func cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// HandleGet aggregates per-question and overall insight for a completed
// focus group. Aggregation is computed on demand rather than
// cached, since it is cheap relative to the LLM calls that produced the
// underlying responses.
func HandleGet(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	id := r.URL.Query().Get("focus_group_id")
	if id == "" {
		http.Error(w, "missing focus_group_id", http.StatusBadRequest)
		return
	}

	fg, err := focusGroups.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	resps, err := responses.ListByFocusGroup(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stopwords := pctx.Config.StopwordSets["en"]
	blob := insight.Aggregate(r.Context(), embedder, pctx.RNG, fg, len(fg.PersonaIDs), resps, stopwords)
	insight.ApplySideEffects(fg, blob)
	if err := focusGroups.Update(r.Context(), fg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(blob)
}
