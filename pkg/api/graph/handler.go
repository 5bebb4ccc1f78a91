// Package graph exposes knowledge-graph queries over net/http, grounded on
// pkg/api/valuation.Handler's style.
package graph

import (
	"encoding/json"
	"net/http"

	"panelforge/pkg/core/graph"
)

var graphStore graph.Store

// InitHandler wires the package-level snapshot store this handler reads
// through.
func InitHandler(s graph.Store) {
	graphStore = s
}

func cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// HandleGraphData returns the full node/link view, optionally narrowed to
// positive, negative or influential personas via the `filter` query parameter.
func HandleGraphData(w http.ResponseWriter, r *http.Request) {
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
	snapshot, ok := graphStore.Get(id)
	if !ok {
		http.Error(w, "no graph snapshot for that focus group", http.StatusNotFound)
		return
	}
	data := graph.GraphData(snapshot, r.URL.Query().Get("filter"))
	respondJSON(w, data)
}

// HandleKeyConcepts returns the most mentioned concepts ranked by frequency
// and mean sentiment.
func HandleKeyConcepts(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	id := r.URL.Query().Get("focus_group_id")
	snapshot, ok := graphStore.Get(id)
	if id == "" || !ok {
		http.Error(w, "no graph snapshot for that focus group", http.StatusNotFound)
		return
	}
	respondJSON(w, graph.KeyConcepts(snapshot))
}

// HandleControversialConcepts returns concepts with high sentiment variance
// across personas.
func HandleControversialConcepts(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	id := r.URL.Query().Get("focus_group_id")
	snapshot, ok := graphStore.Get(id)
	if id == "" || !ok {
		http.Error(w, "no graph snapshot for that focus group", http.StatusNotFound)
		return
	}
	respondJSON(w, graph.ControversialConcepts(snapshot))
}

// HandleInfluentialPersonas returns personas ranked by graph centrality.
func HandleInfluentialPersonas(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	id := r.URL.Query().Get("focus_group_id")
	snapshot, ok := graphStore.Get(id)
	if id == "" || !ok {
		http.Error(w, "no graph snapshot for that focus group", http.StatusNotFound)
		return
	}
	respondJSON(w, graph.InfluentialPersonas(snapshot))
}

// HandleEmotionDistribution returns the frequency/intensity of each emotion
// observed across the transcript.
func HandleEmotionDistribution(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	id := r.URL.Query().Get("focus_group_id")
	snapshot, ok := graphStore.Get(id)
	if id == "" || !ok {
		http.Error(w, "no graph snapshot for that focus group", http.StatusNotFound)
		return
	}
	respondJSON(w, graph.EmotionDistribution(snapshot))
}

type answerRequest struct {
	FocusGroupID string `json:"focus_group_id"`
	Question     string `json:"question"`
}

// HandleAnswerQuestion routes a free-text question against the snapshot's
// precomputed query surface and returns a templated
// natural-language answer, never an LLM call.
func HandleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snapshot, ok := graphStore.Get(req.FocusGroupID)
	if !ok {
		http.Error(w, "no graph snapshot for that focus group", http.StatusNotFound)
		return
	}
	respondJSON(w, graph.AnswerQuestion(snapshot, req.Question))
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
