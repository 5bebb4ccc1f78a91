// Package focusgroup exposes focus-group creation and execution over
// net/http, grounded on pkg/api/valuation.Handler's style.
package focusgroup

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"panelforge/pkg/core/orchestrator"
	"panelforge/pkg/core/store"
	"panelforge/pkg/models"
)

var (
	orch *orchestrator.Orchestrator
	focusGroups *store.MemoryStore
)

// InitHandler wires the package-level orchestrator and store this handler
// drives.
func InitHandler(o *orchestrator.Orchestrator, s *store.MemoryStore) {
	orch = o
	focusGroups = s
}

func cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

type createRequest struct {
	ProjectID  string                `json:"project_id"`
	Name       string                `json:"name"`
	PersonaIDs []string              `json:"persona_ids"`
	Questions  []string              `json:"questions"`
	Mode       models.FocusGroupMode `json:"mode"`
}

// HandleCreate registers a pending FocusGroup; it does not run it.
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Questions) == 0 {
		http.Error(w, "questions must not be empty", http.StatusBadRequest)
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = models.ModeNormal
	}

	fg := &models.FocusGroup{
		ID:         uuid.New().String(),
		ProjectID:  req.ProjectID,
		Name:       req.Name,
		PersonaIDs: req.PersonaIDs,
		Questions:  req.Questions,
		Mode:       mode,
		Status:     models.StatusPending,
		CreatedAt:  time.Now(),
	}

	if err := focusGroups.CreateFocusGroup(r.Context(), fg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fmt.Printf("[focusgroup] created %s (%s), %d personas, %d questions\n", fg.ID, fg.Name, len(fg.PersonaIDs), len(fg.Questions))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(fg)
}

// HandleGet returns the current state of a focus group.
func HandleGet(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	fg, err := focusGroups.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(fg)
}

// HandleRun drives a pending focus group to completion synchronously.
// The request lasts as long as the whole run: the orchestrator bounds each
// model call with its per-call timeout but sets no overall deadline, and the
// SLO thresholds only decide meets_requirements after the run; a caller
// wanting async execution should poll HandleGet.
func HandleRun(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	if err := orch.Run(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	fg, err := focusGroups.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fmt.Printf("[focusgroup] ran %s, status=%s\n", fg.ID, fg.Status)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(fg)
}
