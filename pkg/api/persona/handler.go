// Package persona exposes sampling + synthesis over net/http, grounded on
// pkg/api/valuation.Handler's style.
package persona

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/persona"
	"panelforge/pkg/core/platform"
	"panelforge/pkg/core/sampler"
	"panelforge/pkg/core/store"
	"panelforge/pkg/models"
)

var (
	projects *store.MemoryStore
	personas *store.MemoryStore
	chat llm.ChatClient
	pctx *platform.Context
)

// InitHandler wires the package-level collaborators this handler reads and
// writes through. projects and personas are typically the same *MemoryStore
// instance; they're split here to mirror the repo-interface boundary the
// orchestrator depends on.
func InitHandler(projectStore, personaStore *store.MemoryStore, chatClient llm.ChatClient, c *platform.Context) {
	projects = projectStore
	personas = personaStore
	chat = chatClient
	pctx = c
}

func cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

type generateRequest struct {
	ProjectID string             `json:"project_id"`
	Count     int                `json:"count"`
	Brief     string             `json:"brief,omitempty"`
	Skew      *persona.TraitSkew `json:"trait_skew,omitempty"`
}

// HandleGenerate draws Count demographic shells from the project's target
// distribution and synthesizes a narrative Persona for each.
// Partial synthesis failures are logged and skipped rather than failing the
// whole batch — one bad LLM response shouldn't void an otherwise-valid panel.
func HandleGenerate(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		http.Error(w, "count must be positive", http.StatusBadRequest)
		return
	}

	proj, err := projects.GetProject(r.Context(), req.ProjectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	shells, err := sampler.Sample(pctx.RNG, proj.TargetDistribution, req.Count)
	if err != nil {
		http.Error(w, fmt.Sprintf("sampling failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	var brief *persona.BriefContext
	if req.Brief != "" {
		brief = &persona.BriefContext{Brief: req.Brief}
	}

	var created []*models.Persona
	for _, shell := range shells {
		_, p, err := persona.Generate(r.Context(), pctx, chat, pctx.RNG, proj.ID, shell, req.Skew, brief)
		if err != nil {
			fmt.Printf("[persona] synthesis failed for project %s: %v\n", proj.ID, err)
			continue
		}
		p.ID = uuid.New().String()
		p.CreatedAt = time.Now()
		if err := personas.SavePersona(r.Context(), p); err != nil {
			fmt.Printf("[persona] save failed for %s: %v\n", p.ID, err)
			continue
		}
		created = append(created, p)
	}

	fmt.Printf("[persona] generated %d/%d personas for project %s\n", len(created), req.Count, proj.ID)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(created)
}

// HandleListByProject returns all personas belonging to a project.
func HandleListByProject(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		http.Error(w, "missing project_id", http.StatusBadRequest)
		return
	}
	list, err := personas.GetByProject(r.Context(), projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}
