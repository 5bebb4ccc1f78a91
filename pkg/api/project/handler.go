// Package project exposes a thin net/http façade over project creation and
// demographic sampling, mirroring pkg/api/valuation.Handler +
// InitHandler wiring style.
package project

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"panelforge/pkg/core/platform"
	"panelforge/pkg/core/sampler"
	"panelforge/pkg/core/store"
	"panelforge/pkg/core/validator"
	"panelforge/pkg/models"
)

var (
	projects *store.MemoryStore
	pctx *platform.Context
)

// InitHandler wires the package-level store and runtime context this
// handler reads and writes through.
func InitHandler(s *store.MemoryStore, c *platform.Context) {
	projects = s
	pctx = c
}

type createRequest struct {
	OwnerID            string                         `json:"owner_id"`
	Name               string                         `json:"name"`
	TargetDistribution models.DemographicDistribution `json:"target_distribution"`
	TargetSampleSize   int                            `json:"target_sample_size"`
}

func cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// HandleCreate creates a project and immediately draws and validates a
// sample panel against its target distribution, storing
// StatisticallyValid on the project row.
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
	if req.TargetSampleSize <= 0 {
		http.Error(w, "target_sample_size must be positive", http.StatusBadRequest)
		return
	}

	now := time.Now()
	p := &models.Project{
		ID:                 uuid.New().String(),
		OwnerID:            req.OwnerID,
		Name:               req.Name,
		TargetDistribution: req.TargetDistribution,
		TargetSampleSize:   req.TargetSampleSize,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	profiles, err := sampler.Sample(pctx.RNG, p.TargetDistribution, p.TargetSampleSize)
	if err != nil {
		http.Error(w, fmt.Sprintf("sampling failed: %v", err), http.StatusUnprocessableEntity)
		return
	}
	report := validator.Validate(profiles, p.TargetDistribution)
	p.StatisticallyValid = report.Valid

	if err := projects.SaveProject(r.Context(), p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fmt.Printf("[project] created %s (%s), sampled %d profiles, valid=%v\n", p.ID, p.Name, len(profiles), report.Valid)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Project *models.Project `json:"project"`
		Report validator.Report `json:"validation_report"`
	}{p, report})
}

// HandleGet returns a previously created project.
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
	p, err := projects.GetProject(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}
