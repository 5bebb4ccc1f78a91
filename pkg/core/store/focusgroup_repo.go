package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"panelforge/pkg/models"
)

// FocusGroupRepo persists FocusGroup rows and implements
// orchestrator.FocusGroupRepo.
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS focus_groups (
//	 id TEXT PRIMARY KEY,
//	 project_id TEXT NOT NULL,
//	 name TEXT NOT NULL,
//	 persona_ids JSONB NOT NULL,
//	 questions JSONB NOT NULL,
//	 mode TEXT NOT NULL,
//	 status TEXT NOT NULL,
//	 created_at TIMESTAMPTZ NOT NULL,
//	 started_at TIMESTAMPTZ,
//	 completed_at TIMESTAMPTZ,
//	 total_execution_time_ms BIGINT,
//	 avg_response_time_ms DOUBLE PRECISION,
//	 meets_requirements BOOLEAN,
//	 polarization_score DOUBLE PRECISION,
//	 overall_consistency_score DOUBLE PRECISION,
//	 error_message TEXT,
//	 summary JSONB
//	);
type FocusGroupRepo struct {
	pool *pgxpool.Pool
}

func NewFocusGroupRepo(pool *pgxpool.Pool) *FocusGroupRepo {
	return &FocusGroupRepo{pool: pool}
}

func (r *FocusGroupRepo) Create(ctx context.Context, fg *models.FocusGroup) error {
	personaIDsJSON, _ := json.Marshal(fg.PersonaIDs)
	questionsJSON, _ := json.Marshal(fg.Questions)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO focus_groups (id, project_id, name, persona_ids, questions, mode, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, fg.ID, fg.ProjectID, fg.Name, personaIDsJSON, questionsJSON, string(fg.Mode), string(fg.Status), fg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create focus group: %w", err)
	}
	return nil
}

// Get implements orchestrator.FocusGroupRepo.
func (r *FocusGroupRepo) Get(ctx context.Context, id string) (*models.FocusGroup, error) {
	var fg models.FocusGroup
	var personaIDsJSON, questionsJSON, summaryJSON []byte
	var mode, status string

	err := r.pool.QueryRow(ctx, `
		SELECT id, project_id, name, persona_ids, questions, mode, status, created_at, started_at, completed_at,
		 total_execution_time_ms, avg_response_time_ms, meets_requirements, polarization_score,
		 overall_consistency_score, error_message, summary
		FROM focus_groups WHERE id = $1
	`, id).Scan(&fg.ID, &fg.ProjectID, &fg.Name, &personaIDsJSON, &questionsJSON, &mode, &status, &fg.CreatedAt,
		&fg.StartedAt, &fg.CompletedAt, &fg.TotalExecutionTimeMS, &fg.AvgResponseTimeMS, &fg.MeetsRequirements,
		&fg.PolarizationScore, &fg.OverallConsistencyScore, &fg.ErrorMessage, &summaryJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no focus group found with id %s", id)
		}
		return nil, fmt.Errorf("failed to load focus group: %w", err)
	}

	fg.Mode = models.FocusGroupMode(mode)
	fg.Status = models.FocusGroupStatus(status)
	if err := json.Unmarshal(personaIDsJSON, &fg.PersonaIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal persona_ids: %w", err)
	}
	if err := json.Unmarshal(questionsJSON, &fg.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	if len(summaryJSON) > 0 {
		_ = json.Unmarshal(summaryJSON, &fg.Summary)
	}
	return &fg, nil
}

// Update implements orchestrator.FocusGroupRepo: a single UPDATE of the
// mutable fields the orchestrator's state machine changes.
func (r *FocusGroupRepo) Update(ctx context.Context, fg *models.FocusGroup) error {
	summaryJSON, err := json.Marshal(fg.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE focus_groups SET
			status = $2, started_at = $3, completed_at = $4, total_execution_time_ms = $5,
			avg_response_time_ms = $6, meets_requirements = $7, polarization_score = $8,
			overall_consistency_score = $9, error_message = $10, summary = $11
		WHERE id = $1
	`, fg.ID, string(fg.Status), fg.StartedAt, fg.CompletedAt, fg.TotalExecutionTimeMS, fg.AvgResponseTimeMS,
		fg.MeetsRequirements, fg.PolarizationScore, fg.OverallConsistencyScore, fg.ErrorMessage, summaryJSON)
	if err != nil {
		return fmt.Errorf("failed to update focus group: %w", err)
	}
	return nil
}
