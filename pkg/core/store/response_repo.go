package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"panelforge/pkg/models"
)

// ResponseRepo persists PersonaResponse rows and implements both
// orchestrator.ResponseRepo.SaveBatch and graph.ResponseSource.ListByFocusGroup.
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS persona_responses (
//	 id TEXT PRIMARY KEY,
//	 focus_group_id TEXT NOT NULL,
//	 persona_id TEXT NOT NULL,
//	 question_index INT NOT NULL,
//	 question TEXT NOT NULL,
//	 response_text TEXT NOT NULL,
//	 latency_ms BIGINT NOT NULL,
//	 error BOOLEAN NOT NULL DEFAULT false,
//	 error_message TEXT,
//	 consistency_score DOUBLE PRECISION,
//	 created_at TIMESTAMPTZ NOT NULL
//	);
type ResponseRepo struct {
	pool *pgxpool.Pool
}

func NewResponseRepo(pool *pgxpool.Pool) *ResponseRepo {
	return &ResponseRepo{pool: pool}
}

// SaveBatch implements orchestrator.ResponseRepo: one question's worth of
// persona responses committed atomically inside a single transaction, the
// same tx.Begin/Exec/Commit shape memory.PgEventStore.Append uses.
func (r *ResponseRepo) SaveBatch(ctx context.Context, responses []models.PersonaResponse) error {
	if len(responses) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin response batch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, resp := range responses {
		if resp.ID == "" {
			resp.ID = fmt.Sprintf("%s-%s-%d", resp.FocusGroupID, resp.PersonaID, resp.QuestionIndex)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO persona_responses (id, focus_group_id, persona_id, question_index, question, response_text, latency_ms, error, error_message, consistency_score, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				response_text = EXCLUDED.response_text,
				latency_ms = EXCLUDED.latency_ms,
				error = EXCLUDED.error,
				error_message = EXCLUDED.error_message,
				consistency_score = EXCLUDED.consistency_score
		`, resp.ID, resp.FocusGroupID, resp.PersonaID, resp.QuestionIndex, resp.Question, resp.ResponseText,
			resp.LatencyMS, resp.Error, resp.ErrorMessage, resp.ConsistencyScore, resp.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save response batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit response batch: %w", err)
	}
	return nil
}

// ListByFocusGroup implements graph.ResponseSource.
func (r *ResponseRepo) ListByFocusGroup(ctx context.Context, focusGroupID string) ([]models.PersonaResponse, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, focus_group_id, persona_id, question_index, question, response_text, latency_ms, error, error_message, consistency_score, created_at
		FROM persona_responses WHERE focus_group_id = $1
		ORDER BY question_index, persona_id
	`, focusGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for focus group: %w", err)
	}
	defer rows.Close()

	var out []models.PersonaResponse
	for rows.Next() {
		var resp models.PersonaResponse
		if err := rows.Scan(&resp.ID, &resp.FocusGroupID, &resp.PersonaID, &resp.QuestionIndex, &resp.Question,
			&resp.ResponseText, &resp.LatencyMS, &resp.Error, &resp.ErrorMessage, &resp.ConsistencyScore, &resp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response row: %w", err)
		}
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading response rows: %w", err)
	}
	return out, nil
}
