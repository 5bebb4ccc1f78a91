package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"panelforge/pkg/models"
)

// ProjectRepo persists Project rows, grounded on the
// GetPool()-singleton idiom (pkg/core/store/analysis_repo.go).
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS projects (
//	 id TEXT PRIMARY KEY,
//	 owner_id TEXT NOT NULL,
//	 name TEXT NOT NULL,
//	 target_distribution JSONB NOT NULL,
//	 target_sample_size INT NOT NULL,
//	 statistically_valid BOOLEAN NOT NULL DEFAULT false,
//	 deleted_at TIMESTAMPTZ,
//	 created_at TIMESTAMPTZ NOT NULL,
//	 updated_at TIMESTAMPTZ NOT NULL
//	);
type ProjectRepo struct{}

// NewProjectRepo returns a repository that resolves the pool lazily via GetPool().
func NewProjectRepo() *ProjectRepo {
	return &ProjectRepo{}
}

func (r *ProjectRepo) Save(ctx context.Context, p *models.Project) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	distJSON, err := json.Marshal(p.TargetDistribution)
	if err != nil {
		return fmt.Errorf("failed to marshal target distribution: %w", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO projects (id, owner_id, name, target_distribution, target_sample_size, statistically_valid, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			target_distribution = EXCLUDED.target_distribution,
			target_sample_size = EXCLUDED.target_sample_size,
			statistically_valid = EXCLUDED.statistically_valid,
			deleted_at = EXCLUDED.deleted_at,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.OwnerID, p.Name, distJSON, p.TargetSampleSize, p.StatisticallyValid, p.DeletedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) Get(ctx context.Context, id string) (*models.Project, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var p models.Project
	var distJSON []byte
	err := pool.QueryRow(ctx, `
		SELECT id, owner_id, name, target_distribution, target_sample_size, statistically_valid, deleted_at, created_at, updated_at
		FROM projects WHERE id = $1
	`, id).Scan(&p.ID, &p.OwnerID, &p.Name, &distJSON, &p.TargetSampleSize, &p.StatisticallyValid, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no project found with id %s", id)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if err := json.Unmarshal(distJSON, &p.TargetDistribution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target distribution: %w", err)
	}
	return &p, nil
}
