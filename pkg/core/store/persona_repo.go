package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"panelforge/pkg/models"
)

// PersonaRepo persists Persona rows and implements orchestrator.PersonaRepo,
// grounded on the constructor-injected-pool idiom
// (pkg/core/store/fsap_cache.go) rather than the GetPool() singleton.
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS personas (
//	 id TEXT PRIMARY KEY,
//	 project_id TEXT NOT NULL,
//	 demographic JSONB NOT NULL,
//	 traits JSONB NOT NULL,
//	 dimensions JSONB NOT NULL,
//	 full_name TEXT NOT NULL,
//	 headline TEXT,
//	 background_story TEXT,
//	 values JSONB,
//	 interests JSONB,
//	 created_at TIMESTAMPTZ NOT NULL
//	);
type PersonaRepo struct {
	pool *pgxpool.Pool
}

func NewPersonaRepo(pool *pgxpool.Pool) *PersonaRepo {
	return &PersonaRepo{pool: pool}
}

func (r *PersonaRepo) Save(ctx context.Context, p *models.Persona) error {
	demoJSON, err := json.Marshal(p.Demographic)
	if err != nil {
		return fmt.Errorf("failed to marshal demographic: %w", err)
	}
	traitsJSON, err := json.Marshal(p.Traits)
	if err != nil {
		return fmt.Errorf("failed to marshal traits: %w", err)
	}
	dimsJSON, err := json.Marshal(p.Dimensions)
	if err != nil {
		return fmt.Errorf("failed to marshal dimensions: %w", err)
	}
	valuesJSON, _ := json.Marshal(p.Values)
	interestsJSON, _ := json.Marshal(p.Interests)

	_, err = r.pool.Exec(ctx, `
		INSERT INTO personas (id, project_id, demographic, traits, dimensions, full_name, headline, background_story, values, interests, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			demographic = EXCLUDED.demographic,
			traits = EXCLUDED.traits,
			dimensions = EXCLUDED.dimensions,
			full_name = EXCLUDED.full_name,
			headline = EXCLUDED.headline,
			background_story = EXCLUDED.background_story,
			values = EXCLUDED.values,
			interests = EXCLUDED.interests
	`, p.ID, p.ProjectID, demoJSON, traitsJSON, dimsJSON, p.FullName, p.Headline, p.BackgroundStory, valuesJSON, interestsJSON, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save persona: %w", err)
	}
	return nil
}

// GetByIDs implements orchestrator.PersonaRepo and graph.PersonaLookup.
func (r *PersonaRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.Persona, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, demographic, traits, dimensions, full_name, headline, background_story, values, interests, created_at
		FROM personas WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load personas by id: %w", err)
	}
	defer rows.Close()
	return scanPersonas(rows)
}

// GetByProject implements orchestrator.PersonaRepo's project-fallback path.
func (r *PersonaRepo) GetByProject(ctx context.Context, projectID string) ([]*models.Persona, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, demographic, traits, dimensions, full_name, headline, background_story, values, interests, created_at
		FROM personas WHERE project_id = $1
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load personas by project: %w", err)
	}
	defer rows.Close()
	return scanPersonas(rows)
}

type personaRows interface {
	Next() bool
	Scan(dest...any) error
	Err() error
}

func scanPersonas(rows personaRows) ([]*models.Persona, error) {
	var out []*models.Persona
	for rows.Next() {
		var p models.Persona
		var demoJSON, traitsJSON, dimsJSON, valuesJSON, interestsJSON []byte
		if err := rows.Scan(&p.ID, &p.ProjectID, &demoJSON, &traitsJSON, &dimsJSON, &p.FullName, &p.Headline, &p.BackgroundStory, &valuesJSON, &interestsJSON, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan persona row: %w", err)
		}
		if err := json.Unmarshal(demoJSON, &p.Demographic); err != nil {
			return nil, fmt.Errorf("failed to unmarshal demographic: %w", err)
		}
		if err := json.Unmarshal(traitsJSON, &p.Traits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal traits: %w", err)
		}
		if err := json.Unmarshal(dimsJSON, &p.Dimensions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dimensions: %w", err)
		}
		if len(valuesJSON) > 0 {
			_ = json.Unmarshal(valuesJSON, &p.Values)
		}
		if len(interestsJSON) > 0 {
			_ = json.Unmarshal(interestsJSON, &p.Interests)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading persona rows: %w", err)
	}
	return out, nil
}
