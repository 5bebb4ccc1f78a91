package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"panelforge/pkg/models"
)

// Store persists and retrieves KnowledgeGraphSnapshots keyed by focus group.
// Two implementations exist, selected by platform.Config.GraphBackend:
// an in-process cache for the default/demo path,
// and a Postgres-backed store for the "external" path — no graph-native
// store ships in the retrieval pack, so the external backend reuses the
// teacher's pgx persistence idiom (pkg/core/store/fsap_cache.go) instead of
// introducing an unwired dependency.
type Store interface {
	Save(focusGroupID string, snapshot *models.KnowledgeGraphSnapshot)
	Get(focusGroupID string) (*models.KnowledgeGraphSnapshot, bool)
}

// InMemoryStore is a mutex-guarded map, the default GraphBackendInMemory.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*models.KnowledgeGraphSnapshot
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty cache.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string]*models.KnowledgeGraphSnapshot)}
}

// Save overwrites any prior snapshot for the focus group — rebuilds are
// idempotent replacements, never incremental merges onto stale state.
func (s *InMemoryStore) Save(focusGroupID string, snapshot *models.KnowledgeGraphSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[focusGroupID] = snapshot
}

func (s *InMemoryStore) Get(focusGroupID string) (*models.KnowledgeGraphSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[focusGroupID]
	return snap, ok
}

// PgGraphStore persists the whole snapshot as one JSONB document per focus
// group, grounded on FSAPCache's constructor-injected-pool
// idiom (pkg/core/store/fsap_cache.go). Assumes a table:
//
//	CREATE TABLE knowledge_graphs (
//	 focus_group_id TEXT PRIMARY KEY,
//	 snapshot JSONB NOT NULL,
//	 updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PgGraphStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PgGraphStore)(nil)

// NewPgGraphStore wires a PgGraphStore against an existing pool.
func NewPgGraphStore(pool *pgxpool.Pool) *PgGraphStore {
	return &PgGraphStore{pool: pool}
}

// Save upserts the snapshot, replacing any prior document for the focus
// group (the MERGE-equivalent for a relational backend). Errors are
// swallowed into a log line rather than returned: Store.Save has no error
// return, mirroring the in-memory implementation it stands in for.
func (s *PgGraphStore) Save(focusGroupID string, snapshot *models.KnowledgeGraphSnapshot) {
	ctx := context.Background()
	data, err := json.Marshal(snapshot)
	if err != nil {
		fmt.Printf("[graph] failed to marshal snapshot for %s: %v\n", focusGroupID, err)
		return
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO knowledge_graphs (focus_group_id, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (focus_group_id) DO UPDATE SET snapshot = $2, updated_at = now()
	`, focusGroupID, data)
	if err != nil {
		fmt.Printf("[graph] failed to persist snapshot for %s: %v\n", focusGroupID, err)
	}
}

func (s *PgGraphStore) Get(focusGroupID string) (*models.KnowledgeGraphSnapshot, bool) {
	ctx := context.Background()
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM knowledge_graphs WHERE focus_group_id = $1`, focusGroupID).Scan(&data)
	if err != nil {
		return nil, false
	}
	var snapshot models.KnowledgeGraphSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false
	}
	return &snapshot, true
}
