package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/models"
)

// PgEventStore is the pgx-backed Store, grounded on the
// teacher's store.FSAPCache constructor style (pool passed explicitly
// rather than resolved from a package-level singleton).
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS persona_events (
//	 id TEXT PRIMARY KEY,
//	 persona_id TEXT NOT NULL,
//	 focus_group_id TEXT,
//	 sequence_number BIGINT NOT NULL,
//	 event_type TEXT NOT NULL,
//	 event_data JSONB NOT NULL,
//	 embedding JSONB,
//	 timestamp TIMESTAMPTZ NOT NULL,
//	 UNIQUE (persona_id, sequence_number)
//	);
//
//	CREATE TABLE IF NOT EXISTS persona_event_seq (
//	 persona_id TEXT PRIMARY KEY,
//	 next_seq BIGINT NOT NULL DEFAULT 1
//	);
type PgEventStore struct {
	pool     *pgxpool.Pool
	embedder llm.EmbeddingClient
}

// NewPgEventStore returns a Store backed by pool.
func NewPgEventStore(pool *pgxpool.Pool, embedder llm.EmbeddingClient) *PgEventStore {
	return &PgEventStore{pool: pool, embedder: embedder}
}

var _ Store = (*PgEventStore)(nil)

// Append assigns the next sequence number inside a transaction so
// concurrent appends for the same persona never race past each other.
func (s *PgEventStore) Append(ctx context.Context, event models.PersonaEvent) (models.PersonaEvent, error) {
	if s.pool == nil {
		return models.PersonaEvent{}, fmt.Errorf("memory: %w: database pool not initialized", panelerr.ErrPersistenceFailed)
	}

	text := event.EventData.RenderText()
	var embedding []float64
	if s.embedder != nil && text != "" {
		if e, err := s.embedder.Embed(ctx, text); err == nil {
			embedding = e
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.PersonaEvent{}, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
	}
	defer tx.Rollback(ctx)

	// The sequence number comes from a dedicated counter row rather than
	// MAX(sequence_number) ... FOR UPDATE: a locking clause can't be combined
	// with an aggregate, and even split across two statements it would leave
	// the first append for a persona racing against a concurrent one with
	// nothing yet to lock. The upsert below is a single atomic increment.
	var seq int64
	err = tx.QueryRow(ctx,
		`INSERT INTO persona_event_seq (persona_id, next_seq) VALUES ($1, 2)
		 ON CONFLICT (persona_id) DO UPDATE SET next_seq = persona_event_seq.next_seq + 1
		 RETURNING next_seq - 1`,
		event.PersonaID,
	).Scan(&seq)
	if err != nil {
		return models.PersonaEvent{}, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
	}

	eventDataJSON, err := json.Marshal(event.EventData)
	if err != nil {
		return models.PersonaEvent{}, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
	}
	var embeddingJSON []byte
	if embedding != nil {
		embeddingJSON, _ = json.Marshal(embedding)
	}

	event.SequenceNumber = seq
	event.Embedding = embedding
	if event.ID == "" {
		event.ID = fmt.Sprintf("%s-%d", event.PersonaID, seq)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO persona_events (id, persona_id, focus_group_id, sequence_number, event_type, event_data, embedding, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		event.ID, event.PersonaID, event.FocusGroupID, event.SequenceNumber, string(event.EventType), eventDataJSON, embeddingJSON,
	)
	if err != nil {
		return models.PersonaEvent{}, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.PersonaEvent{}, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
	}

	return event, nil
}

// History returns every event for a persona ordered by sequence number.
func (s *PgEventStore) History(ctx context.Context, personaID string) ([]models.PersonaEvent, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("memory: %w: database pool not initialized", panelerr.ErrPersistenceFailed)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, persona_id, focus_group_id, sequence_number, event_type, event_data, embedding, timestamp
		 FROM persona_events WHERE persona_id = $1 ORDER BY sequence_number ASC`,
		personaID,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
	}
	defer rows.Close()

	var out []models.PersonaEvent
	for rows.Next() {
		var e models.PersonaEvent
		var focusGroupID *string
		var eventType string
		var eventDataJSON []byte
		var embeddingJSON []byte
		if err := rows.Scan(&e.ID, &e.PersonaID, &focusGroupID, &e.SequenceNumber, &eventType, &eventDataJSON, &embeddingJSON, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
		}
		if focusGroupID != nil {
			e.FocusGroupID = *focusGroupID
		}
		e.EventType = models.EventType(eventType)
		if err := json.Unmarshal(eventDataJSON, &e.EventData); err != nil {
			return nil, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
		}
		if embeddingJSON != nil {
			_ = json.Unmarshal(embeddingJSON, &e.Embedding)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: %w: %v", panelerr.ErrPersistenceFailed, err)
	}
	return out, nil
}
