// Package memory implements the append-only per-persona event log and the
// semantic+temporal-decay Context Retriever built on top of it. Grounded on
// original_source's memory_service_langchain.py
// (`create_event`, `retrieve_relevant_context`, `_cosine_similarity`).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/models"
)

// Store is the append-only event log contract every persona's memory is
// read and written through.
type Store interface {
	// Append assigns the next gap-free sequence number for persona_id,
	// embeds the event's rendered text (best-effort — a failed embed is
	// stored as a null embedding, never aborts the append), and persists
	// the event.
	Append(ctx context.Context, event models.PersonaEvent) (models.PersonaEvent, error)
	// History returns every event for a persona, oldest first.
	History(ctx context.Context, personaID string) ([]models.PersonaEvent, error)
}

// InMemoryStore is a process-local Store backed by a mutex-guarded map; one
// critical section per persona serializes sequence-number assignment so
// concurrent focus-group fan-out never produces a gap or a duplicate.
type InMemoryStore struct {
	mu        sync.Mutex
	byPersona map[string][]models.PersonaEvent
	embedder  llm.EmbeddingClient
	now       func() time.Time
	nextID    int64
}

// NewInMemoryStore returns a Store that embeds appended events with
// embedder. Pass a nil embedder to always store null embeddings.
func NewInMemoryStore(embedder llm.EmbeddingClient) *InMemoryStore {
	return &InMemoryStore{
		byPersona: make(map[string][]models.PersonaEvent),
		embedder:  embedder,
		now:       time.Now,
	}
}

var _ Store = (*InMemoryStore)(nil)

// Append implements Store. The embedding call happens outside the lock (it
// may be a network round trip); the sequence number is assigned and the
// event is appended inside the critical section.
func (s *InMemoryStore) Append(ctx context.Context, event models.PersonaEvent) (models.PersonaEvent, error) {
	text := event.EventData.RenderText()
	var embedding []float64
	if s.embedder != nil && text != "" {
		var err error
		embedding, err = s.embedder.Embed(ctx, text)
		if err != nil {
			// Degrade to a null embedding; the retriever simply skips
			// events with no embedding rather than failing the append.
			embedding = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.byPersona[event.PersonaID]
	var seq int64 = 1
	if len(events) > 0 {
		seq = events[len(events)-1].SequenceNumber + 1
	}

	s.nextID++
	event.ID = fmt.Sprintf("evt-%d", s.nextID)
	event.SequenceNumber = seq
	event.Embedding = embedding
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	s.byPersona[event.PersonaID] = append(events, event)
	return event, nil
}

// History implements Store.
func (s *InMemoryStore) History(ctx context.Context, personaID string) ([]models.PersonaEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.byPersona[personaID]
	out := make([]models.PersonaEvent, len(events))
	copy(out, events)
	return out, nil
}

// RetrievedEvent is one scored hit from Retrieve.
type RetrievedEvent struct {
	Event          models.PersonaEvent
	Similarity     float64
	RelevanceScore float64
	AgeDays        float64
}

const embeddingHalfLifeDaysDefault = 30.0

// Retrieve implements the Context Retriever: embed query,
// cosine-similarity-score every event with a non-null embedding, optionally
// multiply by exp(-Δt/halfLifeDays), sort descending (ties broken by newer
// timestamp), return the first topK.
func Retrieve(ctx context.Context, store Store, embedder llm.EmbeddingClient, personaID, query string, topK int, timeDecay bool, halfLifeDays float64, now time.Time) ([]RetrievedEvent, error) {
	if embedder == nil {
		return nil, fmt.Errorf("memory: %w", panelerr.ErrEmbeddingUnavailable)
	}
	if halfLifeDays <= 0 {
		halfLifeDays = embeddingHalfLifeDaysDefault
	}

	queryEmbedding, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: %w: %v", panelerr.ErrEmbeddingUnavailable, err)
	}

	events, err := store.History(ctx, personaID)
	if err != nil {
		return nil, err
	}

	scored := make([]RetrievedEvent, 0, len(events))
	for _, e := range events {
		if !e.HasEmbedding() {
			continue
		}
		similarity := cosineSimilarity(queryEmbedding, e.Embedding)
		ageDays := now.Sub(e.Timestamp).Seconds() / 86400.0
		score := similarity
		if timeDecay {
			decay := decayFactor(ageDays, halfLifeDays)
			score = similarity * decay
		}
		scored = append(scored, RetrievedEvent{Event: e, Similarity: similarity, RelevanceScore: score, AgeDays: ageDays})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].RelevanceScore != scored[j].RelevanceScore {
			return scored[i].RelevanceScore > scored[j].RelevanceScore
		}
		return scored[i].Event.Timestamp.After(scored[j].Event.Timestamp)
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// decayFactor implements exp(-Δt/H) with Δt and H both in days, preserving
// the source system's "30-day half-life" labeling even though the formula
// is a pure exponential decay (time constant H), not a true half-life.
func decayFactor(ageDays, halfLifeDays float64) float64 {
	return expNeg(ageDays / halfLifeDays)
}
