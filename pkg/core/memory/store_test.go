package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/models"
)

func newQuestionEvent(personaID string, question string, ts time.Time) models.PersonaEvent {
	return models.PersonaEvent{
		PersonaID: personaID,
		EventType: models.EventQuestionAsked,
		EventData: models.EventPayload{
			Kind:     models.EventQuestionAsked,
			Question: &models.QuestionPayload{Question: question},
		},
		Timestamp: ts,
	}
}

func TestAppendAssignsGapFreeSequenceNumbers(t *testing.T) {
	store := NewInMemoryStore(llm.NewMockEmbeddingClient(8))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e, err := store.Append(ctx, newQuestionEvent("p1", "q", time.Now()))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), e.SequenceNumber)
	}
}

func TestAppendSerializesConcurrentWritesPerPersona(t *testing.T) {
	store := NewInMemoryStore(llm.NewMockEmbeddingClient(8))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append(ctx, newQuestionEvent("p1", "q", time.Now()))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := store.History(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, history, 50)

	seen := map[int64]bool{}
	for _, e := range history {
		assert.False(t, seen[e.SequenceNumber], "duplicate sequence number %d", e.SequenceNumber)
		seen[e.SequenceNumber] = true
	}
	assert.Len(t, seen, 50)
}

func TestRetrieveOrdersByRelevanceDescending(t *testing.T) {
	embedder := llm.NewMockEmbeddingClient(16)
	store := NewInMemoryStore(embedder)
	ctx := context.Background()

	_, err := store.Append(ctx, newQuestionEvent("p1", "thoughts on pricing and value", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	_, err = store.Append(ctx, newQuestionEvent("p1", "completely unrelated topic about weather", time.Now()))
	require.NoError(t, err)

	results, err := Retrieve(ctx, store, embedder, "p1", "pricing and value", 5, false, 30, time.Now())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestRetrieveDecayPrefersNewerEventAtEqualSimilarity(t *testing.T) {
	embedder := llm.NewMockEmbeddingClient(16)
	store := NewInMemoryStore(embedder)
	ctx := context.Background()
	now := time.Now()

	older := newQuestionEvent("p1", "identical text", now.Add(-60*24*time.Hour))
	newer := newQuestionEvent("p1", "identical text", now)
	_, err := store.Append(ctx, older)
	require.NoError(t, err)
	_, err = store.Append(ctx, newer)
	require.NoError(t, err)

	results, err := Retrieve(ctx, store, embedder, "p1", "identical text", 5, true, 30, now)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Event.Timestamp.After(results[1].Event.Timestamp))

	noDecay, err := Retrieve(ctx, store, embedder, "p1", "identical text", 5, false, 30, now)
	require.NoError(t, err)
	require.Len(t, noDecay, 2)
	assert.InDelta(t, noDecay[0].RelevanceScore, noDecay[1].RelevanceScore, 1e-9)
}

func TestDecayFactorDecreasesMonotonicallyWithAge(t *testing.T) {
	f1 := decayFactor(1, 30)
	f30 := decayFactor(30, 30)
	f60 := decayFactor(60, 30)
	assert.Greater(t, f1, f30)
	assert.Greater(t, f30, f60)
}
