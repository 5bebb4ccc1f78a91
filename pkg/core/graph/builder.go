package graph

import (
	"context"
	"fmt"
	"math"
	"sort"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/models"
)

// PersonaLookup supplies the persona attributes a Persona node records.
type PersonaLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]*models.Persona, error)
}

// ResponseSource supplies the transcript rows a graph is built from.
type ResponseSource interface {
	ListByFocusGroup(ctx context.Context, focusGroupID string) ([]models.PersonaResponse, error)
}

// ExtractionCache memoizes ExtractConcepts results by response text so a
// graph rebuild never re-pays an LLM round trip for an unchanged response.
// Implemented by store.ExtractionCache; optional.
type ExtractionCache interface {
	Get(ctx context.Context, text string) (*Extraction, bool)
	Save(ctx context.Context, text string, ext Extraction)
}

// Builder constructs and rebuilds KnowledgeGraphSnapshots from a focus
// group's responses. Grounded on graph_service.py's
// build_graph_from_focus_group, generalized off its Neo4j MERGE statements
// into equivalent in-memory node/edge mutation rules.
type Builder struct {
	Personas  PersonaLookup
	Responses ResponseSource
	Chat      llm.ChatClient // optional; nil forces the keyword fallback path
	Store     Store
	Cache     ExtractionCache // optional; nil disables memoization
}

// NewBuilder wires a Builder against the given collaborators.
func NewBuilder(personas PersonaLookup, responses ResponseSource, chat llm.ChatClient, store Store) *Builder {
	return &Builder{Personas: personas, Responses: responses, Chat: chat, Store: store}
}

// BuildFromFocusGroup loads the transcript, extracts concepts per response,
// and writes a fresh snapshot for focusGroupID — rebuilding is idempotent:
// it always starts from an empty snapshot rather than mutating the
// previous one in place.
func (b *Builder) BuildFromFocusGroup(ctx context.Context, focusGroupID string) error {
	responses, err := b.Responses.ListByFocusGroup(ctx, focusGroupID)
	if err != nil {
		return fmt.Errorf("%w: loading responses for graph build: %v", panelerr.ErrGraphBuildFailed, err)
	}

	personaIDs := uniquePersonaIDs(responses)
	personas, err := b.Personas.GetByIDs(ctx, personaIDs)
	if err != nil {
		return fmt.Errorf("%w: loading personas for graph build: %v", panelerr.ErrGraphBuildFailed, err)
	}
	personaByID := make(map[string]*models.Persona, len(personas))
	for _, p := range personas {
		personaByID[p.ID] = p
	}

	snapshot := models.NewKnowledgeGraphSnapshot(focusGroupID)
	for _, id := range personaIDs {
		p, ok := personaByID[id]
		if !ok {
			continue
		}
		snapshot.Personas[id] = &models.GraphNode{
			ID:         id,
			Kind:       models.NodePersona,
			Label:      p.FullName,
			Attributes: map[string]any{
				"age": p.Demographic.Age,
				"gender": p.Demographic.Gender,
				"occupation": p.Demographic.Occupation,
				"focus_group_id": focusGroupID,
			},
		}
	}

	// perPersonaConcepts[personaID][concept] accumulates every sentiment
	// observed for that (persona, concept) pair, used below to compute
	// pairwise AGREES_WITH/DISAGREES_WITH edges.
	perPersonaConcepts := map[string]map[string][]float64{}

	for _, r := range responses {
		if r.Error {
			continue
		}
		ext := b.extract(ctx, r.ResponseText)
		concepts := normalizeList(ext.Concepts)
		emotions := normalizeList(ext.Emotions)

		for _, concept := range concepts {
			mergeConceptNode(snapshot, concept)
			mergeMentionsEdge(snapshot, r.PersonaID, concept, ext.Sentiment)

			if perPersonaConcepts[r.PersonaID] == nil {
				perPersonaConcepts[r.PersonaID] = map[string][]float64{}
			}
			perPersonaConcepts[r.PersonaID][concept] = append(perPersonaConcepts[r.PersonaID][concept], ext.Sentiment)
		}

		for _, emotion := range emotions {
			mergeEmotionNode(snapshot, emotion)
			mergeFeelsEdge(snapshot, r.PersonaID, emotion, math.Abs(ext.Sentiment))
		}
	}

	snapshot.Relations = computePersonaRelations(perPersonaConcepts)

	b.Store.Save(focusGroupID, snapshot)
	return nil
}

// extract runs ExtractConcepts through the optional cache: a hit skips the
// LLM call entirely, a miss populates the cache for the next rebuild.
func (b *Builder) extract(ctx context.Context, text string) Extraction {
	if b.Cache != nil {
		if cached, ok := b.Cache.Get(ctx, text); ok {
			return *cached
		}
	}
	ext := ExtractConcepts(ctx, b.Chat, text)
	if b.Cache != nil {
		b.Cache.Save(ctx, text, ext)
	}
	return ext
}

func uniquePersonaIDs(responses []models.PersonaResponse) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, r := range responses {
		if _, ok := seen[r.PersonaID]; ok {
			continue
		}
		seen[r.PersonaID] = struct{}{}
		ids = append(ids, r.PersonaID)
	}
	sort.Strings(ids)
	return ids
}

// mergeConceptNode is the Go equivalent of
// "MERGE (c:Concept {name}) ON CREATE SET frequency=1 ON MATCH SET frequency+=1".
func mergeConceptNode(snapshot *models.KnowledgeGraphSnapshot, concept string) {
	node, ok := snapshot.Concepts[concept]
	if !ok {
		snapshot.Concepts[concept] = &models.GraphNode{ID: "concept_" + concept, Kind: models.NodeConcept, Label: concept, Frequency: 1}
		return
	}
	node.Frequency++
}

func mergeEmotionNode(snapshot *models.KnowledgeGraphSnapshot, emotion string) {
	node, ok := snapshot.Emotions[emotion]
	if !ok {
		snapshot.Emotions[emotion] = &models.GraphNode{ID: "emotion_" + emotion, Kind: models.NodeEmotion, Label: emotion, Frequency: 1}
		return
	}
	node.Frequency++
}

// mergeMentionsEdge implements the exact MERGE rule from graph_service.py:
// ON CREATE count=1, sentiment=s; ON MATCH count+=1, sentiment=(prev+s)/2 —
// a running average, not a true mean, preserved bit-for-bit.
func mergeMentionsEdge(snapshot *models.KnowledgeGraphSnapshot, personaID, concept string, sentiment float64) {
	for i := range snapshot.Mentions {
		e := &snapshot.Mentions[i]
		if e.PersonaID == personaID && e.Concept == concept {
			e.Count++
			e.Sentiment = (e.Sentiment + sentiment) / 2
			return
		}
	}
	snapshot.Mentions = append(snapshot.Mentions, models.MentionsEdge{
		PersonaID: personaID, Concept: concept, Count: 1, Sentiment: sentiment,
	})
}

// mergeFeelsEdge mirrors the same running-average rule for FEELS intensity.
func mergeFeelsEdge(snapshot *models.KnowledgeGraphSnapshot, personaID, emotion string, intensity float64) {
	for i := range snapshot.Feels {
		e := &snapshot.Feels[i]
		if e.PersonaID == personaID && e.Emotion == emotion {
			e.Count++
			e.Intensity = (e.Intensity + intensity) / 2
			return
		}
	}
	snapshot.Feels = append(snapshot.Feels, models.FeelsEdge{
		PersonaID: personaID, Emotion: emotion, Count: 1, Intensity: intensity,
	})
}

// computePersonaRelations implements _compute_persona_edges: for every
// unordered pair of personas with at least one shared concept,
// similarity = |shared|/10 - mean_over_shared(|mean_sentiment_A(c) - mean_sentiment_B(c)|),
// clipped to [-1,1]; >0.5 becomes AGREES_WITH, <-0.3 becomes DISAGREES_WITH.
func computePersonaRelations(perPersonaConcepts map[string]map[string][]float64) []models.PersonaRelationEdge {
	personaIDs := make([]string, 0, len(perPersonaConcepts))
	for id := range perPersonaConcepts {
		personaIDs = append(personaIDs, id)
	}
	sort.Strings(personaIDs)

	var edges []models.PersonaRelationEdge
	for i, a := range personaIDs {
		for _, b := range personaIDs[i+1:] {
			conceptsA := perPersonaConcepts[a]
			conceptsB := perPersonaConcepts[b]
			var shared []string
			for c := range conceptsA {
				if _, ok := conceptsB[c]; ok {
					shared = append(shared, c)
				}
			}
			if len(shared) == 0 {
				continue
			}

			var diffSum float64
			for _, c := range shared {
				diffSum += math.Abs(mean(conceptsA[c]) - mean(conceptsB[c]))
			}
			avgDiff := diffSum / float64(len(shared))
			similarity := float64(len(shared))/10.0 - avgDiff
			similarity = clip(similarity, -1, 1)

			switch {
			case similarity > 0.5:
				edges = append(edges, models.PersonaRelationEdge{Kind: models.EdgeAgreesWith, PersonaA: a, PersonaB: b, Strength: similarity})
			case similarity < -0.3:
				edges = append(edges, models.PersonaRelationEdge{Kind: models.EdgeDisagreesWith, PersonaA: a, PersonaB: b, Strength: math.Abs(similarity)})
			}
		}
	}
	return edges
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clip(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
