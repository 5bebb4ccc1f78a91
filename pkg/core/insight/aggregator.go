package insight

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/models"
)

const (
	positiveThreshold = 0.15
	negativeThreshold = -0.15
	minKForClustering = 2
	maxKForClustering = 5
	topThemeCount     = 8
)

// Aggregate computes the full InsightBlob for a focus group's transcript
// and returns only the blob; the FocusGroup fields derived from it are
// written separately by ApplySideEffects.
func Aggregate(ctx context.Context, embedder llm.EmbeddingClient, rng *rand.Rand, fg *models.FocusGroup, personaCount int, responses []models.PersonaResponse, stopwords []string) models.InsightBlob {
	blob := models.InsightBlob{FocusGroupID: fg.ID}
	if len(responses) == 0 {
		return blob
	}

	byQuestion := groupByQuestion(responses)
	stopSet := stopwordSet(stopwords)

	var ideaScores, consensusScores, avgSentiments []float64
	for _, q := range sortedQuestionIndices(byQuestion) {
		group := byQuestion[q]
		qi := computeQuestionInsight(ctx, embedder, rng, group)
		blob.PerQuestion = append(blob.PerQuestion, qi)
		ideaScores = append(ideaScores, qi.IdeaScore)
		consensusScores = append(consensusScores, qi.Consensus)
		avgSentiments = append(avgSentiments, qi.AvgSentiment)
	}

	blob.Overall = computeOverall(responses, personaCount, len(byQuestion), ideaScores, consensusScores, avgSentiments, stopSet)
	return blob
}

type responseGroup struct {
	question  string
	responses []models.PersonaResponse
}

func groupByQuestion(responses []models.PersonaResponse) map[int]responseGroup {
	out := map[int]responseGroup{}
	for _, r := range responses {
		if r.Error {
			continue
		}
		g := out[r.QuestionIndex]
		g.question = r.Question
		g.responses = append(g.responses, r)
		out[r.QuestionIndex] = g
	}
	return out
}

func sortedQuestionIndices(byQuestion map[int]responseGroup) []int {
	indices := make([]int, 0, len(byQuestion))
	for idx := range byQuestion {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

func computeQuestionInsight(ctx context.Context, embedder llm.EmbeddingClient, rng *rand.Rand, group responseGroup) models.QuestionInsight {
	responses := group.responses
	texts := make([]string, len(responses))
	sentiments := make([]float64, len(responses))
	for i, r := range responses {
		texts[i] = r.ResponseText
		sentiments[i] = sentimentScore(r.ResponseText)
	}
	avgSentiment := mean(sentiments)

	consensus := computeConsensus(ctx, embedder, rng, texts, sentiments)
	ideaScore := computeIdeaScore(avgSentiment, consensus)

	participants := make([]string, len(responses))
	for i, r := range responses {
		participants[i] = r.PersonaID
	}

	return models.QuestionInsight{
		QuestionIndex: responses[0].QuestionIndex,
		Question:      group.question,
		IdeaScore:     ideaScore,
		Consensus:     consensus,
		AvgSentiment:  avgSentiment,
		TopQuotes:     selectTopQuotes(responses, sentiments, 5),
		Participants:  participants,
	}
}

// computeConsensus clusters responses if the embedding
// backend is available and there are >=2 of them; otherwise 1.0 for a
// singleton and 0.6 as the default when clustering cannot run.
func computeConsensus(ctx context.Context, embedder llm.EmbeddingClient, rng *rand.Rand, texts []string, sentiments []float64) float64 {
	if len(texts) < 2 || embedder == nil {
		if len(texts) <= 1 {
			return 1.0
		}
		return 0.6
	}

	embeddings := make([][]float64, 0, len(texts))
	for _, t := range texts {
		vec, err := embedder.Embed(ctx, t)
		if err != nil || len(vec) == 0 {
			return 0.6
		}
		embeddings = append(embeddings, vec)
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	result := selectByElbow(rng, embeddings, minKForClustering, maxKForClustering)
	k := len(result.centroids)

	p := polarization(embeddings, result.labels)
	consensus := 1 - p*(1/(1+math.Log(float64(k))))
	return clip(consensus, 0, 1)
}

// computeIdeaScore implements idea_score = clip(100*(0.6*norm(sentiment)+0.4*consensus), 0, 100).
func computeIdeaScore(avgSentiment, consensus float64) float64 {
	sentimentNorm := (avgSentiment + 1.0) / 2.0
	return clip(100*(0.6*sentimentNorm+0.4*consensus), 0, 100)
}

// selectTopQuotes ranks by |sentiment| desc, ties broken by sentiment desc,
// and returns the first limit.
func selectTopQuotes(responses []models.PersonaResponse, sentiments []float64, limit int) []models.Quote {
	idx := make([]int, len(responses))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if math.Abs(sentiments[ia]) != math.Abs(sentiments[ib]) {
			return math.Abs(sentiments[ia]) > math.Abs(sentiments[ib])
		}
		return sentiments[ia] > sentiments[ib]
	})
	if len(idx) > limit {
		idx = idx[:limit]
	}
	quotes := make([]models.Quote, len(idx))
	for i, id := range idx {
		quotes[i] = models.Quote{PersonaID: responses[id].PersonaID, Text: responses[id].ResponseText, Sentiment: sentiments[id]}
	}
	return quotes
}

func computeOverall(responses []models.PersonaResponse, personaCount, questionCount int, ideaScores, consensusScores, avgSentiments []float64, stopwords map[string]struct{}) models.OverallInsight {
	overallIdeaScore := mean(ideaScores)
	overallConsensus := mean(consensusScores)
	overallSentiment := mean(avgSentiments)

	sentimentValues := make([]float64, 0, len(responses))
	for _, r := range responses {
		if r.Error {
			continue
		}
		sentimentValues = append(sentimentValues, sentimentScore(r.ResponseText))
	}

	var positive, negative int
	for _, v := range sentimentValues {
		if v > positiveThreshold {
			positive++
		} else if v < negativeThreshold {
			negative++
		}
	}
	total := len(sentimentValues)
	positiveRatio, negativeRatio, neutralRatio := 0.0, 0.0, 0.0
	if total > 0 {
		positiveRatio = float64(positive) / float64(total)
		negativeRatio = float64(negative) / float64(total)
		neutralRatio = 1 - positiveRatio - negativeRatio
	}

	return models.OverallInsight{
		IdeaScore:         overallIdeaScore,
		Grade:             gradeScore(overallIdeaScore),
		Consensus:         overallConsensus,
		AvgSentiment:      overallSentiment,
		PositiveRatio:     positiveRatio,
		NegativeRatio:     negativeRatio,
		NeutralRatio:      neutralRatio,
		KeyThemes:         extractThemes(responses, stopwords, topThemeCount),
		Engagement:        computeEngagement(responses, personaCount, questionCount),
		PersonaEngagement: computePersonaEngagement(responses),
	}
}

func extractThemes(responses []models.PersonaResponse, stopwords map[string]struct{}, limit int) []models.Theme {
	counts := map[string]int{}
	firstQuote := map[string]string{}
	for _, r := range responses {
		if r.Error {
			continue
		}
		for _, kw := range uniqueStrings(extractKeywords(r.ResponseText, stopwords)) {
			counts[kw]++
			if _, ok := firstQuote[kw]; !ok {
				firstQuote[kw] = r.ResponseText
			}
		}
	}

	keywords := make([]string, 0, len(counts))
	for kw := range counts {
		keywords = append(keywords, kw)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}

	themes := make([]models.Theme, len(keywords))
	for i, kw := range keywords {
		themes[i] = models.Theme{Keyword: kw, Count: counts[kw], RepresentativeQuote: firstQuote[kw]}
	}
	return themes
}

func computeEngagement(responses []models.PersonaResponse, personaCount, questionCount int) models.EngagementMetrics {
	var latencySum float64
	var consistencySum float64
	var consistencyCount int
	for _, r := range responses {
		latencySum += float64(r.LatencyMS)
		if r.ConsistencyScore != nil {
			consistencySum += *r.ConsistencyScore
			consistencyCount++
		}
	}
	meanLatency := 0.0
	if len(responses) > 0 {
		meanLatency = latencySum / float64(len(responses))
	}
	expected := personaCount * questionCount
	completionRate := 0.0
	if expected > 0 {
		completionRate = clip(float64(len(responses))/float64(expected), 0, 1)
	}
	meanConsistency := 0.0
	if consistencyCount > 0 {
		meanConsistency = consistencySum / float64(consistencyCount)
	}
	return models.EngagementMetrics{
		MeanResponseLatencyMS: meanLatency,
		CompletionRate:        completionRate,
		MeanConsistencyScore:  meanConsistency,
	}
}

func computePersonaEngagement(responses []models.PersonaResponse) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range responses {
		if r.Error {
			continue
		}
		sums[r.PersonaID] += math.Abs(sentimentScore(r.ResponseText))
		counts[r.PersonaID]++
	}
	out := make(map[string]float64, len(sums))
	for id, sum := range sums {
		out[id] = sum / float64(counts[id])
	}
	return out
}

func gradeScore(score float64) string {
	switch {
	case score >= 80:
		return "A"
	case score >= 65:
		return "B"
	case score >= 50:
		return "C"
	case score >= 35:
		return "D"
	default:
		return "F"
	}
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

func uniqueStrings(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
