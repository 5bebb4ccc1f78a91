// Package graph builds a knowledge graph from a focus group's transcript —
// persona, concept and emotion nodes joined by MENTIONS/FEELS/AGREES_WITH/
// DISAGREES_WITH edges — and answers read-only queries over it. Grounded on original_source's graph_service.py.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/utils"
)

// Extraction is the per-response structured output the concept extractor
// produces, whether from the LLM or the fallback pipeline.
type Extraction struct {
	Concepts   []string `json:"concepts"`
	Emotions   []string `json:"emotions"`
	Sentiment  float64  `json:"sentiment"`
	KeyPhrases []string `json:"key_phrases"`
}

var emotionKeywords = map[string][]string{
	"Excited": {"excited", "thrilled", "love", "amazing", "awesome", "great"},
	"Satisfied": {"happy", "satisfied", "pleased", "glad", "good", "enjoy"},
	"Concerned": {"concerned", "worried", "uncertain", "hesitant", "doubt"},
	"Frustrated": {"frustrated", "angry", "annoyed", "hate", "upset", "issue", "problem"},
}

var extractionPositiveWords = []string{"good", "great", "love", "excellent", "amazing", "like", "helpful", "useful", "easy"}
var extractionNegativeWords = []string{"bad", "terrible", "hate", "poor", "awful", "difficult", "hard", "confusing", "expensive"}

var tokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z'-]+`)
var jsonFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

const extractionSystemPrompt = `You analyze one focus-group response in isolation. Return a single JSON object with exactly these keys:
{"concepts": [up to 5 key topics/themes], "emotions": [detected emotions], "sentiment": -1.0 to 1.0, "key_phrases": [up to 3 notable phrases]}
Return JSON only, no prose, no markdown fences.`

// ExtractConcepts calls the chat endpoint with a structured-output prompt
// and parses the result defensively; when chat is nil or the call/parse
// fails, it falls back to FallbackExtraction.
func ExtractConcepts(ctx context.Context, chat llm.ChatClient, text string) Extraction {
	if chat == nil {
		return FallbackExtraction(text)
	}

	raw, err := chat.GenerateJSON(ctx, extractionSystemPrompt, text, 0.2)
	if err != nil {
		return FallbackExtraction(text)
	}

	ext, err := parseExtraction(raw)
	if err != nil {
		return FallbackExtraction(text)
	}
	return ext
}

func parseExtraction(raw string) (Extraction, error) {
	cleaned := raw
	if m := jsonFencePattern.FindStringSubmatch(raw); m != nil {
		cleaned = m[1]
	}

	var ext Extraction
	repaired, err := utils.SmartParse(cleaned, &ext)
	if err != nil {
		if err := json.Unmarshal([]byte(cleaned), &ext); err != nil {
			return Extraction{}, fmt.Errorf("graph: concept extraction response is not parseable JSON: %w", err)
		}
		return ext, nil
	}
	if repaired != "" {
		_ = json.Unmarshal([]byte(repaired), &ext)
	}
	return ext, nil
}

// FallbackExtraction implements the model-unavailable path: tokenize, count
// unigrams/bigrams, prefer bigrams then non-subsumed unigrams, score
// sentiment by keyword balance, and infer emotions from a fixed keyword map
// with sentiment as a last-resort fallback.
func FallbackExtraction(text string) Extraction {
	sentiment := fallbackSentiment(text)
	concepts := simpleKeywordExtraction(text, 5)
	keyPhrases := extractKeyPhrases(text, concepts, 3)
	emotions := inferEmotions(text, sentiment)

	return Extraction{
		Concepts:   concepts,
		Emotions:   emotions,
		Sentiment:  sentiment,
		KeyPhrases: keyPhrases,
	}
}

func fallbackSentiment(text string) float64 {
	lowered := strings.ToLower(text)
	var pos, neg int
	for _, w := range extractionPositiveWords {
		if strings.Contains(lowered, w) {
			pos++
		}
	}
	for _, w := range extractionNegativeWords {
		if strings.Contains(lowered, w) {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

func tokenizeWords(text string) []string {
	raw := tokenPattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.Trim(strings.ToLower(t), "'")
		if len(t) <= 2 {
			continue
		}
		if _, stop := graphStopwords[t]; stop {
			continue
		}
		if hasDigit(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// simpleKeywordExtraction takes bigrams by frequency first, then unigrams
// not already covered, capped at maxKeywords, title-cased.
func simpleKeywordExtraction(text string, maxKeywords int) []string {
	filtered := tokenizeWords(text)
	if len(filtered) == 0 {
		return nil
	}

	wordCounts := map[string]int{}
	for _, w := range filtered {
		wordCounts[w]++
	}

	bigramCounts := map[string]int{}
	var bigramOrder []string
	for i := 0; i < len(filtered)-1; i++ {
		if filtered[i] == filtered[i+1] {
			continue
		}
		phrase := filtered[i] + " " + filtered[i+1]
		if bigramCounts[phrase] == 0 {
			bigramOrder = append(bigramOrder, phrase)
		}
		bigramCounts[phrase]++
	}

	candidates := make([]string, 0, maxKeywords)
	seen := map[string]struct{}{}

	for _, phrase := range topByCount(bigramOrder, bigramCounts, maxKeywords*2) {
		formatted := titleCaseWords(phrase)
		if _, ok := seen[formatted]; !ok {
			seen[formatted] = struct{}{}
			candidates = append(candidates, formatted)
		}
		if len(candidates) >= maxKeywords {
			break
		}
	}

	if len(candidates) < maxKeywords {
		bigramWords := map[string]struct{}{}
		for _, c := range candidates {
			for _, part := range strings.Fields(strings.ToLower(c)) {
				bigramWords[part] = struct{}{}
			}
		}
		for _, w := range topByCount(filtered, wordCounts, maxKeywords*3) {
			if _, ok := bigramWords[strings.ToLower(w)]; ok {
				continue
			}
			formatted := titleCaseWords(w)
			if _, ok := seen[formatted]; !ok {
				seen[formatted] = struct{}{}
				candidates = append(candidates, formatted)
			}
			if len(candidates) >= maxKeywords {
				break
			}
		}
	}

	if len(candidates) > maxKeywords {
		candidates = candidates[:maxKeywords]
	}
	return candidates
}

func dedupe(in []string) []string {
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

// topByCount ranks distinct items by descending count (ties broken
// alphabetically for determinism) and returns up to limit of them.
func topByCount(items []string, counts map[string]int, limit int) []string {
	unique := dedupe(items)
	sort.SliceStable(unique, func(i, j int) bool {
		if counts[unique[i]] != counts[unique[j]] {
			return counts[unique[i]] > counts[unique[j]]
		}
		return unique[i] < unique[j]
	})
	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}

func titleCaseWords(phrase string) string {
	parts := strings.Fields(phrase)
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// extractKeyPhrases first tries to find the sentence containing each
// concept, then falls back to the most frequent bigrams/trigrams.
func extractKeyPhrases(text string, concepts []string, maxPhrases int) []string {
	var phrases []string
	lowered := strings.ToLower(text)

	for _, concept := range concepts {
		if concept == "" {
			continue
		}
		idx := strings.Index(lowered, strings.ToLower(concept))
		if idx == -1 {
			continue
		}
		start := strings.LastIndex(lowered[:idx], ".")
		if start == -1 {
			start = 0
		} else {
			start++
		}
		end := strings.Index(lowered[idx:], ".")
		if end == -1 {
			end = len(text)
		} else {
			end += idx
		}
		snippet := strings.TrimSpace(text[start:end])
		if snippet != "" && !containsString(phrases, snippet) {
			phrases = append(phrases, snippet)
		}
		if len(phrases) >= maxPhrases {
			return phrases[:maxPhrases]
		}
	}

	filtered := tokenizeWords(text)
	if len(filtered) == 0 {
		return phrases
	}

	ngramCounts := map[string]int{}
	var ngramOrder []string
	for i := 0; i < len(filtered)-1; i++ {
		bigram := filtered[i] + " " + filtered[i+1]
		if ngramCounts[bigram] == 0 {
			ngramOrder = append(ngramOrder, bigram)
		}
		ngramCounts[bigram]++
		if i < len(filtered)-2 {
			trigram := filtered[i] + " " + filtered[i+1] + " " + filtered[i+2]
			if ngramCounts[trigram] == 0 {
				ngramOrder = append(ngramOrder, trigram)
			}
			ngramCounts[trigram]++
		}
	}

	for _, phrase := range topByCount(ngramOrder, ngramCounts, maxPhrases*2) {
		formatted := titleCaseWords(phrase)
		if !containsString(phrases, formatted) {
			phrases = append(phrases, formatted)
		}
		if len(phrases) >= maxPhrases {
			break
		}
	}
	if len(phrases) > maxPhrases {
		phrases = phrases[:maxPhrases]
	}
	return phrases
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// inferEmotions scans text for any emotion's keywords (in the fixed order
// Excited, Satisfied, Concerned, Frustrated, then deduplicated in first-seen
// order); if none match, falls back to mapping
// sentiment sign to a single emotion.
func inferEmotions(text string, sentiment float64) []string {
	lowered := strings.ToLower(text)
	var detected []string
	for _, name := range []string{"Excited", "Satisfied", "Concerned", "Frustrated"} {
		for _, kw := range emotionKeywords[name] {
			if strings.Contains(lowered, kw) {
				detected = append(detected, name)
				break
			}
		}
	}
	if len(detected) > 0 {
		return dedupe(detected)
	}
	if e := sentimentToEmotion(sentiment); e != "" {
		return []string{e}
	}
	return nil
}

func sentimentToEmotion(sentiment float64) string {
	switch {
	case sentiment > 0.3:
		return "Satisfied"
	case sentiment < -0.3:
		return "Frustrated"
	default:
		return ""
	}
}

// normalizeList trims, collapses internal whitespace, title-cases, and
// dedupes case-insensitively while preserving first-occurrence order.
func normalizeList(items []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, item := range items {
		if item == "" {
			continue
		}
		cleaned := strings.Join(strings.Fields(item), " ")
		if cleaned == "" {
			continue
		}
		formatted := titleCaseWords(cleaned)
		key := strings.ToLower(formatted)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, formatted)
	}
	return out
}

var graphStopwords = buildStopwordSet([]string{
	"the", "and", "for", "with", "that", "from", "this", "have", "will", "your",
	"about", "there", "which", "their", "would", "could", "should", "much",
	"very", "just", "when", "they", "them", "what", "like", "been", "were",
	"being", "into", "than", "then", "because", "while", "after", "before",
	"need", "more", "also", "really", "maybe", "even", "some", "make", "made",
	"still", "does", "done", "cant", "didnt", "its", "im", "but", "our",
	"ours", "youre", "has", "had", "those", "these", "get", "got", "onto",
	"per", "each", "most", "such", "though", "over", "under", "across",
	"again", "ever", "seen", "many",
})

func buildStopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
