// Package insight aggregates a focus group's transcript into per-question
// and overall analytical artifacts: sentiment, consensus, idea score, top
// quotes, themes and engagement metrics. Grounded on
// original_source's insight_service.py.
package insight

import (
	"regexp"
	"strings"
)

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "love": {}, "like": {}, "enjoy": {},
	"positive": {}, "amazing": {}, "wonderful": {}, "fantastic": {}, "best": {},
	"happy": {}, "yes": {}, "agree": {}, "excited": {}, "helpful": {}, "valuable": {}, "useful": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "hate": {}, "dislike": {}, "awful": {}, "worst": {},
	"negative": {}, "horrible": {}, "poor": {}, "no": {}, "disagree": {}, "concern": {},
	"worried": {}, "against": {}, "confusing": {}, "hard": {}, "difficult": {},
}

var wordToken = regexp.MustCompile(`[a-zA-Z]{3,}`)

// sentimentScore counts positive/negative keyword hits (substring match,
// same as the source) and normalizes by their sum; 0 when neither appears.
func sentimentScore(text string) float64 {
	lowered := strings.ToLower(text)
	var pos, neg int
	for token := range positiveWords {
		if strings.Contains(lowered, token) {
			pos++
		}
	}
	for token := range negativeWords {
		if strings.Contains(lowered, token) {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

// extractKeywords tokenizes text into lowercase alphabetic runs of at least
// 4 characters, excluding stopwords.
func extractKeywords(text string, stopwords map[string]struct{}) []string {
	tokens := wordToken.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t) <= 3 {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func stopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
