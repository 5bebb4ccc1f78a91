package graph

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"panelforge/pkg/models"
)

// GraphDataNode is one force-graph-ready node.
type GraphDataNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Group     int            `json:"group"`
	Size      int            `json:"size"`
	Sentiment float64        `json:"sentiment"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// GraphDataLink is one rendered edge.
type GraphDataLink struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Type      string  `json:"type"`
	Strength  float64 `json:"strength"`
	Sentiment float64 `json:"sentiment,omitempty"`
}

// GraphData is the full (or filtered) visualization payload.
type GraphData struct {
	Nodes []GraphDataNode `json:"nodes"`
	Links []GraphDataLink `json:"links"`
}

// KeyConcept is one entry of the top-10-by-frequency concept ranking.
type KeyConcept struct {
	Name      string   `json:"name"`
	Frequency int      `json:"frequency"`
	Sentiment float64  `json:"sentiment"`
	Personas  []string `json:"personas"`
}

// ControversialConcept is a concept with high sentiment variance.
type ControversialConcept struct {
	Concept       string   `json:"concept"`
	AvgSentiment  float64  `json:"avg_sentiment"`
	Polarization  float64  `json:"polarization"`
	Supporters    []string `json:"supporters"`
	Critics       []string `json:"critics"`
	TotalMentions int      `json:"total_mentions"`
}

// InfluentialPersona ranks by connection count.
type InfluentialPersona struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Influence   int     `json:"influence"`
	Connections int     `json:"connections"`
	Sentiment   float64 `json:"sentiment"`
}

// EmotionDistributionItem summarizes one emotion's reach.
type EmotionDistributionItem struct {
	Emotion       string  `json:"emotion"`
	PersonasCount int     `json:"personas_count"`
	AvgIntensity  float64 `json:"avg_intensity"`
	Percentage    float64 `json:"percentage"`
}

// Insight is one supporting data point returned alongside an Answer.
type Insight struct {
	Title    string         `json:"title"`
	Detail   string         `json:"detail"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Answer is the result of AnswerQuestion: a short natural-language answer,
// structured insights, and follow-up suggestions.
type Answer struct {
	Text               string    `json:"answer"`
	Insights           []Insight `json:"insights"`
	SuggestedQuestions []string  `json:"suggested_questions"`
}

const (
	graphFilterPositive  = "positive"
	graphFilterNegative  = "negative"
	graphFilterInfluence = "influence"
)

// personaMetrics is the set of per-persona aggregates the query layer needs,
// derived once per call from the snapshot's edges.
type personaMetrics struct {
	connections map[string]int
	sentiments  map[string]float64 // mean MENTIONS sentiment
}

func derivePersonaMetrics(snapshot *models.KnowledgeGraphSnapshot) personaMetrics {
	connections := map[string]int{}
	sentSum := map[string]float64{}
	sentCount := map[string]int{}

	for _, m := range snapshot.Mentions {
		connections[m.PersonaID]++
		sentSum[m.PersonaID] += m.Sentiment
		sentCount[m.PersonaID]++
	}
	for _, f := range snapshot.Feels {
		connections[f.PersonaID]++
	}
	for _, rel := range snapshot.Relations {
		connections[rel.PersonaA]++
		connections[rel.PersonaB]++
	}

	sentiments := map[string]float64{}
	for id := range snapshot.Personas {
		if sentCount[id] > 0 {
			sentiments[id] = sentSum[id] / float64(sentCount[id])
		}
	}
	return personaMetrics{connections: connections, sentiments: sentiments}
}

// GraphData renders the full visualization payload for a snapshot, or the
// subset matching filterType ("" means unfiltered) —
func GraphData(snapshot *models.KnowledgeGraphSnapshot, filterType string) GraphData {
	metrics := derivePersonaMetrics(snapshot)

	var nodes []GraphDataNode
	for id, node := range snapshot.Personas {
		nodes = append(nodes, GraphDataNode{
			ID:        id, Name: node.Label, Type: "persona", Group: 1,
			Size:      minInt(20, 10+metrics.connections[id]),
			Sentiment: metrics.sentiments[id],
			Metadata:  node.Attributes,
		})
	}
	for name, node := range snapshot.Concepts {
		nodes = append(nodes, GraphDataNode{
			ID:        node.ID, Name: name, Type: "concept", Group: 2,
			Size:      minInt(25, 8+node.Frequency*2),
			Sentiment: meanConceptSentiment(snapshot, name),
		})
	}
	for name, node := range snapshot.Emotions {
		nodes = append(nodes, GraphDataNode{
			ID:   node.ID, Name: name, Type: "emotion", Group: 3,
			Size: minInt(15, 5+node.Frequency),
		})
	}
	sortNodesDeterministically(nodes)

	var links []GraphDataLink
	for _, m := range snapshot.Mentions {
		links = append(links, GraphDataLink{
			Source:   m.PersonaID, Target: "concept_" + m.Concept, Type: "mentions",
			Strength: math.Min(1.0, float64(m.Count)/5.0), Sentiment: m.Sentiment,
		})
	}
	for _, f := range snapshot.Feels {
		links = append(links, GraphDataLink{
			Source:   f.PersonaID, Target: "emotion_" + f.Emotion, Type: "feels",
			Strength: f.Intensity,
		})
	}
	for _, rel := range snapshot.Relations {
		relType := "agrees"
		if rel.Kind == models.EdgeDisagreesWith {
			relType = "disagrees"
		}
		links = append(links, GraphDataLink{Source: rel.PersonaA, Target: rel.PersonaB, Type: relType, Strength: rel.Strength})
	}
	sortLinksDeterministically(links)

	data := GraphData{Nodes: nodes, Links: links}
	if filterType == "" {
		return data
	}
	return applyFilter(data, metrics, filterType)
}

func meanConceptSentiment(snapshot *models.KnowledgeGraphSnapshot, concept string) float64 {
	var sum float64
	var n int
	for _, m := range snapshot.Mentions {
		if m.Concept == concept {
			sum += m.Sentiment
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// applyFilter mirrors graph_service.py's _apply_filter: personas pass a
// per-filter threshold, and links/nodes are kept only when they touch an
// allowed persona (with an extra per-link threshold for "influence" MENTIONS).
func applyFilter(data GraphData, metrics personaMetrics, filterType string) GraphData {
	allowed := map[string]struct{}{}
	switch filterType {
	case graphFilterPositive:
		for id, s := range metrics.sentiments {
			if s >= 0.6 {
				allowed[id] = struct{}{}
			}
		}
	case graphFilterNegative:
		for id, s := range metrics.sentiments {
			if s <= -0.3 {
				allowed[id] = struct{}{}
			}
		}
	case graphFilterInfluence:
		for id, c := range metrics.connections {
			if c >= 3 {
				allowed[id] = struct{}{}
			}
		}
	default:
		for _, n := range data.Nodes {
			if n.Type == "persona" {
				allowed[n.ID] = struct{}{}
			}
		}
	}

	if len(allowed) == 0 {
		return GraphData{Nodes: []GraphDataNode{}, Links: []GraphDataLink{}}
	}

	var filteredLinks []GraphDataLink
	for _, l := range data.Links {
		switch l.Type {
		case "mentions":
			if _, ok := allowed[l.Source]; !ok {
				continue
			}
			if filterType == graphFilterInfluence && l.Strength < 0.4 {
				continue
			}
		case "feels":
			if _, ok := allowed[l.Source]; !ok {
				continue
			}
		default:
			_, sourceOK := allowed[l.Source]
			_, targetOK := allowed[l.Target]
			if !sourceOK || !targetOK {
				continue
			}
		}
		filteredLinks = append(filteredLinks, l)
	}

	connected := map[string]struct{}{}
	for _, l := range filteredLinks {
		connected[l.Source] = struct{}{}
		connected[l.Target] = struct{}{}
	}

	var filteredNodes []GraphDataNode
	for _, n := range data.Nodes {
		if n.Type == "persona" {
			if _, ok := allowed[n.ID]; ok {
				filteredNodes = append(filteredNodes, n)
			}
			continue
		}
		if _, ok := connected[n.ID]; ok {
			filteredNodes = append(filteredNodes, n)
		}
	}

	if filteredNodes == nil {
		filteredNodes = []GraphDataNode{}
	}
	if filteredLinks == nil {
		filteredLinks = []GraphDataLink{}
	}
	return GraphData{Nodes: filteredNodes, Links: filteredLinks}
}

// KeyConcepts returns the top-10 concepts by mention count, each with its
// mean sentiment and up to 5 sample persona names.
func KeyConcepts(snapshot *models.KnowledgeGraphSnapshot) []KeyConcept {
	type agg struct {
		mentions int
		sentSum float64
		edgeCount int
		personas []string
		seen map[string]struct{}
	}
	aggs := map[string]*agg{}
	for _, m := range snapshot.Mentions {
		a, ok := aggs[m.Concept]
		if !ok {
			a = &agg{seen: map[string]struct{}{}}
			aggs[m.Concept] = a
		}
		a.mentions += m.Count
		a.sentSum += m.Sentiment
		a.edgeCount++
		if _, seen := a.seen[m.PersonaID]; !seen {
			a.seen[m.PersonaID] = struct{}{}
			a.personas = append(a.personas, personaLabel(snapshot, m.PersonaID))
		}
	}

	var out []KeyConcept
	for concept, a := range aggs {
		if a.mentions == 0 {
			continue
		}
		personas := a.personas
		if len(personas) > 5 {
			personas = personas[:5]
		}
		out = append(out, KeyConcept{
			Name:      concept, Frequency: a.mentions,
			Sentiment: a.sentSum / float64(a.edgeCount),
			Personas:  personas,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// ControversialConcepts finds concepts with >=3 mentions and a sentiment
// stddev above 0.4, reporting supporters (mean>0.5) and critics (mean<-0.3).
func ControversialConcepts(snapshot *models.KnowledgeGraphSnapshot) []ControversialConcept {
	bySentiment := map[string][]float64{}
	byPersonaConcept := map[string]map[string][]float64{}
	for _, m := range snapshot.Mentions {
		bySentiment[m.Concept] = append(bySentiment[m.Concept], m.Sentiment)
		if byPersonaConcept[m.Concept] == nil {
			byPersonaConcept[m.Concept] = map[string][]float64{}
		}
		byPersonaConcept[m.Concept][m.PersonaID] = append(byPersonaConcept[m.Concept][m.PersonaID], m.Sentiment)
	}

	var out []ControversialConcept
	for concept, sentiments := range bySentiment {
		if len(sentiments) < 3 {
			continue
		}
		stddev := populationStdDev(sentiments)
		if stddev <= 0.4 {
			continue
		}

		var supporters, critics []string
		for personaID, values := range byPersonaConcept[concept] {
			avg := mean(values)
			if avg > 0.5 {
				supporters = append(supporters, personaLabel(snapshot, personaID))
			} else if avg < -0.3 {
				critics = append(critics, personaLabel(snapshot, personaID))
			}
		}
		sort.Strings(supporters)
		sort.Strings(critics)

		out = append(out, ControversialConcept{
			Concept:    concept, AvgSentiment: mean(sentiments), Polarization: stddev,
			Supporters: supporters, Critics: critics, TotalMentions: len(sentiments),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Polarization != out[j].Polarization {
			return out[i].Polarization > out[j].Polarization
		}
		return out[i].Concept < out[j].Concept
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

func populationStdDev(values []float64) float64 {
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// InfluentialPersonas ranks the top-10 personas by connection count, with
// each entry's influence score capped at 100 (connections*5) —
func InfluentialPersonas(snapshot *models.KnowledgeGraphSnapshot) []InfluentialPersona {
	metrics := derivePersonaMetrics(snapshot)

	var out []InfluentialPersona
	for id, node := range snapshot.Personas {
		c := metrics.connections[id]
		out = append(out, InfluentialPersona{
			ID:          id, Name: node.Label,
			Influence:   minInt(100, c*5),
			Connections: c,
			Sentiment:   metrics.sentiments[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Connections != out[j].Connections {
			return out[i].Connections > out[j].Connections
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// EmotionDistribution reports per-emotion participant counts and mean
// intensity, plus each emotion's share of the summed per-emotion participant
// counts (a persona feeling several emotions counts once per emotion, so the
// shares add up to 100).
func EmotionDistribution(snapshot *models.KnowledgeGraphSnapshot) []EmotionDistributionItem {
	personas := map[string]map[string]struct{}{}
	intensitySum := map[string]float64{}
	intensityCount := map[string]int{}
	for _, f := range snapshot.Feels {
		if personas[f.Emotion] == nil {
			personas[f.Emotion] = map[string]struct{}{}
		}
		personas[f.Emotion][f.PersonaID] = struct{}{}
		intensitySum[f.Emotion] += f.Intensity
		intensityCount[f.Emotion]++
	}

	var out []EmotionDistributionItem
	totalParticipants := 0
	for emotion, ps := range personas {
		count := len(ps)
		totalParticipants += count
		avg := 0.0
		if intensityCount[emotion] > 0 {
			avg = intensitySum[emotion] / float64(intensityCount[emotion])
		}
		out = append(out, EmotionDistributionItem{Emotion: emotion, PersonasCount: count, AvgIntensity: avg})
	}
	if totalParticipants > 0 {
		for i := range out {
			out[i].Percentage = float64(out[i].PersonasCount) / float64(totalParticipants) * 100
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PersonasCount != out[j].PersonasCount {
			return out[i].PersonasCount > out[j].PersonasCount
		}
		return out[i].Emotion < out[j].Emotion
	})
	return out
}

func personaLabel(snapshot *models.KnowledgeGraphSnapshot, personaID string) string {
	node, ok := snapshot.Personas[personaID]
	if !ok {
		return personaID
	}
	name := node.Label
	if name == "" {
		name = personaID
	}
	occupation, _ := node.Attributes["occupation"].(string)
	age, hasAge := node.Attributes["age"].(int)
	switch {
	case occupation != "" && hasAge:
		return fmt.Sprintf("%s (%s, %dy)", name, occupation, age)
	case occupation != "":
		return fmt.Sprintf("%s (%s)", name, occupation)
	case hasAge:
		return fmt.Sprintf("%s (%dy)", name, age)
	default:
		return name
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func sortNodesDeterministically(nodes []GraphDataNode) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortLinksDeterministically(links []GraphDataLink) {
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})
}

var (
	influenceTokens     = []string{"influence", "influences", "influential", "impact", "influencers", "connections"}
	controversialTokens = []string{"controversial", "disagree", "disagreement", "polarized", "polarising", "conflict", "split"}
	emotionTokens       = []string{"emotion", "feel", "feeling", "feelings", "mood", "sentiment"}
	sentimentTokens     = []string{"sentiment", "positive", "negative", "happy", "unhappy", "satisfied", "satisfaction"}
	topicTokens         = []string{"topic", "topics", "concept", "concepts", "talking", "discussion", "discuss"}
	opinionTokens       = []string{"think", "opinion", "opinions", "feel", "view", "perceive", "perception", "feedback"}
)

func anyTokenIn(text string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

var suggestedQuestions = []string{
	"Who influences others the most?",
	"Show me controversial topics.",
	"Which emotions dominate the discussion?",
	"Which concepts are rated most positively?",
	"Where do participants disagree the most?",
}

// AnswerQuestion routes a free-text question to one of several rule-based
// analyses over the snapshot: influence,
// controversy, emotion (optionally scoped to a matched concept), opinion
// about a matched concept, overall sentiment, dominant topics, and a
// synthesized default when nothing matches.
func AnswerQuestion(snapshot *models.KnowledgeGraphSnapshot, question string) Answer {
	normalized := strings.ToLower(strings.TrimSpace(question))

	influential := InfluentialPersonas(snapshot)
	keyConcepts := KeyConcepts(snapshot)
	controversial := ControversialConcepts(snapshot)
	emotions := EmotionDistribution(snapshot)

	matchedConcept := matchConcept(snapshot, normalized)

	if strings.Contains(normalized, "who") && anyTokenIn(normalized, influenceTokens) {
		return answerInfluence(influential)
	}
	if anyTokenIn(normalized, controversialTokens) {
		return answerControversy(controversial)
	}
	if anyTokenIn(normalized, emotionTokens) {
		if matchedConcept != "" {
			return answerEmotionForConcept(snapshot, matchedConcept)
		}
		return answerEmotionOverall(emotions)
	}
	if matchedConcept != "" && anyTokenIn(normalized, opinionTokens) {
		return answerOpinion(snapshot, matchedConcept)
	}
	if anyTokenIn(normalized, sentimentTokens) {
		return answerSentimentSummary(keyConcepts)
	}
	if anyTokenIn(normalized, topicTokens) {
		return answerTopics(keyConcepts)
	}
	return answerDefault(keyConcepts, influential)
}

func matchConcept(snapshot *models.KnowledgeGraphSnapshot, normalized string) string {
	for name := range snapshot.Concepts {
		if name != "" && strings.Contains(normalized, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

func answerInfluence(influential []InfluentialPersona) Answer {
	if len(influential) == 0 {
		return Answer{Text: "I couldn't find influence metrics yet. Build the graph after the focus group completes.", SuggestedQuestions: suggestedQuestions}
	}
	top := influential[0]
	var insights []Insight
	for _, p := range influential[:minInt(3, len(influential))] {
		insights = append(insights, Insight{
			Title:    p.Name,
			Detail:   fmt.Sprintf("Influence %d/100 • Connections %d • Avg sentiment %.2f", p.Influence, p.Connections, p.Sentiment),
			Metadata: map[string]any{"persona_id": p.ID},
		})
	}
	return Answer{
		Text:     fmt.Sprintf("%s is the most influential persona with %d connections and an influence score of %d/100.", top.Name, top.Connections, top.Influence),
		Insights: insights, SuggestedQuestions: suggestedQuestions,
	}
}

func answerControversy(controversial []ControversialConcept) Answer {
	if len(controversial) == 0 {
		return Answer{Text: "I didn't detect any highly polarized topics yet. Most discussions stayed aligned.", SuggestedQuestions: suggestedQuestions}
	}
	top := controversial[0]
	supporters := joinOrDefault(top.Supporters, 3, "no clear supporters")
	critics := joinOrDefault(top.Critics, 3, "no strong critics")
	var insights []Insight
	for _, c := range controversial[:minInt(3, len(controversial))] {
		insights = append(insights, Insight{
			Title:    c.Concept,
			Detail:   fmt.Sprintf("Polarization %.2f • Avg sentiment %.2f • Mentions %d", c.Polarization, c.AvgSentiment, c.TotalMentions),
			Metadata: map[string]any{"supporters": c.Supporters, "critics": c.Critics},
		})
	}
	return Answer{
		Text: fmt.Sprintf("'%s' is the most controversial topic with high sentiment variance (%.2f). Supporters include %s, while critics highlight %s.",
			top.Concept, top.Polarization, supporters, critics),
		Insights: insights, SuggestedQuestions: suggestedQuestions,
	}
}

func answerEmotionForConcept(snapshot *models.KnowledgeGraphSnapshot, concept string) Answer {
	personasForConcept := map[string]struct{}{}
	for _, m := range snapshot.Mentions {
		if m.Concept == concept {
			personasForConcept[m.PersonaID] = struct{}{}
		}
	}

	intensities := map[string][]float64{}
	emotionPersonas := map[string]map[string]struct{}{}
	for _, f := range snapshot.Feels {
		if _, ok := personasForConcept[f.PersonaID]; !ok {
			continue
		}
		intensities[f.Emotion] = append(intensities[f.Emotion], f.Intensity)
		if emotionPersonas[f.Emotion] == nil {
			emotionPersonas[f.Emotion] = map[string]struct{}{}
		}
		emotionPersonas[f.Emotion][f.PersonaID] = struct{}{}
	}

	if len(intensities) == 0 {
		return Answer{Text: fmt.Sprintf("Personas talking about %s did not express strong emotional cues.", concept), SuggestedQuestions: suggestedQuestions}
	}

	type rank struct {
		emotion string
		intensity float64
		count int
	}
	var ranked []rank
	for emotion, values := range intensities {
		ranked = append(ranked, rank{emotion, mean(values), len(emotionPersonas[emotion])})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].intensity > ranked[j].intensity })

	top := ranked[0]
	var insights []Insight
	for _, r := range ranked[:minInt(3, len(ranked))] {
		var names []string
		for pid := range emotionPersonas[r.emotion] {
			names = append(names, personaLabel(snapshot, pid))
		}
		sort.Strings(names)
		insights = append(insights, Insight{
			Title:    r.emotion,
			Detail:   fmt.Sprintf("Average intensity %.2f • %d personas referencing %s", r.intensity, r.count, concept),
			Metadata: map[string]any{"personas": names},
		})
	}
	return Answer{
		Text:     fmt.Sprintf("The dominant emotion around %s is %s (intensity %.2f) expressed by %d personas.", concept, top.emotion, top.intensity, top.count),
		Insights: insights, SuggestedQuestions: suggestedQuestions,
	}
}

func answerEmotionOverall(emotions []EmotionDistributionItem) Answer {
	if len(emotions) == 0 {
		return Answer{Text: "I couldn't derive an emotion distribution yet.", SuggestedQuestions: suggestedQuestions}
	}
	top := emotions[0]
	var insights []Insight
	for _, e := range emotions[:minInt(3, len(emotions))] {
		insights = append(insights, Insight{
			Title:    e.Emotion,
			Detail:   fmt.Sprintf("%d personas • Avg intensity %.2f", e.PersonasCount, e.AvgIntensity),
			Metadata: map[string]any{"percentage": e.Percentage},
		})
	}
	return Answer{
		Text:     fmt.Sprintf("%s is the leading emotion, expressed by %d personas (avg intensity %.2f).", top.Emotion, top.PersonasCount, top.AvgIntensity),
		Insights: insights, SuggestedQuestions: suggestedQuestions,
	}
}

func answerOpinion(snapshot *models.KnowledgeGraphSnapshot, concept string) Answer {
	var sentiments []float64
	byPersona := map[string][]float64{}
	for _, m := range snapshot.Mentions {
		if m.Concept != concept {
			continue
		}
		sentiments = append(sentiments, m.Sentiment)
		byPersona[m.PersonaID] = append(byPersona[m.PersonaID], m.Sentiment)
	}
	if len(sentiments) == 0 {
		return Answer{Text: fmt.Sprintf("I don't have enough mentions about %s yet.", concept), SuggestedQuestions: suggestedQuestions}
	}

	avgSentiment := mean(sentiments)
	var supporters, critics []string
	for personaID, values := range byPersona {
		avg := mean(values)
		label := personaLabel(snapshot, personaID)
		if avg > 0.3 {
			supporters = append(supporters, label)
		} else if avg < -0.3 {
			critics = append(critics, label)
		}
	}
	sort.Strings(supporters)
	sort.Strings(critics)

	supportersDisplay := joinOrDefault(supporters, 3, "nobody strongly in favour yet")
	criticsDisplay := joinOrDefault(critics, 3, "nobody strongly opposed yet")

	insight := Insight{
		Title:    concept,
		Detail:   fmt.Sprintf("Mentions %d • Avg sentiment %.2f", len(sentiments), avgSentiment),
		Metadata: map[string]any{"supporters": firstN(supporters, 5), "critics": firstN(critics, 5)},
	}
	return Answer{
		Text:     fmt.Sprintf("Overall sentiment toward %s is %.2f. Supporters include %s, while critics mention %s.", concept, avgSentiment, supportersDisplay, criticsDisplay),
		Insights: []Insight{insight}, SuggestedQuestions: suggestedQuestions,
	}
}

func answerSentimentSummary(keyConcepts []KeyConcept) Answer {
	if len(keyConcepts) == 0 {
		return Answer{Text: "I don't have sentiment data yet. Run and build the graph first.", SuggestedQuestions: suggestedQuestions}
	}

	var positiveMsg, negativeMsg string
	var insights []Insight

	var positive []KeyConcept
	var negative []KeyConcept
	for _, c := range keyConcepts {
		if c.Sentiment >= 0.3 {
			positive = append(positive, c)
		} else if c.Sentiment <= -0.2 {
			negative = append(negative, c)
		}
	}

	if len(positive) > 0 {
		sort.SliceStable(positive, func(i, j int) bool { return positive[i].Sentiment > positive[j].Sentiment })
		best := positive[0]
		positiveMsg = fmt.Sprintf("Most positive concept: %s (%.2f sentiment across %d mentions).", best.Name, best.Sentiment, best.Frequency)
		insights = append(insights, Insight{
			Title:    "Positive · " + best.Name, Detail: fmt.Sprintf("Sentiment %.2f • Mentions %d", best.Sentiment, best.Frequency),
			Metadata: map[string]any{"personas": best.Personas},
		})
	} else {
		positiveMsg = "No strongly positive concepts detected."
	}

	if len(negative) > 0 {
		sort.SliceStable(negative, func(i, j int) bool { return negative[i].Sentiment < negative[j].Sentiment })
		worst := negative[0]
		negativeMsg = fmt.Sprintf("Biggest pain point: %s (%.2f sentiment).", worst.Name, worst.Sentiment)
		insights = append(insights, Insight{
			Title:    "Negative · " + worst.Name, Detail: fmt.Sprintf("Sentiment %.2f • Mentions %d", worst.Sentiment, worst.Frequency),
			Metadata: map[string]any{"personas": worst.Personas},
		})
	} else {
		negativeMsg = "No strongly negative concepts detected."
	}

	return Answer{Text: positiveMsg + " " + negativeMsg, Insights: insights, SuggestedQuestions: suggestedQuestions}
}

func answerTopics(keyConcepts []KeyConcept) Answer {
	if len(keyConcepts) == 0 {
		return Answer{Text: "No dominant topics yet. Once personas respond, I'll highlight the main themes.", SuggestedQuestions: suggestedQuestions}
	}
	top := keyConcepts[:minInt(3, len(keyConcepts))]
	var parts []string
	var insights []Insight
	for _, c := range top {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, formatPercentage(c.Sentiment)))
		insights = append(insights, Insight{
			Title:    c.Name, Detail: fmt.Sprintf("Mentions %d • Avg sentiment %.2f", c.Frequency, c.Sentiment),
			Metadata: map[string]any{"personas": c.Personas},
		})
	}
	return Answer{Text: "Top themes right now: " + strings.Join(parts, ", ") + ".", Insights: insights, SuggestedQuestions: suggestedQuestions}
}

func answerDefault(keyConcepts []KeyConcept, influential []InfluentialPersona) Answer {
	var insights []Insight
	var topConceptText string
	if len(keyConcepts) > 0 {
		top := keyConcepts[0]
		topConceptText = fmt.Sprintf("The discussion centers on %s (sentiment %.2f, %d mentions).", top.Name, top.Sentiment, top.Frequency)
		insights = append(insights, Insight{
			Title:    "Focus · " + top.Name, Detail: fmt.Sprintf("Mentions %d • Avg sentiment %.2f", top.Frequency, top.Sentiment),
			Metadata: map[string]any{"personas": top.Personas},
		})
	} else {
		topConceptText = "I couldn't determine a dominant concept yet."
	}

	var influenceText string
	if len(influential) > 0 {
		top := influential[0]
		influenceText = fmt.Sprintf("%s leads the conversation with %d connections (influence %d/100).", top.Name, top.Connections, top.Influence)
		insights = append(insights, Insight{
			Title:    "Leader · " + top.Name,
			Detail:   fmt.Sprintf("Influence %d/100 • Connections %d • Avg sentiment %.2f", top.Influence, top.Connections, top.Sentiment),
			Metadata: map[string]any{"persona_id": top.ID},
		})
	} else {
		influenceText = "I have limited information about persona influence so far."
	}

	var riskText string
	var negativeConcepts []KeyConcept
	for _, c := range keyConcepts {
		if c.Sentiment <= -0.2 {
			negativeConcepts = append(negativeConcepts, c)
		}
	}
	if len(negativeConcepts) > 0 {
		sort.SliceStable(negativeConcepts, func(i, j int) bool { return negativeConcepts[i].Sentiment < negativeConcepts[j].Sentiment })
		worst := negativeConcepts[0]
		riskText = fmt.Sprintf("Watch out for %s (sentiment %.2f).", worst.Name, worst.Sentiment)
		insights = append(insights, Insight{
			Title:    "Risk · " + worst.Name, Detail: fmt.Sprintf("%d mentions • Avg sentiment %.2f", worst.Frequency, worst.Sentiment),
			Metadata: map[string]any{"personas": worst.Personas},
		})
	}

	var parts []string
	for _, p := range []string{topConceptText, influenceText, riskText} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	text := "I need more data before I can summarize this focus group."
	if len(parts) > 0 {
		text = strings.Join(parts, " ")
	}
	return Answer{Text: text, Insights: insights, SuggestedQuestions: suggestedQuestions}
}

func formatPercentage(value float64) string {
	if math.Abs(value) <= 1 {
		return fmt.Sprintf("%.0f%%", value*100)
	}
	return fmt.Sprintf("%.1f", value)
}

func joinOrDefault(items []string, limit int, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(firstN(items, limit), ", ")
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
