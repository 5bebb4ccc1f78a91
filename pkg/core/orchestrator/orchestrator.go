// Package orchestrator drives a FocusGroup from pending to a terminal state:
// sequential question loop, bounded-concurrency persona fan-out
// per question, per-task LLM timeout, transactional per-question commit,
// latency metrics, cooperative cancellation, best-effort graph-build
// trigger. Grounded on original_source's focus_group_service_langchain.py
// (`run_focus_group`, `_generate_responses_for_question`,
// `_load_focus_group_personas`) and on the bounded worker-pool
// idiom (pkg/core/edgar/statement_agents.go `ParallelExtract`).
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/memory"
	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/core/platform"
	"panelforge/pkg/models"
)

// PersonaRepo is the subset of persona persistence the orchestrator needs.
type PersonaRepo interface {
	GetByIDs(ctx context.Context, ids []string) ([]*models.Persona, error)
	GetByProject(ctx context.Context, projectID string) ([]*models.Persona, error)
}

// FocusGroupRepo persists FocusGroup state transitions.
type FocusGroupRepo interface {
	Get(ctx context.Context, id string) (*models.FocusGroup, error)
	Update(ctx context.Context, fg *models.FocusGroup) error
}

// ResponseRepo persists one question's worth of persona responses atomically.
type ResponseRepo interface {
	SaveBatch(ctx context.Context, responses []models.PersonaResponse) error
}

// GraphBuilder is the best-effort, non-fatal hook triggered on completion.
// Implemented by pkg/core/graph.
type GraphBuilder interface {
	BuildFromFocusGroup(ctx context.Context, focusGroupID string) error
}

// Orchestrator drives focus groups end to end.
type Orchestrator struct {
	FocusGroups FocusGroupRepo
	Personas    PersonaRepo
	Responses   ResponseRepo
	Events      memory.Store
	Chat        llm.ChatClient
	Embedder    llm.EmbeddingClient
	Graph       GraphBuilder // optional; nil disables the post-run trigger

	Config *platform.Config
}

// defaultSLOTotalMS and defaultSLOAvgMS are the SLO thresholds used when
// Config is nil; defaultTopK and defaultTimeoutMS back topK() and
// llmTimeout() when Config is nil or leaves the field unset.
const (
	defaultSLOTotalMS = 30_000
	defaultSLOAvgMS   = 3_000
	defaultTopK       = 5
	defaultTimeoutMS  = 15_000
)

// Run drives focus group id through its full lifecycle. Run requires the
// group to currently be `pending`; any other status is ErrIllegalState.
func (o *Orchestrator) Run(ctx context.Context, focusGroupID string) error {
	fg, err := o.FocusGroups.Get(ctx, focusGroupID)
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	if fg.Status != models.StatusPending {
		return fmt.Errorf("orchestrator: focus group %s is %s: %w", focusGroupID, fg.Status, panelerr.ErrIllegalState)
	}

	now := time.Now()
	fg.Status = models.StatusRunning
	fg.StartedAt = &now
	if err := o.FocusGroups.Update(ctx, fg); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	personas, err := o.resolvePersonas(ctx, fg)
	if err != nil {
		o.fail(ctx, fg, err)
		return err
	}
	fmt.Printf("[orchestrator] loaded %d personas for focus group %s\n", len(personas), focusGroupID)

	executionStart := time.Now()
	var allResponses []models.PersonaResponse

	for questionIndex, question := range fg.Questions {
		select {
		case <-ctx.Done():
			o.fail(ctx, fg, ctx.Err())
			return ctx.Err()
		default:
		}

		fmt.Printf("[orchestrator] question %d/%d: %s\n", questionIndex+1, len(fg.Questions), question)

		responses := o.runQuestion(ctx, fg, personas, question, questionIndex)
		if err := o.Responses.SaveBatch(ctx, responses); err != nil {
			o.fail(ctx, fg, fmt.Errorf("%w: %v", panelerr.ErrPersistenceFailed, err))
			return err
		}
		allResponses = append(allResponses, responses...)
	}

	totalMS := time.Since(executionStart).Milliseconds()
	avgMS := averageLatency(allResponses)

	sloTotal, sloAvg := o.sloThresholds()
	completedAt := time.Now()
	fg.Status = models.StatusCompleted
	fg.CompletedAt = &completedAt
	fg.TotalExecutionTimeMS = totalMS
	fg.AvgResponseTimeMS = avgMS
	fg.MeetsRequirements = totalMS <= sloTotal && int64(avgMS) <= sloAvg

	if err := o.FocusGroups.Update(ctx, fg); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	fmt.Printf("[orchestrator] completed focus group %s in %dms (avg %.1fms, meets_requirements=%v)\n",
		focusGroupID, totalMS, avgMS, fg.MeetsRequirements)

	if o.Graph != nil {
		if err := o.Graph.BuildFromFocusGroup(ctx, focusGroupID); err != nil {
			fmt.Printf("[orchestrator] graph build failed (non-fatal): %v\n", err)
		}
	}

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, fg *models.FocusGroup, cause error) {
	fg.Status = models.StatusFailed
	fg.ErrorMessage = truncateMessage(cause.Error(), 500)
	if err := o.FocusGroups.Update(ctx, fg); err != nil {
		fmt.Printf("[orchestrator] failed to persist failure state for %s: %v\n", fg.ID, err)
	}
}

// resolvePersonas implements the fallback chain: explicit persona_ids on
// the focus group, else every persona belonging to the project, else
// ErrNoPersonas.
func (o *Orchestrator) resolvePersonas(ctx context.Context, fg *models.FocusGroup) ([]*models.Persona, error) {
	var personas []*models.Persona
	var err error

	if len(fg.PersonaIDs) > 0 {
		personas, err = o.Personas.GetByIDs(ctx, fg.PersonaIDs)
	} else {
		personas, err = o.Personas.GetByProject(ctx, fg.ProjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	if len(personas) == 0 {
		return nil, panelerr.ErrNoPersonas
	}
	return personas, nil
}

func (o *Orchestrator) sloThresholds() (totalMS, avgMS int64) {
	if o.Config != nil {
		return o.Config.SLOTotalMS, o.Config.SLOAvgMS
	}
	return defaultSLOTotalMS, defaultSLOAvgMS
}

func (o *Orchestrator) workerParallelism() int {
	if o.Config != nil && o.Config.WorkerParallelism > 0 {
		return o.Config.WorkerParallelism
	}
	return 20
}

func (o *Orchestrator) topK() int {
	if o.Config != nil && o.Config.TopKRetrieval > 0 {
		return o.Config.TopKRetrieval
	}
	return defaultTopK
}

func (o *Orchestrator) llmTimeout() time.Duration {
	if o.Config != nil && o.Config.LLMTimeoutMS > 0 {
		return time.Duration(o.Config.LLMTimeoutMS) * time.Millisecond
	}
	return defaultTimeoutMS * time.Millisecond
}

// runQuestion fans a single question out across every persona with bounded
// concurrency. Errors degrade to a structured error
// response row per persona; they never abort the group.
func (o *Orchestrator) runQuestion(ctx context.Context, fg *models.FocusGroup, personas []*models.Persona, question string, questionIndex int) []models.PersonaResponse {
	parallelism := o.workerParallelism()
	sem := make(chan struct{}, parallelism)
	resultsChan := make(chan models.PersonaResponse, len(personas))

	var wg sync.WaitGroup
	for _, p := range personas {
		select {
		case <-ctx.Done():
			resultsChan <- errorResponse(fg.ID, p.ID, questionIndex, question, ctx.Err())
			continue
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(p *models.Persona) {
			defer wg.Done()
			defer func() { <-sem }()
			resultsChan <- o.runTask(ctx, fg, p, question, questionIndex)
		}(p)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	responses := make([]models.PersonaResponse, 0, len(personas))
	for r := range resultsChan {
		responses = append(responses, r)
	}
	return responses
}

// runTask executes one (persona, question) cell: retrieve context, compose
// prompt, call the model under a per-call timeout, append the response
// event.
func (o *Orchestrator) runTask(ctx context.Context, fg *models.FocusGroup, p *models.Persona, question string, questionIndex int) models.PersonaResponse {
	start := time.Now()

	var contextLines []string
	if o.Events != nil && o.Embedder != nil {
		retrieved, err := memory.Retrieve(ctx, o.Events, o.Embedder, p.ID, question, o.topK(), true, 0, time.Now())
		if err == nil {
			for _, r := range retrieved {
				if line := r.Event.EventData.RenderText(); line != "" {
					contextLines = append(contextLines, line)
				}
			}
		}
	}

	systemPrompt, userPrompt := createPersonaPrompt(p, question, fg.Name, fg.Mode, contextLines)

	callCtx, cancel := context.WithTimeout(ctx, o.llmTimeout())
	defer cancel()

	temperature := 0.8
	if o.Config != nil {
		temperature = o.Config.LLMTemperature
	}

	_, _ = o.recordQuestionEvent(ctx, fg, p.ID, question, questionIndex)

	text, err := o.Chat.GenerateText(callCtx, systemPrompt, userPrompt, temperature)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		cause := panelerr.ErrLLMUnavailable
		if callCtx.Err() != nil {
			cause = panelerr.ErrLLMTimeout
		}
		return errorResponse(fg.ID, p.ID, questionIndex, question, fmt.Errorf("%w: %v", cause, err))
	}

	o.recordResponseEvent(ctx, fg, p.ID, question, questionIndex, text)

	return models.PersonaResponse{
		FocusGroupID:  fg.ID,
		PersonaID:     p.ID,
		QuestionIndex: questionIndex,
		Question:      question,
		ResponseText:  text,
		LatencyMS:     latency,
		CreatedAt:     time.Now(),
	}
}

func (o *Orchestrator) recordQuestionEvent(ctx context.Context, fg *models.FocusGroup, personaID, question string, questionIndex int) (models.PersonaEvent, error) {
	if o.Events == nil {
		return models.PersonaEvent{}, nil
	}
	return o.Events.Append(ctx, models.PersonaEvent{
		PersonaID:    personaID,
		FocusGroupID: fg.ID,
		EventType:    models.EventQuestionAsked,
		EventData:    models.EventPayload{
			Kind:        models.EventQuestionAsked,
			Question:    &models.QuestionPayload{FocusGroupID: fg.ID, QuestionIndex: questionIndex, Question: question},
		},
	})
}

func (o *Orchestrator) recordResponseEvent(ctx context.Context, fg *models.FocusGroup, personaID, question string, questionIndex int, response string) {
	if o.Events == nil {
		return
	}
	_, err := o.Events.Append(ctx, models.PersonaEvent{
		PersonaID:      personaID,
		FocusGroupID:   fg.ID,
		EventType:      models.EventResponseGiven,
		EventData:      models.EventPayload{
			Kind:          models.EventResponseGiven,
			Response:      &models.ResponsePayload{
				FocusGroupID: fg.ID, QuestionIndex: questionIndex, Question: question, Response: response,
			},
		},
	})
	if err != nil {
		fmt.Printf("[orchestrator] failed to append response event for persona %s: %v\n", personaID, err)
	}
}

func errorResponse(focusGroupID, personaID string, questionIndex int, question string, err error) models.PersonaResponse {
	return models.PersonaResponse{
		FocusGroupID:  focusGroupID,
		PersonaID:     personaID,
		QuestionIndex: questionIndex,
		Question:      question,
		Error:         true,
		ErrorMessage:  truncateMessage(err.Error(), 500),
		CreatedAt:     time.Now(),
	}
}

// averageLatency mirrors the source's semantics: error responses carry a
// zero latency and are included in the mean, not excluded, unless every
// response errored (all-zero), in which case the mean is simply zero.
func averageLatency(responses []models.PersonaResponse) float64 {
	if len(responses) == 0 {
		return 0
	}
	var total int64
	for _, r := range responses {
		total += r.LatencyMS
	}
	return float64(total) / float64(len(responses))
}

func truncateMessage(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
