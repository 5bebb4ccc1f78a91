package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/memory"
	"panelforge/pkg/core/panelerr"
	"panelforge/pkg/models"
)

type memFocusGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*models.FocusGroup
}

func newMemFocusGroupRepo(fgs...*models.FocusGroup) *memFocusGroupRepo {
	r := &memFocusGroupRepo{groups: map[string]*models.FocusGroup{}}
	for _, fg := range fgs {
		r.groups[fg.ID] = fg
	}
	return r
}

func (r *memFocusGroupRepo) Get(ctx context.Context, id string) (*models.FocusGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fg, ok := r.groups[id]
	if !ok {
		return nil, assert.AnError
	}
	copyFG := *fg
	return &copyFG, nil
}

func (r *memFocusGroupRepo) Update(ctx context.Context, fg *models.FocusGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyFG := *fg
	r.groups[fg.ID] = &copyFG
	return nil
}

type memPersonaRepo struct {
	byID      map[string]*models.Persona
	byProject map[string][]*models.Persona
}

func (r *memPersonaRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.Persona, error) {
	out := make([]*models.Persona, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPersonaRepo) GetByProject(ctx context.Context, projectID string) ([]*models.Persona, error) {
	return r.byProject[projectID], nil
}

type memResponseRepo struct {
	mu   sync.Mutex
	rows []models.PersonaResponse
}

func (r *memResponseRepo) SaveBatch(ctx context.Context, responses []models.PersonaResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, responses...)
	return nil
}

func newTestPersona(id string) *models.Persona {
	return &models.Persona{
		ID:              id,
		ProjectID:       "proj-1",
		FullName:        "Test Persona " + id,
		BackgroundStory: "A detailed life story.",
		Values:          []string{"a", "b"},
		Interests:       []string{"x", "y"},
	}
}

func TestRunDrivesFocusGroupToCompleted(t *testing.T) {
	fg := &models.FocusGroup{
		ID:         "fg-1",
		ProjectID:  "proj-1",
		PersonaIDs: []string{"p1", "p2"},
		Questions:  []string{"What do you think of the product?", "Would you buy it again?"},
		Status:     models.StatusPending,
	}
	fgRepo := newMemFocusGroupRepo(fg)
	personaRepo := &memPersonaRepo{byID: map[string]*models.Persona{
		"p1": newTestPersona("p1"),
		"p2": newTestPersona("p2"),
	}}
	responseRepo := &memResponseRepo{}

	o := &Orchestrator{
		FocusGroups: fgRepo,
		Personas:    personaRepo,
		Responses:   responseRepo,
		Events:      memory.NewInMemoryStore(llm.NewMockEmbeddingClient(8)),
		Chat:        &llm.MockChatClient{},
		Embedder:    llm.NewMockEmbeddingClient(8),
	}

	err := o.Run(context.Background(), "fg-1")
	require.NoError(t, err)

	final, err := fgRepo.Get(context.Background(), "fg-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Len(t, responseRepo.rows, 4) // 2 personas * 2 questions
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.CompletedAt)
}

func TestRunFailsWhenNoPersonasResolve(t *testing.T) {
	fg := &models.FocusGroup{ID: "fg-2", ProjectID: "proj-empty", Questions: []string{"q1"}, Status: models.StatusPending}
	fgRepo := newMemFocusGroupRepo(fg)
	personaRepo := &memPersonaRepo{byID: map[string]*models.Persona{}, byProject: map[string][]*models.Persona{}}

	o := &Orchestrator{
		FocusGroups: fgRepo,
		Personas:    personaRepo,
		Responses:   &memResponseRepo{},
		Chat:        &llm.MockChatClient{},
	}

	err := o.Run(context.Background(), "fg-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, panelerr.ErrNoPersonas)

	final, _ := fgRepo.Get(context.Background(), "fg-2")
	assert.Equal(t, models.StatusFailed, final.Status)
}

func TestRunRejectsNonPendingFocusGroup(t *testing.T) {
	fg := &models.FocusGroup{ID: "fg-3", Status: models.StatusCompleted}
	fgRepo := newMemFocusGroupRepo(fg)

	o := &Orchestrator{FocusGroups: fgRepo, Personas: &memPersonaRepo{}, Responses: &memResponseRepo{}}

	err := o.Run(context.Background(), "fg-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, panelerr.ErrIllegalState)
}

func TestRunDegradesPerPersonaLLMFailureToErrorResponse(t *testing.T) {
	fg := &models.FocusGroup{
		ID:         "fg-4",
		PersonaIDs: []string{"p1", "p2"},
		Questions:  []string{"q1"},
		Status:     models.StatusPending,
	}
	fgRepo := newMemFocusGroupRepo(fg)
	personaRepo := &memPersonaRepo{byID: map[string]*models.Persona{
		"p1": newTestPersona("p1"),
		"p2": newTestPersona("p2"),
	}}
	responseRepo := &memResponseRepo{}

	chat := &llm.MockChatClient{
		TextFunc: func(system, user string) (string, error) {
			return "", assert.AnError
		},
	}

	o := &Orchestrator{
		FocusGroups: fgRepo,
		Personas:    personaRepo,
		Responses:   responseRepo,
		Chat:        chat,
	}

	err := o.Run(context.Background(), "fg-4")
	require.NoError(t, err) // the group itself still completes

	require.Len(t, responseRepo.rows, 2)
	for _, r := range responseRepo.rows {
		assert.True(t, r.Error)
		assert.NotEmpty(t, r.ErrorMessage)
	}
}
