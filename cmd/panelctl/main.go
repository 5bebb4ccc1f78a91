// Command panelctl runs a full synthetic focus group from the terminal:
// sample a panel, synthesize personas, run the focus group, aggregate
// insight, and build a knowledge graph — end to end, no server required.
// Grounded on the cobra command style of echoryn's eidoctl/echoctl CLIs
// (NewCmd* returning *cobra.Command, RunE delegating to an options struct),
// simplified to a flat root+subcommand tree since panelctl has no need for
// echoryn's genericclioptions/factory scaffolding.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	coregraph "panelforge/pkg/core/graph"
	"panelforge/pkg/core/insight"
	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/memory"
	"panelforge/pkg/core/orchestrator"
	"panelforge/pkg/core/persona"
	"panelforge/pkg/core/platform"
	"panelforge/pkg/core/sampler"
	"panelforge/pkg/core/store"
	"panelforge/pkg/core/validator"
	"panelforge/pkg/models"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panelctl",
		Short: "Run a synthetic market-research focus group end to end",
	}
	cmd.AddCommand(newRunCommand())
	return cmd
}

type runOptions struct {
	name       string
	sampleSize int
	questions  []string
	brief      string
	dbURL      string
	seed       int64
}

func newRunCommand() *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sample a panel, synthesize personas, run a focus group, and print its insight",
		RunE:  func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.name, "name", "Untitled Study", "project name")
	flags.IntVar(&o.sampleSize, "panel-size", 12, "number of personas to synthesize")
	flags.StringSliceVar(&o.questions, "question", []string{"What is your first impression of this product?"}, "focus group question (repeatable)")
	flags.StringVar(&o.brief, "brief", "", "optional product/research brief to steer persona synthesis")
	flags.StringVar(&o.dbURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres DSN; omit to run fully in-memory")
	flags.Int64Var(&o.seed, "seed", 0, "deterministic RNG seed; 0 picks the config default")

	return cmd
}

// projectStore, personaStore, focusGroupStore and responseStore are the
// narrow surfaces run() actually calls, satisfied by both *store.MemoryStore
// (via the adapters below) and the pgx-backed repos in pkg/core/store —
// letting --database-url swap the backend without branching every call
// site, the same shape as cmd/server's GraphBackend switch.
type projectStore interface {
	Save(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id string) (*models.Project, error)
}

type personaStore interface {
	orchestrator.PersonaRepo
	Save(ctx context.Context, p *models.Persona) error
}

type focusGroupStore interface {
	orchestrator.FocusGroupRepo
	Create(ctx context.Context, fg *models.FocusGroup) error
}

type responseStore interface {
	orchestrator.ResponseRepo
	coregraph.ResponseSource
}

// memProjectAdapter, memPersonaAdapter and memFocusGroupAdapter rename
// MemoryStore's entity-prefixed methods (SaveProject, SavePersona,
// CreateFocusGroup) to the unprefixed names the pgx repos use, so both
// backends satisfy the same interfaces above. ResponseRepo needs no
// adapter: MemoryStore's SaveBatch/ListByFocusGroup already match.
type memProjectAdapter struct{ *store.MemoryStore }

func (a memProjectAdapter) Save(ctx context.Context, p *models.Project) error {
	return a.SaveProject(ctx, p)
}
func (a memProjectAdapter) Get(ctx context.Context, id string) (*models.Project, error) {
	return a.GetProject(ctx, id)
}

type memPersonaAdapter struct{ *store.MemoryStore }

func (a memPersonaAdapter) Save(ctx context.Context, p *models.Persona) error {
	return a.SavePersona(ctx, p)
}

type memFocusGroupAdapter struct{ *store.MemoryStore }

func (a memFocusGroupAdapter) Create(ctx context.Context, fg *models.FocusGroup) error {
	return a.CreateFocusGroup(ctx, fg)
}

// buildStores wires the in-memory backend by default, or the Postgres
// repos in pkg/core/store and pkg/core/memory when --database-url is set —
// the same external-vs-in-memory switch cmd/server applies to the
// knowledge graph (platform.GraphBackendExternal), extended here to the
// other four persisted entities plus the event log.
func (o *runOptions) buildStores(ctx context.Context, embedder llm.EmbeddingClient) (projectStore, personaStore, focusGroupStore, responseStore, memory.Store, coregraph.Store, error) {
	if o.dbURL == "" {
		memStore := store.NewMemoryStore()
		return memProjectAdapter{memStore}, memPersonaAdapter{memStore}, memFocusGroupAdapter{memStore}, memStore,
			memory.NewInMemoryStore(embedder), coregraph.NewInMemoryStore(), nil
	}

	os.Setenv("DATABASE_URL", o.dbURL)
	if err := store.InitDB(ctx); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("panelctl: connecting to --database-url: %w", err)
	}
	pool := store.GetPool()
	fmt.Printf("[panelctl] using Postgres-backed storage\n")

	return store.NewProjectRepo(), store.NewPersonaRepo(pool), store.NewFocusGroupRepo(pool), store.NewResponseRepo(pool),
		memory.NewPgEventStore(pool, embedder), coregraph.NewPgGraphStore(pool), nil
}

func (o *runOptions) run(ctx context.Context) error {
	cfg, err := platform.LoadConfig()
	if err != nil {
		fmt.Printf("[panelctl] config load failed, using defaults: %v\n", err)
		cfg = platform.DefaultConfig()
	}
	if o.seed != 0 {
		cfg.RandomSeed = o.seed
	}

	chat, embedder := buildLLMClients()
	pctx := platform.NewContext(cfg, chat, embedder)

	projects, personas, focusGroups, responses, events, graphStore, err := o.buildStores(ctx, embedder)
	if err != nil {
		return err
	}
	builder := coregraph.NewBuilder(personas, responses, chat, graphStore)

	orch := &orchestrator.Orchestrator{
		FocusGroups: focusGroups,
		Personas:    personas,
		Responses:   responses,
		Events:      events,
		Chat:        chat,
		Embedder:    embedder,
		Graph:       builder,
		Config:      cfg,
	}

	dist := defaultDistribution()
	proj := &models.Project{
		ID:                 uuid.New().String(),
		Name:               o.name,
		TargetDistribution: dist,
		TargetSampleSize:   o.sampleSize,
	}

	shells, err := sampler.Sample(pctx.RNG, dist, o.sampleSize)
	if err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}
	report := validator.Validate(shells, dist)
	proj.StatisticallyValid = report.Valid
	fmt.Printf("[panelctl] sampled %d profiles, statistically valid=%v\n", len(shells), report.Valid)

	if err := projects.Save(ctx, proj); err != nil {
		return err
	}

	var brief *persona.BriefContext
	if o.brief != "" {
		brief = &persona.BriefContext{Brief: o.brief}
	}

	var personaIDs []string
	for i, shell := range shells {
		_, p, err := persona.Generate(ctx, pctx, chat, pctx.RNG, proj.ID, shell, nil, brief)
		if err != nil {
			fmt.Printf("[panelctl] persona %d synthesis failed: %v\n", i, err)
			continue
		}
		p.ID = uuid.New().String()
		if err := personas.Save(ctx, p); err != nil {
			return err
		}
		personaIDs = append(personaIDs, p.ID)
	}
	fmt.Printf("[panelctl] synthesized %d/%d personas\n", len(personaIDs), o.sampleSize)

	fg := &models.FocusGroup{
		ID:         uuid.New().String(),
		ProjectID:  proj.ID,
		Name:       o.name,
		PersonaIDs: personaIDs,
		Questions:  o.questions,
		Mode:       models.ModeNormal,
		Status:     models.StatusPending,
		CreatedAt:  time.Now(),
	}
	if err := focusGroups.Create(ctx, fg); err != nil {
		return err
	}

	if err := orch.Run(ctx, fg.ID); err != nil {
		return fmt.Errorf("focus group run failed: %w", err)
	}
	fg, err = focusGroups.Get(ctx, fg.ID)
	if err != nil {
		return err
	}
	fmt.Printf("[panelctl] focus group %s status=%s meets_requirements=%v\n", fg.ID, fg.Status, fg.MeetsRequirements)

	responseRows, err := responses.ListByFocusGroup(ctx, fg.ID)
	if err != nil {
		return err
	}
	blob := insight.Aggregate(ctx, embedder, pctx.RNG, fg, len(personaIDs), responseRows, cfg.StopwordSets["en"])
	insight.ApplySideEffects(fg, blob)
	if err := focusGroups.Update(ctx, fg); err != nil {
		return err
	}

	printInsight(blob)

	if snapshot, ok := graphStore.Get(fg.ID); ok {
		concepts := coregraph.KeyConcepts(snapshot)
		fmt.Printf("\n[panelctl] top concepts:\n")
		for _, c := range concepts {
			fmt.Printf(" - %s (mentions=%d, sentiment=%.2f)\n", c.Name, c.Frequency, c.Sentiment)
		}
	}

	return nil
}

func printInsight(blob models.InsightBlob) {
	fmt.Printf("\n[panelctl] overall idea score: %.1f (%s)\n", blob.Overall.IdeaScore, blob.Overall.Grade)
	fmt.Printf("[panelctl] consensus=%.2f avg_sentiment=%.2f\n", blob.Overall.Consensus, blob.Overall.AvgSentiment)
	for _, q := range blob.PerQuestion {
		fmt.Printf(" Q%d %q: idea_score=%.1f consensus=%.2f\n", q.QuestionIndex, truncate(q.Question, 60), q.IdeaScore, q.Consensus)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}

func buildLLMClients() (llm.ChatClient, llm.EmbeddingClient) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Printf("[panelctl] GEMINI_API_KEY not set, using mock LLM clients\n")
		return &llm.MockChatClient{}, llm.NewMockEmbeddingClient(768)
	}
	return llm.NewGeminiChatClient("gemini-2.0-flash"), llm.NewGeminiEmbeddingClient("text-embedding-004")
}

func defaultDistribution() models.DemographicDistribution {
	return models.DemographicDistribution{
		AgeGroups:       map[string]float64{"18-24": 0.2, "25-34": 0.3, "35-44": 0.25, "45-54": 0.15, "55+": 0.1},
		Genders:         map[string]float64{"female": 0.5, "male": 0.48, "nonbinary": 0.02},
		EducationLevels: map[string]float64{"high_school": 0.25, "bachelors": 0.45, "graduate": 0.3},
		IncomeBrackets:  map[string]float64{"low": 0.3, "middle": 0.5, "high": 0.2},
		Locations:       map[string]float64{"urban": 0.55, "suburban": 0.35, "rural": 0.1},
	}
}
