// Command server runs the PanelForge HTTP API: project/persona/focus-group
// management, focus-group execution, insight aggregation, and knowledge-graph
// queries. Wiring style follows cmd/api/main.go:
// godotenv.Load, package-level InitHandler calls per API subpackage, a flat
// http.HandleFunc mux, [TAG]-prefixed fmt.Printf logging.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"panelforge/pkg/api/focusgroup"
	"panelforge/pkg/api/graph"
	"panelforge/pkg/api/insight"
	"panelforge/pkg/api/persona"
	"panelforge/pkg/api/project"
	coregraph "panelforge/pkg/core/graph"
	"panelforge/pkg/core/llm"
	"panelforge/pkg/core/memory"
	"panelforge/pkg/core/orchestrator"
	"panelforge/pkg/core/platform"
	"panelforge/pkg/core/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("[server] no .env file found, continuing with process environment\n")
	}

	cfg, err := platform.LoadConfig()
	if err != nil {
		fmt.Printf("[server] config load failed, using defaults: %v\n", err)
		cfg = platform.DefaultConfig()
	}

	chat, embedder := buildLLMClients()
	pctx := platform.NewContext(cfg, chat, embedder)

	// A single MemoryStore backs every repo interface the orchestrator and
	// graph builder depend on. This is the demo/single-process persistence
	// path; store.ProjectRepo/PersonaRepo/FocusGroupRepo/ResponseRepo/
	// PgGraphStore exist as the Postgres-backed alternative when operated
	// against a real DATABASE_URL (see cmd/panelctl for that wiring).
	memStore := store.NewMemoryStore()

	events := memory.NewInMemoryStore(embedder)

	var graphStore coregraph.Store
	if cfg.GraphBackend == platform.GraphBackendExternal {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[server] external graph backend requested but DB init failed, falling back to in-memory: %v\n", err)
			graphStore = coregraph.NewInMemoryStore()
		} else {
			graphStore = coregraph.NewPgGraphStore(store.GetPool())
		}
	} else {
		graphStore = coregraph.NewInMemoryStore()
	}

	extractionCache := store.NewExtractionCache(nil, "")
	builder := &coregraph.Builder{
		Personas:  memStore,
		Responses: memStore,
		Chat:      chat,
		Store:     graphStore,
		Cache:     extractionCache,
	}

	orch := &orchestrator.Orchestrator{
		FocusGroups: memStore,
		Personas:    memStore,
		Responses:   memStore,
		Events:      events,
		Chat:        chat,
		Embedder:    embedder,
		Graph:       builder,
		Config:      cfg,
	}

	project.InitHandler(memStore, pctx)
	persona.InitHandler(memStore, memStore, chat, pctx)
	focusgroup.InitHandler(orch, memStore)
	insight.InitHandler(memStore, memStore, embedder, pctx)
	graph.InitHandler(graphStore)

	http.HandleFunc("/api/projects", project.HandleCreate)
	http.HandleFunc("/api/projects/get", project.HandleGet)
	http.HandleFunc("/api/personas/generate", persona.HandleGenerate)
	http.HandleFunc("/api/personas", persona.HandleListByProject)
	http.HandleFunc("/api/focus-groups", focusgroup.HandleCreate)
	http.HandleFunc("/api/focus-groups/get", focusgroup.HandleGet)
	http.HandleFunc("/api/focus-groups/run", focusgroup.HandleRun)
	http.HandleFunc("/api/insight", insight.HandleGet)
	http.HandleFunc("/api/graph/data", graph.HandleGraphData)
	http.HandleFunc("/api/graph/key-concepts", graph.HandleKeyConcepts)
	http.HandleFunc("/api/graph/controversial-concepts", graph.HandleControversialConcepts)
	http.HandleFunc("/api/graph/influential-personas", graph.HandleInfluentialPersonas)
	http.HandleFunc("/api/graph/emotion-distribution", graph.HandleEmotionDistribution)
	http.HandleFunc("/api/graph/answer", graph.HandleAnswerQuestion)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("[server] listening on :%s\n", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		fmt.Printf("[server] server error: %v\n", err)
		os.Exit(1)
	}
}

// buildLLMClients wires Gemini-backed clients when GEMINI_API_KEY is set,
// and falls back to the deterministic mock clients otherwise so the server
// is runnable without any external credentials.
func buildLLMClients() (llm.ChatClient, llm.EmbeddingClient) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Printf("[server] GEMINI_API_KEY not set, using mock LLM clients\n")
		return &llm.MockChatClient{}, llm.NewMockEmbeddingClient(768)
	}
	return llm.NewGeminiChatClient("gemini-2.0-flash"), llm.NewGeminiEmbeddingClient("text-embedding-004")
}
