package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"panelforge/pkg/core/graph"
)

// ExtractionCache memoizes LLM concept-extraction results by response text,
// so rebuilding a knowledge graph from an unchanged transcript never re-pays
// the LLM round trip for a response it has already scored. Hybrid vault: DB
// (primary) + filesystem (fallback/local), same dual-backend shape as the
// teacher's FSAPCache.
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS concept_extractions (
//	 hash TEXT PRIMARY KEY,
//	 extraction JSONB NOT NULL,
//	 created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type ExtractionCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewExtractionCache creates a cache instance. If pool is nil, it falls back
// to a file-based cache in the given directory; if dir is also empty, it
// defaults to.cache/graph/extractions.
func NewExtractionCache(pool *pgxpool.Pool, dir string) *ExtractionCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "graph", "extractions")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] could not create ExtractionCache dir: %v\n", err)
		}
	}
	return &ExtractionCache{pool: pool, fileDir: dir}
}

// cacheEntry is the on-disk/row representation of a cached extraction.
type cacheEntry struct {
	Hash        string           `json:"hash"`
	Extraction  graph.Extraction `json:"extraction"`
	ExtractedAt time.Time        `json:"extracted_at"`
}

// hashText keys the cache on the exact response text, so any edit to a
// transcript invalidates its entry rather than returning a stale extraction.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached extraction for text, if any.
func (c *ExtractionCache) Get(ctx context.Context, text string) (*graph.Extraction, bool) {
	hash := hashText(text)

	if c.pool != nil {
		var dataJSON []byte
		err := c.pool.QueryRow(ctx, `SELECT extraction FROM concept_extractions WHERE hash = $1`, hash).Scan(&dataJSON)
		if err == nil {
			var ext graph.Extraction
			if err := json.Unmarshal(dataJSON, &ext); err == nil {
				return &ext, true
			}
		}
		return nil, false
	}

	if c.fileDir != "" {
		entry, err := c.loadEntry(c.entryPath(hash))
		if err == nil {
			return &entry.Extraction, true
		}
	}

	return nil, false
}

// Save stores an extraction keyed by its source text.
func (c *ExtractionCache) Save(ctx context.Context, text string, ext graph.Extraction) {
	hash := hashText(text)

	if c.pool != nil {
		dataJSON, err := json.Marshal(ext)
		if err == nil {
			_, err = c.pool.Exec(ctx, `
				INSERT INTO concept_extractions (hash, extraction, created_at)
				VALUES ($1, $2, now())
				ON CONFLICT (hash) DO UPDATE SET extraction = EXCLUDED.extraction
			`, hash, dataJSON)
			if err != nil {
				fmt.Printf("[extraction-cache] failed to save to db: %v\n", err)
			}
		}
	}

	if c.fileDir != "" {
		entry := cacheEntry{Hash: hash, Extraction: ext, ExtractedAt: time.Now()}
		fileBytes, err := json.MarshalIndent(entry, "", " ")
		if err == nil {
			if err := ioutil.WriteFile(c.entryPath(hash), fileBytes, 0644); err != nil {
				fmt.Printf("[extraction-cache] failed to save to file: %v\n", err)
			}
		}
	}
}

func (c *ExtractionCache) entryPath(hash string) string {
	safe := strings.ReplaceAll(hash, "/", "_")
	return filepath.Join(c.fileDir, safe+".json")
}

func (c *ExtractionCache) loadEntry(path string) (*cacheEntry, error) {
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(bytes, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
