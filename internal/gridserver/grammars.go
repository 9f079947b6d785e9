package gridserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/latticeforge/gridlex/internal/indexstore"
	"github.com/latticeforge/gridlex/pkg/automaton"
	"github.com/latticeforge/gridlex/pkg/index"
	"github.com/latticeforge/gridlex/pkg/schema"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

// GrammarRegistry compiles and caches Indexes by the content hash of their
// (schema, vocabulary) inputs. A Store is optional; without one the
// registry is a plain in-memory cache for the life of the process.
type GrammarRegistry struct {
	mu    sync.RWMutex
	local map[string]*index.Index
	store indexstore.Store
	log   *zap.Logger
}

// NewGrammarRegistry returns a registry. store and log may both be nil; a
// nil log falls back to a no-op logger.
func NewGrammarRegistry(store indexstore.Store, log *zap.Logger) *GrammarRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &GrammarRegistry{
		local: make(map[string]*index.Index),
		store: store,
		log:   log,
	}
}

// VocabEntry is the wire form of one vocabulary token in a compile request.
type VocabEntry struct {
	Text string               `json:"text"`
	IDs  []vocabulary.TokenID `json:"ids"`
}

// CompileRequest is the body of a grammar-compile request.
type CompileRequest struct {
	Schema     json.RawMessage    `json:"schema"`
	Vocabulary []VocabEntry       `json:"vocabulary"`
	EOSTokenID vocabulary.TokenID `json:"eos_token_id"`
}

// Compile builds (or retrieves a cached) Index for req and returns its
// content-hash grammar id.
func (g *GrammarRegistry) Compile(req CompileRequest) (string, *index.Index, error) {
	regex, err := schema.BuildRegexFromSchema(req.Schema, schema.Options{})
	if err != nil {
		return "", nil, fmt.Errorf("gridserver: compile schema: %w", err)
	}

	tokens := make(map[string][]vocabulary.TokenID, len(req.Vocabulary))
	for _, v := range req.Vocabulary {
		tokens[v.Text] = v.IDs
	}
	vocab, err := vocabulary.New(req.EOSTokenID, tokens)
	if err != nil {
		return "", nil, fmt.Errorf("gridserver: build vocabulary: %w", err)
	}

	vocabJSON, err := json.Marshal(struct {
		Tokens     []VocabEntry       `json:"tokens"`
		EOSTokenID vocabulary.TokenID `json:"eos_token_id"`
	}{req.Vocabulary, req.EOSTokenID})
	if err != nil {
		return "", nil, fmt.Errorf("gridserver: marshal vocabulary: %w", err)
	}
	hash := indexstore.ContentHash(regex, vocabJSON)

	if idx, ok := g.lookupLocal(hash); ok {
		return hash, idx, nil
	}
	if g.store != nil {
		if idx, err := g.store.Get(hash); err == nil {
			g.putLocal(hash, idx)
			return hash, idx, nil
		}
	}

	buildID := uuid.NewString()
	dfa, err := automaton.Compile(regex)
	if err != nil {
		return "", nil, fmt.Errorf("gridserver: compile regex to dfa: %w", err)
	}
	idx, err := index.Build(dfa, vocab, index.Options{Parallel: true})
	if err != nil {
		var cancelled *index.CancelledError
		if errors.As(err, &cancelled) {
			g.log.Warn("index build cancelled",
				zap.String("build_id", buildID),
				zap.Int("regex_len", len(regex)),
				zap.Int("vocab_size", len(req.Vocabulary)),
			)
		}
		return "", nil, fmt.Errorf("gridserver: build index: %w", err)
	}
	g.log.Info("index built",
		zap.String("build_id", buildID),
		zap.Int("regex_len", len(regex)),
		zap.Int("vocab_size", len(req.Vocabulary)),
		zap.Int("visited_states", idx.VisitedStates()),
	)

	g.putLocal(hash, idx)
	if g.store != nil {
		if err := g.store.Put(hash, idx); err != nil {
			return "", nil, fmt.Errorf("gridserver: persist index: %w", err)
		}
	}
	return hash, idx, nil
}

// Get returns the Index registered under grammarID, if any.
func (g *GrammarRegistry) Get(grammarID string) (*index.Index, bool) {
	if idx, ok := g.lookupLocal(grammarID); ok {
		return idx, true
	}
	if g.store == nil {
		return nil, false
	}
	idx, err := g.store.Get(grammarID)
	if err != nil {
		return nil, false
	}
	g.putLocal(grammarID, idx)
	return idx, true
}

func (g *GrammarRegistry) lookupLocal(hash string) (*index.Index, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.local[hash]
	return idx, ok
}

func (g *GrammarRegistry) putLocal(hash string, idx *index.Index) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.local[hash] = idx
}
