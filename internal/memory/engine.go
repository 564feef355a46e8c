package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hession/krishimate/internal/embedding"
	"github.com/hession/krishimate/internal/logger"
)

// Retrieval scoring weights and limits.
const (
	simWeight        = 0.6
	importanceWeight = 0.25
	decayWeight      = 0.15
	accessBoostCap   = 0.2
	decayFloor       = 0.3
	decayDays        = 90

	// boostTop is how many retrieved facts get an access boost.
	boostTop = 5

	// contextPairs is how many recent conversation pairs go into the
	// prompt context.
	contextPairs = 3

	// contextLineLimit caps each conversation line in the context.
	contextLineLimit = 200
)

// Engine is the per-user memory facade: extraction, deduplication,
// storage and scored retrieval behind one API.
type Engine struct {
	store     Store
	embed     embedding.Client
	extractor *Extractor
	dedup     *Deduplicator
	maxInject int

	mu          sync.Mutex
	buffers     map[string]*Buffer
	userLocks   map[string]*sync.Mutex
	bufferLimit int
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	ShortTermLimit int
	MaxInject      int
}

// NewEngine creates a memory engine
func NewEngine(store Store, embed embedding.Client, extractor *Extractor, dedup *Deduplicator, opts EngineOptions) *Engine {
	if opts.ShortTermLimit <= 0 {
		opts.ShortTermLimit = 40
	}
	if opts.MaxInject <= 0 {
		opts.MaxInject = 12
	}
	return &Engine{
		store:       store,
		embed:       embed,
		extractor:   extractor,
		dedup:       dedup,
		maxInject:   opts.MaxInject,
		buffers:     make(map[string]*Buffer),
		userLocks:   make(map[string]*sync.Mutex),
		bufferLimit: opts.ShortTermLimit,
	}
}

// lockUser serializes memory writes per user
func (e *Engine) lockUser(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	return lock
}

// buffer returns the short-term buffer for a user, creating it if needed
func (e *Engine) buffer(userID string) *Buffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.buffers[userID]
	if !ok {
		buf = NewBuffer(e.bufferLimit)
		e.buffers[userID] = buf
	}
	return buf
}

// AddFromConversation extracts facts from one exchange and persists
// them. This is the main write path, called after every exchange.
// Returns the facts that were created or updated.
func (e *Engine) AddFromConversation(ctx context.Context, userID, userMsg, assistantMsg string) ([]StoredFact, error) {
	lock := e.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	// 1. Record the exchange
	e.buffer(userID).AddPair(userMsg, assistantMsg)
	if err := e.store.SaveTurn(&Turn{UserID: userID, Role: "user", Content: userMsg}); err != nil {
		logger.Warn("Failed to save user turn: %v", err)
	}
	if err := e.store.SaveTurn(&Turn{UserID: userID, Role: "assistant", Content: assistantMsg}); err != nil {
		logger.Warn("Failed to save assistant turn: %v", err)
	}

	// 2. Extract candidate facts
	candidates, err := e.extractor.Extract(ctx, userMsg, assistantMsg)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// 3. Deduplicate against existing facts and persist
	existing, err := e.store.GetFacts(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing facts: %w", err)
	}

	var stored []StoredFact
	for _, candidate := range candidates {
		factEmbedding := e.tryEmbed(ctx, candidate.Fact)

		decision := e.dedup.Decide(ctx, candidate.Fact, factEmbedding, existing)

		switch decision.Action {
		case ActionDuplicate:
			if decision.UpdateID != "" {
				if err := e.store.BoostFact(decision.UpdateID); err != nil {
					logger.Debug("Boost of duplicate fact failed: %v", err)
				}
			}

		case ActionUpdate:
			merged := decision.MergedFact
			if merged == "" {
				merged = candidate.Fact
			}
			if err := e.store.UpdateFactContent(decision.UpdateID, merged, candidate.Importance); err != nil {
				logger.Warn("Failed to update fact %s: %v", decision.UpdateID, err)
				continue
			}
			logger.Info("Updated fact %s: %s", decision.UpdateID, truncate(merged, 60))
			stored = append(stored, StoredFact{Fact: merged, Category: candidate.Category, Action: "updated"})

		default:
			fact := &Fact{
				UserID:     userID,
				Content:    candidate.Fact,
				Category:   candidate.Category,
				Importance: candidate.Importance,
				Embedding:  factEmbedding,
			}
			if err := e.store.CreateFact(fact); err != nil {
				logger.Warn("Failed to store fact: %v", err)
				continue
			}
			logger.Info("Stored fact: [%s] %s (importance=%d)", fact.Category, truncate(fact.Content, 60), fact.Importance)
			stored = append(stored, StoredFact{Fact: fact.Content, Category: fact.Category, Action: "created"})

			// Later candidates in this batch dedup against it too
			existing = append(existing, fact)
		}
	}

	return stored, nil
}

// Search performs scored semantic retrieval over a user's facts.
// Falls back to keyword search when no query embedding is available.
func (e *Engine) Search(ctx context.Context, userID, query string, topK int) ([]ScoredFact, error) {
	if topK <= 0 {
		topK = e.maxInject
	}

	queryEmbedding := e.tryEmbed(ctx, query)
	if len(queryEmbedding) == 0 {
		return e.keywordSearch(userID, query, topK)
	}

	facts, err := e.store.GetFacts(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}

	now := time.Now()
	var scored []ScoredFact
	for _, fact := range facts {
		if len(fact.Embedding) == 0 {
			continue
		}
		sim := embedding.CosineSimilarity(queryEmbedding, fact.Embedding)
		scored = append(scored, ScoredFact{
			Fact:       *fact,
			Score:      compositeScore(fact, sim, now),
			Similarity: sim,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	// Recency boost for the most relevant facts
	for i, sf := range scored {
		if i >= boostTop {
			break
		}
		if err := e.store.BoostFact(sf.ID); err != nil {
			logger.Debug("Access boost failed for fact %s: %v", sf.ID, err)
		}
	}

	return scored, nil
}

// compositeScore combines similarity, importance, time decay and
// access frequency into one relevance score
func compositeScore(fact *Fact, sim float64, now time.Time) float64 {
	daysOld := now.Sub(fact.CreatedAt).Hours() / 24
	decay := 1.0 - (daysOld/decayDays)*0.5
	if decay < decayFloor {
		decay = decayFloor
	}

	importanceNorm := float64(fact.Importance) / 10.0

	accessBoost := float64(fact.AccessCount) / 20.0
	if accessBoost > accessBoostCap {
		accessBoost = accessBoostCap
	}

	return sim*simWeight + importanceNorm*importanceWeight + decay*decayWeight + accessBoost
}

// keywordSearch is the embedding-free fallback
func (e *Engine) keywordSearch(userID, query string, topK int) ([]ScoredFact, error) {
	facts, err := e.store.SearchFactsKeyword(userID, query, topK)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredFact, 0, len(facts))
	for _, fact := range facts {
		scored = append(scored, ScoredFact{Fact: *fact})
	}
	return scored, nil
}

// GetMemoryContext builds the personalized context block injected
// into prompts. Returns "" when there is nothing to inject.
func (e *Engine) GetMemoryContext(ctx context.Context, userID, query string) string {
	var parts []string

	relevant, err := e.Search(ctx, userID, query, e.maxInject)
	if err != nil {
		logger.Warn("Memory search failed: %v", err)
	}
	if len(relevant) > 0 {
		var lines []string
		for _, m := range relevant {
			lines = append(lines, fmt.Sprintf("  - [%s] %s", m.Category, m.Content))
		}
		parts = append(parts, "Known facts about this farmer:\n"+strings.Join(lines, "\n"))
	}

	recent := e.buffer(userID).Recent(contextPairs)
	if len(recent) > 0 {
		var lines []string
		for _, entry := range recent {
			role := "Farmer"
			if entry.Role == "assistant" {
				role = "KrishiMate"
			}
			lines = append(lines, fmt.Sprintf("  %s: %s", role, truncate(entry.Content, contextLineLimit)))
		}
		parts = append(parts, "Recent conversation:\n"+strings.Join(lines, "\n"))
	}

	if len(parts) == 0 {
		return ""
	}

	return "\n--- FARMER MEMORY (personalised context) ---\n" +
		strings.Join(parts, "\n\n") +
		"\n--- END MEMORY ---\n"
}

// All returns every fact for a user, newest first
func (e *Engine) All(userID string) ([]*Fact, error) {
	return e.store.GetFacts(userID)
}

// ByCategory returns a user's facts in one category, most important
// first
func (e *Engine) ByCategory(userID, category string) ([]*Fact, error) {
	facts, err := e.store.GetFacts(userID)
	if err != nil {
		return nil, err
	}

	var filtered []*Fact
	for _, fact := range facts {
		if fact.Category == category {
			filtered = append(filtered, fact)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Importance > filtered[j].Importance
	})
	return filtered, nil
}

// Delete removes one fact owned by the user
func (e *Engine) Delete(userID, factID string) error {
	return e.store.DeleteFact(userID, factID)
}

// Clear removes all facts and the session buffer for a user
func (e *Engine) Clear(userID string) error {
	lock := e.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.store.ClearFacts(userID); err != nil {
		return err
	}
	e.buffer(userID).Clear()
	return nil
}

// Stats returns fact counts per category
func (e *Engine) Stats(userID string) (Stats, error) {
	counts, err := e.store.CountByCategory(userID)
	if err != nil {
		return Stats{}, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return Stats{Total: total, Categories: counts}, nil
}

// tryEmbed generates an embedding, returning nil on any failure
func (e *Engine) tryEmbed(ctx context.Context, text string) []float32 {
	if e.embed == nil {
		return nil
	}
	vec, err := e.embed.Embed(ctx, text)
	if err != nil {
		logger.Warn("Embedding failed: %v", err)
		return nil
	}
	return vec
}
