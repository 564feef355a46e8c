package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hession/krishimate/internal/config"
)

// fakeGenerator scripts LLM output by prompt content
type fakeGenerator struct {
	extraction string
	dedup      string
	err        error
	dedupCalls int
}

func (f *fakeGenerator) Generate(ctx context.Context, role config.Role, system, user string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(user, "memory extraction") {
		return f.extraction, nil
	}
	if strings.Contains(user, "deduplication") {
		f.dedupCalls++
		return f.dedup, nil
	}
	return "", errors.New("unexpected prompt")
}

// fakeEmbedder returns preset vectors per text
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

// setupTestEngine wires an engine over a temp SQLite store
func setupTestEngine(t *testing.T, gen *fakeGenerator, embed *fakeEmbedder) (*Engine, func()) {
	t.Helper()
	store, cleanup := setupTestStore(t)
	engine := NewEngine(store, embed, NewExtractor(gen), NewDeduplicator(gen), EngineOptions{
		ShortTermLimit: 40,
		MaxInject:      12,
	})
	return engine, cleanup
}

func TestAddFromConversationCreatesFacts(t *testing.T) {
	gen := &fakeGenerator{
		extraction: `[
			{"fact": "The farmer grows cotton in 5 acres", "category": "crops", "importance": 8},
			{"fact": "The farmer is from Karimnagar district", "category": "location", "importance": 9}
		]`,
	}
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"The farmer grows cotton in 5 acres":     {1, 0, 0},
		"The farmer is from Karimnagar district": {0, 1, 0},
	}}
	engine, cleanup := setupTestEngine(t, gen, embed)
	defer cleanup()
	ctx := context.Background()

	stored, err := engine.AddFromConversation(ctx, "farmer-1", "I grow cotton on my 5 acres near Karimnagar", "Good to know!")
	if err != nil {
		t.Fatalf("AddFromConversation failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 stored facts, got %d", len(stored))
	}
	for _, sf := range stored {
		if sf.Action != "created" {
			t.Errorf("Action = %s, expected created", sf.Action)
		}
	}

	facts, err := engine.All("farmer-1")
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(facts) != 2 {
		t.Errorf("Expected 2 persisted facts, got %d", len(facts))
	}
}

func TestAddFromConversationDuplicateBoosts(t *testing.T) {
	gen := &fakeGenerator{
		extraction: `[{"fact": "The farmer grows cotton in 5 acres", "category": "crops", "importance": 8}]`,
	}
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"The farmer grows cotton in 5 acres": {1, 0, 0},
	}}
	engine, cleanup := setupTestEngine(t, gen, embed)
	defer cleanup()
	ctx := context.Background()

	if _, err := engine.AddFromConversation(ctx, "farmer-1", "I grow cotton", "Noted"); err != nil {
		t.Fatalf("First AddFromConversation failed: %v", err)
	}

	// Identical embedding exceeds the duplicate threshold, no LLM
	// arbitration, the existing fact just gets an access boost
	stored, err := engine.AddFromConversation(ctx, "farmer-1", "As I said, I grow cotton", "Yes")
	if err != nil {
		t.Fatalf("Second AddFromConversation failed: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("Duplicate should not be stored, got %v", stored)
	}
	if gen.dedupCalls != 0 {
		t.Errorf("High-similarity duplicate should skip LLM arbitration, got %d calls", gen.dedupCalls)
	}

	facts, _ := engine.All("farmer-1")
	if len(facts) != 1 {
		t.Fatalf("Expected 1 fact, got %d", len(facts))
	}
	if facts[0].AccessCount != 1 {
		t.Errorf("AccessCount = %d, expected boost to 1", facts[0].AccessCount)
	}
}

func TestAddFromConversationUpdate(t *testing.T) {
	gen := &fakeGenerator{
		extraction: `[{"fact": "The farmer now grows cotton in 7 acres", "category": "crops", "importance": 8}]`,
	}
	// Moderate similarity forces LLM arbitration
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"The farmer now grows cotton in 7 acres": {0.85, 0.527, 0},
	}}
	engine, cleanup := setupTestEngine(t, gen, embed)
	defer cleanup()
	ctx := context.Background()

	existing := &Fact{
		UserID:     "farmer-1",
		Content:    "The farmer grows cotton in 5 acres",
		Category:   "crops",
		Importance: 8,
		Embedding:  []float32{1, 0, 0},
	}
	if err := engine.store.CreateFact(existing); err != nil {
		t.Fatal(err)
	}

	gen.dedup = `{"action": "update", "update_id": "` + existing.ID + `", "merged_fact": "The farmer grows cotton in 7 acres"}`

	stored, err := engine.AddFromConversation(ctx, "farmer-1", "I expanded to 7 acres", "Great")
	if err != nil {
		t.Fatalf("AddFromConversation failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Action != "updated" {
		t.Fatalf("Expected one updated fact, got %v", stored)
	}
	if gen.dedupCalls != 1 {
		t.Errorf("Expected 1 arbitration call, got %d", gen.dedupCalls)
	}

	got, err := engine.store.GetFact(existing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "The farmer grows cotton in 7 acres" {
		t.Errorf("Content = %q, update not applied", got.Content)
	}
}

func TestAddFromConversationNoFacts(t *testing.T) {
	gen := &fakeGenerator{extraction: `[]`}
	engine, cleanup := setupTestEngine(t, gen, &fakeEmbedder{})
	defer cleanup()

	stored, err := engine.AddFromConversation(context.Background(), "farmer-1", "hello", "hi there")
	if err != nil {
		t.Fatalf("AddFromConversation failed: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("Expected no stored facts, got %v", stored)
	}
}

func TestSearchOrdering(t *testing.T) {
	gen := &fakeGenerator{extraction: `[]`}
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"cotton query": {1, 0, 0},
	}}
	engine, cleanup := setupTestEngine(t, gen, embed)
	defer cleanup()
	ctx := context.Background()

	// Same importance: similarity decides the order
	for _, f := range []*Fact{
		{UserID: "farmer-1", Content: "close match", Category: "crops", Importance: 5, Embedding: []float32{0.99, 0.141, 0}},
		{UserID: "farmer-1", Content: "far match", Category: "crops", Importance: 5, Embedding: []float32{0, 1, 0}},
	} {
		if err := engine.store.CreateFact(f); err != nil {
			t.Fatal(err)
		}
	}

	results, err := engine.Search(ctx, "farmer-1", "cotton query", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Content != "close match" {
		t.Errorf("Top result = %q, expected 'close match'", results[0].Content)
	}

	// Retrieved facts get an access boost
	boosted, err := engine.store.GetFact(results[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if boosted.AccessCount != 1 {
		t.Errorf("Top result AccessCount = %d, expected 1", boosted.AccessCount)
	}
}

func TestSearchKeywordFallback(t *testing.T) {
	gen := &fakeGenerator{extraction: `[]`}
	embed := &fakeEmbedder{err: errors.New("embedding service down")}
	engine, cleanup := setupTestEngine(t, gen, embed)
	defer cleanup()

	fact := &Fact{UserID: "farmer-1", Content: "grows cotton near the river", Category: "crops", Importance: 6}
	if err := engine.store.CreateFact(fact); err != nil {
		t.Fatal(err)
	}

	results, err := engine.Search(context.Background(), "farmer-1", "cotton", 5)
	if err != nil {
		t.Fatalf("Search fallback failed: %v", err)
	}
	if len(results) != 1 || results[0].Content != "grows cotton near the river" {
		t.Errorf("Keyword fallback returned %v", results)
	}
}

func TestCompositeScore(t *testing.T) {
	now := time.Now()

	base := &Fact{Importance: 5, AccessCount: 0, CreatedAt: now}

	// Higher similarity scores higher
	if compositeScore(base, 0.9, now) <= compositeScore(base, 0.5, now) {
		t.Error("Score should increase with similarity")
	}

	// Higher importance scores higher
	important := &Fact{Importance: 10, AccessCount: 0, CreatedAt: now}
	if compositeScore(important, 0.5, now) <= compositeScore(base, 0.5, now) {
		t.Error("Score should increase with importance")
	}

	// Older facts decay, but never below the floor
	old := &Fact{Importance: 5, AccessCount: 0, CreatedAt: now.AddDate(0, 0, -30)}
	if compositeScore(old, 0.5, now) >= compositeScore(base, 0.5, now) {
		t.Error("Score should decay with age")
	}
	ancient := &Fact{Importance: 5, AccessCount: 0, CreatedAt: now.AddDate(-2, 0, 0)}
	veryAncient := &Fact{Importance: 5, AccessCount: 0, CreatedAt: now.AddDate(-5, 0, 0)}
	if compositeScore(ancient, 0.5, now) != compositeScore(veryAncient, 0.5, now) {
		t.Error("Decay should bottom out at the floor")
	}

	// Access boost is capped
	popular := &Fact{Importance: 5, AccessCount: 100, CreatedAt: now}
	somewhatPopular := &Fact{Importance: 5, AccessCount: 4, CreatedAt: now}
	if compositeScore(popular, 0.5, now)-compositeScore(base, 0.5, now) > accessBoostCap+1e-9 {
		t.Error("Access boost should be capped at 0.2")
	}
	if compositeScore(somewhatPopular, 0.5, now) <= compositeScore(base, 0.5, now) {
		t.Error("Score should increase with access count below the cap")
	}
}

func TestGetMemoryContext(t *testing.T) {
	gen := &fakeGenerator{extraction: `[{"fact": "The farmer grows cotton", "category": "crops", "importance": 8}]`}
	embed := &fakeEmbedder{}
	engine, cleanup := setupTestEngine(t, gen, embed)
	defer cleanup()
	ctx := context.Background()

	// Empty store and buffer yield no context
	if got := engine.GetMemoryContext(ctx, "farmer-1", "anything"); got != "" {
		t.Errorf("Expected empty context, got %q", got)
	}

	if _, err := engine.AddFromConversation(ctx, "farmer-1", "I grow cotton", "Noted"); err != nil {
		t.Fatal(err)
	}

	got := engine.GetMemoryContext(ctx, "farmer-1", "what should I plant")
	if !strings.Contains(got, "Known facts about this farmer:") {
		t.Errorf("Context missing facts section: %q", got)
	}
	if !strings.Contains(got, "[crops] The farmer grows cotton") {
		t.Errorf("Context missing stored fact: %q", got)
	}
	if !strings.Contains(got, "Recent conversation:") {
		t.Errorf("Context missing conversation section: %q", got)
	}
	if !strings.Contains(got, "Farmer: I grow cotton") {
		t.Errorf("Context missing buffered turn: %q", got)
	}
}

func TestClearAndStats(t *testing.T) {
	gen := &fakeGenerator{extraction: `[]`}
	engine, cleanup := setupTestEngine(t, gen, &fakeEmbedder{})
	defer cleanup()

	for _, f := range []*Fact{
		{UserID: "farmer-1", Content: "a", Category: "crops", Importance: 5},
		{UserID: "farmer-1", Content: "b", Category: "soil", Importance: 5},
	} {
		if err := engine.store.CreateFact(f); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := engine.Stats("farmer-1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Categories["crops"] != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	if err := engine.Clear("farmer-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	stats, _ = engine.Stats("farmer-1")
	if stats.Total != 0 {
		t.Errorf("Expected empty store after Clear, got %+v", stats)
	}
}

func TestByCategory(t *testing.T) {
	gen := &fakeGenerator{extraction: `[]`}
	engine, cleanup := setupTestEngine(t, gen, &fakeEmbedder{})
	defer cleanup()

	for _, f := range []*Fact{
		{UserID: "farmer-1", Content: "minor crop note", Category: "crops", Importance: 3},
		{UserID: "farmer-1", Content: "major crop note", Category: "crops", Importance: 9},
		{UserID: "farmer-1", Content: "soil note", Category: "soil", Importance: 5},
	} {
		if err := engine.store.CreateFact(f); err != nil {
			t.Fatal(err)
		}
	}

	got, err := engine.ByCategory("farmer-1", "crops")
	if err != nil {
		t.Fatalf("ByCategory failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 crop facts, got %d", len(got))
	}
	if got[0].Content != "major crop note" {
		t.Errorf("Expected importance-descending order, got %q first", got[0].Content)
	}
}
