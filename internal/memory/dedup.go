package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/embedding"
	"github.com/hession/krishimate/internal/llm"
	"github.com/hession/krishimate/internal/logger"
)

// Dedup thresholds on cosine similarity.
const (
	// duplicateThreshold: above this the fact is a duplicate, no LLM needed.
	duplicateThreshold = 0.92
	// candidateThreshold: above this an existing fact is a merge candidate.
	candidateThreshold = 0.75
	// maxShortlist caps how many candidates the arbitration prompt sees.
	maxShortlist = 5
)

// Dedup actions.
const (
	ActionNew       = "new"
	ActionDuplicate = "duplicate"
	ActionUpdate    = "update"
)

const dedupPromptTemplate = `You are a memory deduplication system.

Compare NEW_FACT against EXISTING_MEMORIES.
Determine if the new fact:
- "new": genuinely new information not covered by any existing memory
- "duplicate": same information already stored (skip it)
- "update": updates/corrects/expands an existing memory (return the ID to update)

Return JSON:
{"action": "new"|"duplicate"|"update", "update_id": null|"memory_id", "merged_fact": null|"updated text"}

EXISTING_MEMORIES:
%s

NEW_FACT: %s

Decision (JSON only):`

// DedupDecision is the outcome of checking one candidate fact.
type DedupDecision struct {
	Action     string `json:"action"`
	UpdateID   string `json:"update_id"`
	MergedFact string `json:"merged_fact"`
}

// Deduplicator decides whether an extracted fact is new, a duplicate
// of a stored fact, or an update to one.
type Deduplicator struct {
	gen llm.Generator
}

// NewDeduplicator creates a deduplicator
func NewDeduplicator(gen llm.Generator) *Deduplicator {
	return &Deduplicator{gen: gen}
}

// scoredCandidate pairs an existing fact with its similarity.
type scoredCandidate struct {
	fact *Fact
	sim  float64
}

// Decide classifies a candidate fact against existing facts. The
// candidate's embedding is computed once by the caller and passed in;
// a nil embedding always yields "new". Any arbitration failure also
// yields "new", since storing a near-duplicate is cheaper than losing
// a fact.
func (d *Deduplicator) Decide(ctx context.Context, fact string, factEmbedding []float32, existing []*Fact) DedupDecision {
	if len(existing) == 0 || len(factEmbedding) == 0 {
		return DedupDecision{Action: ActionNew}
	}

	var candidates []scoredCandidate
	for _, mem := range existing {
		if len(mem.Embedding) == 0 {
			continue
		}
		sim := embedding.CosineSimilarity(factEmbedding, mem.Embedding)
		if sim > candidateThreshold {
			candidates = append(candidates, scoredCandidate{fact: mem, sim: sim})
		}
	}

	if len(candidates) == 0 {
		return DedupDecision{Action: ActionNew}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})

	// Near-identical facts are duplicates without asking the LLM
	best := candidates[0]
	if best.sim > duplicateThreshold {
		return DedupDecision{Action: ActionDuplicate, UpdateID: best.fact.ID}
	}

	// Moderate similarity, ask the LLM to arbitrate
	if len(candidates) > maxShortlist {
		candidates = candidates[:maxShortlist]
	}

	decision, err := d.arbitrate(ctx, fact, candidates)
	if err != nil {
		logger.Warn("Dedup arbitration failed, storing as new: %v", err)
		return DedupDecision{Action: ActionNew}
	}
	return decision
}

// arbitrate asks the LLM to compare the fact against shortlisted
// candidates
func (d *Deduplicator) arbitrate(ctx context.Context, fact string, candidates []scoredCandidate) (DedupDecision, error) {
	var lines []string
	for _, c := range candidates {
		lines = append(lines, fmt.Sprintf("  [%s] (%s) %s", c.fact.ID, c.fact.Category, c.fact.Content))
	}

	prompt := fmt.Sprintf(dedupPromptTemplate, strings.Join(lines, "\n"), fact)

	raw, err := d.gen.Generate(ctx, config.RoleClassifier, "", prompt)
	if err != nil {
		return DedupDecision{}, err
	}

	var decision DedupDecision
	if err := decodeJSONObject(raw, &decision); err != nil {
		return DedupDecision{}, err
	}

	switch decision.Action {
	case ActionNew:
		return DedupDecision{Action: ActionNew}, nil
	case ActionDuplicate, ActionUpdate:
		if decision.UpdateID == "" {
			return DedupDecision{Action: ActionNew}, nil
		}
		return decision, nil
	default:
		return DedupDecision{Action: ActionNew}, nil
	}
}
