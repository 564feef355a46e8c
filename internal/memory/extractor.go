package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/llm"
	"github.com/hession/krishimate/internal/logger"
)

// extractionInputLimit caps each message fed to the extraction prompt.
const extractionInputLimit = 1500

const extractionPromptTemplate = `You are a memory extraction system for KrishiMate, an AI farming advisor.

Analyse the following conversation between a farmer and the AI assistant.
Extract ALL factual information about the farmer that should be remembered for future conversations.

RULES:
1. Extract ONLY facts explicitly stated or strongly implied by the farmer's message
2. Do NOT extract facts from the assistant's response (those are advice, not user facts)
3. Each fact should be a single, clear, self-contained statement
4. Assign a category from: %s
5. Score importance 1-10 (10 = critical farming decision info, 1 = trivial)
6. If the farmer asks about a specific crop/location, that's a fact about their interest

Return a JSON array of objects. If no new facts, return [].
Format:
[
  {"fact": "The farmer grows cotton in 5 acres", "category": "crops", "importance": 8},
  {"fact": "The farmer is from Karimnagar district", "category": "location", "importance": 9}
]

CONVERSATION:
Farmer: %s
Assistant: %s

Extract facts (JSON array only, no explanation):`

// Candidate is one fact proposed by the extraction model.
type Candidate struct {
	Fact       string `json:"fact"`
	Category   string `json:"category"`
	Importance int    `json:"importance"`
}

// Extractor pulls candidate facts out of a conversation turn.
type Extractor struct {
	gen llm.Generator
}

// NewExtractor creates a fact extractor
func NewExtractor(gen llm.Generator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract returns candidate facts from one exchange. Candidates are
// normalized: empty facts dropped, unknown categories defaulted,
// importance clamped to 1..10.
func (e *Extractor) Extract(ctx context.Context, userMsg, assistantMsg string) ([]Candidate, error) {
	prompt := fmt.Sprintf(extractionPromptTemplate,
		strings.Join(Categories, ", "),
		truncate(userMsg, extractionInputLimit),
		truncate(assistantMsg, extractionInputLimit),
	)

	raw, err := e.gen.Generate(ctx, config.RoleClassifier, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("fact extraction failed: %w", err)
	}

	var parsed []Candidate
	if err := decodeJSONArray(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed))
	for _, c := range parsed {
		c.Fact = strings.TrimSpace(c.Fact)
		if c.Fact == "" {
			continue
		}
		if !IsValidCategory(c.Category) {
			c.Category = DefaultCategory
		}
		if c.Importance == 0 {
			c.Importance = 5
		}
		c.Importance = ClampImportance(c.Importance)
		candidates = append(candidates, c)
	}

	if len(candidates) > 0 {
		logger.Info("Extracted %d facts from conversation", len(candidates))
	}

	return candidates, nil
}

// truncate cuts text to at most max characters
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}
