// Package memory implements per-farmer long-term memory: fact
// extraction from conversations, deduplication against stored facts
// and scored semantic retrieval.
package memory

import (
	"time"
)

// Categories are the valid fact categories.
var Categories = []string{
	"personal",    // name, age, family size, education
	"location",    // village, district, state, taluk
	"farming",     // farm size, irrigation type, farming style
	"crops",       // current/past crops, crop rotation, varieties
	"equipment",   // tractor, sprayer, drip irrigation, etc.
	"livestock",   // cattle, poultry, etc.
	"soil",        // soil type, pH, nutrient status
	"preferences", // preferred language, advisory style, organic/chemical
	"experience",  // years of farming, past problems, successes
	"financial",   // budget, loans, insurance, subsidy status
}

// DefaultCategory is used when extraction returns an unknown category.
const DefaultCategory = "personal"

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Fact is a single remembered statement about a farmer.
type Fact struct {
	ID          string
	UserID      string
	Content     string
	Category    string
	Importance  int // 1..10
	AccessCount int
	Embedding   []float32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Turn is one persisted conversation message.
type Turn struct {
	ID        int64
	UserID    string
	Role      string // "user" | "assistant"
	Content   string
	CreatedAt time.Time
}

// ScoredFact is a fact with its retrieval score attached.
type ScoredFact struct {
	Fact
	Score      float64
	Similarity float64
}

// StoredFact describes the outcome of persisting one extracted fact.
type StoredFact struct {
	Fact     string `json:"fact"`
	Category string `json:"category"`
	Action   string `json:"action"` // "created" | "updated"
}

// Stats summarizes a user's memory store.
type Stats struct {
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
}

// ClampImportance forces importance into the valid 1..10 range.
func ClampImportance(importance int) int {
	if importance < 1 {
		return 1
	}
	if importance > 10 {
		return 10
	}
	return importance
}
