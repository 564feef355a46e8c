// Package intent classifies farmer queries and routes them to
// specialist handlers.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/llm"
	"github.com/hession/krishimate/internal/logger"
)

// Intent is a recognized query category
type Intent string

const (
	IntentCropDisease      Intent = "crop_disease"
	IntentMarketPrice      Intent = "market_price"
	IntentGovernmentScheme Intent = "government_scheme"
	IntentWeather          Intent = "weather"
	IntentSoilHealth       Intent = "soil_health"
	IntentGeneral          Intent = "general"
)

// Classification is the result of classifying a query
type Classification struct {
	Intent     Intent            `json:"intent"`
	Secondary  Intent            `json:"secondary_intent,omitempty"`
	Entities   map[string]string `json:"entities"`
	Language   string            `json:"language"`
	Confidence float64           `json:"confidence"`
}

// llmThreshold is the stage-1 confidence below which the LLM
// classifier is consulted
const llmThreshold = 0.8

var errNoJSON = errors.New("no JSON object in model output")

// keywordRule maps trigger words to an intent. Rules are checked in
// order; weather comes before crop_disease so that spray-timing
// questions mentioning rain resolve to weather.
type keywordRule struct {
	intent   Intent
	keywords []string
}

var keywordRules = []keywordRule{
	{IntentWeather, []string{"weather", "rain", "forecast", "temperature", "monsoon", "humidity", "wind"}},
	{IntentCropDisease, []string{"disease", "leaf", "leaves", "pest", "blight", "wilt", "rot", "borer", "insect", "fungus", "spots"}},
	{IntentMarketPrice, []string{"mandi", "price", "rate", "market", "sell", "buy"}},
	{IntentGovernmentScheme, []string{"scheme", "subsidy", "rythu bandhu", "government", "loan", "insurance", "pm-kisan"}},
	{IntentSoilHealth, []string{"soil", "fertilizer", "nutrient", "compost", "manure", "urea", "npk"}},
}

// Known entity vocabularies scanned from the query text
var (
	knownCrops = []string{
		"rice", "paddy", "wheat", "cotton", "maize", "tomato", "chilli",
		"onion", "sugarcane", "groundnut", "soybean", "banana", "mango",
		"potato", "brinjal", "turmeric",
	}
	knownCities = []string{
		"hyderabad", "warangal", "karimnagar", "nizamabad", "khammam",
		"guntur", "vijayawada", "kurnool", "delhi", "mumbai", "pune",
		"nagpur", "bangalore", "chennai", "lucknow",
	}
)

const classifierSystemPrompt = `You classify farmer queries for an agricultural assistant.
Respond with ONLY a JSON object, no extra text:
{"intent": "...", "secondary_intent": "...", "entities": {"crop": "...", "city": "..."}, "language": "...", "confidence": 0.0}

Valid intents: crop_disease, market_price, government_scheme, weather, soil_health, general.
Omit secondary_intent when there is no clear second topic. Omit entity keys you cannot fill.
language is a two-letter code like "en", "hi" or "te".`

// Classifier performs two-stage intent classification: fast keyword
// matching first, then an LLM call only for low-confidence queries
type Classifier struct {
	gen llm.Generator
}

// NewClassifier creates a classifier
func NewClassifier(gen llm.Generator) *Classifier {
	return &Classifier{gen: gen}
}

// Classify determines the intent of a query. It never returns an
// error: when everything fails it falls back to a general intent.
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	keyword := classifyByKeywords(query)

	if keyword.Confidence >= llmThreshold {
		return keyword
	}

	if c.gen == nil {
		return keyword
	}

	refined, err := c.classifyByLLM(ctx, query)
	if err != nil {
		logger.Warn("LLM classification failed, using keyword result: %v", err)
		return keyword
	}
	return refined
}

// classifyByKeywords is the deterministic stage-1 classifier
func classifyByKeywords(query string) Classification {
	lower := strings.ToLower(query)

	result := Classification{
		Intent:     IntentGeneral,
		Entities:   scanEntities(lower),
		Language:   "en",
		Confidence: 0.5,
	}

	var matched []Intent
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, rule.intent)
				break
			}
		}
	}

	if len(matched) > 0 {
		result.Intent = matched[0]
		result.Confidence = 0.85
		if len(matched) > 1 {
			result.Secondary = matched[1]
		}
	}

	return result
}

// classifyByLLM is the stage-2 classifier for ambiguous queries
func (c *Classifier) classifyByLLM(ctx context.Context, query string) (Classification, error) {
	content, err := c.gen.Generate(ctx, config.RoleClassifier, classifierSystemPrompt, query)
	if err != nil {
		return Classification{}, err
	}

	parsed, err := parseClassification(content)
	if err != nil {
		return Classification{}, err
	}

	return sanitize(parsed, query), nil
}

// parseClassification decodes the model output, tolerating prose
// around the JSON object
func parseClassification(content string) (Classification, error) {
	var parsed Classification

	trimmed := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed, nil
	}

	// Fall back to the outermost {...} span
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return Classification{}, errNoJSON
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &parsed); err != nil {
		return Classification{}, err
	}
	return parsed, nil
}

// sanitize validates and fills defaults on an LLM classification
func sanitize(parsed Classification, query string) Classification {
	if !isValidIntent(parsed.Intent) {
		parsed.Intent = IntentGeneral
	}
	if parsed.Secondary != "" && (!isValidIntent(parsed.Secondary) || parsed.Secondary == parsed.Intent) {
		parsed.Secondary = ""
	}
	if parsed.Entities == nil {
		parsed.Entities = scanEntities(strings.ToLower(query))
	}
	if parsed.Language == "" {
		parsed.Language = "en"
	}
	if parsed.Confidence <= 0 || parsed.Confidence > 1 {
		parsed.Confidence = 0.6
	}
	return parsed
}

// Fallback returns the classification used when every stage fails
func Fallback() Classification {
	return Classification{
		Intent:     IntentGeneral,
		Entities:   map[string]string{},
		Language:   "en",
		Confidence: 0.6,
	}
}

func isValidIntent(i Intent) bool {
	switch i {
	case IntentCropDisease, IntentMarketPrice, IntentGovernmentScheme,
		IntentWeather, IntentSoilHealth, IntentGeneral:
		return true
	}
	return false
}

// scanEntities extracts known crops and cities from lowercased text
func scanEntities(lower string) map[string]string {
	entities := map[string]string{}
	for _, crop := range knownCrops {
		if strings.Contains(lower, crop) {
			entities["crop"] = crop
			break
		}
	}
	for _, city := range knownCities {
		if strings.Contains(lower, city) {
			entities["city"] = city
			break
		}
	}
	return entities
}
