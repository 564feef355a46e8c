package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/hession/krishimate/internal/intent"
	"github.com/hession/krishimate/internal/weather"
)

// defaultCity is used when the query names no location and memory has
// none either.
const defaultCity = "Hyderabad"

// Weather answers weather and spray-timing questions from live
// observations, without an LLM call.
type Weather struct {
	provider weather.Provider
}

// NewWeather creates the weather handler
func NewWeather(provider weather.Provider) *Weather {
	return &Weather{provider: provider}
}

func (h *Weather) ID() string {
	return intent.HandlerWeather
}

func (h *Weather) Handle(ctx context.Context, q Query) (Result, error) {
	city := q.City()
	if city == "" {
		city = defaultCity
	}

	obs, err := h.provider.Current(ctx, city)
	if err != nil {
		return Result{}, fmt.Errorf("weather lookup failed: %w", err)
	}

	var b strings.Builder
	b.WriteString(weather.Summary(obs))
	b.WriteString("\n")

	if isSprayQuery(q.Text) {
		_, sprayMsg := weather.SprayCheck(obs)
		b.WriteString("\nSpraying: ")
		b.WriteString(sprayMsg)
		b.WriteString("\n")
	}

	b.WriteString("\nAdvisories:\n")
	for _, advisory := range weather.CropAdvisories(obs) {
		b.WriteString("  - ")
		b.WriteString(advisory)
		b.WriteString("\n")
	}

	return Result{
		HandlerID: h.ID(),
		Text:      b.String(),
		Sources:   []string{h.provider.Name()},
	}, nil
}

// isSprayQuery reports whether the farmer is asking about spraying
func isSprayQuery(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "spray") || strings.Contains(lower, "pesticide")
}
