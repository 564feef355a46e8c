package handler

import (
	"fmt"
	"strings"
)

// buildUserPrompt assembles the user prompt for LLM-backed handlers:
// personalization context first, then entity hints, then the query.
func buildUserPrompt(q Query, extraContext string) string {
	var b strings.Builder

	if q.MemoryContext != "" {
		b.WriteString(q.MemoryContext)
		b.WriteString("\n")
	}
	if extraContext != "" {
		b.WriteString(extraContext)
		b.WriteString("\n")
	}
	if crop := q.Crop(); crop != "" {
		fmt.Fprintf(&b, "Crop in question: %s\n", crop)
	}
	if city := q.City(); city != "" {
		fmt.Fprintf(&b, "Farmer location: %s\n", city)
	}
	if q.Language != "" && q.Language != "en" {
		fmt.Fprintf(&b, "Respond in language code: %s\n", q.Language)
	}

	b.WriteString("\nFarmer query: ")
	b.WriteString(q.Text)
	return b.String()
}
