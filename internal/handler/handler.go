// Package handler contains the specialist handlers a farmer query can
// be routed to, and the registry that holds them.
package handler

import (
	"context"
)

// Query is a routed farmer query with its personalization context.
type Query struct {
	UserID        string
	Text          string
	Entities      map[string]string
	Language      string
	MemoryContext string
}

// Result is one specialist's answer.
type Result struct {
	HandlerID string
	Text      string
	Sources   []string

	// Degraded marks apology results produced when a handler failed.
	Degraded bool
}

// Handler answers queries for one specialty.
type Handler interface {
	ID() string
	Handle(ctx context.Context, q Query) (Result, error)
}

// Crop returns the crop entity, or a fallback description.
func (q Query) Crop() string {
	if crop, ok := q.Entities["crop"]; ok && crop != "" {
		return crop
	}
	return ""
}

// City returns the city entity.
func (q Query) City() string {
	if city, ok := q.Entities["city"]; ok {
		return city
	}
	return ""
}
