package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/handler"
	"github.com/hession/krishimate/internal/intent"
	"github.com/hession/krishimate/internal/llm"
	"github.com/hession/krishimate/internal/logger"
	"github.com/hession/krishimate/internal/memory"
)

// noResultsMessage is returned when every specialist fails.
const noResultsMessage = "Sorry, I could not find relevant information at this time. Please try rephrasing your question."

// degradedApology fills a failed handler's result slot.
const degradedApology = "Sorry, I could not process this part of your question right now."

const synthesisSystemPrompt = `You are KrishiMate, a farming assistant for Indian farmers.
You will receive answers from several specialist advisors for one farmer question.
Merge them into a single coherent reply in simple language a farmer can follow.
Do not repeat the same advice twice and do not mention the specialists.`

// Memory is the long-term memory surface the supervisor needs.
type Memory interface {
	GetMemoryContext(ctx context.Context, userID, query string) string
	AddFromConversation(ctx context.Context, userID, userMsg, assistantMsg string) ([]memory.StoredFact, error)
}

// Classifier resolves a raw query into an intent classification.
type Classifier interface {
	Classify(ctx context.Context, query string) intent.Classification
}

// Response is one answered farmer query.
type Response struct {
	Text     string
	Intent   intent.Intent
	Language string
	Handlers []string
	Sources  []string
	Degraded bool
	Stored   []memory.StoredFact
}

// Supervisor orchestrates a farmer query: classify, dispatch to the
// routed handlers, synthesize one answer, then feed the exchange back
// into long-term memory.
type Supervisor struct {
	classifier Classifier
	registry   *handler.Registry
	mem        Memory
	gen        llm.Generator
}

// NewSupervisor creates a supervisor over the given handler registry
func NewSupervisor(cls Classifier, reg *handler.Registry, mem Memory, gen llm.Generator) *Supervisor {
	return &Supervisor{
		classifier: cls,
		registry:   reg,
		mem:        mem,
		gen:        gen,
	}
}

// Answer processes one farmer query end to end.
func (s *Supervisor) Answer(ctx context.Context, userID, text string) (Response, error) {
	memCtx := s.mem.GetMemoryContext(ctx, userID, text)

	classification := s.classifier.Classify(ctx, text)
	handlerIDs := intent.Route(classification)

	q := handler.Query{
		UserID:        userID,
		Text:          text,
		Entities:      classification.Entities,
		Language:      classification.Language,
		MemoryContext: memCtx,
	}

	results := s.dispatch(ctx, handlerIDs, q)

	// Every specialist failed: fall back to the general handler so
	// the farmer still gets an answer.
	if !hasUsable(results) && !routedTo(handlerIDs, intent.HandlerGeneral) {
		if h, ok := s.registry.Get(intent.HandlerGeneral); ok {
			result, err := h.Handle(ctx, q)
			if err != nil {
				logger.Warn("general fallback failed: %v", err)
			} else {
				results = append(results, result)
			}
		}
	}

	answer, err := s.synthesize(ctx, text, results)
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		Text:     answer,
		Intent:   classification.Intent,
		Language: classification.Language,
		Handlers: handlerIDs,
		Sources:  mergeSources(results),
		Degraded: anyDegraded(results),
	}

	// Memory write failures must never break the answer.
	stored, err := s.mem.AddFromConversation(ctx, userID, text, answer)
	if err != nil {
		logger.Warn("memory update failed for user %s: %v", userID, err)
	} else {
		resp.Stored = stored
	}

	return resp, nil
}

// dispatch runs every routed handler, isolating failures so one broken
// specialist does not take down the batch. A failed handler yields a
// degraded placeholder result.
func (s *Supervisor) dispatch(ctx context.Context, handlerIDs []string, q handler.Query) []handler.Result {
	var results []handler.Result

	for _, id := range handlerIDs {
		h, ok := s.registry.Get(id)
		if !ok {
			logger.Error("no handler registered for %s", id)
			results = append(results, handler.Result{HandlerID: id, Text: degradedApology, Degraded: true})
			continue
		}

		result, err := h.Handle(ctx, q)
		if err != nil {
			logger.Warn("handler %s failed: %v", id, err)
			results = append(results, handler.Result{HandlerID: id, Text: degradedApology, Degraded: true})
			continue
		}

		results = append(results, result)
	}

	return results
}

// synthesize combines specialist results into one answer. A single
// result is returned verbatim; multiple results go through one
// synthesis call, falling back to ordered concatenation if it fails.
// Degraded results carry no text and are skipped.
func (s *Supervisor) synthesize(ctx context.Context, query string, results []handler.Result) (string, error) {
	usable := usableResults(results)

	switch len(usable) {
	case 0:
		return noResultsMessage, nil
	case 1:
		return usable[0].Text, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Farmer question: %s\n", query)
	for i, r := range usable {
		fmt.Fprintf(&b, "\nSpecialist %d (%s):\n%s\n", i+1, r.HandlerID, r.Text)
	}

	merged, err := s.gen.Generate(ctx, config.RoleSynthesis, synthesisSystemPrompt, b.String())
	if err != nil {
		logger.Warn("synthesis failed, concatenating results: %v", err)
		return joinResults(usable), nil
	}

	return merged, nil
}

// usableResults filters out degraded and empty results.
func usableResults(results []handler.Result) []handler.Result {
	usable := make([]handler.Result, 0, len(results))
	for _, r := range results {
		if !r.Degraded && strings.TrimSpace(r.Text) != "" {
			usable = append(usable, r)
		}
	}
	return usable
}

func hasUsable(results []handler.Result) bool {
	return len(usableResults(results)) > 0
}

func routedTo(handlerIDs []string, id string) bool {
	for _, h := range handlerIDs {
		if h == id {
			return true
		}
	}
	return false
}

// anyDegraded reports whether any routed handler failed.
func anyDegraded(results []handler.Result) bool {
	for _, r := range results {
		if r.Degraded {
			return true
		}
	}
	return false
}

// joinResults concatenates result texts in routing order.
func joinResults(results []handler.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, strings.TrimSpace(r.Text))
	}
	return strings.Join(parts, "\n\n")
}

// mergeSources collects sources across results, preserving first-seen
// order and dropping duplicates.
func mergeSources(results []handler.Result) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, r := range results {
		for _, src := range r.Sources {
			if !seen[src] {
				seen[src] = true
				sources = append(sources, src)
			}
		}
	}
	return sources
}
