package handler

import (
	"context"
	"fmt"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/intent"
	"github.com/hession/krishimate/internal/llm"
)

const generalSystemPrompt = `You are KrishiMate, a friendly farming assistant for Indian farmers.
Answer in simple, practical language a rural farmer can follow.
Use the provided farmer memory to personalise your answer.
If the question is not about farming, answer briefly and steer back to how you can help on the farm.`

// General answers everything the specialists do not cover.
type General struct {
	gen llm.Generator
}

// NewGeneral creates the general-purpose handler
func NewGeneral(gen llm.Generator) *General {
	return &General{gen: gen}
}

func (h *General) ID() string {
	return intent.HandlerGeneral
}

func (h *General) Handle(ctx context.Context, q Query) (Result, error) {
	text, err := h.gen.Generate(ctx, config.RoleAgent, generalSystemPrompt, buildUserPrompt(q, ""))
	if err != nil {
		return Result{}, fmt.Errorf("general answer failed: %w", err)
	}

	return Result{
		HandlerID: h.ID(),
		Text:      text,
	}, nil
}
