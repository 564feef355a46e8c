package handler

import (
	"context"
	"fmt"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/intent"
	"github.com/hession/krishimate/internal/llm"
)

const cropDoctorSystemPrompt = `You are Dr. Krishi, an expert plant pathologist specialized in Indian agriculture.

When diagnosing crop diseases:
1. Identify the disease name in English (include the local name if known)
2. Severity assessment (Low/Medium/High/Critical)
3. Immediate treatment steps with specific product names and dosage
4. Estimated treatment cost in INR
5. Recovery timeline
6. Organic/natural alternatives
7. Prevention tips for future

Always provide actionable, practical advice that a rural farmer can follow.`

// CropDoctor diagnoses crop diseases and health issues.
type CropDoctor struct {
	gen llm.Generator
}

// NewCropDoctor creates the crop disease handler
func NewCropDoctor(gen llm.Generator) *CropDoctor {
	return &CropDoctor{gen: gen}
}

func (h *CropDoctor) ID() string {
	return intent.HandlerCropDoctor
}

func (h *CropDoctor) Handle(ctx context.Context, q Query) (Result, error) {
	text, err := h.gen.Generate(ctx, config.RoleAgent, cropDoctorSystemPrompt, buildUserPrompt(q, ""))
	if err != nil {
		return Result{}, fmt.Errorf("crop diagnosis failed: %w", err)
	}

	return Result{
		HandlerID: h.ID(),
		Text:      text,
		Sources:   []string{"crop disease advisory"},
	}, nil
}
