package handler

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/intent"
	"github.com/hession/krishimate/internal/llm"
)

const soilSystemPrompt = `You are a soil health advisor for Indian farmers.
Give practical fertilizer and soil management advice.
When NPK figures are provided in the context, use them as the baseline recommendation.
Prefer balanced fertilization and always mention an organic alternative.`

// NPK is a per-acre nutrient requirement in kg.
type NPK struct {
	N int
	P int
	K int
}

// FertilizerPlan is a quantity and cost estimate for one field.
type FertilizerPlan struct {
	Crop       string
	Acres      float64
	NPKPerAcre NPK
	UreaKg     float64
	DAPKg      float64
	MOPKg      float64
	CostINR    float64
}

// cropNPK holds per-acre NPK requirements for common crops.
var cropNPK = map[string]NPK{
	"wheat": {N: 60, P: 30, K: 20},
	"rice":  {N: 80, P: 40, K: 40},
	"paddy": {N: 80, P: 40, K: 40},
	"maize": {N: 90, P: 40, K: 30},
}

// defaultNPK is used for crops without a specific entry.
var defaultNPK = NPK{N: 50, P: 25, K: 20}

// Soil provides soil health analysis and fertilizer recommendations.
type Soil struct {
	gen llm.Generator
}

// NewSoil creates the soil health handler
func NewSoil(gen llm.Generator) *Soil {
	return &Soil{gen: gen}
}

func (h *Soil) ID() string {
	return intent.HandlerSoil
}

func (h *Soil) Handle(ctx context.Context, q Query) (Result, error) {
	var sources []string
	soilContext := ""

	if crop := q.Crop(); crop != "" {
		plan := FertilizerRecommendation(crop, 1)
		soilContext = fmt.Sprintf(
			"Per-acre baseline for %s: N %d kg, P %d kg, K %d kg (urea %.1f kg, DAP %.1f kg, MOP %.1f kg, approx ₹%.0f)",
			crop, plan.NPKPerAcre.N, plan.NPKPerAcre.P, plan.NPKPerAcre.K,
			plan.UreaKg, plan.DAPKg, plan.MOPKg, plan.CostINR,
		)
		sources = append(sources, "fertilizer recommendation tables")
	}

	text, err := h.gen.Generate(ctx, config.RoleAgent, soilSystemPrompt, buildUserPrompt(q, soilContext))
	if err != nil {
		return Result{}, fmt.Errorf("soil advice failed: %w", err)
	}

	return Result{
		HandlerID: h.ID(),
		Text:      text,
		Sources:   sources,
	}, nil
}

// FertilizerRecommendation computes fertilizer quantities and cost for
// a crop over the given acreage.
func FertilizerRecommendation(crop string, acres float64) FertilizerPlan {
	npk, ok := cropNPK[strings.ToLower(crop)]
	if !ok {
		npk = defaultNPK
	}

	// Nutrient content: urea 46% N, DAP 46% P, MOP 60% K
	ureaKg := round2(float64(npk.N) / 46 * 100 * acres / 100)
	dapKg := round2(float64(npk.P) / 46 * 100 * acres / 100)
	mopKg := round2(float64(npk.K) / 60 * 100 * acres / 100)

	return FertilizerPlan{
		Crop:       strings.ToLower(crop),
		Acres:      acres,
		NPKPerAcre: npk,
		UreaKg:     ureaKg,
		DAPKg:      dapKg,
		MOPKg:      mopKg,
		CostINR:    round2(ureaKg*7.5 + dapKg*27 + mopKg*18),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
