package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/intent"
	"github.com/hession/krishimate/internal/llm"
)

const schemeSystemPrompt = `You are an advisor on Indian government schemes for farmers.
Explain eligibility, benefits and how to apply in plain language.
When scheme details are provided in the context, stick to those facts.
Always remind the farmer to carry Aadhaar, bank details and land records when applying.`

// SchemeInfo is one government scheme summary.
type SchemeInfo struct {
	Name        string
	Benefit     string
	Eligibility string
	HowToApply  string
}

// schemes is the bundled scheme reference list.
var schemes = []SchemeInfo{
	{
		Name:        "Rythu Bandhu",
		Benefit:     "₹5,000 per acre per season as investment support",
		Eligibility: "Land-owning farmers in Telangana with pattadar passbook",
		HowToApply:  "Automatic via land records; verify details at the local MRO office",
	},
	{
		Name:        "PM-Kisan",
		Benefit:     "₹6,000 per year in three installments",
		Eligibility: "Small and marginal land-holding farmer families",
		HowToApply:  "Register online at pmkisan.gov.in or through a Common Service Centre",
	},
	{
		Name:        "PMFBY",
		Benefit:     "Crop insurance against natural calamities, pests and diseases",
		Eligibility: "All farmers growing notified crops, loanee and non-loanee",
		HowToApply:  "Through your bank or at pmfby.gov.in before the seasonal cutoff",
	},
	{
		Name:        "Kisan Credit Card",
		Benefit:     "Short-term crop loans up to ₹3 lakh at subsidised interest",
		Eligibility: "Farmers, tenant farmers, sharecroppers with land documents",
		HowToApply:  "Apply at any bank branch with land records and identity proof",
	},
	{
		Name:        "Soil Health Card",
		Benefit:     "Free soil testing and fertilizer recommendations every 2 years",
		Eligibility: "All farmers",
		HowToApply:  "Contact the local agriculture extension officer",
	},
}

// Scheme answers government scheme and subsidy questions.
type Scheme struct {
	gen     llm.Generator
	schemes []SchemeInfo
}

// NewScheme creates the government scheme handler
func NewScheme(gen llm.Generator) *Scheme {
	return &Scheme{gen: gen, schemes: schemes}
}

func (h *Scheme) ID() string {
	return intent.HandlerScheme
}

func (h *Scheme) Handle(ctx context.Context, q Query) (Result, error) {
	var sources []string
	schemeContext := ""

	if matched := h.Lookup(q.Text); len(matched) > 0 {
		var lines []string
		for _, s := range matched {
			lines = append(lines, fmt.Sprintf("  %s: %s. Eligibility: %s. Apply: %s",
				s.Name, s.Benefit, s.Eligibility, s.HowToApply))
		}
		schemeContext = "Relevant schemes:\n" + strings.Join(lines, "\n")
		sources = append(sources, "government scheme database")
	}

	text, err := h.gen.Generate(ctx, config.RoleAgent, schemeSystemPrompt, buildUserPrompt(q, schemeContext))
	if err != nil {
		return Result{}, fmt.Errorf("scheme advice failed: %w", err)
	}

	return Result{
		HandlerID: h.ID(),
		Text:      text,
		Sources:   sources,
	}, nil
}

// Lookup returns schemes whose name appears in the query text.
func (h *Scheme) Lookup(query string) []SchemeInfo {
	lower := strings.ToLower(query)
	var matched []SchemeInfo
	for _, s := range h.schemes {
		if strings.Contains(lower, strings.ToLower(s.Name)) {
			matched = append(matched, s)
		}
	}
	return matched
}

// Details returns a scheme by exact name.
func (h *Scheme) Details(name string) (SchemeInfo, bool) {
	for _, s := range h.schemes {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SchemeInfo{}, false
}
