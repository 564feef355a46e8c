package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/intent"
	"github.com/hession/krishimate/internal/llm"
)

const marketSystemPrompt = `You are a market advisor for Indian farmers.
Explain mandi prices, price trends and selling strategy in simple language.
When price data is provided in the context, use those exact figures and name the mandi.
Always mention that prices change daily and the farmer should confirm before travelling.`

// MandiPrice is one mandi quote for a crop, in INR per quintal.
type MandiPrice struct {
	Crop     string
	Market   string
	PriceMin int
	PriceMax int
}

// mandiPrices is the bundled reference price table.
var mandiPrices = []MandiPrice{
	{Crop: "cotton", Market: "Warangal", PriceMin: 6800, PriceMax: 7250},
	{Crop: "cotton", Market: "Adilabad", PriceMin: 6900, PriceMax: 7400},
	{Crop: "paddy", Market: "Karimnagar", PriceMin: 2150, PriceMax: 2320},
	{Crop: "paddy", Market: "Nizamabad", PriceMin: 2100, PriceMax: 2280},
	{Crop: "rice", Market: "Karimnagar", PriceMin: 2150, PriceMax: 2320},
	{Crop: "chilli", Market: "Khammam", PriceMin: 14500, PriceMax: 18200},
	{Crop: "maize", Market: "Nizamabad", PriceMin: 2080, PriceMax: 2240},
	{Crop: "turmeric", Market: "Nizamabad", PriceMin: 13800, PriceMax: 15600},
	{Crop: "groundnut", Market: "Kurnool", PriceMin: 5900, PriceMax: 6450},
}

// Market provides mandi prices and selling recommendations.
type Market struct {
	gen    llm.Generator
	prices []MandiPrice
}

// NewMarket creates the market price handler
func NewMarket(gen llm.Generator) *Market {
	return &Market{gen: gen, prices: mandiPrices}
}

func (h *Market) ID() string {
	return intent.HandlerMarket
}

func (h *Market) Handle(ctx context.Context, q Query) (Result, error) {
	var sources []string
	priceContext := ""

	if crop := q.Crop(); crop != "" {
		quotes := h.CurrentPrices(crop)
		if len(quotes) > 0 {
			var lines []string
			for _, quote := range quotes {
				lines = append(lines, fmt.Sprintf("  %s mandi: ₹%d - ₹%d per quintal", quote.Market, quote.PriceMin, quote.PriceMax))
			}
			priceContext = fmt.Sprintf("Today's %s prices:\n%s", crop, strings.Join(lines, "\n"))
			sources = append(sources, "mandi price database")
		}
	}

	text, err := h.gen.Generate(ctx, config.RoleAgent, marketSystemPrompt, buildUserPrompt(q, priceContext))
	if err != nil {
		return Result{}, fmt.Errorf("market advice failed: %w", err)
	}

	return Result{
		HandlerID: h.ID(),
		Text:      text,
		Sources:   sources,
	}, nil
}

// CurrentPrices returns all quotes for a crop.
func (h *Market) CurrentPrices(crop string) []MandiPrice {
	crop = strings.ToLower(crop)
	var quotes []MandiPrice
	for _, quote := range h.prices {
		if quote.Crop == crop {
			quotes = append(quotes, quote)
		}
	}
	return quotes
}

// BestMandi recommends the mandi with the highest maximum price.
func (h *Market) BestMandi(crop string) (MandiPrice, bool) {
	quotes := h.CurrentPrices(crop)
	if len(quotes) == 0 {
		return MandiPrice{}, false
	}

	best := quotes[0]
	for _, quote := range quotes[1:] {
		if quote.PriceMax > best.PriceMax {
			best = quote
		}
	}
	return best, true
}
