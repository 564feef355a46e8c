// Package weather fetches current conditions and turns them into
// farming advisories.
package weather

import (
	"context"
)

// Observation is a normalized current-weather reading.
type Observation struct {
	City        string  `json:"city"`
	TempC       float64 `json:"temp_c"`
	FeelsLikeC  float64 `json:"feels_like_c"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Description string  `json:"description"`
}

// ForecastEntry is a single forecast slot.
type ForecastEntry struct {
	Time        string  `json:"time"`
	TempC       float64 `json:"temp_c"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Description string  `json:"description"`
	RainChance  float64 `json:"rain_chance"`
}

// Provider fetches weather data for a city.
type Provider interface {
	Name() string
	Current(ctx context.Context, city string) (Observation, error)
	Forecast(ctx context.Context, city string, slots int) ([]ForecastEntry, error)
}
