package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSprayCheck(t *testing.T) {
	tests := []struct {
		name     string
		obs      Observation
		wantSafe bool
	}{
		{
			name:     "clear calm day",
			obs:      Observation{Description: "clear sky", WindSpeed: 2.0},
			wantSafe: true,
		},
		{
			name:     "rain expected",
			obs:      Observation{Description: "light rain", WindSpeed: 1.0},
			wantSafe: false,
		},
		{
			name:     "thunderstorm",
			obs:      Observation{Description: "thunderstorm with heavy rain", WindSpeed: 3.0},
			wantSafe: false,
		},
		{
			name:     "high wind drift risk",
			obs:      Observation{Description: "clear sky", WindSpeed: 9.5},
			wantSafe: false,
		},
		{
			name:     "wind just under limit",
			obs:      Observation{Description: "few clouds", WindSpeed: 7.9},
			wantSafe: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, reason := SprayCheck(tt.obs)
			if safe != tt.wantSafe {
				t.Errorf("SprayCheck() safe = %v, expected %v (reason: %s)", safe, tt.wantSafe, reason)
			}
			if reason == "" {
				t.Error("SprayCheck() should always return a reason")
			}
		})
	}
}

func TestCropAdvisories(t *testing.T) {
	// Humid conditions flag fungal risk
	advisories := CropAdvisories(Observation{Description: "mist", Humidity: 90, TempC: 28})
	if !containsSubstring(advisories, "fungal") {
		t.Errorf("Expected fungal risk advisory, got %v", advisories)
	}

	// Extreme heat flags heat stress
	advisories = CropAdvisories(Observation{Description: "clear sky", Humidity: 30, TempC: 42})
	if !containsSubstring(advisories, "Heat stress") {
		t.Errorf("Expected heat stress advisory, got %v", advisories)
	}

	// Cold flags frost
	advisories = CropAdvisories(Observation{Description: "clear sky", Humidity: 40, TempC: 3})
	if !containsSubstring(advisories, "Frost") {
		t.Errorf("Expected frost advisory, got %v", advisories)
	}

	// Benign conditions still produce one advisory
	advisories = CropAdvisories(Observation{Description: "clear sky", Humidity: 50, TempC: 25, WindSpeed: 2})
	if len(advisories) != 1 {
		t.Errorf("Expected single routine advisory, got %v", advisories)
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestOpenWeatherCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("units") != "metric" {
			t.Error("Expected metric units")
		}
		if r.URL.Query().Get("q") != "Warangal" {
			t.Errorf("Unexpected city: %s", r.URL.Query().Get("q"))
		}
		w.Write([]byte(`{
			"name": "Warangal",
			"weather": [{"main": "Clouds", "description": "scattered clouds"}],
			"main": {"temp": 31.5, "feels_like": 34.0, "humidity": 64},
			"wind": {"speed": 3.2}
		}`))
	}))
	defer server.Close()

	p := NewOpenWeatherProvider(server.URL, "test-key", 5*time.Second)

	obs, err := p.Current(context.Background(), "Warangal")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	if obs.City != "Warangal" {
		t.Errorf("City = %s, expected Warangal", obs.City)
	}
	if obs.TempC != 31.5 {
		t.Errorf("TempC = %v, expected 31.5", obs.TempC)
	}
	if obs.Humidity != 64 {
		t.Errorf("Humidity = %d, expected 64", obs.Humidity)
	}
	if obs.Description != "scattered clouds" {
		t.Errorf("Description = %s, expected scattered clouds", obs.Description)
	}
}

func TestOpenWeatherCurrentCityNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOpenWeatherProvider(server.URL, "test-key", 5*time.Second)

	_, err := p.Current(context.Background(), "Nowhereville")
	if err == nil {
		t.Fatal("Expected error for unknown city")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not-found error, got: %v", err)
	}
}

func TestOpenWeatherForecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/forecast" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"list": [
				{"dt_txt": "2026-01-10 09:00:00", "main": {"temp": 24, "humidity": 70}, "wind": {"speed": 2.5}, "weather": [{"description": "light rain"}], "pop": 0.8},
				{"dt_txt": "2026-01-10 12:00:00", "main": {"temp": 28, "humidity": 60}, "wind": {"speed": 3.0}, "weather": [{"description": "clear sky"}], "pop": 0.1},
				{"dt_txt": "2026-01-10 15:00:00", "main": {"temp": 30, "humidity": 55}, "wind": {"speed": 3.5}, "weather": [{"description": "clear sky"}], "pop": 0.0}
			]
		}`))
	}))
	defer server.Close()

	p := NewOpenWeatherProvider(server.URL, "test-key", 5*time.Second)

	entries, err := p.Forecast(context.Background(), "Warangal", 2)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].RainChance != 0.8 {
		t.Errorf("RainChance = %v, expected 0.8", entries[0].RainChance)
	}
	if entries[1].Description != "clear sky" {
		t.Errorf("Description = %s, expected clear sky", entries[1].Description)
	}
}

func TestOpenWeatherEmptyCity(t *testing.T) {
	p := NewOpenWeatherProvider("https://api.openweathermap.org", "key", 0)
	if _, err := p.Current(context.Background(), "  "); err == nil {
		t.Error("Expected error for empty city")
	}
	if _, err := p.Forecast(context.Background(), "", 4); err == nil {
		t.Error("Expected error for empty city")
	}
}
