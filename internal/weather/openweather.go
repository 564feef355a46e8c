package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type OpenWeatherProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOpenWeatherProvider(baseURL, apiKey string, timeout time.Duration) *OpenWeatherProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.openweathermap.org"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenWeatherProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *OpenWeatherProvider) Name() string {
	return "openweather"
}

type owWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  int     `json:"humidity"`
}

type owWind struct {
	Speed float64 `json:"speed"`
}

type owCurrentResponse struct {
	Name    string      `json:"name"`
	Weather []owWeather `json:"weather"`
	Main    owMain      `json:"main"`
	Wind    owWind      `json:"wind"`
	Cod     int         `json:"cod"`
}

type owForecastResponse struct {
	List []struct {
		DtTxt   string      `json:"dt_txt"`
		Main    owMain      `json:"main"`
		Wind    owWind      `json:"wind"`
		Weather []owWeather `json:"weather"`
		Pop     float64     `json:"pop"`
	} `json:"list"`
}

// Current fetches current conditions for a city.
func (p *OpenWeatherProvider) Current(ctx context.Context, city string) (Observation, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Observation{}, fmt.Errorf("city cannot be empty")
	}

	var payload owCurrentResponse
	if err := p.get(ctx, "/data/2.5/weather", city, &payload); err != nil {
		return Observation{}, err
	}

	obs := Observation{
		City:       payload.Name,
		TempC:      payload.Main.Temp,
		FeelsLikeC: payload.Main.FeelsLike,
		Humidity:   payload.Main.Humidity,
		WindSpeed:  payload.Wind.Speed,
	}
	if obs.City == "" {
		obs.City = city
	}
	if len(payload.Weather) > 0 {
		obs.Description = payload.Weather[0].Description
	}

	return obs, nil
}

// Forecast fetches up to slots 3-hour forecast entries for a city.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, city string, slots int) ([]ForecastEntry, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("city cannot be empty")
	}
	if slots <= 0 {
		slots = 8
	}

	var payload owForecastResponse
	if err := p.get(ctx, "/data/2.5/forecast", city, &payload); err != nil {
		return nil, err
	}

	entries := make([]ForecastEntry, 0, slots)
	for _, item := range payload.List {
		if len(entries) >= slots {
			break
		}
		entry := ForecastEntry{
			Time:       item.DtTxt,
			TempC:      item.Main.Temp,
			Humidity:   item.Main.Humidity,
			WindSpeed:  item.Wind.Speed,
			RainChance: item.Pop,
		}
		if len(item.Weather) > 0 {
			entry.Description = item.Weather[0].Description
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// get performs a metric-units API request and decodes the response.
func (p *OpenWeatherProvider) get(ctx context.Context, path, city string, out interface{}) error {
	endpoint, err := url.Parse(p.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", p.apiKey)
	params.Set("units", "metric")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("city %q not found", city)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("weather request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
