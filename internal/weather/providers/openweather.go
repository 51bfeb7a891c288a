package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-tracker/internal/weather"
)

const openWeatherURL = "http://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider builds a provider whose calls are bounded by the
// client's Timeout. Each Fetch is a single attempt.
func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: openWeatherURL,
		client:  client,
		circuit: newBreaker("openweather", 5, time.Minute),
	}
}

// WithBaseURL points the provider at another endpoint (tests, proxies).
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	req, err := http.NewRequest(http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return weather.Reading{}, err
	}

	resp, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Main *struct {
			Temp     *float64 `json:"temp"`
			Humidity *int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	switch {
	case payload.Main == nil || payload.Main.Temp == nil:
		return weather.Reading{}, fmt.Errorf("%w: missing main.temp", errMalformed)
	case payload.Main.Humidity == nil:
		return weather.Reading{}, fmt.Errorf("%w: missing main.humidity", errMalformed)
	case len(payload.Weather) == 0:
		return weather.Reading{}, fmt.Errorf("%w: missing weather description", errMalformed)
	}

	return weather.Reading{
		Temperature: *payload.Main.Temp,
		Humidity:    *payload.Main.Humidity,
		Description: payload.Weather[0].Description,
	}, nil
}
