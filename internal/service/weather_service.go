package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/weatherapp/backend/internal/domain"
	"github.com/weatherapp/backend/pkg/utils"
)

// DefaultWeatherEndpoint is the OpenWeatherMap current weather endpoint
const DefaultWeatherEndpoint = "https://api.openweathermap.org/data/2.5/weather"

/*
	OpenWeather API Response Codes
	200  // Success
	400  // Bad request (e.g., invalid parameters)
	401  // Unauthorized (invalid API key)
	404  // City not found
	429  // Too many requests (exceeded rate limit)
	500  // Internal server error
*/

// WeatherService handles weather data fetching
type WeatherService struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey, endpoint string, timeout time.Duration) *WeatherService {
	if endpoint == "" {
		endpoint = DefaultWeatherEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherService{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// OpenWeatherResponse represents the OpenWeatherMap API response
type OpenWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int    `json:"visibility"`
	Name       string `json:"name"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

// FetchWeather fetches current weather for a city or a position. The unit is
// sent upstream so values come back already converted.
func (s *WeatherService) FetchWeather(ctx context.Context, q domain.Query, unit domain.Unit) (domain.Snapshot, error) {
	if s.apiKey == "" {
		return domain.Snapshot{}, &domain.ConfigurationError{Key: "OPENWEATHER_API_KEY"}
	}

	reqURL, err := s.buildURL(q, unit)
	if err != nil {
		return domain.Snapshot{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Snapshot{}, &domain.TransportError{Op: "weather: request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Snapshot{}, domain.ErrCityNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Debugw("weather api error", "status", resp.StatusCode, "body", string(body))
		return domain.Snapshot{}, &domain.UpstreamError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	var owResp OpenWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.Snapshot{}, &domain.TransportError{Op: "weather: failed to decode response", Err: err}
	}

	return toSnapshot(owResp, unit)
}

func toSnapshot(owResp OpenWeatherResponse, unit domain.Unit) (domain.Snapshot, error) {
	if len(owResp.Weather) == 0 {
		return domain.Snapshot{}, &domain.TransportError{
			Op:  "weather: failed to decode response",
			Err: errors.New("no weather conditions in payload"),
		}
	}

	return domain.Snapshot{
		Location:    owResp.Name,
		Country:     owResp.Sys.Country,
		Temperature: owResp.Main.Temp,
		Unit:        unit,
		Humidity:    utils.ClampInt(owResp.Main.Humidity, 0, 100),
		Pressure:    owResp.Main.Pressure,
		Visibility:  max(owResp.Visibility, 0),
		WindSpeed:   owResp.Wind.Speed,
		Condition:   domain.ParseCondition(owResp.Weather[0].Main),
		Description: owResp.Weather[0].Description,
		Icon:        owResp.Weather[0].Icon,
		Sunrise:     owResp.Sys.Sunrise,
		Sunset:      owResp.Sys.Sunset,
		FetchedAt:   time.Now(),
	}, nil
}

func (s *WeatherService) buildURL(q domain.Query, unit domain.Unit) (string, error) {
	params := url.Values{}

	if q.Coordinates != nil {
		params.Set("lat", strconv.FormatFloat(q.Coordinates.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(q.Coordinates.Lon, 'f', -1, 64))
	} else {
		city := strings.TrimSpace(q.City)
		if city == "" {
			return "", domain.ErrEmptyQuery
		}
		params.Set("q", city)
	}

	if unit == "" {
		unit = domain.UnitMetric
	}
	params.Set("appid", s.apiKey)
	params.Set("units", string(unit))

	return s.endpoint + "?" + params.Encode(), nil
}
