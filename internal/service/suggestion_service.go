package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/weatherapp/backend/internal/domain"
)

const (
	// DefaultSuggestionEndpoint is the GeoDB cities endpoint on RapidAPI
	DefaultSuggestionEndpoint = "https://wft-geo-db.p.rapidapi.com/v1/geo/cities"
	// DefaultSuggestionHost is sent as X-RapidAPI-Host
	DefaultSuggestionHost = "wft-geo-db.p.rapidapi.com"

	// MinPrefixLength is the shortest input that triggers a lookup
	MinPrefixLength = 3
)

// SuggestionService looks up city names by prefix
type SuggestionService struct {
	apiKey     string
	host       string
	endpoint   string
	httpClient *http.Client
}

// NewSuggestionService creates a new suggestion client
func NewSuggestionService(apiKey, endpoint, host string, timeout time.Duration) *SuggestionService {
	if endpoint == "" {
		endpoint = DefaultSuggestionEndpoint
	}
	if host == "" {
		host = DefaultSuggestionHost
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SuggestionService{
		apiKey:   apiKey,
		host:     host,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GeoDBResponse represents the GeoDB cities response
type GeoDBResponse struct {
	Data []struct {
		City        string `json:"city"`
		CountryCode string `json:"countryCode"`
	} `json:"data"`
}

// Suggest returns "City, CC" labels in upstream order. Prefixes shorter than
// MinPrefixLength return nothing without a request.
func (s *SuggestionService) Suggest(ctx context.Context, prefix string) ([]string, error) {
	if utf8.RuneCountInString(prefix) < MinPrefixLength {
		return nil, nil
	}
	if s.apiKey == "" {
		return nil, &domain.ConfigurationError{Key: "GEODB_API_KEY"}
	}

	reqURL := s.endpoint + "?" + url.Values{"namePrefix": {prefix}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("suggestion: failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", s.apiKey)
	req.Header.Set("X-RapidAPI-Host", s.host)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: "suggestion: request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	var geoResp GeoDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return nil, &domain.TransportError{Op: "suggestion: failed to decode response", Err: err}
	}

	labels := make([]string, 0, len(geoResp.Data))
	for _, c := range geoResp.Data {
		labels = append(labels, fmt.Sprintf("%s, %s", c.City, c.CountryCode))
	}
	return labels, nil
}
