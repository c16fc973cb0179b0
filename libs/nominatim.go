package libs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"storefront/models"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoAddress is returned when the geocoder answers without an address object.
var ErrNoAddress = errors.New("geocoder response has no address")

const nominatimZoom = "18"

type NominatimConfig struct {
	BaseURL           string
	UserAgent         string
	Language          string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NominatimClient performs reverse lookups against an OpenStreetMap
// Nominatim server. Requests are limited client-side to the configured rate.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewNominatimClient(cfg NominatimConfig) *NominatimClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &NominatimClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type nominatimReverseResponse struct {
	Address map[string]any `json:"address"`
	Error   string         `json:"error"`
}

func (c *NominatimClient) Reverse(ctx context.Context, coord models.Coordinate) (models.AddressInput, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocoder rate limit: %w", err)
	}

	query := url.Values{}
	query.Set("format", "json")
	query.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coord.Lng, 'f', -1, 64))
	query.Set("zoom", nominatimZoom)
	query.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build reverse request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.language)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse request: unexpected status %d", resp.StatusCode)
	}

	var body nominatimReverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode reverse response: %w", err)
	}
	if body.Address == nil {
		if body.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoAddress, body.Error)
		}
		return nil, ErrNoAddress
	}

	return toAddressInput(body.Address), nil
}

// toAddressInput keeps string values and stringifies numbers; any other
// value kind is dropped.
func toAddressInput(raw map[string]any) models.AddressInput {
	input := make(models.AddressInput, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			input[key] = v
		case float64:
			input[key] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return input
}
