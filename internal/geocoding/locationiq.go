package geocoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"geofeed/internal/middleware"
	"geofeed/internal/observability"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "locationiq"

// LocationIQConfig configures the LocationIQ reverse geocoder.
type LocationIQConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
	} `json:"address"`
}

// placeName picks the most specific settlement name available.
func (r reverseResponse) placeName() string {
	for _, name := range []string{r.Address.City, r.Address.Town, r.Address.Village, r.Address.State, r.DisplayName} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}

// LocationIQClient calls the LocationIQ reverse endpoint behind a circuit breaker.
type LocationIQClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[string]
}

// NewLocationIQClient creates a client. The breaker opens after five
// consecutive upstream failures and probes again after a minute.
func NewLocationIQClient(cfg LocationIQConfig) *LocationIQClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			middleware.Logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// A location without a name or a caller that gave up says nothing
		// about the health of the upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoPlace) || errors.Is(err, context.Canceled)
		},
	})

	return &LocationIQClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cb:         cb,
	}
}

// Configured reports whether an API key is set.
func (c *LocationIQClient) Configured() bool {
	return c.apiKey != ""
}

// ReversePlace returns the city, town, village, state or display name at the
// coordinate, whichever comes first.
func (c *LocationIQClient) ReversePlace(ctx context.Context, lat, lon float64) (string, error) {
	if c.apiKey == "" {
		observability.GeocodeRequests.WithLabelValues("unconfigured").Inc()
		return "", ErrNotConfigured
	}

	name, err := c.cb.Execute(func() (string, error) {
		return c.reverse(ctx, lat, lon)
	})
	switch {
	case err == nil:
		observability.GeocodeRequests.WithLabelValues("success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		observability.GeocodeRequests.WithLabelValues("rejected").Inc()
	case errors.Is(err, ErrNoPlace):
		observability.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		observability.GeocodeRequests.WithLabelValues("failure").Inc()
	}
	return name, err
}

func (c *LocationIQClient) reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build reverse request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read reverse response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// LocationIQ answers 404 "Unable to geocode" for open water and the like.
		return "", ErrNoPlace
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("reverse request: unexpected status %d", resp.StatusCode)
	}

	var parsed reverseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode reverse response: %w", err)
	}

	name := parsed.placeName()
	if name == "" {
		return "", ErrNoPlace
	}
	return name, nil
}
