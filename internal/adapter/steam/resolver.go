package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/user/playtime-tracker/internal/adapter/metrics"
)

const defaultBaseURL = "https://api.steampowered.com"

// ErrProfileNotFound is returned when the Steam API knows nothing about the
// given steam id.
var ErrProfileNotFound = errors.New("steam profile not found")

// Cache is the optional profile-name cache in front of the API.
type Cache interface {
	Get(ctx context.Context, steamID string) (string, bool)
	Set(ctx context.Context, steamID, name string)
}

// Resolver looks up public display names through the Steam Web API. The API
// is a best-effort collaborator: calls go through a circuit breaker so a
// degraded Steam endpoint cannot pile up slow requests, and every failure
// degrades to an unset profile name upstream.
type Resolver struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	cache   Cache // optional
	metrics *metrics.TrackerMetrics
	logger  *slog.Logger
}

// NewResolver creates a Steam profile resolver. cache and m may be nil.
func NewResolver(apiKey string, cache Cache, m *metrics.TrackerMetrics, logger *slog.Logger) *Resolver {
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "steam-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("steam api circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})
	return &Resolver{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

// DisplayName resolves the public persona name for a steam id.
func (r *Resolver) DisplayName(ctx context.Context, steamID string) (string, error) {
	if r.cache != nil {
		if name, ok := r.cache.Get(ctx, steamID); ok {
			r.countLookup("cache_hit")
			return name, nil
		}
	}

	name, err := r.breaker.Execute(func() (string, error) {
		return r.fetch(ctx, steamID)
	})
	if err != nil {
		r.countLookup("error")
		return "", err
	}

	if r.cache != nil {
		r.cache.Set(ctx, steamID, name)
	}
	r.countLookup("resolved")
	return name, nil
}

func (r *Resolver) fetch(ctx context.Context, steamID string) (string, error) {
	q := url.Values{}
	q.Set("key", r.apiKey)
	q.Set("steamids", steamID)
	endpoint := r.baseURL + "/ISteamUser/GetPlayerSummaries/v2/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("steam api returned status %d", resp.StatusCode)
	}

	var body struct {
		Response struct {
			Players []struct {
				PersonaName string `json:"personaname"`
			} `json:"players"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body.Response.Players) == 0 || body.Response.Players[0].PersonaName == "" {
		return "", ErrProfileNotFound
	}
	return body.Response.Players[0].PersonaName, nil
}

func (r *Resolver) countLookup(result string) {
	if r.metrics != nil {
		r.metrics.ProfileLookups.WithLabelValues(result).Inc()
	}
}
