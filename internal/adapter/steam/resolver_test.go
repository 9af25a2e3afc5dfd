package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type mapCache struct {
	mu    sync.Mutex
	names map[string]string
	sets  int
}

func newMapCache() *mapCache {
	return &mapCache{names: make(map[string]string)}
}

func (c *mapCache) Get(ctx context.Context, steamID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.names[steamID]
	return name, ok
}

func (c *mapCache) Set(ctx context.Context, steamID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[steamID] = name
	c.sets++
}

func testResolver(t *testing.T, cache Cache, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewResolver("test-key", cache, nil, log)
	r.baseURL = srv.URL
	return r
}

func TestResolverDisplayName(t *testing.T) {
	t.Run("resolves and caches the persona name", func(t *testing.T) {
		requests := 0
		cache := newMapCache()
		r := testResolver(t, cache, func(w http.ResponseWriter, req *http.Request) {
			requests++
			if got := req.URL.Query().Get("steamids"); got != "76561198314730173" {
				t.Errorf("steamids param: got %q", got)
			}
			if got := req.URL.Query().Get("key"); got != "test-key" {
				t.Errorf("key param: got %q", got)
			}
			fmt.Fprint(w, `{"response":{"players":[{"personaname":"Dujjon"}]}}`)
		})

		name, err := r.DisplayName(context.Background(), "76561198314730173")
		if err != nil {
			t.Fatalf("DisplayName: %v", err)
		}
		if name != "Dujjon" {
			t.Errorf("name: got %q", name)
		}
		if cache.sets != 1 {
			t.Errorf("cache writes: got %d, want 1", cache.sets)
		}

		// Second lookup is served from cache.
		if _, err := r.DisplayName(context.Background(), "76561198314730173"); err != nil {
			t.Fatalf("cached DisplayName: %v", err)
		}
		if requests != 1 {
			t.Errorf("api requests: got %d, want 1", requests)
		}
	})

	t.Run("empty player list is not found", func(t *testing.T) {
		r := testResolver(t, nil, func(w http.ResponseWriter, req *http.Request) {
			fmt.Fprint(w, `{"response":{"players":[]}}`)
		})

		_, err := r.DisplayName(context.Background(), "76561198314730173")
		if !errors.Is(err, ErrProfileNotFound) {
			t.Errorf("error: got %v, want ErrProfileNotFound", err)
		}
	})

	t.Run("api failure surfaces as error", func(t *testing.T) {
		r := testResolver(t, nil, func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		})

		if _, err := r.DisplayName(context.Background(), "76561198314730173"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		requests := 0
		r := testResolver(t, nil, func(w http.ResponseWriter, req *http.Request) {
			requests++
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		})

		for i := 0; i < 10; i++ {
			r.DisplayName(context.Background(), "76561198314730173")
		}
		if requests >= 10 {
			t.Errorf("breaker never opened, %d requests reached the api", requests)
		}
	})
}
