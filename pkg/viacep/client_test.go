package viacep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-memory Cache for tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string]*Address
	sets    []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*Address)}
}

func (m *memCache) Get(_ context.Context, code string) (*Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[code], nil
}

func (m *memCache) Set(_ context.Context, code string, addr *Address, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[code] = addr
	m.sets = append(m.sets, code)
	return nil
}

func newTestClient(baseURL string, cache Cache) *Client {
	return NewClient(Config{BaseURL: baseURL, Timeout: time.Second}, cache)
}

func TestLookupNormalizesRecord(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/ws/01310100/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cep":"01310-100","logradouro":"Avenida Paulista","uf":"SP","ibge":"3550308"}`))
	}))
	defer srv.Close()

	cache := newMemCache()
	c := newTestClient(srv.URL, cache)

	res := c.Lookup(context.Background(), "01310100")
	require.Equal(t, OutcomeFound, res.Outcome)
	require.NotNil(t, res.Address)
	assert.Equal(t, "01310100", res.Address.CepNumber)
	assert.Equal(t, "Avenida Paulista", res.Address.Logradouro)
	assert.Equal(t, "SP", res.Address.UF)
	assert.Equal(t, 3550308, res.Address.IBGE)
	assert.Equal(t, "", res.Address.Bairro)

	// Cached under the normalized code.
	require.Equal(t, []string{"01310100"}, cache.sets)
	assert.Equal(t, 1, calls)
}

func TestLookupCacheHitSkipsHTTP(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"cep":"01001-000","localidade":"São Paulo","uf":"SP"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, newMemCache())

	first := c.Lookup(context.Background(), "01001000")
	require.Equal(t, OutcomeFound, first.Outcome)

	second := c.Lookup(context.Background(), "01001000")
	require.Equal(t, OutcomeFound, second.Outcome)
	assert.Equal(t, first.Address, second.Address)

	assert.Equal(t, 1, calls, "second lookup within the TTL must not hit the upstream")
}

func TestLookupConfirmedAbsence(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "erro key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"erro": true}`))
			},
		},
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			cache := newMemCache()
			res := newTestClient(srv.URL, cache).Lookup(context.Background(), "99999999")
			assert.Equal(t, OutcomeNotFound, res.Outcome)
			assert.Nil(t, res.Address)
			assert.Empty(t, cache.sets, "misses are never cached")
		})
	}
}

func TestLookupTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	res := newTestClient(srv.URL, newMemCache()).Lookup(context.Background(), "01310100")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestLookupTimeoutIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil)
	res := c.Lookup(context.Background(), "01310100")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestLookupUndecodableBodyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, nil).Lookup(context.Background(), "01310100")
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestLookupMalformedIBGE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cep":"01310-100","uf":"SP","ibge":"not-a-number"}`))
	}))
	defer srv.Close()

	cache := newMemCache()
	res := newTestClient(srv.URL, cache).Lookup(context.Background(), "01310100")
	assert.Equal(t, OutcomeMalformed, res.Outcome)
	assert.Nil(t, res.Address)
	assert.Error(t, res.Err)
	assert.Empty(t, cache.sets)
}

func TestLookupEmptyIBGEIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cep":"01310-100","uf":"SP","ibge":""}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, nil).Lookup(context.Background(), "01310100")
	require.Equal(t, OutcomeFound, res.Outcome)
	assert.Equal(t, 0, res.Address.IBGE)
}

func TestLookupFallsBackToRequestedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"logradouro":"Rua Sem Cep","uf":"RJ"}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, nil).Lookup(context.Background(), "20040020")
	require.Equal(t, OutcomeFound, res.Outcome)
	assert.Equal(t, "20040020", res.Address.CepNumber)
}
