package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public ViaCEP endpoint.
	DefaultBaseURL = "https://viacep.com.br"
	// DefaultTimeout bounds each upstream request. There are no retries.
	DefaultTimeout = 5 * time.Second
	// DefaultCacheTTL is how long a resolved address stays cached.
	DefaultCacheTTL = time.Hour
)

// Cache is the TTL store consulted before and populated after an upstream
// call. Get returns (nil, nil) on a miss. Entries are written once and never
// mutated.
type Cache interface {
	Get(ctx context.Context, code string) (*Address, error)
	Set(ctx context.Context, code string, addr *Address, ttl time.Duration) error
}

// Config holds client construction parameters. Zero values fall back to the
// package defaults.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client is a minimal HTTP client for the ViaCEP API with cache-aside reads.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      Cache
	cacheTTL   time.Duration
	debug      bool
}

// NewClient constructs a ViaCEP client. cache may be nil, in which case every
// lookup goes upstream.
func NewClient(cfg Config, cache Cache) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		cache:      cache,
		cacheTTL:   cfg.CacheTTL,
		debug:      os.Getenv("ENV") == "development",
	}
}

// Lookup resolves a CEP through the cache or the upstream service. The
// returned Result never carries a partial Address: a record whose ibge field
// cannot be parsed comes back as OutcomeMalformed rather than being folded
// into a miss.
func (c *Client) Lookup(ctx context.Context, code string) Result {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, code)
		if err != nil {
			log.Warn().Err(err).Str("cep", code).Msg("[VIACEP] cache read failed, going upstream")
		} else if cached != nil {
			log.Debug().Str("cep", code).Msg("[VIACEP] cache hit")
			return Result{Outcome: OutcomeFound, Address: cached}
		}
	}

	endpoint := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("cep", code).Msg("[VIACEP] request failed")
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Info().Int("status_code", resp.StatusCode).Str("cep", code).Msg("[VIACEP] non-success status")
		return Result{Outcome: OutcomeNotFound}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			RawJSON("response", body).
			Msg("[VIACEP] incoming response")
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	// ViaCEP answers 200 with {"erro": true} for unknown codes.
	if _, ok := payload["erro"]; ok {
		return Result{Outcome: OutcomeNotFound}
	}

	addr, err := normalize(payload, code)
	if err != nil {
		log.Warn().Err(err).Str("cep", code).Msg("[VIACEP] malformed upstream record")
		return Result{Outcome: OutcomeMalformed, Err: err}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, addr.CepNumber, addr, c.cacheTTL); err != nil {
			log.Warn().Err(err).Str("cep", addr.CepNumber).Msg("[VIACEP] cache write failed")
		}
	}
	return Result{Outcome: OutcomeFound, Address: addr}
}

// normalize maps the generic JSON object onto an Address. The upstream cep
// comes hyphenated ("01310-100"); absent keys become empty fields. An empty
// ibge is zero, a present but non-numeric one is an error.
func normalize(payload map[string]any, requested string) (*Address, error) {
	cep := stringField(payload, "cep")
	if cep == "" {
		cep = requested
	}
	cep = strings.TrimSpace(strings.ReplaceAll(cep, "-", ""))

	addr := &Address{
		CepNumber:   cep,
		Logradouro:  stringField(payload, "logradouro"),
		Complemento: stringField(payload, "complemento"),
		Bairro:      stringField(payload, "bairro"),
		Localidade:  stringField(payload, "localidade"),
		UF:          stringField(payload, "uf"),
		GIA:         stringField(payload, "gia"),
	}

	if raw := stringField(payload, "ibge"); raw != "" {
		ibge, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("non-numeric ibge field %q: %w", raw, err)
		}
		addr.IBGE = ibge
	}
	return addr, nil
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return s
}
