// Package siblingclient implements C2: outbound calls to the users and
// offers subgraphs, each independently protected by a timeout, a single
// jittered retry, and a circuit breaker (§4.2).
package siblingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

// Ref is the minimal projection this subgraph ever reads from a sibling:
// an existence confirmation keyed by id. Stub is true when the sibling's
// response did not include the id, and for every id when the value was
// produced by the fallback path (circuit open or retries exhausted);
// callers that need to surface a
// field-level error on further reads check Stub (§4.2 Fallback).
type Ref struct {
	ID   uuid.UUID
	Stub bool
}

// Config configures one sibling endpoint (§6 "sibling.users.*" / "sibling.offers.*").
type Config struct {
	Name       string
	URL        string
	Timeout    time.Duration
	RetryMax   int
	Breaker    gobreaker.Settings
}

// Client talks to one sibling subgraph over GraphQL-over-HTTP using the
// federation `_entities` query.
type Client struct {
	name    string
	url     string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient constructs a Client for one sibling, with its own circuit
// breaker and a pooled *http.Client (connection pooling per sibling
// origin, per §5).
func NewClient(cfg Config, logger *slog.Logger) *Client {
	settings := cfg.Breaker
	settings.Name = cfg.Name
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_change", slog.String("sibling", name), slog.String("from", from.String()), slog.String("to", to.String()))
		}
	}
	return &Client{
		name:    cfg.Name,
		url:     cfg.URL,
		timeout: cfg.Timeout,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 32,
			},
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// State reports the circuit breaker's current state as the string form
// C7's /readyz probe surfaces (§6).
func (c *Client) State() string {
	return c.breaker.State().String()
}

// permanentError marks an error as non-retryable (4xx-class), matching
// §4.2's "no retry on Permanent" rule.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// entitiesRequest is the GraphQL-over-HTTP body for the federation
// `_entities({ representations })` query (§6).
type entitiesRequest struct {
	Query     string           `json:"query"`
	Variables entitiesVariable `json:"variables"`
}

type entitiesVariable struct {
	Representations []map[string]any `json:"representations"`
}

// entitiesQuery takes the requested __typename and selects its id, which
// doRequest reads to confirm existence.
const entitiesQuery = `query($representations: [_Any!]!) { _entities(representations: $representations) { ... on %s { id } } }`

// GetUsers resolves multiple user ids in one batched outbound call
// (the batching itself is driven by C3; this is the single-call shape
// C3's batch function invokes per flush).
func (c *Client) GetUsers(ctx context.Context, ids []uuid.UUID) ([]Ref, error) {
	return c.getEntities(ctx, "User", ids)
}

// GetOffers resolves multiple offer ids in one batched outbound call.
func (c *Client) GetOffers(ctx context.Context, ids []uuid.UUID) ([]Ref, error) {
	return c.getEntities(ctx, "Offer", ids)
}

// GetUser resolves a single user id.
func (c *Client) GetUser(ctx context.Context, id uuid.UUID) (Ref, error) {
	refs, err := c.GetUsers(ctx, []uuid.UUID{id})
	if err != nil {
		return Ref{}, err
	}
	return refs[0], nil
}

// GetOffer resolves a single offer id.
func (c *Client) GetOffer(ctx context.Context, id uuid.UUID) (Ref, error) {
	refs, err := c.GetOffers(ctx, []uuid.UUID{id})
	if err != nil {
		return Ref{}, err
	}
	return refs[0], nil
}

func (c *Client) getEntities(ctx context.Context, typename string, ids []uuid.UUID) ([]Ref, error) {
	const op = "siblingclient.getEntities"
	if len(ids) == 0 {
		return nil, nil
	}

	reps := make([]map[string]any, len(ids))
	for i, id := range ids {
		reps[i] = map[string]any{"__typename": typename, "id": id.String()}
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.callWithRetry(ctx, reps)
	})
	if err != nil {
		return c.fallback(ids, err)
	}
	found, ok := result.(map[string]bool)
	if !ok {
		return c.fallback(ids, fmt.Errorf("%s: unexpected result type", op))
	}

	refs := make([]Ref, len(ids))
	for i, id := range ids {
		refs[i] = Ref{ID: id, Stub: !found[id.String()]}
	}
	return refs, nil
}

// fallback implements §4.2's Fallback rule: on CircuitOpen or exhausted
// retries, return a stub (id-only) projection for every requested id
// rather than failing the whole batch.
func (c *Client) fallback(ids []uuid.UUID, err error) ([]Ref, error) {
	kind := ugcerr.KindTransient
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		kind = ugcerr.KindCircuitOpen
	}
	c.logger.Warn("sibling_call_degraded", slog.String("sibling", c.name), slog.String("error", err.Error()), slog.String("kind", kind.String()))
	refs := make([]Ref, len(ids))
	for i, id := range ids {
		refs[i] = Ref{ID: id, Stub: true}
	}
	return refs, nil // degrade gracefully: callers get stubs, not an error
}

// callWithRetry performs the HTTP round trip, retrying at most once on a
// Transient failure with jittered exponential backoff (§4.2/§7); 4xx
// responses are wrapped as permanentError and never retried.
func (c *Client) callWithRetry(ctx context.Context, reps []map[string]any) (map[string]bool, error) {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1)
	policy = backoff.WithContext(policy, ctx)

	var found map[string]bool
	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		f, err := c.doRequest(reqCtx, reps)
		if err != nil {
			var perm *permanentError
			if ok := asPermanent(err, &perm); ok {
				return backoff.Permanent(perm.err)
			}
			return err
		}
		found = f
		return nil
	}
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return found, nil
}

func asPermanent(err error, target **permanentError) bool {
	p, ok := err.(*permanentError)
	if ok {
		*target = p
	}
	return ok
}

func (c *Client) doRequest(ctx context.Context, reps []map[string]any) (map[string]bool, error) {
	typename, _ := reps[0]["__typename"].(string)
	body, err := json.Marshal(entitiesRequest{Query: fmt.Sprintf(entitiesQuery, typename), Variables: entitiesVariable{Representations: reps}})
	if err != nil {
		return nil, &permanentError{err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &permanentError{err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err // network-level: treated as Transient, retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, &permanentError{fmt.Errorf("sibling %s returned %d", c.name, resp.StatusCode)}
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("sibling %s returned %d", c.name, resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Entities []map[string]any `json:"_entities"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&payload); err != nil {
		return nil, &permanentError{fmt.Errorf("sibling %s: malformed response: %w", c.name, err)}
	}
	if len(payload.Errors) > 0 {
		return nil, &permanentError{fmt.Errorf("sibling %s: %s", c.name, payload.Errors[0].Message)}
	}

	found := make(map[string]bool, len(payload.Data.Entities))
	for _, e := range payload.Data.Entities {
		if e == nil {
			continue
		}
		if id, ok := e["id"].(string); ok {
			found[id] = true
		}
	}
	return found, nil
}
