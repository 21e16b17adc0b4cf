// Package httpapi implements the HTTP transport for remote capability
// servers. The engine stays agnostic to this: the provider interface is
// the only seam it sees.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/provider"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBodySize   = 1024 * 1024 // 1MB max response body
)

// invokeRequest is the wire format posted to the capability server.
type invokeRequest struct {
	Ability string              `json:"ability"`
	Context models.FieldMapping `json:"context"`
}

// Provider invokes abilities by POSTing to {baseURL}/abilities/{name}.
// Any transport failure, non-2xx status, or non-object body surfaces as
// a ProviderError.
type Provider struct {
	id        string
	baseURL   string
	abilities []string
	client    *http.Client
	logger    *slog.Logger
}

func NewProvider(id, baseURL string, abilities []string, logger *slog.Logger) *Provider {
	return &Provider{
		id:        id,
		baseURL:   baseURL,
		abilities: abilities,
		client:    &http.Client{Timeout: defaultRequestTimeout},
		logger:    logger.With("provider_id", id, "base_url", baseURL),
	}
}

// WithClient replaces the HTTP client, letting callers impose their own
// timeout per dispatch. A timed-out call surfaces as a ProviderError.
func (p *Provider) WithClient(client *http.Client) *Provider {
	p.client = client

	return p
}

func (p *Provider) ID() string {
	return p.id
}

func (p *Provider) Abilities() []string {
	return p.abilities
}

func (p *Provider) Invoke(ctx context.Context, ability string, view models.FieldMapping) (models.FieldMapping, error) {
	body, err := json.Marshal(invokeRequest{Ability: ability, Context: view})
	if err != nil {
		return nil, provider.NewProviderError(p.id, ability, fmt.Errorf("failed to encode request: %w", err))
	}

	url := p.baseURL + "/abilities/" + ability

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewProviderError(p.id, ability, err)
	}

	req.Header.Set("Content-Type", "application/json")

	p.logger.InfoContext(ctx, "Invoking remote ability", slog.String("ability", ability))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, provider.NewProviderError(p.id, ability, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.Error("Failed to close response body", "error", err)
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, provider.NewProviderError(p.id, ability, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, provider.NewProviderError(p.id, ability,
			fmt.Errorf("capability server returned status %d: %s", resp.StatusCode, payload))
	}

	var result models.FieldMapping
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, provider.NewProviderError(p.id, ability,
			fmt.Errorf("capability server returned a non-object body: %w", err))
	}

	return result, nil
}
