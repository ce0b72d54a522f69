// Package fiscal talks to the external fiscal-document issuance service.
// Issuance is a best-effort side effect of a successful collection: callers
// tally failures but never roll payment state back because of one.
package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/southtrip/caravel/internal/config"
	"github.com/southtrip/caravel/internal/observability/tracing"
)

var (
	ErrNotConfigured     = errors.New("fiscal_client_not_configured")
	ErrIssuanceRejected  = errors.New("fiscal_issuance_rejected")
	ErrServiceUnreliable = errors.New("fiscal_service_unavailable")
)

// Issuer requests a fiscal document for a paid charge.
type Issuer interface {
	IssueForCharge(ctx context.Context, chargeID snowflake.ID, actorUserID string) error
}

const defaultTimeout = 15 * time.Second

// Client is the HTTP Issuer implementation.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient builds the issuance client from configuration. The HTTP client
// carries trace propagation so issuance calls show up under the import span.
func NewClient(cfg config.Config, log *zap.Logger) *Client {
	timeout := cfg.Fiscal.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.Fiscal.BaseURL, "/"),
		apiKey:     cfg.Fiscal.APIKey,
		httpClient: tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		log:        log.Named("fiscal"),
	}
}

type issueRequest struct {
	ChargeID    string `json:"charge_id"`
	RequestedBy string `json:"requested_by"`
	Source      string `json:"source"`
}

type issueResponse struct {
	OK bool `json:"ok"`
}

// IssueForCharge posts an issuance request for the charge. A 2xx response
// with ok=true means the document was (or already had been) issued.
func (c *Client) IssueForCharge(ctx context.Context, chargeID snowflake.ID, actorUserID string) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(issueRequest{
		ChargeID:    chargeID.String(),
		RequestedBy: actorUserID,
		Source:      "direct_debit",
	})
	if err != nil {
		return fmt.Errorf("marshal issuance request: %w", err)
	}

	url := c.baseURL + "/v1/fiscal-documents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("build issuance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnreliable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrServiceUnreliable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status %d", ErrIssuanceRejected, resp.StatusCode)
	}

	var out issueResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return fmt.Errorf("decode issuance response: %w", err)
	}
	if !out.OK {
		return ErrIssuanceRejected
	}

	c.log.Debug("fiscal document issued", zap.String("charge_id", chargeID.String()))
	return nil
}

// NoopIssuer satisfies Issuer when no fiscal service is configured, e.g. in
// local development against seeded data.
type NoopIssuer struct {
	log *zap.Logger
}

func NewNoopIssuer(log *zap.Logger) *NoopIssuer {
	return &NoopIssuer{log: log.Named("fiscal")}
}

func (n *NoopIssuer) IssueForCharge(_ context.Context, chargeID snowflake.ID, _ string) error {
	n.log.Debug("fiscal issuance skipped, no service configured", zap.String("charge_id", chargeID.String()))
	return nil
}
