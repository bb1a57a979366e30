// Package exchange talks to the SX Bet REST API: protocol metadata and the
// order, fill and cancel submission endpoints.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/GoPolymarket/sxgate/internal/pkg/metrics"
)

const (
	pathMetadata = "/metadata"
	pathOrders   = "/orders/new"
	pathFill     = "/orders/fill/v2"
	pathCancel   = "/orders/cancel/v2"

	maxErrorBody = 2048
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
}

func NewClient(baseURL string, timeout time.Duration, retries int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		retries: retries,
		backoff: 200 * time.Millisecond,
	}
}

// Metadata is the subset of GET /metadata the signer needs.
type Metadata struct {
	ExecutorAddress  string                       `json:"executorAddress"`
	EIP712FillHasher string                       `json:"EIP712FillHasher"`
	DomainVersion    string                       `json:"domainVersion"`
	Addresses        map[string]map[string]string `json:"addresses"`
}

// BaseToken returns the address of symbol (e.g. "USDC") on chainID.
func (m *Metadata) BaseToken(chainID int64, symbol string) string {
	if m == nil || m.Addresses == nil {
		return ""
	}
	return m.Addresses[strconv.FormatInt(chainID, 10)][symbol]
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Metadata fetches protocol addresses, retrying transport failures and 5xx
// with linear backoff.
func (c *Client) Metadata(ctx context.Context) (*Metadata, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		data, err := c.do(ctx, http.MethodGet, pathMetadata, nil)
		if err == nil {
			var md Metadata
			if err := json.Unmarshal(data, &md); err != nil {
				return nil, apperrors.NewUpstream("decode metadata", err)
			}
			return &md, nil
		}
		lastErr = err
		if !retryable(err) || !c.shouldRetry(ctx, attempt) {
			break
		}
	}
	return nil, lastErr
}

type postOrdersBody struct {
	Orders []model.NewOrderPayload `json:"orders"`
}

// PostOrders submits signed maker orders. Submissions are never retried.
func (c *Client) PostOrders(ctx context.Context, orders []model.NewOrderPayload) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, pathOrders, postOrdersBody{Orders: orders})
}

func (c *Client) PostFill(ctx context.Context, payload *model.FillPayload) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, pathFill, payload)
}

func (c *Client) PostCancel(ctx context.Context, payload *model.CancelPayload) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, pathCancel, payload)
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, apperrors.NewUpstream("exchange base url not configured", nil)
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.NewEncoding("body", "encode request body", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.NewUpstream("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(path, "transport_error").Inc()
		return nil, apperrors.NewUpstream(method+" "+path+" failed", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstream("read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("exchange request rejected", "path", path, "status", resp.StatusCode)
		return nil, apperrors.NewUpstream(method+" "+path+" rejected",
			&statusError{status: resp.StatusCode, body: truncate(string(raw), maxErrorBody)})
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Status == "" {
		// Not enveloped; hand back as is.
		return raw, nil
	}
	if !strings.EqualFold(env.Status, "success") {
		return nil, apperrors.NewUpstream(method+" "+path+" returned status "+env.Status,
			&statusError{status: resp.StatusCode, body: truncate(string(raw), maxErrorBody)})
	}
	return env.Data, nil
}

// StatusCode extracts the upstream HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

func retryable(err error) bool {
	status := StatusCode(err)
	return status == 0 || status >= 500 || status == http.StatusTooManyRequests
}

func (c *Client) shouldRetry(ctx context.Context, attempt int) bool {
	if attempt >= c.retries {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(attempt+1) * c.backoff):
		return true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
