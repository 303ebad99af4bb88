package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/rs/zerolog"
)

// Client talks to the natural-language extraction service. Every failure
// mode is reported as "no data"; callers never see an error.
type Client struct {
	endpoint   string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewClient creates a new extraction service client
func NewClient(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.ExtractorURL); err != nil {
		return nil, fmt.Errorf("invalid EXTRACTOR_URL: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.UpstreamBaseURL); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_BASE_URL: %w", err)
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.ExtractorURL, "/"),
		baseURL:    strings.TrimRight(cfg.UpstreamBaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.ExtractorTimeout},
		metrics:    m,
		logger:     logger.With().Str("component", "extractor").Logger(),
	}, nil
}

type envelope struct {
	Answer *string `json:"answer"`
}

// Extract asks for an array-shaped answer about target. Any failure,
// including an answer that is not an array, yields nil.
func (c *Client) Extract(ctx context.Context, target, instruction string) []json.RawMessage {
	return c.extractArray(ctx, "generic", target, instruction)
}

// ExtractOne asks for an object-shaped answer about target. Any failure,
// including an empty object, yields nil.
func (c *Client) ExtractOne(ctx context.Context, target, instruction string) json.RawMessage {
	return c.extractObject(ctx, "generic", target, instruction)
}

func (c *Client) extractArray(ctx context.Context, kind, target, instruction string) []json.RawMessage {
	payload, ok := c.call(ctx, kind, target, instruction)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		c.logger.Warn().Err(err).Str("url", target).Msg("Answer is not a JSON array")
		c.count(kind, "malformed")
		return nil
	}
	c.count(kind, "ok")
	return items
}

func (c *Client) extractObject(ctx context.Context, kind, target, instruction string) json.RawMessage {
	payload, ok := c.call(ctx, kind, target, instruction)
	if !ok {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		c.logger.Warn().Err(err).Str("url", target).Msg("Answer is not a JSON object")
		c.count(kind, "malformed")
		return nil
	}
	if len(fields) == 0 {
		c.count(kind, "empty")
		return nil
	}
	c.count(kind, "ok")
	return payload
}

// call performs the request and returns the un-fenced answer payload
func (c *Client) call(ctx context.Context, kind, target, instruction string) ([]byte, bool) {
	fullURL := c.endpoint + "/" + url.QueryEscape(target) + "?q=" + url.QueryEscape(instruction)

	c.logger.Debug().Str("kind", kind).Str("url", target).Msg("Calling extraction service")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to create request")
		c.count(kind, "transport_error")
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", target).Msg("Extraction request failed")
		c.count(kind, "transport_error")
		return nil, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", target).Msg("Failed to read extraction response")
		c.count(kind, "transport_error")
		return nil, false
	}

	c.logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Str("url", target).Msg("Extraction response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", target).Msg("Extraction service returned an error status")
		c.count(kind, "http_error")
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Answer == nil {
		c.logger.Warn().Err(err).Str("url", target).Msg("Malformed extraction envelope")
		c.count(kind, "malformed")
		return nil, false
	}

	payload := stripCodeFence(*env.Answer)
	if payload == "" || !json.Valid([]byte(payload)) {
		c.logger.Warn().Str("url", target).Str("answer", snippet(*env.Answer)).Msg("Answer does not hold valid JSON")
		c.count(kind, "malformed")
		return nil, false
	}
	return []byte(payload), true
}

func (c *Client) count(kind, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.ExtractorRequests.WithLabelValues(kind, outcome).Inc()
}

// stripCodeFence removes a leading ```json (any case) and a trailing ```
func stripCodeFence(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const limit = 160
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
