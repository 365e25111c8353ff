// Package client is the public HTTP client: request assembly, API-key
// resolution, header composition, and the retry engine composed from
// pkg/internal/httpio and pkg/internal/ratectl (spec.md §4.1).
//
// Grounded on pkg/providers/anthropic/provider.go (header wiring, base URL
// and API-version defaults) and pkg/providers/anthropic/language_model.go
// (combineBetaHeaders, handleError, the anthropicResponse wire shape now
// replaced by message.ParseMessage). The teacher scatters this logic across
// a Provider/LanguageModel pair built for a multi-vendor abstraction; this
// package collapses it to a single concrete client, since spec.md §1 scopes
// the system to one wire protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coregen-ai/convo/pkg/internal/httpio"
	"github.com/coregen-ai/convo/pkg/internal/ratectl"
	"github.com/coregen-ai/convo/pkg/message"
	"github.com/coregen-ai/convo/pkg/telemetry"
)

const (
	DefaultBaseURL    = "https://api.anthropic.com"
	DefaultAPIVersion = "2023-06-01"
	DefaultMaxRetries = 3
	DefaultTimeout    = 60 * time.Second

	apiKeyHeader    = "x-api-key"
	versionHeader   = "anthropic-version"
	betaHeader      = "anthropic-beta"
	requestIDHeader = "request-id"
	retryAfterHeader = "retry-after"

	envAPIKey    = "CONVO_API_KEY"
	envAuthToken = "CONVO_AUTH_TOKEN"
)

// Config is the client's construction-time configuration (spec.md §4.1's
// "base URL, API version, timeout, retry policy, beta headers").
type Config struct {
	// APIKey, if set, takes precedence over the environment. Like the
	// environment values, it may be a literal or a file:// URL.
	APIKey     string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration

	MaxRetries int
	Backoff    *ratectl.Backoff
	Observer   ratectl.Observer

	// BetaHeaders are joined with a comma and sent as anthropic-beta on
	// every request (§4.1: "a <vendor>-beta header is added naming that
	// gate"). Composition of which gates are needed is the caller's
	// responsibility; the client only joins and sends.
	BetaHeaders []string

	// Telemetry configures the tracer wrapping Send/Stream. Nil behaves like
	// telemetry.DefaultSettings() (disabled).
	Telemetry *telemetry.Settings

	HTTPClient *http.Client
}

// Client is the composed HTTP + retry engine. It is safe for concurrent use.
type Client struct {
	http       *httpio.Client
	apiVersion string
	betaHeader string
	maxRetries int
	backoff    *ratectl.Backoff
	observer   ratectl.Observer
	tracer     trace.Tracer
	settings   *telemetry.Settings
}

// New resolves the API key, applies defaults, and builds the pooled
// transport. Returns a *message.Error (never a bare error) so callers can
// treat construction failures the same way as request failures.
func New(cfg Config) (*Client, *message.Error) {
	apiKey, err := resolveAPIKey(cfg.APIKey)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = ratectl.DefaultBackoff()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = ratectl.NoopObserver{}
	}
	settings := cfg.Telemetry
	if settings == nil {
		settings = telemetry.DefaultSettings()
	}

	transport := httpio.New(httpio.Config{
		BaseURL: baseURL,
		Timeout: cfg.Timeout,
		Headers: map[string]string{
			apiKeyHeader:  apiKey,
			versionHeader: apiVersion,
		},
		HTTPClient: cfg.HTTPClient,
	})

	return &Client{
		http:       transport,
		apiVersion: apiVersion,
		betaHeader: strings.Join(cfg.BetaHeaders, ","),
		maxRetries: maxRetries,
		backoff:    backoff,
		observer:   observer,
		tracer:     telemetry.GetTracer(settings),
		settings:   settings,
	}, nil
}

// resolveAPIKey implements spec.md §4.1/§6: an explicit key wins; otherwise
// CONVO_API_KEY then CONVO_AUTH_TOKEN are checked in order. Any value may be
// a literal or a file:// URL; a read error names the path, never the key.
func resolveAPIKey(explicit string) (string, *message.Error) {
	if explicit != "" {
		return readKeyValue(explicit)
	}
	for _, env := range []string{envAPIKey, envAuthToken} {
		if v := os.Getenv(env); v != "" {
			return readKeyValue(v)
		}
	}
	return "", message.NewAuthenticationError(
		fmt.Sprintf("no API key configured: set Config.APIKey or the %s/%s environment variable", envAPIKey, envAuthToken))
}

func readKeyValue(v string) (string, *message.Error) {
	path, ok := strings.CutPrefix(v, "file://")
	if !ok {
		return v, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", message.NewIOError(fmt.Sprintf("reading API key file %q", path), err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *Client) requestHeaders(accept string) map[string]string {
	h := map[string]string{"Accept": accept}
	if c.betaHeader != "" {
		h[betaHeader] = c.betaHeader
	}
	return h
}

// classifyTransportError maps a connection-level failure (not an HTTP
// status) to the error taxonomy, per §7's Connection/Timeout/Abort rows.
func classifyTransportError(ctx context.Context, err error) *message.Error {
	if ctx.Err() == context.Canceled {
		return message.NewAbortError(err.Error())
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return message.NewTimeoutError(err.Error(), 0)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return message.NewTimeoutError(err.Error(), 0)
	}
	return message.NewConnectionError(err.Error(), err)
}

// errorBody is the documented `{"error": {...}}` envelope (§4.1).
type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Param   string `json:"param"`
	} `json:"error"`
}

// errorFromResponse classifies an HTTP error response per §4.1's fixed
// status table, falling back to the raw body as the message when it does
// not parse as the documented envelope.
func errorFromResponse(statusCode int, headers http.Header, body []byte) *message.Error {
	msg := string(body)
	errType := ""
	param := ""
	var parsed errorBody
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
		errType = parsed.Error.Type
		param = parsed.Error.Param
	}

	var retryAfter *int
	if ra := headers.Get(retryAfterHeader); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			retryAfter = &secs
		}
	}

	return message.FromHTTPStatus(statusCode, errType, msg, param, headers.Get(requestIDHeader), retryAfter)
}

// Send performs a non-streaming request (spec.md §4.1 send()). It validates
// stream=false, retries retriable failures, and returns the fully-formed
// Message. The whole retry loop runs inside one span (§4.1's side effects are
// per logical request, not per attempt).
func (c *Client) Send(ctx context.Context, params message.MessageCreateParams) (*message.Message, *message.Error) {
	if verr := params.Validate(false); verr != nil {
		return nil, verr
	}
	body, jerr := json.Marshal(params)
	if jerr != nil {
		return nil, message.NewSerializationError("encoding request body", jerr)
	}

	headers := c.requestHeaders("application/json")
	attrs := telemetry.GetBaseAttributes("anthropic", params.Model, c.settings, headers)
	if c.settings.RecordInputs {
		attrs = append(attrs, attribute.Int("ai.request.messages", len(params.Messages)))
	}

	result, err := telemetry.RecordSpan(ctx, c.tracer, telemetry.SpanOptions{
		Name:        "convo.client.send",
		Attributes:  attrs,
		EndWhenDone: true,
	}, func(ctx context.Context, span trace.Span) (*message.Message, error) {
		if c.settings.RecordInputs {
			telemetry.AddSettingsAttributes(span, "ai.settings", samplingSettings(params))
		}
		var result *message.Message
		serr := ratectl.Do(ctx, c.maxRetries, c.backoff, c.observer, func(ctx context.Context) *message.Error {
			resp, herr := c.http.Do(ctx, httpio.Request{
				Method:  http.MethodPost,
				Path:    "/v1/messages",
				Body:    body,
				Headers: headers,
			})
			if herr != nil {
				return classifyTransportError(ctx, herr)
			}
			if resp.StatusCode >= 400 {
				return errorFromResponse(resp.StatusCode, resp.Headers, resp.Body)
			}
			msg, perr := message.ParseMessage(resp.Body)
			if perr != nil {
				if merr, ok := perr.(*message.Error); ok {
					return merr
				}
				return message.NewSerializationError("decoding response body", perr)
			}
			result = msg
			if c.settings.RecordOutputs {
				span.SetAttributes(attribute.Int("ai.response.output_tokens", msg.Usage.OutputTokens))
			}
			return nil
		})
		if serr != nil {
			return nil, serr
		}
		return result, nil
	})
	if err != nil {
		return nil, err.(*message.Error)
	}
	return result, nil
}

// CountTokensParams is the minimal request shape for count_tokens (spec.md
// §6): no stream flag, no max_tokens, since the endpoint only estimates.
type CountTokensParams struct {
	Model    string
	Messages []message.MessageParam
	System   *message.SystemPrompt
	Tools    []message.Tool
	Thinking *message.ThinkingConfig
}

func (p CountTokensParams) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"model":    p.Model,
		"messages": p.Messages,
	}
	if p.System != nil {
		m["system"] = p.System
	}
	if len(p.Tools) > 0 {
		m["tools"] = p.Tools
	}
	if p.Thinking != nil {
		m["thinking"] = p.Thinking
	}
	return json.Marshal(m)
}

// CountTokens returns the server's token estimate for a would-be request
// (spec.md §4.1, §6: "thin wrapper... shares retry behavior").
func (c *Client) CountTokens(ctx context.Context, params CountTokensParams) (int, *message.Error) {
	body, jerr := json.Marshal(params)
	if jerr != nil {
		return 0, message.NewSerializationError("encoding count_tokens body", jerr)
	}

	var inputTokens int
	err := ratectl.Do(ctx, c.maxRetries, c.backoff, c.observer, func(ctx context.Context) *message.Error {
		resp, herr := c.http.Do(ctx, httpio.Request{
			Method:  http.MethodPost,
			Path:    "/v1/messages/count_tokens",
			Body:    body,
			Headers: c.requestHeaders("application/json"),
		})
		if herr != nil {
			return classifyTransportError(ctx, herr)
		}
		if resp.StatusCode >= 400 {
			return errorFromResponse(resp.StatusCode, resp.Headers, resp.Body)
		}
		var decoded struct {
			InputTokens int `json:"input_tokens"`
		}
		if err := json.Unmarshal(resp.Body, &decoded); err != nil {
			return message.NewSerializationError("decoding count_tokens response", err)
		}
		inputTokens = decoded.InputTokens
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inputTokens, nil
}

// Model is one entry in the model catalog (spec.md §6).
type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
}

// ModelList is a page of the model catalog.
type ModelList struct {
	Data    []Model `json:"data"`
	HasMore bool    `json:"has_more"`
	FirstID string  `json:"first_id"`
	LastID  string  `json:"last_id"`
}

// ListModelsOptions are the pagination parameters for GET /v1/models.
type ListModelsOptions struct {
	AfterID string
	BeforeID string
	Limit   int
}

// ListModels performs GET /v1/models?after_id=&before_id=&limit= (spec.md §6).
func (c *Client) ListModels(ctx context.Context, opts ListModelsOptions) (*ModelList, *message.Error) {
	query := url.Values{}
	if opts.AfterID != "" {
		query.Set("after_id", opts.AfterID)
	}
	if opts.BeforeID != "" {
		query.Set("before_id", opts.BeforeID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var result ModelList
	err := ratectl.Do(ctx, c.maxRetries, c.backoff, c.observer, func(ctx context.Context) *message.Error {
		resp, herr := c.http.Do(ctx, httpio.Request{
			Method:  http.MethodGet,
			Path:    "/v1/models",
			Query:   query,
			Headers: c.requestHeaders("application/json"),
		})
		if herr != nil {
			return classifyTransportError(ctx, herr)
		}
		if resp.StatusCode >= 400 {
			return errorFromResponse(resp.StatusCode, resp.Headers, resp.Body)
		}
		if err := json.Unmarshal(resp.Body, &result); err != nil {
			return message.NewSerializationError("decoding models list response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetModel performs GET /v1/models/{id} (spec.md §6).
func (c *Client) GetModel(ctx context.Context, id string) (*Model, *message.Error) {
	var result Model
	err := ratectl.Do(ctx, c.maxRetries, c.backoff, c.observer, func(ctx context.Context) *message.Error {
		resp, herr := c.http.Do(ctx, httpio.Request{
			Method:  http.MethodGet,
			Path:    "/v1/models/" + url.PathEscape(id),
			Headers: c.requestHeaders("application/json"),
		})
		if herr != nil {
			return classifyTransportError(ctx, herr)
		}
		if resp.StatusCode >= 400 {
			return errorFromResponse(resp.StatusCode, resp.Headers, resp.Body)
		}
		if err := json.Unmarshal(resp.Body, &result); err != nil {
			return message.NewSerializationError("decoding model response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

var _ io.Closer = (*EventStream)(nil)

// samplingSettings extracts the request's sampling knobs for
// telemetry.AddSettingsAttributes, omitting any left at their zero value
// (unset) rather than recording a misleading 0/false.
func samplingSettings(params message.MessageCreateParams) map[string]interface{} {
	attrs := map[string]interface{}{
		"max_tokens": params.MaxTokens,
	}
	if params.Temperature != nil {
		attrs["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		attrs["top_p"] = *params.TopP
	}
	if params.TopK != nil {
		attrs["top_k"] = *params.TopK
	}
	return attrs
}
