// Package feedback talks to the Gemini generateContent API to grade writing
// and speaking practice and to suggest topics and questions.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"duotoeic/internal/apperr"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-3-flash-preview"
	DefaultTimeout = 30 * time.Second

	FallbackTopic    = "Business Travel"
	FallbackQuestion = "Describe a picture of a busy office."

	maxResponseBytes = 1 << 20
)

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client

	// MaxTries and RetryInterval only apply to topic and question generation.
	MaxTries      uint
	RetryInterval time.Duration
}

type Client struct {
	cfg      Config
	writing  *schema
	speaking *schema
	group    singleflight.Group
}

func New(cfg Config) (*Client, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	writing, err := newSchema(writingSchema())
	if err != nil {
		return nil, fmt.Errorf("writing schema: %w", err)
	}
	speaking, err := newSchema(speakingSchema())
	if err != nil {
		return nil, fmt.Errorf("speaking schema: %w", err)
	}
	return &Client{cfg: cfg, writing: writing, speaking: speaking}, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType   string             `json:"responseMimeType,omitempty"`
	ResponseJSONSchema *jsonschema.Schema `json:"responseJsonSchema,omitempty"`
}

// generate performs one generateContent call and returns the response text.
// Transport errors, timeouts and non-2xx statuses are transient; a 2xx
// response without text is an invalid payload.
func (c *Client) generate(ctx context.Context, prompt string, responseSchema *jsonschema.Schema) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", apperr.New(apperr.CodeTransient, "API key missing")
	}
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if responseSchema != nil {
		body.GenerationConfig = &generationConfig{ResponseMimeType: "application/json", ResponseJSONSchema: responseSchema}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Wrap(apperr.CodeTransient, "feedback service timed out", err)
		}
		return "", apperr.Wrap(apperr.CodeTransient, "feedback service unreachable", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeTransient, "read feedback response", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return "", apperr.New(apperr.CodeTransient, fmt.Sprintf("feedback service status %d: %s", res.StatusCode, msg))
	}
	if !gjson.ValidBytes(raw) {
		return "", apperr.New(apperr.CodeInvalidPayload, "feedback response is not JSON")
	}
	var text strings.Builder
	for _, t := range gjson.GetBytes(raw, "candidates.0.content.parts.#.text").Array() {
		text.WriteString(t.String())
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		reason := gjson.GetBytes(raw, "promptFeedback.blockReason").String()
		if reason != "" {
			return "", apperr.New(apperr.CodeInvalidPayload, "feedback blocked: "+reason)
		}
		return "", apperr.New(apperr.CodeInvalidPayload, "feedback response missing text")
	}
	return out, nil
}

// generateWithFallback retries transient failures with exponential backoff
// and returns fallback when every attempt fails or the text is empty.
func (c *Client) generateWithFallback(ctx context.Context, key, prompt, fallback string) string {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return fallback
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.cfg.RetryInterval
		text, err := backoff.Retry(ctx, func() (string, error) {
			text, err := c.generate(ctx, prompt, nil)
			if err != nil && !errors.Is(err, apperr.ErrTransient) {
				return "", backoff.Permanent(err)
			}
			return text, err
		}, backoff.WithBackOff(b), backoff.WithMaxTries(c.cfg.MaxTries))
		if err != nil {
			return fallback, nil
		}
		return text, nil
	})
	text, _ := v.(string)
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if text == "" {
		return fallback
	}
	return text
}
