// Package suno wraps the external multi-track music generation API behind
// a submit/poll pair. Transport-level failures are retried here with
// backoff; provider-reported job failures are not, that judgement belongs
// to the orchestrator.
package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
)

// Options controls how the client is configured.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client talks to a Suno-compatible generation endpoint.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
	logger       *infra.Logger
	maxRetries   int
	retryBackoff time.Duration
}

const (
	defaultBaseURL      = "https://api.sunoapi.org/api/v1"
	defaultModel        = "V4"
	defaultMaxRetries   = 3
	defaultRetryBackoff = 500 * time.Millisecond
	titleLimit          = 80
)

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("suno: invalid base url: %w", err)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		httpClient:   httpClient,
		logger:       opts.Logger,
		maxRetries:   maxRetries,
		retryBackoff: backoff,
	}, nil
}

// Model returns the configured generation model.
func (c *Client) Model() string { return c.model }

// SubmitRequest carries everything the provider needs for one batch.
type SubmitRequest struct {
	Title        string
	Style        string
	Prompt       string
	Instrumental bool
	Model        string
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Submit starts a generation batch and returns the provider-side job id.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	promptLimit, styleLimit := limitsForModel(model)

	payload := map[string]any{
		"customMode":   true,
		"instrumental": req.Instrumental,
		"model":        model,
		"style":        truncate(req.Style, styleLimit),
		"title":        truncate(req.Title, titleLimit),
	}
	// The API rejects a lyrics prompt on instrumental batches.
	if !req.Instrumental {
		payload["prompt"] = truncate(req.Prompt, promptLimit)
	}

	env, err := c.doJSON(ctx, http.MethodPost, "/generate", payload)
	if err != nil {
		return "", err
	}
	var data struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.TaskID == "" {
		return "", fmt.Errorf("suno: submit response missing taskId: %w", domain.ErrUnavailable)
	}
	return data.TaskID, nil
}

// Poll fetches the current state of a generation job.
func (c *Client) Poll(ctx context.Context, jobID string) (*PollResult, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/generate/record-info?taskId="+url.QueryEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		TaskID       string `json:"taskId"`
		Status       string `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		Response     struct {
			SunoData []struct {
				ID                   string   `json:"id"`
				Title                string   `json:"title"`
				AudioURL             string   `json:"audioUrl"`
				StreamAudioURL       string   `json:"streamAudioUrl"`
				SourceStreamAudioURL string   `json:"sourceStreamAudioUrl"`
				ImageURL             string   `json:"imageUrl"`
				SourceImageURL       string   `json:"sourceImageUrl"`
				Tags                 string   `json:"tags"`
				Duration             *float64 `json:"duration"`
			} `json:"sunoData"`
		} `json:"response"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("suno: decode poll response: %w", err)
	}

	result := &PollResult{
		Status:         normalizeStatus(data.Status),
		Phase:          data.Status,
		FailureMessage: data.ErrorMessage,
	}
	for _, clip := range data.Response.SunoData {
		payloadRef := firstNonEmpty(clip.AudioURL, clip.StreamAudioURL, clip.SourceStreamAudioURL)
		if payloadRef == "" {
			continue
		}
		unit := Unit{
			ID:         clip.ID,
			Title:      clip.Title,
			PayloadRef: payloadRef,
			ImageRef:   firstNonEmpty(clip.ImageURL, clip.SourceImageURL),
			Tags:       splitTags(clip.Tags),
		}
		if clip.Duration != nil {
			unit.DurationSeconds = *clip.Duration
		}
		result.Units = append(result.Units, unit)
	}
	// A "completed" batch without a single fetchable unit is useless to the
	// caller; report it as the failure it is.
	if result.Status == JobStatusCompleted && len(result.Units) == 0 {
		result.Status = JobStatusFailed
		if result.FailureMessage == "" {
			result.FailureMessage = "provider reported success without audio units"
		}
	}
	return result, nil
}

// Credits reports the account's remaining generation credits.
func (c *Client) Credits(ctx context.Context) (int, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/generate/credit", nil)
	if err != nil {
		return 0, err
	}
	var credits int
	if err := json.Unmarshal(env.Data, &credits); err != nil {
		return 0, fmt.Errorf("suno: decode credits: %w", err)
	}
	return credits, nil
}

// doJSON performs one API call, retrying transport failures and 5xx
// responses with linear backoff. Provider envelope codes are mapped onto
// the domain error taxonomy.
func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*envelope, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryBackoff):
			}
		}

		env, retryable, err := c.doOnce(ctx, method, path, payload)
		if err == nil {
			return env, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		if c.logger != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Str("path", path).Msg("suno: transient failure, retrying")
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload any) (*envelope, bool, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, false, fmt.Errorf("suno: encode payload: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, false, fmt.Errorf("suno: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("suno: %v: %w", err, domain.ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("suno: read response: %w", domain.ErrUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, fmt.Errorf("suno: http 429: %w", domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("suno: http %d: %w", resp.StatusCode, domain.ErrUnavailable)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("suno: http %d: %w", resp.StatusCode, domain.ErrInvalidRequest)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("suno: decode envelope: %w", err)
	}
	switch {
	case env.Code == 200:
		return &env, false, nil
	case env.Code == 429:
		// Insufficient credits surfaces on the same code as rate limiting
		// and deserves the same backoff treatment upstream.
		return nil, false, fmt.Errorf("suno: %s: %w", env.Msg, domain.ErrRateLimited)
	case env.Code >= 500:
		return nil, true, fmt.Errorf("suno: code %d: %s: %w", env.Code, env.Msg, domain.ErrUnavailable)
	default:
		return nil, false, fmt.Errorf("suno: code %d: %s: %w", env.Code, env.Msg, domain.ErrInvalidRequest)
	}
}

func limitsForModel(model string) (promptLimit, styleLimit int) {
	switch strings.ToUpper(model) {
	case "V4_5", "V4_5PLUS":
		return 5000, 1000
	default:
		return 3000, 200
	}
}

func truncate(s string, limit int) string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
