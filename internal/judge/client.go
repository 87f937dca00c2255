package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownLanguage    = errors.New("unknown language")
	ErrServiceUnavailable = errors.New("judge service unavailable")
	ErrQuotaExceeded      = errors.New("judge service quota exceeded")
	ErrTimeout            = errors.New("judge polling deadline exceeded")
)

// BatchItem is one execution to submit: the candidate source paired with a
// single test case's stdin and expected output.
type BatchItem struct {
	SourceCode     string
	LanguageID     int
	Stdin          string
	ExpectedOutput string
}

// Result is the terminal outcome of one submitted execution. Absent time
// and memory are explicitly zero.
type Result struct {
	Token         string
	Status        Status
	Time          float64 // seconds
	MemoryKB      int
	Stdout        string
	Stderr        string
	CompileOutput string
}

type Options struct {
	BaseURL      string
	AuthToken    string
	HTTPTimeout  time.Duration
	PollInterval time.Duration
	PollDeadline time.Duration
	Clock        Clock
}

type Client struct {
	baseURL      string
	authToken    string
	httpClient   *http.Client
	pollInterval time.Duration
	pollDeadline time.Duration
	clock        Clock
	logger       zerolog.Logger
}

func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.PollDeadline <= 0 {
		opts.PollDeadline = 30 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		authToken:    opts.AuthToken,
		httpClient:   &http.Client{Timeout: opts.HTTPTimeout},
		pollInterval: opts.PollInterval,
		pollDeadline: opts.PollDeadline,
		clock:        opts.Clock,
		logger:       logger.With().Str("component", "judge-client").Logger(),
	}
}

// LanguageID resolves a language name to the service's numeric identifier.
func (c *Client) LanguageID(name string) (int, error) {
	return LanguageID(name)
}

// Wire types for the judge service's batch API.
type submissionRequest struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

type batchRequest struct {
	Submissions []submissionRequest `json:"submissions"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResult struct {
	Token         string            `json:"token"`
	Status        *submissionStatus `json:"status"`
	Stdout        *string           `json:"stdout"`
	Stderr        *string           `json:"stderr"`
	CompileOutput *string           `json:"compile_output"`
	Time          *string           `json:"time"`
	Memory        *float64          `json:"memory"`
}

type batchStatusResponse struct {
	Submissions []submissionResult `json:"submissions"`
}

const resultFields = "token,status,stdout,stderr,compile_output,time,memory"

// SubmitBatch submits one execution per item and returns the service's
// opaque tokens in the same order as the items.
func (c *Client) SubmitBatch(ctx context.Context, items []BatchItem) ([]string, error) {
	reqBody := batchRequest{Submissions: make([]submissionRequest, 0, len(items))}
	for _, item := range items {
		reqBody.Submissions = append(reqBody.Submissions, submissionRequest{
			SourceCode:     item.SourceCode,
			LanguageID:     item.LanguageID,
			Stdin:          item.Stdin,
			ExpectedOutput: item.ExpectedOutput,
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("judge.SubmitBatch marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/submissions/batch?base64_encoded=false", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("judge.SubmitBatch request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrQuotaExceeded
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: batch submit returned status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var created []tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: malformed batch response: %v", ErrServiceUnavailable, err)
	}
	if len(created) != len(items) {
		return nil, fmt.Errorf("%w: expected %d tokens, got %d", ErrServiceUnavailable, len(items), len(created))
	}

	tokens := make([]string, 0, len(created))
	for _, tr := range created {
		if tr.Token == "" {
			return nil, fmt.Errorf("%w: batch response contains an empty token", ErrServiceUnavailable)
		}
		tokens = append(tokens, tr.Token)
	}
	c.logger.Debug().Int("count", len(tokens)).Msg("Batch submitted to judge service")
	return tokens, nil
}

// AwaitResults polls until every token reaches a terminal status or the
// poll deadline elapses. Results come back in token order regardless of
// the order in which the service completed them.
func (c *Client) AwaitResults(ctx context.Context, tokens []string) ([]Result, error) {
	deadline := c.clock.Now().Add(c.pollDeadline)
	interval := c.pollInterval
	maxInterval := 8 * c.pollInterval

	done := make(map[string]Result, len(tokens))
	pending := append([]string(nil), tokens...)

	for {
		batch, err := c.fetchBatch(ctx, pending)
		if err != nil {
			return nil, err
		}

		stillPending := pending[:0]
		settled := make(map[string]bool, len(batch))
		for _, sr := range batch {
			if sr.Status != nil && Status(sr.Status.ID).Terminal() {
				done[sr.Token] = toResult(sr)
				settled[sr.Token] = true
			}
		}
		for _, token := range pending {
			if !settled[token] {
				stillPending = append(stillPending, token)
			}
		}
		pending = stillPending

		if len(pending) == 0 {
			break
		}
		if c.clock.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %d of %d executions still pending", ErrTimeout, len(pending), len(tokens))
		}

		c.logger.Debug().Int("pending", len(pending)).Dur("interval", interval).Msg("Waiting on judge results")
		if err := c.clock.Sleep(ctx, interval); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if interval *= 2; interval > maxInterval {
			interval = maxInterval
		}
	}

	results := make([]Result, 0, len(tokens))
	for _, token := range tokens {
		results = append(results, done[token])
	}
	return results, nil
}

func (c *Client) fetchBatch(ctx context.Context, tokens []string) ([]submissionResult, error) {
	query := url.Values{
		"tokens":         {strings.Join(tokens, ",")},
		"base64_encoded": {"false"},
		"fields":         {resultFields},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/submissions/batch?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("judge.fetchBatch request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrQuotaExceeded
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: batch status returned %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var body batchStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed status response: %v", ErrServiceUnavailable, err)
	}
	return body.Submissions, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}
}

func toResult(sr submissionResult) Result {
	r := Result{Token: sr.Token}
	if sr.Status != nil {
		r.Status = Status(sr.Status.ID)
	}
	if sr.Time != nil {
		if secs, err := strconv.ParseFloat(*sr.Time, 64); err == nil {
			r.Time = secs
		}
	}
	if sr.Memory != nil {
		r.MemoryKB = int(*sr.Memory)
	}
	if sr.Stdout != nil {
		r.Stdout = *sr.Stdout
	}
	if sr.Stderr != nil {
		r.Stderr = *sr.Stderr
	}
	if sr.CompileOutput != nil {
		r.CompileOutput = *sr.CompileOutput
	}
	return r
}
