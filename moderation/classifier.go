// crushnote/moderation/classifier.go
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrClassifierNotConfigured is returned when no API key is set. Callers
// treat it like any other classifier failure and fall back to the
// community pipeline.
var ErrClassifierNotConfigured = errors.New("text classifier is not configured")

// ClassifierResult is the verdict for a single piece of text.
type ClassifierResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

// Classifier calls an OpenAI-compatible moderation endpoint.
type Classifier struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	Backoff    time.Duration
}

// NewClassifier builds a classifier with the given credentials.
func NewClassifier(endpoint, apiKey string, timeout, backoff time.Duration) *Classifier {
	return &Classifier{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Backoff:    backoff,
	}
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

// Classify submits text for moderation. Transport errors and 5xx
// responses are retried once after a short backoff; anything else fails
// immediately.
func (c *Classifier) Classify(ctx context.Context, input string) (*ClassifierResult, error) {
	if c.APIKey == "" {
		return nil, ErrClassifierNotConfigured
	}

	result, err := c.doClassify(ctx, input)
	if err != nil && retryable(err) {
		select {
		case <-time.After(c.Backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		result, err = c.doClassify(ctx, input)
	}
	return result, err
}

// transientError marks failures worth one retry.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func (c *Classifier) doClassify(ctx context.Context, input string) (*ClassifierResult, error) {
	body, err := json.Marshal(moderationRequest{Input: input})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &transientError{fmt.Errorf("classifier request failed: %w", err)}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		return nil, &transientError{fmt.Errorf("classifier returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var parsed moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, fmt.Errorf("classifier response contained no results")
	}

	return &ClassifierResult{
		Flagged:    parsed.Results[0].Flagged,
		Categories: parsed.Results[0].Categories,
	}, nil
}
