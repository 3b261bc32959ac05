package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go-outreach/internal/features/execution_log"
)

// HTTPBackend forwards actions to an external driver service that answers
// with a BackendResult body.
type HTTPBackend struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPBackend(url, token string) *HTTPBackend {
	return &HTTPBackend{url: url, token: token, client: &http.Client{}}
}

func (b *HTTPBackend) Perform(ctx context.Context, req ActionRequest) (BackendResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return BackendResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return BackendResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return BackendResult{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return BackendResult{}, err
	}
	if resp.StatusCode >= 300 {
		return BackendResult{}, fmt.Errorf("action backend returned %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var result BackendResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return BackendResult{}, fmt.Errorf("decode action backend response: %w", err)
	}
	switch result.Outcome {
	case execution_log.OutcomeSuccess, execution_log.OutcomeFailed, execution_log.OutcomeSkipped:
		return result, nil
	}
	return BackendResult{}, fmt.Errorf("action backend returned unknown outcome %q", result.Outcome)
}
