package dialog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPMutator implements Mutator and Reviewer against a remote REST backend.
// Resources live at BaseURL/endpoint[/id]; approve and reject are POSTs to
// BaseURL/endpoint/id/{approve,reject}.
type HTTPMutator struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPMutator returns a mutator using http.DefaultClient.
func NewHTTPMutator(baseURL string) *HTTPMutator {
	return &HTTPMutator{BaseURL: strings.TrimRight(baseURL, "/"), Client: http.DefaultClient}
}

func (m *HTTPMutator) Create(ctx context.Context, endpoint string, values map[string]any) (Result, error) {
	return m.do(ctx, http.MethodPost, m.resource(endpoint), values)
}

func (m *HTTPMutator) Update(ctx context.Context, endpoint, id string, values map[string]any) (Result, error) {
	return m.do(ctx, http.MethodPut, m.resource(endpoint, id), values)
}

func (m *HTTPMutator) Delete(ctx context.Context, endpoint, id string) (Result, error) {
	return m.do(ctx, http.MethodDelete, m.resource(endpoint, id), nil)
}

func (m *HTTPMutator) Approve(ctx context.Context, endpoint, id string) (Result, error) {
	return m.do(ctx, http.MethodPost, m.resource(endpoint, id, "approve"), nil)
}

func (m *HTTPMutator) Reject(ctx context.Context, endpoint, id, reason string) (Result, error) {
	return m.do(ctx, http.MethodPost, m.resource(endpoint, id, "reject"), map[string]any{"reason": reason})
}

func (m *HTTPMutator) resource(parts ...string) string {
	escaped := make([]string, 0, len(parts)+1)
	escaped = append(escaped, m.BaseURL)
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(strings.Trim(p, "/")))
	}
	return strings.Join(escaped, "/")
}

func (m *HTTPMutator) do(ctx context.Context, method, target string, body map[string]any) (Result, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Result{}, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	res, err := DecodeResult(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: status %d: %w", method, target, resp.StatusCode, err)
	}
	return res, nil
}
