package augur

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"market-intel/internal/apperr"
)

const chatTemperature = 0.2

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive int            `json:"keep_alive"`
	Format    map[string]any `json:"format"`
	Options   map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// chatJSON sends one user prompt constrained to the given JSON schema and
// unmarshals the assistant reply into out.
func chatJSON(ctx context.Context, client *http.Client, baseURL, model, prompt string, format map[string]any, out any) error {
	reqBody := chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Stream:    false,
		KeepAlive: -1,
		Format:    format,
		Options:   map[string]any{"temperature": chatTemperature},
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimRight(baseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperr.TimeoutError("chat endpoint timed out", err, map[string]any{"model": model})
		}
		return apperr.UpstreamError("failed to call chat endpoint", err, map[string]any{"model": model})
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperr.AuthError("chat endpoint rejected credentials", nil,
			map[string]any{"model": model, "status": resp.StatusCode})
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return apperr.UpstreamError(
			fmt.Sprintf("chat endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 500)),
			nil, map[string]any{"model": model})
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return apperr.SchemaError("failed to decode chat response", err, map[string]any{"model": model})
	}

	content := strings.TrimSpace(chatResp.Message.Content)
	if content == "" {
		return apperr.SchemaError("chat endpoint returned empty content", nil, map[string]any{"model": model})
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return apperr.SchemaError("failed to parse structured reply", err, map[string]any{"model": model})
	}
	return nil
}
