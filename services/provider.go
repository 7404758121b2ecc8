package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DetectionProvider calls the external AI-image-detection API with a
// publicly fetchable image URL and returns whatever JSON body comes back.
// The response schema is not under our control and varies across provider
// API versions, so it is decoded into an untyped map and interpreted
// elsewhere (ExtractAIScore).
type DetectionProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewDetectionProvider(cfg ProviderConfig) *DetectionProvider {
	return &DetectionProvider{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// Detect submits imageURL for analysis. Non-2xx responses with a JSON body
// are still returned as a raw response — the provider reports some
// failures that way and the normalization layer decides what is usable.
func (p *DetectionProvider) Detect(ctx context.Context, imageURL string) (map[string]any, error) {
	payload, err := json.Marshal(map[string]string{"object": imageURL, "url": imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("detection provider returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}
	return raw, nil
}
