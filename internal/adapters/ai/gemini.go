package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/ratelimit"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiProvider calls the Gemini generateContent REST API
type GeminiProvider struct {
	apiKey  string
	model   string
	timeout time.Duration
	limiter *ratelimit.Limiter
	client  *http.Client
}

// Ensure GeminiProvider implements Generator
var _ Generator = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(apiKey, model string, timeout time.Duration, limiter *ratelimit.Limiter) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		limiter: limiter,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() ProviderName { return ProviderNameGoogle }

// Gemini request/response types

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Generate sends a generateContent request to the Gemini API
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if p.apiKey == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "gemini API key not configured")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	geminiReq := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	}

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return "", errors.Wrap(err, "marshal gemini request")
	}

	url := fmt.Sprintf("%s/%s:generateContent", geminiAPIBase, p.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "create HTTP request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrapf(errors.ErrUnavailable, "send gemini request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read gemini response")
	}

	if resp.StatusCode != http.StatusOK {
		// 5xx and 429 are transient from the caller's point of view
		sentinel := errors.ErrExternal
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			sentinel = errors.ErrUnavailable
		}
		var errResp struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
				Status  string `json:"status"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return "", errors.Wrapf(sentinel, "gemini API error (%d): %s - %s",
				resp.StatusCode, errResp.Error.Status, errResp.Error.Message)
		}
		return "", errors.Wrapf(sentinel, "gemini API error (%d): %s",
			resp.StatusCode, string(respBody))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", errors.Wrap(err, "unmarshal gemini response")
	}

	text := extractGeminiText(geminiResp)
	if text == "" {
		return "", errors.Wrap(errors.ErrExternal, "gemini returned no text candidates")
	}
	return text, nil
}

// extractGeminiText pulls the first candidate's concatenated text parts
func extractGeminiText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
