package engines

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxRequestTextSize guards against requests the provider would reject
// outright; the planner keeps batches far below this.
const maxRequestTextSize = 5000

// GeminiConfig holds configuration for the Gemini engine.
type GeminiConfig struct {
	// APIKey authenticates against the generativelanguage API.
	APIKey string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string

	// RequestsPerMinute is a client-side throttle applied before every
	// call, independent of server-side rate limiting (defaults to 10).
	RequestsPerMinute int

	// Timeout bounds a single HTTP exchange (defaults to 120s; audio
	// generation for a full batch is slow).
	Timeout time.Duration
}

// GeminiEngine synthesizes speech through the generativelanguage
// generateContent endpoint with an audio response modality.
type GeminiEngine struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewGemini creates a Gemini-backed synthesizer.
func NewGemini(cfg GeminiConfig) (*GeminiEngine, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &GeminiEngine{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

// Name implements Synthesizer.
func (e *GeminiEngine) Name() string { return "gemini" }

// Wire types for the generateContent call.

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig struct {
		VoiceName string `json:"voiceName"`
	} `json:"prebuiltVoiceConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	Temperature        float64             `json:"temperature"`
	SpeechConfig       *geminiSpeechConfig `json:"speechConfig,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Synthesize performs one speech generation call and returns the decoded
// PCM payload.
func (e *GeminiEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.Text == "" {
		return nil, errors.New("gemini: text cannot be empty")
	}
	if n := utf8.RuneCountInString(req.Text); n > maxRequestTextSize {
		return nil, fmt.Errorf("gemini: text too long: %d characters (max %d)", n, maxRequestTextSize)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gemini: throttle wait cancelled: %w", err)
	}

	genCfg := &geminiGenerationConfig{
		ResponseModalities: []string{"AUDIO"},
		Temperature:        req.Temperature,
		SpeechConfig:       &geminiSpeechConfig{},
	}
	genCfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = req.Voice

	body := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: req.Text}}}},
		GenerationConfig: genCfg,
	}

	resp, err := e.generateContent(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, derr := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if derr != nil {
				return nil, fmt.Errorf("gemini: decoding audio payload: %w", derr)
			}
			return pcm, nil
		}
	}
	return nil, nil // no audio payload; the pipeline maps this to its own error
}

// GenerateText performs a plain text-reasoning call, used by the
// script-authoring tooling outside the synthesis pipeline.
func (e *GeminiEngine) GenerateText(ctx context.Context, model, prompt, systemInstruction string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("gemini: throttle wait cancelled: %w", err)
	}

	if systemInstruction == "" {
		systemInstruction = "You are a creative writing assistant for story narrators."
	}
	body := geminiRequest{
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
	}

	resp, err := e.generateContent(ctx, model, body)
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", nil
}

// generateContent posts a request to the model endpoint and surfaces API
// errors with their status code and message preserved, since the caller
// classifies failures by message content.
func (e *GeminiEngine) generateContent(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", e.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", e.apiKey)

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer httpResp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: reading response: %w", err)
	}

	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil && httpResp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("gemini: decoding response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		if resp.Error != nil && resp.Error.Message != "" {
			return nil, fmt.Errorf("gemini: %d %s: %s", httpResp.StatusCode, resp.Error.Status, resp.Error.Message)
		}
		return nil, fmt.Errorf("gemini: unexpected status %d: %s", httpResp.StatusCode, bytes.TrimSpace(raw))
	}
	return &resp, nil
}
