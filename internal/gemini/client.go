package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	ModelImage = "gemini-2.5-flash-image"

	defaultMIMEType = "image/png"
)

type Options struct {
	// APIKey is the process-wide fallback used when a call passes no key.
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = ModelImage
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasDefaultKey reports whether a process-wide key is configured.
func (c *Client) HasDefaultKey() bool {
	return c.apiKey != ""
}

// RequestImage sends prompt to the image model once. apiKey takes precedence
// over the configured key. A successful response without an image part
// yields (nil, nil). Provider and transport errors are returned as they
// come, without retry.
func (c *Client) RequestImage(ctx context.Context, prompt, aspectRatio, apiKey string) (*Image, error) {
	token := strings.TrimSpace(apiKey)
	if token == "" {
		token = c.apiKey
	}
	if token == "" {
		return nil, ErrMissingCredential
	}

	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &imageConfig{AspectRatio: aspectRatio},
		},
	}

	c.logger.Debug("gemini image request", "model", c.model, "aspect_ratio", aspectRatio, "prompt_len", len(prompt))

	parts, err := c.generateContent(ctx, token, req)
	if err != nil {
		return nil, err
	}

	img, ok := FirstImage(parts)
	if !ok {
		c.logger.Debug("gemini response carried no image", "parts", len(parts))
		return nil, nil
	}
	return &Image{MIMEType: img.MIMEType, Data: img.Data}, nil
}

func (c *Client) generateContent(ctx context.Context, token string, payload generateContentRequest) ([]Part, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", token)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			Body:       strings.TrimSpace(string(rawBody)),
		}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return decodeParts(decoded)
}

// decodeParts turns the first candidate's wire parts into typed parts.
func decodeParts(resp generateContentResponse) ([]Part, error) {
	if len(resp.Candidates) == 0 {
		return nil, nil
	}

	wire := resp.Candidates[0].Content.Parts
	out := make([]Part, 0, len(wire))
	for _, p := range wire {
		switch {
		case p.InlineData != nil && p.InlineData.Data != "":
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			mimeType := p.InlineData.MimeType
			if mimeType == "" {
				mimeType = defaultMIMEType
			}
			out = append(out, InlineDataPart{MIMEType: mimeType, Data: data})
		case p.Text != "":
			out = append(out, TextPart{Text: p.Text})
		}
	}
	return out, nil
}

// IsAPIStatus reports whether err is an APIError with one of the codes.
func IsAPIStatus(err error, codes ...int) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.StatusCode == code {
			return true
		}
	}
	return false
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
