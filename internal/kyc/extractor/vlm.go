package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/pkg/config"
)

// JPEG and PNG magic bytes for image detection
var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
)

const extractionPrompt = `You are an expert identity document extractor.
Extract all visible identity fields from the image.
Return ONLY valid JSON using these keys:
document_type, first_name, last_name, date_of_birth, gender, nationality,
document_number, issue_date, expiry_date, issuing_country, address,
mrz_raw, confidence_score, other_fields.
Use null when unknown.`

// VLMExtractor extracts document fields by sending images to an
// OpenAI-compatible vision model endpoint.
type VLMExtractor struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewVLMExtractor creates an extractor for the given endpoint
func NewVLMExtractor(cfg *config.ExtractorConfig) *VLMExtractor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // Vision inference can take tens of seconds
	}
	return &VLMExtractor{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Extract sends the document image to the model and returns the raw
// payload plus usage and performance reports.
func (e *VLMExtractor) Extract(ctx context.Context, doc Document) (*domain.RawExtraction, error) {
	if !isImageData(doc.Data) {
		return nil, fmt.Errorf("vlm: %s is not a JPEG or PNG image", doc.Filename)
	}

	reqBody := chatCompletionRequest{
		Model: e.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []chatContent{
					{Type: "text", Text: extractionPrompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(doc.Data),
					}},
				},
			},
		},
		Temperature:    0,
		TopP:           0.95,
		MaxTokens:      1024,
		ResponseFormat: responseFormat{Type: "json_object"},
		PerfMetrics:    true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("vlm: marshal request: %w", err)
	}

	url := e.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vlm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vlm: model request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vlm: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vlm: model returned %d: %s", resp.StatusCode, string(respBody))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("vlm: parse response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("vlm: response contains no choices")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	var payload map[string]any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("vlm: model content is not valid JSON: %w", err)
	}

	raw := &domain.RawExtraction{
		Payload: payload,
		Perf:    completion.PerfMetrics,
	}
	if completion.Usage != nil {
		raw.Usage = &domain.UsageReport{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		}
	}

	return raw, nil
}

// isImageData checks for JPEG or PNG magic bytes at the start of the data.
func isImageData(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return bytes.HasPrefix(data, jpegMagic) || bytes.HasPrefix(data, pngMagic)
}

// Request/response mirrors for the OpenAI-compatible chat completions API

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	TopP           float64        `json:"top_p"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
	PerfMetrics    bool           `json:"perf_metrics_in_response"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage       *usageBody        `json:"usage"`
	PerfMetrics map[string]string `json:"perf_metrics"`
}

type usageBody struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}
