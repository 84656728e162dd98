// Package tutor implements the content-generation client behind the voice
// engines: grounded question answering with optional file attachments, and
// educational image generation. Responses carry the directive markup the
// persona mandates; pkg/speech strips it before synthesis.
package tutor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel      = "gemini-3-flash-preview"
	defaultImageModel = "gemini-2.5-flash-image"
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultTimeout    = 60 * time.Second

	// imagePromptPrefix steers the image model toward diagram/illustration
	// output instead of photographic scenes.
	imagePromptPrefix = "High quality educational diagram or illustration: "
)

var (
	// ErrNoText is returned when the model answers without any text part.
	ErrNoText = errors.New("tutor: response contains no text")

	// ErrNoImage is returned when the image model answers without an image
	// part. Callers fall back to text-only rendering.
	ErrNoImage = errors.New("tutor: response contains no image")
)

// Role identifies a conversation side in chat history.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior exchange entry passed back as chat history.
type Turn struct {
	Role Role
	Text string
}

// Attachment is a file sent alongside a question, already base64-encoded.
type Attachment struct {
	Data     string
	MIMEType string
}

// Citation is one grounding source backing an answer.
type Citation struct {
	URI   string
	Title string
}

// Answer is the model's reply to one Ask call.
type Answer struct {
	Text      string
	Citations []Citation
}

// Image is one generated illustration.
type Image struct {
	Data     []byte
	MIMEType string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithModel sets the answer model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithImageModel sets the image-generation model.
func WithImageModel(model string) Option {
	return func(c *Client) { c.imageModel = model }
}

// WithBaseURL overrides the API base URL. Primarily used in tests to point
// at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithGradeLevel sets the grade level baked into the tutoring persona.
func WithGradeLevel(level string) Option {
	return func(c *Client) { c.gradeLevel = level }
}

// Client talks to the generateContent endpoint with the tutoring persona
// and web-search grounding enabled.
type Client struct {
	apiKey     string
	model      string
	imageModel string
	baseURL    string
	gradeLevel string
	httpClient *http.Client
}

// New creates a tutor Client. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("tutor: apiKey must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		imageModel: defaultImageModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ── Protocol message types ─────────────────────────────────────────────────

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Tools             []tool    `json:"tools,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content           content            `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *webSource `json:"web,omitempty"`
}

type webSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// ── Client methods ─────────────────────────────────────────────────────────

// Ask sends prompt with the accumulated history and an optional attachment,
// returning the answer text and any web grounding citations.
func (c *Client) Ask(ctx context.Context, prompt string, history []Turn, attachment *Attachment) (*Answer, error) {
	contents := make([]content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, content{
			Role:  string(t.Role),
			Parts: []part{{Text: t.Text}},
		})
	}
	parts := []part{{Text: prompt}}
	if attachment != nil {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: attachment.MIMEType,
			Data:     attachment.Data,
		}})
	}
	contents = append(contents, content{Role: string(RoleUser), Parts: parts})

	req := generateRequest{
		Contents: contents,
		SystemInstruction: &content{
			Parts: []part{{Text: SystemInstruction(c.gradeLevel)}},
		},
		Tools: []tool{{GoogleSearch: &struct{}{}}},
	}
	gr, err := c.generate(ctx, c.model, req)
	if err != nil {
		return nil, err
	}

	answer := &Answer{}
	var text strings.Builder
	for _, cand := range gr.Candidates {
		for _, pt := range cand.Content.Parts {
			text.WriteString(pt.Text)
		}
		if cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			answer.Citations = append(answer.Citations, Citation{
				URI:   chunk.Web.URI,
				Title: chunk.Web.Title,
			})
		}
	}
	answer.Text = text.String()
	if answer.Text == "" {
		return nil, ErrNoText
	}
	return answer, nil
}

// GenerateImage renders prompt as an educational illustration.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: imagePromptPrefix + prompt}}}},
	}
	gr, err := c.generate(ctx, c.imageModel, req)
	if err != nil {
		return nil, err
	}

	for _, cand := range gr.Candidates {
		for _, pt := range cand.Content.Parts {
			if pt.InlineData == nil || pt.InlineData.Data == "" {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(pt.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("tutor: decode image: %w", err)
			}
			return &Image{Data: raw, MIMEType: pt.InlineData.MIMEType}, nil
		}
	}
	return nil, ErrNoImage
}

func (c *Client) generate(ctx context.Context, model string, body generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("tutor: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tutor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tutor: generate: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tutor: read response: %w", err)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, fmt.Errorf("tutor: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if gr.Error != nil && gr.Error.Message != "" {
			return nil, fmt.Errorf("tutor: generate: %s (status %d)", gr.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("tutor: generate: unexpected status %d", resp.StatusCode)
	}
	return &gr, nil
}
