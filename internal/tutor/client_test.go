package tutor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// startServer runs a fake generateContent endpoint, recording the last
// request body and replying with the given handler response.
func startServer(t *testing.T, respond func(w http.ResponseWriter)) (*httptest.Server, *map[string]any) {
	t.Helper()
	var lastBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&lastBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		respond(w)
	}))
	t.Cleanup(srv.Close)
	return srv, &lastBody
}

func textResponse(text string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
				},
			}},
		})
	}
}

func newClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := New("test-key", append([]Option{WithBaseURL(url)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAskSendsPersonaHistoryAndTool(t *testing.T) {
	t.Parallel()

	srv, body := startServer(t, textResponse("Photosynthesis makes food."))
	c := newClient(t, srv.URL, WithGradeLevel("Class 12"))

	history := []Turn{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleModel, Text: "hi, what shall we study?"},
	}
	ans, err := c.Ask(context.Background(), "explain photosynthesis", history, nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != "Photosynthesis makes food." {
		t.Errorf("Text = %q", ans.Text)
	}

	raw, _ := json.Marshal(*body)
	req := string(raw)
	if !strings.Contains(req, "Class 12") {
		t.Error("system instruction should carry the grade level")
	}
	if !strings.Contains(req, "googleSearch") {
		t.Error("request should enable the googleSearch tool")
	}

	contents := (*body)["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("contents has %d entries; want history + prompt = 3", len(contents))
	}
	last := contents[2].(map[string]any)
	if last["role"] != "user" {
		t.Errorf("final content role = %v; want user", last["role"])
	}
}

func TestAskAttachesInlineData(t *testing.T) {
	t.Parallel()

	srv, body := startServer(t, textResponse("It is a frog."))
	c := newClient(t, srv.URL)

	att := &Attachment{Data: base64.StdEncoding.EncodeToString([]byte("pdfbytes")), MIMEType: "application/pdf"}
	if _, err := c.Ask(context.Background(), "what animal is this?", nil, att); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	contents := (*body)["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("got %d parts; want text + attachment", len(parts))
	}
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	if inline["mimeType"] != "application/pdf" {
		t.Errorf("attachment mimeType = %v", inline["mimeType"])
	}
}

func TestAskExtractsCitations(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "The Narmada rises at Amarkantak."}},
				},
				"groundingMetadata": map[string]any{
					"groundingChunks": []map[string]any{
						{"web": map[string]any{"uri": "https://example.org/narmada", "title": "Narmada"}},
						{"retrievedContext": map[string]any{"uri": "ignored"}},
					},
				},
			}},
		})
	})
	c := newClient(t, srv.URL)

	ans, err := c.Ask(context.Background(), "where does the Narmada rise?", nil, nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(ans.Citations) != 1 {
		t.Fatalf("got %d citations; want 1 (non-web chunks skipped)", len(ans.Citations))
	}
	if ans.Citations[0].URI != "https://example.org/narmada" || ans.Citations[0].Title != "Narmada" {
		t.Errorf("citation = %+v", ans.Citations[0])
	}
}

func TestAskEmptyResponse(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})
	c := newClient(t, srv.URL)

	if _, err := c.Ask(context.Background(), "anything", nil, nil); !errors.Is(err, ErrNoText) {
		t.Errorf("err = %v; want ErrNoText", err)
	}
}

func TestAskAPIError(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded"},
		})
	})
	c := newClient(t, srv.URL)

	_, err := c.Ask(context.Background(), "anything", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v; want quota message", err)
	}
}

func TestGenerateImage(t *testing.T) {
	t.Parallel()

	png := []byte{0x89, 'P', 'N', 'G'}
	srv, body := startServer(t, func(w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(png),
						},
					}},
				},
			}},
		})
	})
	c := newClient(t, srv.URL)

	img, err := c.GenerateImage(context.Background(), "the water cycle")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if img.MIMEType != "image/png" || string(img.Data) != string(png) {
		t.Errorf("image = %+v", img)
	}

	contents := (*body)["contents"].([]any)
	text := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.HasPrefix(text, imagePromptPrefix) {
		t.Errorf("image prompt %q lacks the educational prefix", text)
	}
	if _, hasTools := (*body)["tools"]; hasTools {
		t.Error("image requests must not carry the search tool")
	}
}

func TestGenerateImageNoImagePart(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, textResponse("cannot draw that"))
	c := newClient(t, srv.URL)

	if _, err := c.GenerateImage(context.Background(), "x"); !errors.Is(err, ErrNoImage) {
		t.Errorf("err = %v; want ErrNoImage", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Error("empty api key should be rejected")
	}
}

func TestSystemInstructionDefaultsGradeLevel(t *testing.T) {
	t.Parallel()

	if got := SystemInstruction(""); !strings.Contains(got, DefaultGradeLevel) {
		t.Error("empty grade level should fall back to the default")
	}
	if got := SystemInstruction("Class 12"); !strings.Contains(got, "Class 12") {
		t.Error("grade level should appear in the instruction")
	}
}
