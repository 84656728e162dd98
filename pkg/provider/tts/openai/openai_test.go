package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eklavya-ai/guruvoice/pkg/provider/tts"
)

func TestSynthesize(t *testing.T) {
	t.Parallel()

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/pcm")
		w.Write(pcm)
	}))
	defer srv.Close()

	p, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Synthesize(context.Background(), "hello", tts.VoiceProfile{ID: "coral"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(got) != string(pcm) {
		t.Errorf("got pcm %v, want %v", got, pcm)
	}

	if gotReq["input"] != "hello" {
		t.Errorf("input = %v", gotReq["input"])
	}
	if gotReq["voice"] != "coral" {
		t.Errorf("voice = %v, want coral", gotReq["voice"])
	}
	if gotReq["response_format"] != "pcm" {
		t.Errorf("response_format = %v, want pcm", gotReq["response_format"])
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Error("expected error for empty api key")
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f := p.Format()
	if f.SampleRate != 24000 || f.Channels != 1 {
		t.Errorf("unexpected format %+v", f)
	}
}
