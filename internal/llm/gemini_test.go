package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompleteSendsPromptAndKey(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Paris"}]}}],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 2}
		}`)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "test-model", testLogger())

	comp, err := client.Complete(context.Background(), "Capital of France?")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if gotPath != "/v1beta/models/test-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 {
		t.Fatalf("request contents = %+v", gotBody.Contents)
	}
	if gotBody.Contents[0].Parts[0].Text != "Capital of France?" {
		t.Errorf("prompt = %q", gotBody.Contents[0].Parts[0].Text)
	}

	if comp.Text != "Paris" {
		t.Errorf("text = %q, want Paris", comp.Text)
	}
	if comp.InputTokens != 7 || comp.OutputTokens != 2 {
		t.Errorf("tokens = %d/%d, want 7/2", comp.InputTokens, comp.OutputTokens)
	}
	if comp.Model != "test-model" {
		t.Errorf("model = %q", comp.Model)
	}
}

func TestCompleteJoinsMultipleParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "Hello, "}, {"text": "world."}]}}]}`)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "k", "m", testLogger())
	comp, err := client.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if comp.Text != "Hello, world." {
		t.Errorf("text = %q", comp.Text)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"message": "key not valid"}}`)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "bad-key", "m", testLogger())
	_, err := client.Complete(context.Background(), "hi")
	if err == nil {
		t.Fatal("Complete succeeded against a 403")
	}
	if !strings.Contains(err.Error(), "API error 403") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(err.Error(), "key not valid") {
		t.Errorf("error %v missing provider message", err)
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/m:streamGenerateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("alt = %q, want sse", r.URL.Query().Get("alt"))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"Hel\"}]}}]}\n\n")
		fmt.Fprint(w, ": keepalive comment, must be ignored\n\n")
		fmt.Fprint(w, "data: {\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"lo\"}]}}], \"usageMetadata\": {\"promptTokenCount\": 3, \"candidatesTokenCount\": 1}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "k", "m", testLogger())

	var tokens []string
	comp, err := client.Stream(context.Background(), "hi", func(token string) {
		tokens = append(tokens, token)
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if len(tokens) != 2 || tokens[0] != "Hel" || tokens[1] != "lo" {
		t.Errorf("tokens = %v", tokens)
	}
	if comp.Text != "Hello" {
		t.Errorf("final text = %q, want Hello", comp.Text)
	}
	if comp.InputTokens != 3 || comp.OutputTokens != 1 {
		t.Errorf("tokens = %d/%d, want 3/1", comp.InputTokens, comp.OutputTokens)
	}
}

func TestStreamSkipsMalformedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: this is not json\n\n")
		fmt.Fprint(w, "data: {\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"ok\"}]}}]}\n\n")
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "k", "m", testLogger())
	comp, err := client.Stream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if comp.Text != "ok" {
		t.Errorf("text = %q, want ok", comp.Text)
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "not found", status: http.StatusNotFound, wantErr: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("method = %q, want GET", r.Method)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewGeminiClient(srv.URL, "k", "m", testLogger())
			err := client.Ping(context.Background())
			if tt.wantErr && err == nil {
				t.Error("Ping succeeded, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Ping failed: %v", err)
			}
		})
	}
}

func TestDefaultBaseURL(t *testing.T) {
	client := NewGeminiClient("", "k", "m", testLogger())
	if client.baseURL != DefaultGeminiBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, DefaultGeminiBaseURL)
	}

	client = NewGeminiClient("https://example.com/", "k", "m", testLogger())
	if client.baseURL != "https://example.com" {
		t.Errorf("trailing slash not trimmed: %q", client.baseURL)
	}
}
