package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

const anthropicOK = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-latest","content":[{"type":"text","text":"# Title"}],"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":3}}`

func TestAnthropicClient_Send(t *testing.T) {
	var body []byte
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		if key := r.Header.Get("X-Api-Key"); key != "test-key" {
			t.Errorf("unexpected api key: %s", key)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(anthropicOK))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	resp, err := client.Send(context.Background(), &ChatRequest{
		Model: "claude-3-5-sonnet-latest",
		Messages: []Message{
			{Role: RoleSystem, Content: "system text"},
			{Role: RoleSystem, Content: "continuity"},
			{Role: RoleUser, Images: []Image{{MIMEType: "image/png", Base64: "QUJD"}}},
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if !strings.HasSuffix(path, "/v1/messages") {
		t.Errorf("path = %q", path)
	}
	if resp.Provider != AnthropicName {
		t.Errorf("Provider = %q", resp.Provider)
	}
	if gjson.GetBytes(resp.Body, "usage.input_tokens").Int() != 12 {
		t.Errorf("Body = %s", resp.Body)
	}

	if got := gjson.GetBytes(body, "max_tokens").Int(); got != anthropicMaxTokens {
		t.Errorf("max_tokens = %d", got)
	}
	if got := gjson.GetBytes(body, "system.0.text").String(); got != "system text\n\ncontinuity" {
		t.Errorf("system = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.0.content.0.type").String(); got != "image" {
		t.Errorf("content type = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.0.content.0.source.media_type").String(); got != "image/png" {
		t.Errorf("media_type = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.0.content.0.source.data").String(); got != "QUJD" {
		t.Errorf("data = %q", got)
	}
}

func TestAnthropicClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"error","error":{"type":"not_found_error","message":"model: nope"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicConfig{APIKey: "k", BaseURL: server.URL})

	err := client.CheckAccess(context.Background(), "nope")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", se.StatusCode)
	}
}
