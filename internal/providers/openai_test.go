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

func TestOpenAIClient_Send(t *testing.T) {
	var body []byte
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization: %s", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatOK))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	resp, err := client.Send(context.Background(), &ChatRequest{
		Model: "gpt-4o",
		Messages: []Message{
			{Role: RoleSystem, Content: "system text"},
			{Role: RoleSystem, Content: "continuity"},
			{Role: RoleUser, Images: []Image{{MIMEType: "image/png", Base64: "QUJD"}}},
		},
		Options: map[string]any{"temperature": 0.5},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if !strings.HasSuffix(path, "/chat/completions") {
		t.Errorf("path = %q", path)
	}
	if resp.Provider != OpenAIName {
		t.Errorf("Provider = %q", resp.Provider)
	}
	if gjson.GetBytes(resp.Body, "choices.0.message.content").String() != "Hello!" {
		t.Errorf("Body = %s", resp.Body)
	}

	if got := gjson.GetBytes(body, "model").String(); got != "gpt-4o" {
		t.Errorf("model = %q", got)
	}
	if got := gjson.GetBytes(body, "temperature").Float(); got != 0.5 {
		t.Errorf("temperature = %v", got)
	}
	if got := gjson.GetBytes(body, "messages.#").Int(); got != 3 {
		t.Fatalf("messages = %d, want 3", got)
	}
	if got := gjson.GetBytes(body, "messages.0.role").String(); got != "system" {
		t.Errorf("messages.0.role = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.1.content").String(); got != "continuity" {
		t.Errorf("messages.1.content = %q", got)
	}
	if got := gjson.GetBytes(body, "messages.2.content.0.image_url.url").String(); got != "data:image/png;base64,QUJD" {
		t.Errorf("image url = %q", got)
	}
}

func TestOpenAIClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "bad", BaseURL: server.URL})

	t.Run("send", func(t *testing.T) {
		_, err := client.Send(context.Background(), &ChatRequest{Model: "gpt-4o"})
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected StatusError, got %v", err)
		}
		if se.StatusCode != http.StatusUnauthorized || se.Provider != OpenAIName {
			t.Errorf("StatusError = %+v", se)
		}
	})

	t.Run("check access", func(t *testing.T) {
		if err := client.CheckAccess(context.Background(), "gpt-4o"); err == nil {
			t.Error("expected access error")
		}
	})
}

func TestDeepInfraClient(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"meta-llama/Llama-3.2-11B-Vision-Instruct","object":"model"}`))
	}))
	defer server.Close()

	client := NewDeepInfraClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	if client.Name() != DeepInfraName {
		t.Errorf("Name() = %q", client.Name())
	}
	if err := client.CheckAccess(context.Background(), "meta-llama/Llama-3.2-11B-Vision-Instruct"); err != nil {
		t.Fatalf("CheckAccess() error = %v", err)
	}
	if !strings.Contains(path, "/models/") {
		t.Errorf("path = %q", path)
	}
}
