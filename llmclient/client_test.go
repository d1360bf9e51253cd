package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-agent/config"
	"rental-agent/web/types"

	"go.uber.org/zap"
)

func testClient() *Client {
	return New(&config.Config{
		LLMRequestTimeout:     5 * time.Second,
		MaxRetries:            3,
		RetryDelaySeconds:     time.Millisecond,
		LLMBackoffMaxSeconds:  10 * time.Millisecond,
		LLMBackoffJitterRatio: 0.1,
	}, zap.NewNop())
}

func TestChatDecodesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"",
			"tool_calls":[{"id":"call_1","type":"function",
			"function":{"name":"search_listings","arguments":"{\"query\":\"loft\"}"}}]}}]}`))
	}))
	defer server.Close()

	result, err := testClient().Chat(context.Background(), server.URL, []types.AgentMessage{{Role: "user", Content: "hi"}}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "search_listings" {
		t.Errorf("tool call = %+v", call)
	}
	if call.Arguments != `{"query":"loft"}` {
		t.Errorf("arguments = %q", call.Arguments)
	}
}

func TestChatRetriesWhileModelLoading(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ready"}}]}`))
	}))
	defer server.Close()

	result, err := testClient().Chat(context.Background(), server.URL, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "ready" {
		t.Errorf("content = %q", result.Content)
	}
	if hits != 3 {
		t.Errorf("expected 3 attempts, got %d", hits)
	}
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	if _, err := testClient().Chat(context.Background(), server.URL, nil, nil, nil); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestChatTransportErrorBacksOffBetweenAttempts(t *testing.T) {
	// A server that is immediately closed yields connection-refused on every
	// attempt
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := testClient()
	start := time.Now()
	_, err := client.Chat(context.Background(), server.URL, nil, nil, nil)
	if err == nil {
		t.Fatal("expected an error when the server is unreachable")
	}
	// 3 attempts with millisecond-scale backoff between the first two
	// failures; a tight retry loop would finish in microseconds
	if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
		t.Errorf("attempts completed in %v, expected backoff between retries", elapsed)
	}
}

func TestChatZeroRetriesStillAttemptsOnce(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	client := New(&config.Config{
		LLMRequestTimeout: 5 * time.Second,
		RetryDelaySeconds: time.Millisecond,
	}, zap.NewNop())

	result, err := client.Chat(context.Background(), server.URL, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "ok" || hits != 1 {
		t.Errorf("content = %q, hits = %d", result.Content, hits)
	}
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"embedding":[[0.1,0.2,0.3]]}]`))
	}))
	defer server.Close()

	vec, err := testClient().Embed(context.Background(), server.URL, "beach house")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vector = %v", vec)
	}
}
