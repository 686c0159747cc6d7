package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkaus1/vscode-ai-ext/internal/event"
	"github.com/dkaus1/vscode-ai-ext/internal/orchestrator"
	"github.com/dkaus1/vscode-ai-ext/internal/storage"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// mockResponseWriter implements http.Flusher for testing
type mockResponseWriter struct {
	*httptest.ResponseRecorder
	flushed int
}

func (m *mockResponseWriter) Flush() {
	m.flushed++
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

type noFlushWriter struct{}

func (n *noFlushWriter) Header() http.Header       { return http.Header{} }
func (n *noFlushWriter) Write([]byte) (int, error) { return 0, nil }
func (n *noFlushWriter) WriteHeader(int)           {}

// setupTestServer starts the API in front of an orchestrator whose active
// provider is a mock completion endpoint answering "hello".
func setupTestServer(t *testing.T) (*httptest.Server, *orchestrator.Orchestrator) {
	t.Helper()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`))
	}))
	t.Cleanup(provider.Close)

	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })

	orch := orchestrator.New(orchestrator.Options{
		Config: &types.Config{
			Provider:      "Mock",
			AccessToken:   "sk-test",
			EncryptionKey: types.DefaultEncryptionKey,
			APIProvider: map[string]types.ProviderConfig{
				"Mock":              {EndPointURL: provider.URL, Kind: types.KindCompletion},
				types.ProviderMyAPI: {EndPointURL: provider.URL, Kind: types.KindGeneric},
			},
		},
		Bus:       bus,
		Storage:   storage.New(t.TempDir()),
		Workspace: "test",
	})

	ts := httptest.NewServer(New(DefaultConfig(), orch).Handler())
	t.Cleanup(ts.Close)
	return ts, orch
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNewSSEWriter(t *testing.T) {
	w := newMockResponseWriter()
	sse, err := newSSEWriter(w)
	if err != nil {
		t.Fatalf("newSSEWriter failed: %v", err)
	}
	if sse == nil {
		t.Fatal("SSE writer should not be nil")
	}

	if _, err := newSSEWriter(&noFlushWriter{}); err == nil {
		t.Error("Expected error for writer without Flusher")
	}
}

func TestSSEWriter_WriteEvent(t *testing.T) {
	w := newMockResponseWriter()
	sse, _ := newSSEWriter(w)

	if err := sse.writeEvent("message", []byte(`{"command":"removeLoadingState"}`)); err != nil {
		t.Fatalf("writeEvent failed: %v", err)
	}

	want := "event: message\ndata: {\"command\":\"removeLoadingState\"}\n\n"
	if got := w.Body.String(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if w.flushed == 0 {
		t.Error("Expected Flush to be called")
	}
}

func TestSSEWriter_WriteHeartbeat(t *testing.T) {
	w := newMockResponseWriter()
	sse, _ := newSSEWriter(w)

	sse.writeHeartbeat()

	if body := w.Body.String(); !strings.Contains(body, ": heartbeat\n") {
		t.Errorf("Expected heartbeat comment, got: %s", body)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["provider"] != "Mock" {
		t.Errorf("Unexpected health body: %v", body)
	}
	variants, _ := body["variants"].([]any)
	if len(variants) != 3 || variants[0] != "completion" {
		t.Errorf("Expected the three sorted variants, got %v", body["variants"])
	}
}

func TestListCommands(t *testing.T) {
	ts, orch := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/command")
	if err != nil {
		t.Fatalf("GET /command failed: %v", err)
	}
	defer resp.Body.Close()

	var names []string
	json.NewDecoder(resp.Body).Decode(&names)
	if len(names) != len(orch.Commands()) {
		t.Errorf("Expected %d commands, got %v", len(orch.Commands()), names)
	}
}

func TestPostCommand_Send(t *testing.T) {
	ts, orch := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/command", orchestrator.Command{Command: orchestrator.CmdSend, Text: "hi"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if n := orch.Session().Len(); n != 4 {
		t.Errorf("Expected 4 messages after a turn, got %d", n)
	}
}

func TestPostCommand_Errors(t *testing.T) {
	ts, _ := setupTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"invalid json", "{", http.StatusBadRequest, "Invalid JSON body"},
		{"missing command", `{"text":"hi"}`, http.StatusBadRequest, "command is required"},
		{"unknown command", `{"command":"sned"}`, http.StatusBadRequest, `did you mean "send"?`},
		{"no selection", `{"command":"executeFetchTestingLibraries","userCommand":"writeUnitTests","text":""}`, http.StatusUnprocessableEntity, orchestrator.ErrNoSelection.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/command", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			var result ErrorResponse
			json.NewDecoder(resp.Body).Decode(&result)
			if !strings.Contains(result.Error.Message, tt.want) {
				t.Errorf("Expected message containing %q, got %q", tt.want, result.Error.Message)
			}
		})
	}
}

func TestGetConfig_HidesSecrets(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/config")
	if err != nil {
		t.Fatalf("GET /config failed: %v", err)
	}
	defer resp.Body.Close()

	var raw bytes.Buffer
	raw.ReadFrom(resp.Body)
	if strings.Contains(raw.String(), "sk-test") || strings.Contains(raw.String(), types.DefaultEncryptionKey) {
		t.Errorf("Config leaked a secret: %s", raw.String())
	}
}

func TestSwitchProvider(t *testing.T) {
	ts, orch := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/provider/"+types.ProviderMyAPI, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if orch.Config().Provider != types.ProviderMyAPI {
		t.Errorf("Expected provider %s, got %s", types.ProviderMyAPI, orch.Config().Provider)
	}

	req, _ = http.NewRequest(http.MethodPut, ts.URL+"/provider/Nope", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	ts, orch := setupTestServer(t)
	cfg := *orch.Config()
	cfg.AccessToken = ""
	orch.SetConfig(&cfg)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/auth", strings.NewReader(`{"token":" "}`))
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a blank token, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPut, ts.URL+"/auth", strings.NewReader(`{"token":"sk-stored"}`))
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	send := postJSON(t, ts.URL+"/command", orchestrator.Command{Command: orchestrator.CmdSend, Text: "hi"})
	if send.StatusCode != http.StatusOK {
		t.Errorf("Expected the stored token to be used, got %d", send.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/auth", nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()

	send = postJSON(t, ts.URL+"/command", orchestrator.Command{Command: orchestrator.CmdSend, Text: "hi"})
	if send.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", send.StatusCode)
	}
}

func TestEvents_StreamsCommandOutcome(t *testing.T) {
	ts, _ := setupTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/event", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /event failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Expected Content-Type text/event-stream, got %s", ct)
	}

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	// The stream is subscribed once the connected comment arrives.
	for line := range lines {
		if line == ": connected" {
			break
		}
	}

	go func() {
		data, _ := json.Marshal(orchestrator.Command{Command: orchestrator.CmdSend, Text: "hi"})
		r, err := http.Post(ts.URL+"/command", "application/json", bytes.NewReader(data))
		if err == nil {
			r.Body.Close()
		}
	}()

	var commands []string
	for line := range lines {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
			t.Fatalf("Invalid event payload %q: %v", line, err)
		}
		commands = append(commands, payload["command"].(string))
		if payload["command"] == string(event.UpdateResultSuccess) {
			data := payload["data"].(map[string]any)
			if data["finish_reason"] != "stop" {
				t.Errorf("Expected finish_reason stop, got %v", data["finish_reason"])
			}
			break
		}
	}

	want := []string{string(event.ShowLoadingState), string(event.UpdateResultSuccess)}
	if strings.Join(commands, ",") != strings.Join(want, ",") {
		t.Errorf("Expected events %v, got %v", want, commands)
	}
}
