package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestConfig_KindOf(t *testing.T) {
	cfg := &Config{
		APIProvider: map[string]ProviderConfig{
			"Custom":      {EndPointURL: "http://example", Kind: KindCompletion},
			ProviderMyAPI: {EndPointURL: "http://localhost:5000/predictions"},
		},
	}

	tests := []struct {
		key  string
		want ProviderKind
	}{
		{ProviderOpenAI, KindCompletion},
		{ProviderPSChat, KindThread},
		{ProviderMyAPI, KindGeneric},
		{"Custom", KindCompletion},
		{"Unknown", KindGeneric},
	}

	for _, tt := range tests {
		if got := cfg.KindOf(tt.key); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg *Config
	if cfg.GetMaxTokens() != DefaultMaxTokens {
		t.Errorf("expected default max tokens, got %d", cfg.GetMaxTokens())
	}
	if cfg.GetModelMaxTokensLength() != DefaultModelMaxTokensLength {
		t.Errorf("expected default context window, got %d", cfg.GetModelMaxTokensLength())
	}
	if cfg.GetTemperature() != DefaultTemperature {
		t.Errorf("expected default temperature, got %v", cfg.GetTemperature())
	}

	temp := 0.2
	cfg = &Config{MaxTokens: 2048, Temperature: &temp}
	if cfg.GetMaxTokens() != 2048 {
		t.Errorf("expected 2048, got %d", cfg.GetMaxTokens())
	}
	if cfg.GetTemperature() != 0.2 {
		t.Errorf("expected 0.2, got %v", cfg.GetTemperature())
	}
}

func TestChatHistory_JSON(t *testing.T) {
	history := ChatHistory{
		Messages: []*schema.Message{
			{Role: schema.System, Content: "sys"},
			{Role: schema.User, Content: "hi"},
		},
		TokenUsageLedger: []*schema.TokenUsage{{TotalTokens: 42}},
		ProviderThreadID: "thread-1",
		UIHistory:        []json.RawMessage{json.RawMessage(`{"html":"<p>hi</p>"}`)},
	}

	data, err := json.Marshal(history)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, key := range []string{`"messages"`, `"tokenUsageLedger"`, `"providerThreadId"`, `"uiHistory"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}

	var decoded ChatHistory
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.TokenUsageLedger[0].TotalTokens != 42 {
		t.Errorf("ledger mismatch: got %d", decoded.TokenUsageLedger[0].TotalTokens)
	}
	if string(decoded.UIHistory[0]) != `{"html":"<p>hi</p>"}` {
		t.Errorf("ui history not passed through: %s", decoded.UIHistory[0])
	}
	if decoded.IsEmpty() {
		t.Error("expected non-empty history")
	}
	if !(&ChatHistory{}).IsEmpty() {
		t.Error("expected empty history")
	}
}

func TestSystemMessages(t *testing.T) {
	msgs := SystemMessages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 system messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.Role != schema.System {
			t.Errorf("expected system role, got %s", m.Role)
		}
	}

	// Each call returns fresh copies.
	msgs[0].Content = "mutated"
	if SystemMessages()[0].Content == "mutated" {
		t.Error("SystemMessages returned shared state")
	}
}

func TestStatusError(t *testing.T) {
	err := StatusError(412, "Precondition Failed")
	if err.Kind != ErrorKindAuth {
		t.Errorf("expected auth kind, got %s", err.Kind)
	}
	if !strings.Contains(err.Error(), "status code: 412") || !strings.Contains(err.Error(), MsgTokenExpired) {
		t.Errorf("unexpected message: %s", err.Error())
	}

	err = StatusError(500, "Internal Server Error")
	if err.Kind != ErrorKindTransport {
		t.Errorf("expected transport kind, got %s", err.Kind)
	}
	if err.Error() != "API call failed with status code: 500 and error message: Internal Server Error" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestAPIError_Helpers(t *testing.T) {
	abort := NewAbortError("")
	if abort.Error() != MsgAbortedByUser || !abort.Aborted {
		t.Errorf("unexpected abort error: %+v", abort)
	}

	wrapped := fmt.Errorf("fetch: %w", abort)
	if !IsAborted(wrapped) {
		t.Error("expected IsAborted through wrapping")
	}

	plain := errors.New("boom")
	apiErr := AsAPIError(plain)
	if apiErr.Kind != ErrorKindTransport || apiErr.Message != "boom" || !errors.Is(apiErr, plain) {
		t.Errorf("unexpected normalization: %+v", apiErr)
	}

	if AuthDetail(StatusError(401, "Unauthorized")) != MsgTokenInvalid {
		t.Error("expected invalid token hint for 401")
	}
	if AuthDetail(StatusError(412, "Precondition Failed")) != MsgTokenExpired {
		t.Error("expected expired token hint for 412")
	}
	if AuthDetail(plain) != "" {
		t.Error("expected no hint for plain errors")
	}

	noResp := NewNoResponseError(MsgTokenExpired)
	if noResp.Error() != MsgNoResponse+" \n "+MsgTokenExpired {
		t.Errorf("unexpected no-response message: %q", noResp.Error())
	}
}

func TestIsResumable(t *testing.T) {
	for reason, want := range map[string]bool{
		FinishIncomplete: true,
		FinishLength:     true,
		FinishStop:       false,
		FinishError:      false,
		"":               false,
	} {
		if got := IsResumable(reason); got != want {
			t.Errorf("IsResumable(%q) = %v, want %v", reason, got, want)
		}
	}
}
