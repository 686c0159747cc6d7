package event

import (
	"encoding/json"
	"fmt"

	"github.com/dkaus1/vscode-ai-ext/internal/provider"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// EventType is the outbound protocol command name.
type EventType string

const (
	ShowLoadingState                EventType = "showLoadingState"
	RemoveLoadingState              EventType = "removeLoadingState"
	UpdateResultSuccess             EventType = "updateResultSuccess"
	UpdateResultFailed              EventType = "updateResultFailed"
	UpdateInlinePromptResultSuccess EventType = "updateInlinePromptResultSuccess"
	RenderChatHistory               EventType = "renderChatHistory"
	TestingLibraryOptions           EventType = "testingLibraryOptions"
)

// Event is one outbound protocol message. On the wire the payload fields
// are flattened next to "command".
type Event struct {
	Type EventType
	Data any
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if e.Data != nil {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("event %s payload is not an object: %w", e.Type, err)
		}
	}
	cmd, _ := json.Marshal(string(e.Type))
	fields["command"] = cmd
	return json.Marshal(fields)
}

// LoadingStateData is the payload for showLoadingState and removeLoadingState.
type LoadingStateData struct {
	IsInProgress bool   `json:"isInProgress"`
	UserInput    string `json:"userInput,omitempty"`
}

// ResultSuccessData is the payload for updateResultSuccess and
// updateInlinePromptResultSuccess.
type ResultSuccessData struct {
	Data *provider.CanonicalResponse `json:"data"`

	// Set only for continuation requests: the merged answer so far.
	MergedContentForContinuation string `json:"mergedContentForContinuation,omitempty"`
}

// ResultFailedData is the payload for updateResultFailed.
type ResultFailedData struct {
	Data                  string `json:"data"`
	IsContinuationRequest bool   `json:"isContinuationRequest,omitempty"`
}

// ChatHistoryData is the payload for renderChatHistory.
type ChatHistoryData struct {
	Data *types.ChatHistory `json:"data"`
}

// TestingLibraryOptionsData is the payload for testingLibraryOptions.
type TestingLibraryOptionsData struct {
	UserCommand string   `json:"userCommand"`
	LanguageID  string   `json:"languageId"`
	Libraries   []string `json:"libraries"`
}
