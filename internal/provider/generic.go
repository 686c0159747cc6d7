package provider

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/dkaus1/vscode-ai-ext/internal/request"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// GenericSystemPrompt is sent with every generic request.
const GenericSystemPrompt = "You are a helpful AI code assistant. Please provide code snippet"

// Generic implements the {question, system_prompt} shape used by local
// and custom endpoints. It never sends a credential.
type Generic struct{}

type genericRequest struct {
	Question     string `json:"question"`
	SystemPrompt string `json:"system_prompt"`
}

// Kind implements Variant.
func (Generic) Kind() types.ProviderKind { return types.KindGeneric }

// BuildRequest implements Variant.
func (Generic) BuildRequest(in *BuildInput) (*request.Descriptor, error) {
	body := genericRequest{
		Question:     in.lastContent(),
		SystemPrompt: GenericSystemPrompt,
	}
	return descriptor(in, jsonHeader(""), body)
}

// ParseResponse implements Variant. The body is the answer. A JSON string
// body is unquoted; anything else is used verbatim. A complete body has
// nothing left to continue, so the finish reason is always stop.
func (Generic) ParseResponse(in *ParseInput) (*CanonicalResponse, error) {
	content := string(in.Body)
	if in.IsJSON {
		var s string
		if err := json.Unmarshal(in.Body, &s); err == nil {
			content = s
		}
	}

	resp := &CanonicalResponse{
		Message:      &schema.Message{Role: schema.Assistant, Content: content},
		FinishReason: types.FinishStop,
	}
	return finish(in, resp, nil), nil
}
