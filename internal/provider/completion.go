package provider

import (
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dkaus1/vscode-ai-ext/internal/request"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// Completion implements the OpenAI chat completions shape.
type Completion struct{}

type completionRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        float64       `json:"top_p"`
}

type completionResponse struct {
	Choices []struct {
		Index        int         `json:"index"`
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
	Error *apiError  `json:"error"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *wireUsage) toSchema() *schema.TokenUsage {
	if u == nil {
		return nil
	}
	return &schema.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Kind implements Variant.
func (Completion) Kind() types.ProviderKind { return types.KindCompletion }

// BuildRequest implements Variant.
func (Completion) BuildRequest(in *BuildInput) (*request.Descriptor, error) {
	body := completionRequest{
		Model:       in.Params.Model,
		Messages:    make([]wireMessage, 0, len(in.Messages)),
		Temperature: in.Params.Temperature,
		TopP:        in.Params.TopP,
	}
	for _, m := range in.Messages {
		if m != nil {
			body.Messages = append(body.Messages, toWire(m))
		}
	}
	if !in.Inline {
		maxTokens := in.Params.MaxTokens
		body.MaxTokens = &maxTokens
	}
	return descriptor(in, jsonHeader(in.AuthToken), body)
}

// ParseResponse implements Variant.
func (Completion) ParseResponse(in *ParseInput) (*CanonicalResponse, error) {
	if !in.IsJSON {
		return nil, types.NewTransportError(0, types.MsgInvalidJSON, nil)
	}
	var data completionResponse
	if err := json.Unmarshal(in.Body, &data); err != nil {
		return nil, types.NewTransportError(0, types.MsgInvalidJSON, err)
	}
	if len(data.Choices) == 0 {
		detail := strings.TrimSpace(string(in.Body))
		if data.Error != nil {
			detail = data.Error.Message
		}
		return nil, types.NewProviderError(types.MsgNoChoices + "\n\n " + detail)
	}

	choice := data.Choices[0]
	if strings.Contains(strings.ToLower(choice.Message.Content), "internal server error") {
		return nil, types.NewProviderError(types.MsgInternalServerError)
	}

	resp := &CanonicalResponse{
		Message:      choice.Message.toSchema(),
		FinishReason: choice.FinishReason,
		Raw:          Raw{Extra: map[string]any{"index": choice.Index}},
	}
	return finish(in, resp, data.Usage.toSchema()), nil
}
