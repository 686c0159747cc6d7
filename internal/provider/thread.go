package provider

import (
	"encoding/json"
	"strings"

	"github.com/dkaus1/vscode-ai-ext/internal/request"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// Thread implements the PSChat shape: the backend keeps the conversation
// and is addressed by thread id.
type Thread struct{}

// threadSource identifies this client to the backend.
const threadSource = "aicodecompanion"

type threadRequest struct {
	Message string        `json:"message"`
	ID      string        `json:"id"`
	Options threadOptions `json:"options"`
}

type threadOptions struct {
	Assistant        string       `json:"assistant"`
	Model            string       `json:"model,omitempty"`
	Parameters       threadParams `json:"parameters"`
	Source           string       `json:"source"`
	StopAutoContinue int          `json:"stopautocontinue"`
}

type threadParams struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   *int    `json:"max_tokens,omitempty"`
	TopP        float64 `json:"top_p"`
}

type threadResponse struct {
	Data *struct {
		ID       string          `json:"id"`
		Messages []threadMessage `json:"messages"`
		Error    *apiError       `json:"error"`
	} `json:"data"`
	Message string `json:"message"`
}

type threadMessage struct {
	Role    string         `json:"role"`
	Content string         `json:"content"`
	Options map[string]any `json:"options"`
}

func (m threadMessage) finishReason() string {
	if s, ok := m.Options["finish_reason"].(string); ok {
		return s
	}
	return ""
}

// Kind implements Variant.
func (Thread) Kind() types.ProviderKind { return types.KindThread }

// BuildRequest implements Variant.
func (Thread) BuildRequest(in *BuildInput) (*request.Descriptor, error) {
	params := threadParams{
		Temperature: in.Params.Temperature,
		TopP:        in.Params.TopP,
	}
	threadID := in.ThreadID
	if in.Inline {
		threadID = ""
	} else {
		maxTokens := in.Params.MaxTokens
		params.MaxTokens = &maxTokens
	}

	body := threadRequest{
		Message: in.lastContent(),
		ID:      threadID,
		Options: threadOptions{
			Assistant:        persona(in),
			Model:            in.Params.Model,
			Parameters:       params,
			Source:           threadSource,
			StopAutoContinue: 1,
		},
	}
	return descriptor(in, jsonHeader(in.AuthToken), body)
}

// persona joins the two system messages into the assistant persona string.
func persona(in *BuildInput) string {
	sys := in.SystemMessages
	if len(sys) == 0 {
		sys = types.SystemMessages()
	}
	parts := make([]string, 0, len(sys))
	for _, m := range sys {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " \n\n ")
}

// ParseResponse implements Variant.
func (Thread) ParseResponse(in *ParseInput) (*CanonicalResponse, error) {
	if !in.IsJSON {
		return nil, types.NewTransportError(0, types.MsgInvalidJSON, nil)
	}
	var data threadResponse
	if err := json.Unmarshal(in.Body, &data); err != nil {
		return nil, types.NewTransportError(0, types.MsgInvalidJSON, err)
	}
	if data.Data == nil {
		return nil, types.NewProviderError(types.MsgNoChoices)
	}

	if data.Data.Error != nil && data.Data.Error.Code == "context_length_exceeded" {
		return nil, types.NewProviderError(types.MsgContextLength)
	}
	msgs := data.Data.Messages
	if len(msgs) == 0 {
		return nil, types.NewProviderError(types.MsgNoChoices)
	}
	last := msgs[len(msgs)-1]
	if strings.Contains(strings.ToLower(last.Content), "internal server error") {
		return nil, types.NewProviderError(types.MsgInternalServerError)
	}
	if strings.ToLower(last.finishReason()) == types.FinishError {
		return nil, types.NewProviderError("Error from PSChat API and the error message is \n\n " + last.Content)
	}

	resp := &CanonicalResponse{
		Message:      wireMessage{Role: last.Role, Content: last.Content}.toSchema(),
		FinishReason: last.finishReason(),
		Raw:          Raw{Extra: last.Options},
	}
	if !in.Inline {
		resp.Raw.ThreadID = data.Data.ID
	}
	return finish(in, resp, nil), nil
}
