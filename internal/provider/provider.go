package provider

import (
	"encoding/json"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/dkaus1/vscode-ai-ext/internal/request"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// Variant builds and parses the payloads of one wire shape.
type Variant interface {
	// Kind returns the wire shape the variant implements.
	Kind() types.ProviderKind

	// BuildRequest builds the descriptor for one call.
	BuildRequest(in *BuildInput) (*request.Descriptor, error)

	// ParseResponse classifies and normalizes a successful HTTP response.
	ParseResponse(in *ParseInput) (*CanonicalResponse, error)
}

// Params are the generation parameters sent to the backend.
type Params struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// ParamsFromConfig reads the generation parameters from cfg.
func ParamsFromConfig(cfg *types.Config) Params {
	p := Params{
		Temperature: cfg.GetTemperature(),
		TopP:        cfg.GetTopP(),
		MaxTokens:   cfg.GetMaxTokens(),
	}
	if cfg != nil {
		p.Model = cfg.Model
	}
	return p
}

// BuildInput is the input of Variant.BuildRequest.
type BuildInput struct {
	Endpoint       string
	Messages       []*schema.Message
	SystemMessages []*schema.Message
	AuthToken      string
	ThreadID       string
	Inline         bool
	Params         Params
	Channel        string
	RequestID      string
}

// lastContent returns the content of the newest message.
func (in *BuildInput) lastContent() string {
	if len(in.Messages) == 0 || in.Messages[len(in.Messages)-1] == nil {
		return ""
	}
	return in.Messages[len(in.Messages)-1].Content
}

// ParseInput is the input of Variant.ParseResponse.
type ParseInput struct {
	Body   []byte
	IsJSON bool
	Inline bool
	// Merge returns the continuation prefix. It is only called once the
	// response has passed error classification, and is nil for inline
	// prompts.
	Merge func() string
}

// CanonicalResponse is the provider-independent response.
type CanonicalResponse struct {
	Message      *schema.Message
	FinishReason string
	// MergedContent is the continuation prefix followed by the new content.
	MergedContent string
	Raw           Raw
}

// Raw carries provider-specific data the orchestrator needs.
type Raw struct {
	// TokenUsage is set for non-inline completion responses that report it.
	TokenUsage *schema.TokenUsage
	// ThreadID is set for non-inline thread responses.
	ThreadID string
	// Extra holds backend fields passed through to the UI, such as the
	// thread-style message options.
	Extra map[string]any
}

// Content returns the message content.
func (r *CanonicalResponse) Content() string {
	if r == nil || r.Message == nil {
		return ""
	}
	return r.Message.Content
}

// MarshalJSON renders the response in the shape the chat view consumes:
// the message, the finish reason and any pass-through fields.
func (r *CanonicalResponse) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Raw.Extra)+2)
	for k, v := range r.Raw.Extra {
		out[k] = v
	}
	msg := wireMessage{Role: string(schema.Assistant)}
	if r.Message != nil {
		msg = toWire(r.Message)
	}
	out["message"] = msg
	if r.FinishReason != "" {
		out["finish_reason"] = r.FinishReason
	}
	return json.Marshal(out)
}

// wireMessage is a conversation message as every backend encodes it.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toWire(m *schema.Message) wireMessage {
	return wireMessage{Role: string(m.Role), Content: m.Content}
}

func (w wireMessage) toSchema() *schema.Message {
	role := schema.RoleType(w.Role)
	if role == "" {
		role = schema.Assistant
	}
	return &schema.Message{Role: role, Content: w.Content}
}

func jsonHeader(authToken string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if authToken != "" {
		h.Set("Authorization", "Bearer "+authToken)
	}
	return h
}

func descriptor(in *BuildInput, header http.Header, body any) (*request.Descriptor, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &request.Descriptor{
		Endpoint:  in.Endpoint,
		Method:    http.MethodPost,
		Header:    header,
		Body:      data,
		Channel:   in.Channel,
		RequestID: in.RequestID,
	}, nil
}

// finish fills the merge prefix, the usage ledger entry and the response
// metadata shared by every variant.
func finish(in *ParseInput, resp *CanonicalResponse, usage *schema.TokenUsage) *CanonicalResponse {
	prefix := ""
	if !in.Inline && in.Merge != nil {
		prefix = in.Merge()
	}
	resp.MergedContent = prefix + resp.Content()

	if usage != nil && !in.Inline {
		resp.Raw.TokenUsage = usage
	}
	resp.Message.ResponseMeta = &schema.ResponseMeta{
		FinishReason: resp.FinishReason,
		Usage:        usage,
	}
	return resp
}
