package types

import "github.com/cloudwego/eino/schema"

// Finish reasons the core distinguishes. Providers may return others; they
// are passed through untouched.
const (
	FinishStop       = "stop"
	FinishIncomplete = "incomplete"
	FinishLength     = "length"
	FinishError      = "error"
)

// SystemMessages is the fixed two-message preamble every conversation starts with.
// It must never be evicted.
func SystemMessages() []*schema.Message {
	return []*schema.Message{
		{
			Role:    schema.System,
			Content: "You are a helpful, empathetic, and friendly CodeBot for Engineers.",
		},
		{
			Role:    schema.System,
			Content: "You can ask me for help with fixing code errors, generating code snippets, writing test cases, explaining code concepts, and more. \n\n in case of code blocks in response please provide the language name in the code block header to get the syntax highlighting",
		},
	}
}

// CloneMessage copies the role and content of a message.
func CloneMessage(m *schema.Message) *schema.Message {
	if m == nil {
		return nil
	}
	return &schema.Message{Role: m.Role, Content: m.Content}
}

// CloneMessages copies a message slice so callers cannot mutate session state.
func CloneMessages(msgs []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, len(msgs))
	for i, m := range msgs {
		out[i] = CloneMessage(m)
	}
	return out
}

// IsResumable reports whether a finish reason means the answer was cut short
// and can be continued.
func IsResumable(finishReason string) bool {
	return finishReason == FinishIncomplete || finishReason == FinishLength
}
