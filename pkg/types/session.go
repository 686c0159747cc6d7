// Package types provides the core data types shared by the companion core.
package types

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"
)

// ChatHistory is the persisted conversation snapshot.
// The core writes Messages, TokenUsageLedger and ProviderThreadID; UIHistory
// belongs to the presentation layer and is carried through untouched.
type ChatHistory struct {
	Messages         []*schema.Message    `json:"messages,omitempty"`
	TokenUsageLedger []*schema.TokenUsage `json:"tokenUsageLedger,omitempty"`
	ProviderThreadID string               `json:"providerThreadId,omitempty"`
	UIHistory        []json.RawMessage    `json:"uiHistory,omitempty"`
}

// IsEmpty reports whether nothing has been persisted yet.
func (h *ChatHistory) IsEmpty() bool {
	return h == nil || (len(h.Messages) == 0 && len(h.TokenUsageLedger) == 0 &&
		h.ProviderThreadID == "" && len(h.UIHistory) == 0)
}

// ChangedFile is one entry produced by the git-diff collector.
type ChangedFile struct {
	FilePath string `json:"filePath"`
	Status   string `json:"status"`
	GitDiff  string `json:"gitDiff"`
}
