package session

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// CollectContinuation returns the content of the newest count non-empty
// assistant turns in messages, oldest first.
func CollectContinuation(messages []*schema.Message, count int) string {
	if count <= 0 {
		return ""
	}

	parts := make([]string, 0, count)
	for i := len(messages) - 1; i >= 0 && len(parts) < count; i-- {
		m := messages[i]
		if m == nil || m.Role != schema.Assistant || m.Content == "" {
			continue
		}
		parts = append(parts, m.Content)
	}

	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	return b.String()
}

// MergeContinuation updates the continuation counter for a request and
// returns the prefix to put in front of the new response text. A
// continuation request increments the counter; anything else resets it.
func (s *State) MergeContinuation(isContinuation bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isContinuation {
		s.continuationCount++
	} else {
		s.continuationCount = 0
	}
	return CollectContinuation(s.messages, s.continuationCount)
}
