package session

import (
	"github.com/cloudwego/eino/schema"

	"github.com/dkaus1/vscode-ai-ext/internal/logging"
)

// TrimBuffer returns the response buffer reserved on top of the latest
// usage. For requestedMaxTokens <= 1000 this is always 1000.
func TrimBuffer(requestedMaxTokens int) int {
	if requestedMaxTokens <= 1000 {
		return requestedMaxTokens + 1000 - requestedMaxTokens
	}
	return requestedMaxTokens
}

// TrimThreshold returns the accumulated ledger delta at which eviction stops.
func TrimThreshold(requestedMaxTokens int) float64 {
	if requestedMaxTokens > 500 {
		return float64(requestedMaxTokens) * 2.5
	}
	return float64(requestedMaxTokens) * 4
}

// Trim evicts the oldest user/assistant pairs when the latest cumulative
// usage plus the response buffer exceeds maxTokensAllowed. It walks the
// ledger oldest to newest; each step evicts one pair while the delta
// accumulated so far is below the threshold, then adds that step's delta.
//
// It returns the surviving messages, the ledger to keep (nil after any
// eviction) and the number of pairs evicted. The two system messages at
// the head are never touched. Inputs are not modified.
func Trim(messages []*schema.Message, ledger []*schema.TokenUsage, maxTokensAllowed, requestedMaxTokens int) ([]*schema.Message, []*schema.TokenUsage, int) {
	if len(ledger) <= 1 {
		return messages, ledger, 0
	}

	latest := ledger[len(ledger)-1].TotalTokens
	if latest+TrimBuffer(requestedMaxTokens) <= maxTokensAllowed {
		return messages, ledger, 0
	}

	threshold := TrimThreshold(requestedMaxTokens)
	out := append([]*schema.Message(nil), messages...)
	evicted := 0
	accumulated := 0.0

	for i := 0; i < len(ledger); i++ {
		if accumulated >= threshold || len(out) <= preambleLen {
			break
		}
		end := min(preambleLen+2, len(out))
		out = append(out[:preambleLen], out[end:]...)
		evicted++

		if i+1 < len(ledger) {
			accumulated += float64(ledger[i+1].TotalTokens - ledger[i].TotalTokens)
		}
	}

	if evicted == 0 {
		return messages, ledger, 0
	}
	return out, nil, evicted
}

// Trim applies the token budget to the state.
func (s *State) Trim(maxTokensAllowed, requestedMaxTokens int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ledger, evicted := Trim(s.messages, s.ledger, maxTokensAllowed, requestedMaxTokens)
	if evicted > 0 {
		logging.Debug().
			Int("evicted", evicted).
			Int("remaining", len(msgs)).
			Msg("trimmed conversation history")
	}
	s.messages = msgs
	s.ledger = ledger
	return evicted
}
