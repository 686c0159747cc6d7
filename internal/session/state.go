package session

import (
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// preambleLen is the number of fixed system messages at the head of every
// conversation.
const preambleLen = 2

// State is the conversation state of one session.
type State struct {
	mu                sync.RWMutex
	messages          []*schema.Message
	ledger            []*schema.TokenUsage
	threadID          string
	continuationCount int
}

// New creates a fresh state seeded with the system preamble.
func New() *State {
	return &State{messages: types.SystemMessages()}
}

// Initialize restores a state from a persisted snapshot. A nil or empty
// snapshot yields a fresh state. Snapshots that do not start with the
// system preamble get it prepended.
func Initialize(persisted *types.ChatHistory) *State {
	s := New()
	s.Load(persisted)
	return s
}

// Load replaces the state in place with a persisted snapshot, following
// the rules of Initialize. The continuation counter is reset.
func (s *State) Load(persisted *types.ChatHistory) {
	msgs := types.SystemMessages()
	var ledger []*schema.TokenUsage
	threadID := ""
	if persisted != nil && len(persisted.Messages) > 0 {
		msgs = make([]*schema.Message, 0, len(persisted.Messages)+preambleLen)
		if !hasPreamble(persisted.Messages) {
			msgs = append(msgs, types.SystemMessages()...)
		}
		for _, m := range persisted.Messages {
			if m != nil {
				msgs = append(msgs, types.CloneMessage(m))
			}
		}
		ledger = cloneLedger(persisted.TokenUsageLedger)
		threadID = persisted.ProviderThreadID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = msgs
	s.ledger = ledger
	s.threadID = threadID
	s.continuationCount = 0
}

func hasPreamble(msgs []*schema.Message) bool {
	if len(msgs) < preambleLen {
		return false
	}
	for _, m := range msgs[:preambleLen] {
		if m == nil || m.Role != schema.System {
			return false
		}
	}
	return true
}

// AppendUser appends a user turn.
func (s *State) AppendUser(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, &schema.Message{Role: schema.User, Content: text})
}

// AppendAssistant appends an assistant turn.
func (s *State) AppendAssistant(msg *schema.Message) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := types.CloneMessage(msg)
	if m.Role == "" {
		m.Role = schema.Assistant
	}
	s.messages = append(s.messages, m)
}

// PopLast removes and returns the newest message. The system preamble is
// never popped; nil is returned instead.
func (s *State) PopLast() *schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) <= preambleLen {
		return nil
	}
	last := s.messages[len(s.messages)-1]
	s.messages = s.messages[:len(s.messages)-1]
	return last
}

// Reset clears the thread id, ledger and continuation counter and reseeds
// the system preamble.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = types.SystemMessages()
	s.ledger = nil
	s.threadID = ""
	s.continuationCount = 0
}

// Messages returns a copy of the conversation.
func (s *State) Messages() []*schema.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.CloneMessages(s.messages)
}

// Len returns the number of messages including the preamble.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Ledger returns a copy of the token usage ledger.
func (s *State) Ledger() []*schema.TokenUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLedger(s.ledger)
}

// RecordUsage appends one entry to the token usage ledger.
func (s *State) RecordUsage(usage *schema.TokenUsage) {
	if usage == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *usage
	s.ledger = append(s.ledger, &u)
}

// ThreadID returns the provider thread id.
func (s *State) ThreadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threadID
}

// SetThreadID stores the provider thread id returned by a thread-style
// provider.
func (s *State) SetThreadID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = id
}

// ContinuationCount returns the number of consecutive continuation requests.
func (s *State) ContinuationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.continuationCount
}

// Snapshot returns the persistable part of the state. UIHistory is left
// empty; it belongs to the caller.
func (s *State) Snapshot() *types.ChatHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &types.ChatHistory{
		Messages:         types.CloneMessages(s.messages),
		TokenUsageLedger: cloneLedger(s.ledger),
		ProviderThreadID: s.threadID,
	}
}

func cloneLedger(ledger []*schema.TokenUsage) []*schema.TokenUsage {
	if len(ledger) == 0 {
		return nil
	}
	out := make([]*schema.TokenUsage, 0, len(ledger))
	for _, u := range ledger {
		if u != nil {
			c := *u
			out = append(out, &c)
		}
	}
	return out
}
