// Package session holds the in-memory state of one conversation.
//
// # State
//
// A State owns the ordered message list, the per-turn token usage ledger,
// the provider thread id and the continuation counter. The first two
// messages are always the fixed system preamble from types.SystemMessages;
// no operation removes them.
//
//	st := session.New()
//	st.AppendUser("explain this function")
//	// ... provider round trip ...
//	st.AppendAssistant(reply)
//	st.Trim(cfg.GetModelMaxTokensLength(), cfg.GetMaxTokens())
//
// State is safe for concurrent use, but callers are expected to run one
// append/parse/trim cycle at a time per conversation. Persistence is the
// caller's job: Snapshot and Initialize convert to and from
// types.ChatHistory.
//
// # Token Budget
//
// Trim evicts the oldest user/assistant pairs once the latest cumulative
// usage plus a response buffer would exceed the model context window. The
// eviction count is driven by the deltas between consecutive ledger
// entries, not by counting tokens, and the ledger is cleared after any
// eviction so accounting restarts from the next turn.
//
// # Continuation
//
// When a response stops with a resumable finish reason, the user can ask
// for the rest. Each consecutive continuation request increments a counter;
// MergeContinuation then returns the text of that many previous assistant
// turns, oldest first, so the UI can render one merged answer.
package session
