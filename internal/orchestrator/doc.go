/*
Package orchestrator is the entry point for every user action. It composes
the session state, the provider variants and the request manager, and
reports progress on the event bus.

# Single turn

Send and Continue run one primary turn:

  - emit showLoadingState
  - append the user turn
  - build the request for the active provider and dispatch it in the
    primary channel
  - classify the status, parse the response, merge any continuation
    prefix
  - append the assistant turn, record usage, trim the history
  - emit updateResultSuccess

On any failure the user turn is popped before updateResultFailed is
emitted, so a retry starts from the same history. Turns are serialized.

# Fan-out

FanOut sends independent single-shot prompts in the inline channel and
waits for all of them. Answers that finished with "stop" are joined with a
blank line. InlinePrompt, Review and FetchTestingLibraries are built on it.

# Commands

Dispatch routes inbound protocol commands through a fixed table:

	send, continueResponse_send, executeFetchTestingLibraries,
	abortAPIRequest, updateChatHistory, fetchChatHistory,
	resetChatHistory, inlinePrompt, reviewChanges

Unknown commands fail with ErrUnknownCommand and, when one is close, a
suggestion.
*/
package orchestrator
