// Package provider adapts the conversation to the wire shapes of the
// supported AI backends and normalizes their responses.
//
// # Variants
//
// Every backend speaks one of three shapes, each implemented as a Variant:
//
//   - completion: the full message array plus generation parameters, as
//     OpenAI chat completions expect. max_tokens is left out for inline
//     prompts so their generation is not truncated.
//   - thread: only the newest user message plus an opaque thread id. The
//     provider keeps the history server side. Inline prompts send an empty
//     thread id because they are stateless.
//   - generic: {question, system_prompt} for a local or custom endpoint
//     that needs no credential.
//
// The completion and thread variants attach a bearer token; generic never
// does. The payload field names are what the live backends accept and must
// not change.
//
// # Parsing
//
// ParseResponse classifies in-band failures first and returns a
// *types.APIError before any content is read. On success the result is a
// CanonicalResponse whatever the backend:
//
//	{"message": {"role": "assistant", "content": "..."}, "finish_reason": "stop"}
//
// For non-inline requests the caller supplies a Merge callback; its prefix
// is prepended to the new content in CanonicalResponse.MergedContent, and
// token usage is reported in Raw.TokenUsage for the session ledger.
//
// # Registry
//
// A Registry maps types.ProviderKind to its Variant. Adding a backend with
// a new wire shape means registering one more Variant.
package provider
