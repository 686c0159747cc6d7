/*
Package server is the HTTP boundary between the editor front end and the
orchestrator.

The protocol has two halves:

  - POST /command takes one inbound command as JSON, for example
    {"command": "send", "text": "...", "selectedText": "..."}, and
    dispatches it. The response only says whether the command succeeded;
    results travel as events.
  - GET /event is a Server-Sent Events stream of outbound events. Each
    event's data is a JSON object with a "command" field
    (showLoadingState, updateResultSuccess, updateResultFailed, ...) and
    the event's payload fields. Events reach every stream in publish order.

Supporting routes:

	GET    /health               liveness and in-flight request counts
	GET    /command              names of the handled commands
	GET    /config               active configuration without secrets
	PUT    /provider/{key}       switch the active provider
	PUT    /auth                 store an access token {"token": "..."}
	DELETE /auth                 remove the stored access token
	GET    /history              persisted chat history

A command keeps running if its HTTP client disconnects. Cancel it with
{"command": "abortAPIRequest", "channel": "primary"|"inline"|"*"}.
*/
package server
