/*
Package event carries outbound protocol messages from the orchestrator to
the presentation layer.

Every message is a JSON object with a "command" field naming the event and
the payload fields beside it:

	{"command": "showLoadingState", "isInProgress": true, "userInput": "..."}
	{"command": "updateResultSuccess", "data": {...}, "mergedContentForContinuation": "..."}
	{"command": "updateResultFailed", "data": "error text", "isContinuationRequest": true}
	{"command": "renderChatHistory", "data": {...}}

A Bus has two delivery paths. In-process subscribers registered with
Subscribe or SubscribeAll receive the typed Event. Remote consumers call
Stream and receive the encoded JSON from a watermill gochannel topic; the
HTTP server's /event endpoint is one such consumer.

Subscribers called from PublishSync run in the publisher's goroutine and
must not publish on the same bus.
*/
package event
