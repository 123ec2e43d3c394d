// Package assist defines the plug point for AI assistance behind AI_REQUEST
// messages. A real orchestration service implements Responder externally;
// the backbone ships a synchronous placeholder.
package assist

// Responder produces the AI_RESPONSE payload for an AI_REQUEST payload.
type Responder interface {
	Respond(workspaceID, userID string, request map[string]any) map[string]any
}

// EchoResponder is the placeholder Responder: it acknowledges the request
// without performing any AI work.
type EchoResponder struct{}

// NewEchoResponder creates a new EchoResponder.
func NewEchoResponder() *EchoResponder {
	return &EchoResponder{}
}

// Respond returns a canned payload echoing the original request.
func (r *EchoResponder) Respond(workspaceID, userID string, request map[string]any) map[string]any {
	return map[string]any{
		"response": "AI assistance is not configured for this deployment",
		"request":  request,
	}
}
