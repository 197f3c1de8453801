package types

// Success is embedded by every success response so the payload fields sit
// next to "success" at the top level.
type Success struct {
	Success bool `json:"success"`
}

// OK returns the embeddable success marker.
func OK() Success {
	return Success{Success: true}
}

// MessageEnvelope is used by endpoints whose only payload is a message.
type MessageEnvelope struct {
	Success
	Message string `json:"message"`
}

// ErrorEnvelope is the failure shape shared by every endpoint.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
