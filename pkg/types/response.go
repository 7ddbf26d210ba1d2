// Package types holds the JSON envelopes shared by every portal API
// response. Handlers never emit bare payloads: success bodies wrap the
// result in a data field, and failures carry a stable machine-readable
// code alongside a public message.
package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a failed request. Details is only
// populated for codes that allow it, so denial responses stay opaque.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
