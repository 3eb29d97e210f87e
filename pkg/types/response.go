package types

// SuccessEnvelope wraps every 2xx JSON body so clients can unconditionally
// unwrap "data".
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. Details is populated only for codes
// whose metadata allows exposing them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
