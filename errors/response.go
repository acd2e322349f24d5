package errors

// Envelope is the JSON body returned to HTTP clients on any request-time
// failure. It deliberately carries only the numeric status code: messages,
// causes, and stack traces never leave the process.
type Envelope struct {
	Code int `json:"code"`
}

// StatusOf resolves the HTTP status for an arbitrary error. KitErrors use
// their own status; everything else is an internal server error.
func StatusOf(err error) int {
	if ke, ok := AsKitError(err); ok && ke.HTTPStatus != 0 {
		return ke.HTTPStatus
	}
	return 500
}

// ToEnvelope builds the client-facing envelope for an error.
func ToEnvelope(err error) Envelope {
	return Envelope{Code: StatusOf(err)}
}
