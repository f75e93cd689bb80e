package signature

import "errors"

var (
	// ErrMissingSecret is returned when signing or verifying with an empty secret.
	ErrMissingSecret = errors.New("signature: secret is empty")

	// ErrUnserializablePayload is returned when the payload cannot be encoded as JSON.
	ErrUnserializablePayload = errors.New("signature: payload is not JSON-serializable")

	// ErrMalformedHeader is returned by ParseHeader for any unparseable header.
	ErrMalformedHeader = errors.New("signature: malformed header")

	// ErrNegativeTolerance is returned when the freshness window is negative.
	ErrNegativeTolerance = errors.New("signature: tolerance must not be negative")
)
