// Package signature implements the v1 webhook signing scheme used by hookgate.
//
// A sender signs a webhook by computing HMAC-SHA256 over the canonical message
// "<timestamp_millis>.<json_payload>" with a per-source shared secret, and sends
// the result in a header:
//
//	t=1742780691000,v1=<64 lowercase hex chars>
//
// The receiver parses the header, rejects timestamps outside the freshness
// window, recomputes the digest and compares it in constant time.
//
// # Verification Order
//
//  1. Header missing          -> "Missing signature"
//  2. Header unparseable      -> "Invalid signature header"
//  3. Timestamp outside window -> "Invalid timestamp"
//  4. Digest mismatch         -> "Invalid signature"
//
// Authentication failures are returned as a Result, never as an error. Errors
// are reserved for caller mistakes such as an empty secret.
//
// # Example Usage
//
//	sig, err := signature.CreateSignature(ts, payload, secret)
//	header := signature.FormatHeader(ts, sig)
//
//	v := signature.NewValidator()
//	res, err := v.Validate(signature.Input{
//		Header:   header,
//		Payload:  payload,
//		Secret:   secret,
//		ValidFor: signature.ValidForSeconds(30),
//	})
//
// The validator keeps no state between calls; replay protection within the
// window belongs to a separate guard (see package replay).
package signature
