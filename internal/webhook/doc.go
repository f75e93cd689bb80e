// Package webhook implements the inbound webhook endpoints with v1 signature
// verification.
//
// Every configured source gets POST /webhooks/{name}. Requests must carry a
// "t=<unix_millis>,v1=<hex>" header signed with the source's shared secret
// (see package signature).
//
// # Request Flow
//
//  1. HTTP POST arrives at /webhooks/{name}
//  2. Body size checked (413 if too large), body must be JSON (400)
//  3. Signature header verified: freshness window, then HMAC-SHA256 in
//     constant time (401 with the reason on failure)
//  4. Optional replay store rejects a reused (timestamp, signature) pair (409)
//  5. Delivery enqueued (202 Accepted with delivery_id)
//
// # Error Responses
//
//   - 400 Bad Request: body unreadable or not JSON
//   - 401 Unauthorized: "Missing signature", "Invalid signature header",
//     "Invalid timestamp" or "Invalid signature"
//   - 404 Not Found: unknown source
//   - 409 Conflict: "Replayed signature"
//   - 413 Payload Too Large: body exceeds max_body_size
//   - 500 Internal Server Error: verification or enqueue failure
//
// Secrets and payloads are never logged.
package webhook
