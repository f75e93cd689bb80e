// Package replay records signatures that have already been accepted so the
// same signed request cannot be delivered twice inside the freshness window.
//
// The signature validator is stateless on purpose; this package is the
// separate seen-signature set that sits next to it.
package replay

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mattjoyce/hookgate/internal/signature"
)

// ErrReplayed is returned by Guard.Check when a signature was already seen.
var ErrReplayed = errors.New("replay: signature already used")

// Store is a set of keys with per-key expiry.
type Store interface {
	// MarkSeen records key for ttl. firstSeen is false when key was already
	// present and not yet expired.
	MarkSeen(ctx context.Context, key string, ttl time.Duration) (firstSeen bool, err error)
	// Forget removes key so it can be marked again. Unknown keys are not an error.
	Forget(ctx context.Context, key string) error
	Close() error
}

// Key derives the store key for a header accepted on source. It is a BLAKE3
// digest of the source name, timestamp and signature, so stores never hold raw
// signatures.
func Key(source string, h signature.Header) string {
	sum := blake3.Sum256([]byte(source + "\x00" + strconv.FormatInt(h.Timestamp, 10) + "." + h.Signature))
	return hex.EncodeToString(sum[:])
}

// Guard rejects headers whose (timestamp, signature) pair was seen before.
type Guard struct {
	store Store
	ttl   time.Duration
}

// NewGuard returns a Guard for a freshness window of tolerance. Entries are kept
// for twice the tolerance because the window extends on both sides of now.
func NewGuard(store Store, tolerance time.Duration) *Guard {
	ttl := 2 * tolerance
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Guard{store: store, ttl: ttl}
}

// Check records h for source and returns ErrReplayed if it was already recorded.
func (g *Guard) Check(ctx context.Context, source string, h signature.Header) error {
	first, err := g.store.MarkSeen(ctx, Key(source, h), g.ttl)
	if err != nil {
		return fmt.Errorf("replay check: %w", err)
	}
	if !first {
		return ErrReplayed
	}
	return nil
}

// Release undoes a successful Check, for when the request it admitted was not
// delivered and the sender is expected to retry with the same signature.
func (g *Guard) Release(ctx context.Context, source string, h signature.Header) error {
	if err := g.store.Forget(ctx, Key(source, h)); err != nil {
		return fmt.Errorf("replay release: %w", err)
	}
	return nil
}
