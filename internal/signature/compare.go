package signature

import "crypto/subtle"

// Equal reports whether a and b are identical without leaking where they
// first differ. Lengths are compared up front; a digest's length is public.
// No case folding is done.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
