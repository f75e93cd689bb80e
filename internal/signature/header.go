package signature

import (
	"strconv"
	"strings"
)

// Header field names. Both are case-sensitive.
const (
	fieldTimestamp = "t"
	fieldV1        = "v1"
)

// Header is a parsed signature header.
type Header struct {
	Timestamp int64
	Signature string
}

// String serializes h in wire format.
func (h Header) String() string {
	return FormatHeader(h.Timestamp, h.Signature)
}

// ParseHeader parses "t=<ts>,v1=<hex>". Pairs may appear in any order and
// unknown keys are ignored. When a key repeats, the first value wins.
//
// It fails with ErrMalformedHeader when the header is empty, when t or v1 is
// absent, when v1 is empty, or when t is not a base-10 integer.
func ParseHeader(header string) (Header, error) {
	if strings.TrimSpace(header) == "" {
		return Header{}, ErrMalformedHeader
	}

	var (
		ts, sig       string
		haveT, haveV1 bool
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case fieldTimestamp:
			if !haveT {
				ts, haveT = value, true
			}
		case fieldV1:
			if !haveV1 {
				sig, haveV1 = value, true
			}
		}
	}

	if !haveT || !haveV1 || sig == "" {
		return Header{}, ErrMalformedHeader
	}

	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Header{}, ErrMalformedHeader
	}

	return Header{Timestamp: n, Signature: sig}, nil
}

// FormatHeader builds the wire header for an outbound request or fixture.
func FormatHeader(timestampMillis int64, signature string) string {
	return fieldTimestamp + "=" + strconv.FormatInt(timestampMillis, 10) + "," + fieldV1 + "=" + signature
}
