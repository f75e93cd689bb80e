package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// BuildMessage returns the canonical message "<timestampMillis>.<json>" that is
// fed to the HMAC.
//
// The payload is encoded the way JSON.stringify would encode it: compact,
// without HTML escaping, with U+2028 and U+2029 left literal. No key reordering happens here, so signer and
// verifier must agree on serialization or the digests will differ.
func BuildMessage(timestampMillis int64, payload any) (string, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return "", err
	}

	var b bytes.Buffer
	b.Grow(20 + 1 + len(body))
	b.WriteString(strconv.FormatInt(timestampMillis, 10))
	b.WriteByte('.')
	b.Write(body)
	return b.String(), nil
}

func marshalPayload(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnserializablePayload, err)
	}
	// Encode always appends a newline.
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes that
// encoding/json always emits back into the literal characters, as
// JSON.stringify leaves them. An escaped backslash followed by "u2028" is
// not an escape sequence and is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if b[i+1] == 'u' && i+6 <= len(b) {
			switch string(b[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
