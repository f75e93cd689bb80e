package signature

import (
	"time"
)

// Reason explains why a signature was rejected. The zero value means none.
type Reason string

const (
	ReasonMissingSignature       Reason = "Missing signature"
	ReasonInvalidSignatureHeader Reason = "Invalid signature header"
	ReasonInvalidTimestamp       Reason = "Invalid timestamp"
	ReasonInvalidSignature       Reason = "Invalid signature"
)

// Slug returns a label-friendly form of r, e.g. "invalid_timestamp".
func (r Reason) Slug() string {
	switch r {
	case ReasonMissingSignature:
		return "missing_signature"
	case ReasonInvalidSignatureHeader:
		return "invalid_signature_header"
	case ReasonInvalidTimestamp:
		return "invalid_timestamp"
	case ReasonInvalidSignature:
		return "invalid_signature"
	case "":
		return "valid"
	default:
		return "unknown"
	}
}

// Result is the verdict of a single verification.
type Result struct {
	Valid  bool
	Reason Reason

	// Header is set once the header has parsed, valid or not.
	Header *Header
}

func reject(r Reason) Result {
	return Result{Valid: false, Reason: r}
}

// Input carries everything one verification needs.
type Input struct {
	// Header is the raw signature header value; "" means absent.
	Header string

	// Payload is the already-parsed request body.
	Payload any

	Secret string

	// ValidFor is the freshness window applied on both sides of now.
	ValidFor time.Duration
}

// ValidForSeconds converts a tolerance in whole seconds to a Duration.
func ValidForSeconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Validator verifies signed webhook payloads. It holds no per-request state and
// is safe for concurrent use.
type Validator struct {
	now func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock replaces the wall clock. The clock is read once per Validate call.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator returns a Validator using time.Now unless overridden.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the verification pipeline. Each step short-circuits with its
// own Reason. The returned error is non-nil only for caller mistakes (empty
// secret, negative window, unserializable payload); an authentication failure
// is reported through Result.
func (v *Validator) Validate(in Input) (Result, error) {
	if in.Secret == "" {
		return Result{}, ErrMissingSecret
	}
	if in.ValidFor < 0 {
		return Result{}, ErrNegativeTolerance
	}

	if in.Header == "" {
		return reject(ReasonMissingSignature), nil
	}

	h, err := ParseHeader(in.Header)
	if err != nil {
		return reject(ReasonInvalidSignatureHeader), nil
	}

	nowMillis := v.now().UnixMilli()
	if !withinWindow(nowMillis, h.Timestamp, in.ValidFor.Milliseconds()) {
		res := reject(ReasonInvalidTimestamp)
		res.Header = &h
		return res, nil
	}

	expected, err := CreateSignature(h.Timestamp, in.Payload, in.Secret)
	if err != nil {
		return Result{}, err
	}

	if !Equal(expected, h.Signature) {
		res := reject(ReasonInvalidSignature)
		res.Header = &h
		return res, nil
	}

	return Result{Valid: true, Header: &h}, nil
}

// withinWindow reports whether ts lies within tolerance of now, in either
// direction. The subtraction is done so that extreme timestamps cannot overflow.
func withinWindow(now, ts, tolerance int64) bool {
	if ts <= now {
		return uint64(now)-uint64(ts) <= uint64(tolerance)
	}
	return uint64(ts)-uint64(now) <= uint64(tolerance)
}

var defaultValidator = NewValidator()

// ValidateSignature verifies with the wall clock. validForSeconds is the
// freshness window in seconds.
func ValidateSignature(header string, payload any, secret string, validForSeconds int) (Result, error) {
	return defaultValidator.Validate(Input{
		Header:   header,
		Payload:  payload,
		Secret:   secret,
		ValidFor: ValidForSeconds(validForSeconds),
	})
}
