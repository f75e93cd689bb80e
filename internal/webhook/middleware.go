package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/hookgate/internal/log"
	"github.com/mattjoyce/hookgate/internal/metrics"
	"github.com/mattjoyce/hookgate/internal/replay"
	"github.com/mattjoyce/hookgate/internal/signature"
)

// Delivery is what the signature middleware hands to the next handler.
type Delivery struct {
	Source string

	// Payload is the request body exactly as received.
	Payload json.RawMessage

	Header signature.Header
}

type deliveryKey struct{}

// DeliveryFromContext returns the verified delivery stored by the middleware.
func DeliveryFromContext(ctx context.Context) (Delivery, bool) {
	d, ok := ctx.Value(deliveryKey{}).(Delivery)
	return d, ok
}

// Verifier turns signature verification into HTTP middleware.
type Verifier struct {
	validator *signature.Validator
	store     replay.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewVerifier builds a Verifier. store, m and logger may be nil.
func NewVerifier(v *signature.Validator, store replay.Store, m *metrics.Metrics, logger *slog.Logger) *Verifier {
	if v == nil {
		v = signature.NewValidator()
	}
	if logger == nil {
		logger = log.WithComponent("verify")
	}
	return &Verifier{validator: v, store: store, metrics: m, logger: logger}
}

// Middleware returns middleware that admits only requests correctly signed
// for ep. Rejected requests never reach next:
//
//   - 413 when the body exceeds ep.MaxBodySize
//   - 400 when the body is not JSON
//   - 401 with the rejection reason when the signature does not verify
//   - 409 when a replay store is configured and the signature was already used
//
// When next answers 5xx or panics the signature is released from the replay
// store, so the sender can retry the same signed request.
//   - 500 on internal failure
func (vf *Verifier) Middleware(ep SourceEndpoint) func(http.Handler) http.Handler {
	var guard *replay.Guard
	if vf.store != nil {
		guard = replay.NewGuard(vf.store, ep.Tolerance)
	}
	headerName := ep.SignatureHeader
	if headerName == "" {
		headerName = DefaultSignatureHeader
	}
	maxBody := ep.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	logger := vf.logger.With("source", ep.Name)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := logger.With("request_id", middleware.GetReqID(r.Context()))

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
			if err != nil {
				respondError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			if int64(len(body)) > maxBody {
				respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			if !json.Valid(body) {
				respondError(w, http.StatusBadRequest, "invalid JSON payload")
				return
			}

			start := time.Now()
			res, err := vf.validator.Validate(signature.Input{
				Header:   r.Header.Get(headerName),
				Payload:  json.RawMessage(body),
				Secret:   ep.Secret,
				ValidFor: ep.Tolerance,
			})
			elapsed := time.Since(start)

			if err != nil {
				vf.metrics.ObserveVerification(ep.Name, "error", elapsed)
				reqLog.Error("webhook verification error", "error", err)
				respondError(w, http.StatusInternalServerError, "internal error")
				return
			}
			vf.metrics.ObserveVerification(ep.Name, res.Reason.Slug(), elapsed)

			if !res.Valid {
				reqLog.Warn("webhook signature rejected",
					"reason", string(res.Reason),
					"header", headerName,
				)
				respondError(w, http.StatusUnauthorized, string(res.Reason))
				return
			}

			if guard != nil {
				if err := guard.Check(r.Context(), ep.Name, *res.Header); err != nil {
					if errors.Is(err, replay.ErrReplayed) {
						vf.metrics.ObserveReplay(ep.Name)
						reqLog.Warn("webhook signature replayed", "signed_at", res.Header.Timestamp)
						respondError(w, http.StatusConflict, "Replayed signature")
						return
					}
					reqLog.Error("replay check failed", "error", err)
					respondError(w, http.StatusInternalServerError, "internal error")
					return
				}
			}

			ctx := context.WithValue(r.Context(), deliveryKey{}, Delivery{
				Source:  ep.Name,
				Payload: json.RawMessage(body),
				Header:  *res.Header,
			})
			if guard == nil {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			release := func() {
				if err := guard.Release(context.WithoutCancel(r.Context()), ep.Name, *res.Header); err != nil {
					reqLog.Error("failed to release replay key", "error", err)
					return
				}
				reqLog.Info("replay key released after failed delivery", "signed_at", res.Header.Timestamp)
			}
			defer func() {
				if rec := recover(); rec != nil {
					release()
					panic(rec)
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
			if ww.Status() >= http.StatusInternalServerError {
				release()
			}
		})
	}
}
