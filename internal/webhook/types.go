package webhook

import (
	"context"
	"time"

	"github.com/mattjoyce/hookgate/internal/queue"
)

//go:generate mockgen -destination=mocks/mock_queue.go -package=mocks github.com/mattjoyce/hookgate/internal/webhook DeliveryQueuer

// DeliveryQueuer accepts verified deliveries for downstream processing and
// reports the backlog for health checks.
type DeliveryQueuer interface {
	Enqueue(ctx context.Context, req queue.EnqueueRequest) (string, error)
	CountByStatus(ctx context.Context, source string) (map[queue.Status]int, error)
}

// Config holds webhook server configuration.
type Config struct {
	Listen      string
	MetricsPath string
	Sources     []SourceEndpoint
}

// SourceEndpoint is one third-party sender with its own secret.
type SourceEndpoint struct {
	// Name identifies the source and forms the path /webhooks/{name}.
	Name string

	// Secret is the shared HMAC secret. Never logged.
	Secret string

	// SignatureHeader carries "t=<ms>,v1=<hex>" (default: X-Webhook-Signature)
	SignatureHeader string

	// Tolerance is the freshness window on either side of now (default: 30s)
	Tolerance time.Duration

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64
}

// Path returns the route for the source.
func (e SourceEndpoint) Path() string {
	return "/webhooks/" + e.Name
}

// TriggerResponse is the JSON response for accepted deliveries.
type TriggerResponse struct {
	DeliveryID string `json:"delivery_id"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultSignatureHeader = "X-Webhook-Signature"
	DefaultTolerance       = 30 * time.Second
)
