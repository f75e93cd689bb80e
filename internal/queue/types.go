package queue

import (
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Delivery is a verified webhook payload waiting for, or done with, processing.
type Delivery struct {
	ID          string
	Source      string
	Payload     json.RawMessage
	SignedAt    time.Time
	Status      Status
	Attempt     int
	RequestID   *string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	LastError   *string
}

type EnqueueRequest struct {
	Source  string
	Payload json.RawMessage

	// SignedAtMillis is the timestamp from the accepted signature header.
	SignedAtMillis int64
	RequestID      string
}

var ErrDeliveryNotFound = errors.New("delivery not found")
