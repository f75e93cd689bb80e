// Package queue is the sqlite-backed FIFO that verified webhook deliveries
// are handed to.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const deliveryColumns = `id, source, payload, signed_at, status, attempt, request_id,
  created_at, started_at, completed_at, last_error`

type Queue struct {
	db *sql.DB
}

func New(db *sql.DB) *Queue {
	return &Queue{db: db}
}

func (q *Queue) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	if req.Source == "" {
		return "", fmt.Errorf("source is empty")
	}
	if len(req.Payload) == 0 {
		return "", fmt.Errorf("payload is empty")
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var requestID any
	if req.RequestID != "" {
		requestID = req.RequestID
	}

	_, err := q.db.ExecContext(ctx, `
INSERT INTO deliveries(id, source, payload, signed_at, status, attempt, request_id, created_at)
VALUES(?, ?, ?, ?, ?, 0, ?, ?);
`, id, req.Source, string(req.Payload), req.SignedAtMillis, StatusQueued, requestID, now)
	if err != nil {
		return "", fmt.Errorf("enqueue delivery: %w", err)
	}
	return id, nil
}

// Dequeue claims the oldest queued delivery and marks it running. Returns
// (nil, nil) if the queue is empty.
func (q *Queue) Dequeue(ctx context.Context) (*Delivery, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	row := q.db.QueryRowContext(ctx, `
WITH next AS (
  SELECT id
  FROM deliveries
  WHERE status = ?
  ORDER BY created_at ASC, rowid ASC
  LIMIT 1
)
UPDATE deliveries
SET status = ?, started_at = ?, attempt = attempt + 1
WHERE id IN (SELECT id FROM next)
RETURNING `+deliveryColumns+`;
`, StatusQueued, StatusRunning, now)

	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue delivery: %w", err)
	}
	return d, nil
}

// Complete marks a running delivery terminal.
func (q *Queue) Complete(ctx context.Context, id string, status Status, lastError *string) error {
	if id == "" {
		return fmt.Errorf("delivery id is empty")
	}
	if status != StatusSucceeded && status != StatusFailed {
		return fmt.Errorf("invalid terminal status: %q", status)
	}

	res, err := q.db.ExecContext(ctx, `
UPDATE deliveries
SET status = ?, completed_at = ?, last_error = ?
WHERE id = ? AND status = ?;
`, status, time.Now().UTC().Format(time.RFC3339Nano), lastError, id, StatusRunning)
	if err != nil {
		return fmt.Errorf("complete delivery: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete delivery: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("complete delivery %s: %w", id, ErrDeliveryNotFound)
	}
	return nil
}

// Get loads a delivery by id.
func (q *Queue) Get(ctx context.Context, id string) (*Delivery, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = ?;`, id)
	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return d, nil
}

// CountByStatus returns the number of deliveries per status for source, or
// for every source when source is empty.
func (q *Queue) CountByStatus(ctx context.Context, source string) (map[Status]int, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT status, COUNT(*)
FROM deliveries
WHERE ? = '' OR source = ?
GROUP BY status;
`, source, source)
	if err != nil {
		return nil, fmt.Errorf("count deliveries: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[Status(s)] = n
	}
	return out, rows.Err()
}

func scanDelivery(row *sql.Row) (*Delivery, error) {
	var (
		d            Delivery
		payload      string
		signedAt     int64
		statusS      string
		requestID    sql.NullString
		createdAtS   string
		startedAtS   sql.NullString
		completedAtS sql.NullString
		lastError    sql.NullString
	)
	if err := row.Scan(
		&d.ID, &d.Source, &payload, &signedAt, &statusS, &d.Attempt, &requestID,
		&createdAtS, &startedAtS, &completedAtS, &lastError,
	); err != nil {
		return nil, err
	}

	d.Payload = []byte(payload)
	d.SignedAt = time.UnixMilli(signedAt).UTC()
	d.Status = Status(statusS)
	if requestID.Valid {
		d.RequestID = &requestID.String
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAtS); err == nil {
		d.CreatedAt = t
	}
	d.StartedAt = parseNullTime(startedAtS)
	d.CompletedAt = parseNullTime(completedAtS)
	if lastError.Valid {
		d.LastError = &lastError.String
	}
	return &d, nil
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
