// Package audit records who changed what on an order.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ActionOrderCreated       = "order.created"
	ActionOrderStatusChanged = "order.status_changed"
)

// Change captures a before/after pair for one field.
type Change struct {
	Before any `json:"before,omitempty"`
	After  any `json:"after,omitempty"`
}

// Entry is an immutable audit row.
type Entry struct {
	ID        string
	ActorID   string
	Action    string
	TargetRef string
	Diff      map[string]Change
	Metadata  map[string]any
	CreatedAt time.Time
}

type Repository interface {
	Append(ctx context.Context, entry Entry) error
	ListByTarget(ctx context.Context, targetRef string) ([]Entry, error)
}

// OrderRef is the target reference used for order entries.
func OrderRef(orderID string) string {
	return "/orders/" + orderID
}

// Record describes an entry to write.
type Record struct {
	ActorID   string
	Action    string
	TargetRef string
	Diff      map[string]Change
	Metadata  map[string]any
}

// Writer appends entries. Write runs inside the caller's transaction, so a
// failed write aborts the surrounding operation.
type Writer struct {
	repo  Repository
	clock func() time.Time
	newID func() string
}

func NewWriter(repo Repository, clock func() time.Time) (*Writer, error) {
	if repo == nil {
		return nil, errors.New("audit writer: repository is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Writer{repo: repo, clock: clock, newID: uuid.NewString}, nil
}

func (w *Writer) Write(ctx context.Context, rec Record) (Entry, error) {
	action := strings.TrimSpace(rec.Action)
	target := strings.TrimSpace(rec.TargetRef)
	if action == "" || target == "" {
		return Entry{}, fmt.Errorf("audit: action and target are required")
	}
	entry := Entry{
		ID:        w.newID(),
		ActorID:   strings.TrimSpace(rec.ActorID),
		Action:    action,
		TargetRef: target,
		Diff:      cleanDiff(rec.Diff),
		Metadata:  cleanMetadata(rec.Metadata),
		CreatedAt: w.clock().UTC(),
	}
	if err := w.repo.Append(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// cleanDiff drops unchanged fields and blank keys.
func cleanDiff(diff map[string]Change) map[string]Change {
	if len(diff) == 0 {
		return nil
	}
	out := make(map[string]Change, len(diff))
	for k, v := range diff {
		key := strings.TrimSpace(k)
		if key == "" || fmt.Sprint(v.Before) == fmt.Sprint(v.After) {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanMetadata(meta map[string]any) map[string]any {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		key := strings.TrimSpace(k)
		if key == "" || v == nil {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
