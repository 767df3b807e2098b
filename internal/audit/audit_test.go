package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	appendFn func(ctx context.Context, entry Entry) error
	entries  []Entry
}

func (s *stubRepo) Append(ctx context.Context, entry Entry) error {
	if s.appendFn != nil {
		if err := s.appendFn(ctx, entry); err != nil {
			return err
		}
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubRepo) ListByTarget(_ context.Context, target string) ([]Entry, error) {
	var out []Entry
	for _, e := range s.entries {
		if e.TargetRef == target {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestWriterDropsUnchangedFields(t *testing.T) {
	repo := &stubRepo{}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("WAT", 3600))
	w, err := NewWriter(repo, func() time.Time { return now })
	require.NoError(t, err)

	entry, err := w.Write(context.Background(), Record{
		ActorID:   " admin ",
		Action:    ActionOrderStatusChanged,
		TargetRef: OrderRef("ord-1"),
		Diff: map[string]Change{
			"status":   {Before: "pending", After: "confirmed"},
			"currency": {Before: "MWK", After: "MWK"},
		},
		Metadata: map[string]any{"note": "ok", "empty": nil},
	})
	require.NoError(t, err)

	assert.Equal(t, "admin", entry.ActorID)
	assert.Equal(t, "/orders/ord-1", entry.TargetRef)
	assert.Equal(t, map[string]Change{"status": {Before: "pending", After: "confirmed"}}, entry.Diff)
	assert.Equal(t, map[string]any{"note": "ok"}, entry.Metadata)
	assert.Equal(t, time.UTC, entry.CreatedAt.Location())
	assert.Len(t, repo.entries, 1)
}

func TestWriterRequiresActionAndTarget(t *testing.T) {
	w, err := NewWriter(&stubRepo{}, nil)
	require.NoError(t, err)

	_, err = w.Write(context.Background(), Record{Action: ActionOrderCreated})
	assert.Error(t, err)
}

func TestWriterPropagatesRepositoryError(t *testing.T) {
	boom := errors.New("insert failed")
	w, err := NewWriter(&stubRepo{appendFn: func(context.Context, Entry) error { return boom }}, nil)
	require.NoError(t, err)

	_, err = w.Write(context.Background(), Record{Action: ActionOrderCreated, TargetRef: OrderRef("o")})
	assert.ErrorIs(t, err, boom)
}
