package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nvr-ai/roi-motion/images"
	"github.com/nvr-ai/roi-motion/notify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "events.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestOpen_ReopenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	first, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.RecordEvent(context.Background(), notify.NewEvent(1, images.NewRect(0, 0, 1, 1), 1, time.Now())))
	require.NoError(t, first.Close())

	second, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	n, err := second.CountEvents(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigrateDown(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)

	_, err = db.CountEvents(context.Background(), 0)
	assert.Error(t, err, "table is gone after rolling back")
}

func TestRecordAndListEvents(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	events := []notify.Event{
		notify.NewEvent(1, images.NewRect(0, 0, 160, 120), 2401, base),
		notify.NewEvent(2, images.NewRect(160, 0, 320, 120), 1800.5, base.Add(time.Second)),
		notify.NewEvent(1, images.NewRect(0, 0, 160, 120), 3000, base.Add(2*time.Second)),
	}
	for _, e := range events {
		require.NoError(t, db.RecordEvent(ctx, e))
	}

	timeEqual := cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

	all, err := db.ListEvents(ctx, EventFilter{})
	require.NoError(t, err)
	want := []notify.Event{events[2], events[1], events[0]}
	if diff := cmp.Diff(want, all, timeEqual); diff != "" {
		t.Errorf("ListEvents mismatch (-want +got):\n%s", diff)
	}

	roi1, err := db.ListEvents(ctx, EventFilter{ROIID: 1})
	require.NoError(t, err)
	if diff := cmp.Diff([]notify.Event{events[2], events[0]}, roi1, timeEqual); diff != "" {
		t.Errorf("ROI filter mismatch (-want +got):\n%s", diff)
	}

	limited, err := db.ListEvents(ctx, EventFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, events[2].ID, limited[0].ID)

	recent, err := db.ListEvents(ctx, EventFilter{Since: base.Add(time.Second)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	n, err := db.CountEvents(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = db.CountEvents(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordEvent_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e := notify.NewEvent(1, images.NewRect(0, 0, 10, 10), 2000, time.Now())
	require.NoError(t, db.RecordEvent(ctx, e))
	assert.Error(t, db.RecordEvent(ctx, e))
}

func TestDB_IsNotifier(t *testing.T) {
	db := setupTestDB(t)
	var n notify.Notifier = db

	require.NoError(t, n.Notify(context.Background(), notify.NewEvent(4, images.NewRect(0, 0, 10, 10), 2000, time.Now())))
	count, err := db.CountEvents(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
