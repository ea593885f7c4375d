package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemifol/fieldops/pkg/core/errs"
)

func TestMemoryStore_InsertReadUpdateDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id1, err := store.Insert(ctx, Sites, Record{"name": "Alpha", "active": true})
	require.NoError(t, err)
	id2, err := store.Insert(ctx, Sites, Record{"name": "Beta", "active": true})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	require.NoError(t, store.Update(ctx, Sites, id1, Record{"active": false}))

	records, err := store.ReadAll(ctx, Sites)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, false, records[0]["active"])

	require.NoError(t, store.Delete(ctx, Sites, id2))
	records, err = store.ReadAll(ctx, Sites)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryStore_UnknownID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Update(ctx, Shifts, "99", Record{"unseen": false})
	assert.ErrorIs(t, err, errs.ErrUnknownEntity)

	err = store.Delete(ctx, Shifts, "99")
	assert.ErrorIs(t, err, errs.ErrUnknownEntity)

	_, err = Find(ctx, store, Shifts, "99")
	assert.ErrorIs(t, err, errs.ErrUnknownEntity)
}

func TestMemoryStore_ReadAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, Sites, Record{"name": "Alpha"})
	require.NoError(t, err)

	records, err := store.ReadAll(ctx, Sites)
	require.NoError(t, err)
	records[0]["name"] = "mutated"

	rec, err := Find(ctx, store, Sites, id)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", rec["name"])
}

func TestMemoryStore_UpdateWhere(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, unseen := range []bool{true, true, false} {
		_, err := store.Insert(ctx, Issues, Record{"unseen": unseen})
		require.NoError(t, err)
	}

	n, err := store.UpdateWhere(ctx, Issues, Record{"unseen": true}, Record{"unseen": false})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := store.ReadAll(ctx, Issues)
	require.NoError(t, err)
	for _, rec := range records {
		assert.Equal(t, false, rec["unseen"])
	}
}

func TestDB_TypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	database := NewDB(NewMemoryStore())

	start := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	shift := &Shift{Username: "alice", SiteName: "Alpha", StartTime: start, StartLat: 45, StartLon: 9, Unseen: true}
	require.NoError(t, database.InsertShift(ctx, shift))
	require.NotEmpty(t, shift.ID)

	end := start.Add(8 * time.Hour)
	require.NoError(t, database.UpdateShift(ctx, shift.ID, Record{"end_time": end}))

	shifts, err := database.GetShifts(ctx)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, shift.ID, shifts[0].ID)
	require.NotNil(t, shifts[0].EndTime)
	assert.True(t, end.Equal(*shifts[0].EndTime))
	assert.False(t, shifts[0].IsOpen())
}
