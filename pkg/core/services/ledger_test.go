package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/db"
)

// racingStore slips a rival shift in right before the caller's insert, the
// way a second device clocking in at the same moment would
type racingStore struct {
	*db.DB
	rival db.Shift
}

func (r *racingStore) InsertShift(ctx context.Context, shift *db.Shift) error {
	rival := r.rival
	if err := r.DB.InsertShift(ctx, &rival); err != nil {
		return err
	}
	return r.DB.InsertShift(ctx, shift)
}

// conflictStore rejects shift inserts the way a unique index would
type conflictStore struct {
	*db.DB
}

func (c *conflictStore) InsertShift(ctx context.Context, shift *db.Shift) error {
	return fmt.Errorf("insert shifts: %w", errs.ErrConflict)
}

// flakyShiftStore fails the nth GetShifts call and counts the rest
type flakyShiftStore struct {
	*db.DB
	failOn int
	calls  int
}

func (f *flakyShiftStore) GetShifts(ctx context.Context) ([]db.Shift, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, fmt.Errorf("read shifts: %w", errs.ErrStoreUnavailable)
	}
	return f.DB.GetShifts(ctx)
}

func TestOpenShift_Success(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")

	shift, err := OpenShift(ctx, database, zap.NewNop(), alice, "Alpha", gps, t0)
	require.NoError(t, err)

	assert.NotEmpty(t, shift.ID)
	assert.Equal(t, "alice", shift.Username)
	assert.Equal(t, "Alpha", shift.SiteName)
	assert.True(t, shift.IsOpen())
	assert.True(t, shift.Unseen)

	active, err := ActiveShift(ctx, database, "alice")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, shift.ID, active.ID)
	assert.True(t, t0.Equal(active.StartTime))
	assert.Equal(t, 45.0, active.StartLat)
	assert.Equal(t, 9.0, active.StartLon)
}

func TestOpenShift_AlreadyClockedIn(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha", "Beta")

	_, err := OpenShift(ctx, database, zap.NewNop(), alice, "Alpha", gps, t0)
	require.NoError(t, err)

	_, err = OpenShift(ctx, database, zap.NewNop(), alice, "Beta", gps, t0.Add(time.Hour))
	assert.ErrorIs(t, err, errs.ErrAlreadyClockedIn)

	shifts, err := database.GetShifts(ctx)
	require.NoError(t, err)
	assert.Len(t, shifts, 1)
}

func TestOpenShift_NotAssigned(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")
	seedSites(t, database, "", "Beta")

	_, err := OpenShift(ctx, database, zap.NewNop(), alice, "Beta", gps, t0)
	assert.ErrorIs(t, err, errs.ErrNotAssignedToSite)
}

func TestOpenShift_RequiresCoordinates(t *testing.T) {
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")

	_, err := OpenShift(context.Background(), database, zap.NewNop(), alice, "Alpha", nil, t0)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestOpenShift_WithdrawsLoserOfRace(t *testing.T) {
	tests := []struct {
		name       string
		rivalStart time.Time
	}{
		{name: "rival started earlier", rivalStart: t0.Add(-time.Minute)},
		{name: "same start, rival has lower id", rivalStart: t0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := newTestDB(t)
			seedSites(t, base, "alice", "Alpha")

			store := &racingStore{
				DB:    base,
				rival: db.Shift{Username: "alice", SiteName: "Alpha", StartTime: tt.rivalStart, StartLat: 1, StartLon: 1},
			}

			_, err := OpenShift(ctx, store, zap.NewNop(), alice, "Alpha", gps, t0)
			assert.ErrorIs(t, err, errs.ErrAlreadyClockedIn)

			shifts, err := base.GetShifts(ctx)
			require.NoError(t, err)
			require.Len(t, shifts, 1, "only the winning shift stays")
			assert.True(t, tt.rivalStart.Equal(shifts[0].StartTime))
		})
	}
}

func TestOpenShift_KeepsWinnerOfRace(t *testing.T) {
	ctx := context.Background()
	base := newTestDB(t)
	seedSites(t, base, "alice", "Alpha")

	store := &racingStore{
		DB:    base,
		rival: db.Shift{Username: "alice", SiteName: "Alpha", StartTime: t0.Add(time.Minute), StartLat: 1, StartLon: 1},
	}

	shift, err := OpenShift(ctx, store, zap.NewNop(), alice, "Alpha", gps, t0)
	require.NoError(t, err)
	assert.True(t, shift.IsOpen())
}

func TestOpenShift_StoreConflict(t *testing.T) {
	base := newTestDB(t)
	seedSites(t, base, "alice", "Alpha")

	_, err := OpenShift(context.Background(), &conflictStore{DB: base}, zap.NewNop(), alice, "Alpha", gps, t0)
	assert.ErrorIs(t, err, errs.ErrAlreadyClockedIn)
}

func TestOpenShift_RecheckFailureLeavesNoShift(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")
	flaky := &flakyShiftStore{DB: database, failOn: 2}

	_, err := OpenShift(ctx, flaky, zap.NewNop(), alice, "Alpha", gps, t0)
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)

	shifts, err := database.GetShifts(ctx)
	require.NoError(t, err)
	assert.Empty(t, shifts)

	shift, err := OpenShift(ctx, flaky, zap.NewNop(), alice, "Alpha", gps, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, shift.IsOpen())
}

func TestCloseShift(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")

	shift, err := OpenShift(ctx, database, zap.NewNop(), alice, "Alpha", gps, t0)
	require.NoError(t, err)

	// admin acknowledges the clock-in
	_, err = FilterLogs(ctx, database, zap.NewNop(), admin, LogFilter{})
	require.NoError(t, err)

	end := t0.Add(8*time.Hour + 30*time.Minute)
	closed, err := CloseShift(ctx, database, zap.NewNop(), alice, shift.ID, gps, end)
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())

	stored, err := findShift(ctx, database, shift.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EndTime)
	assert.True(t, end.Equal(*stored.EndTime))
	require.NotNil(t, stored.EndLat)
	assert.Equal(t, 45.0, *stored.EndLat)
	assert.True(t, stored.Unseen, "clock-out notifies admins again")

	hours, ok := ComputeHours(*stored)
	assert.True(t, ok)
	assert.Equal(t, 8.5, hours)

	_, err = CloseShift(ctx, database, zap.NewNop(), alice, shift.ID, gps, end.Add(time.Hour))
	assert.ErrorIs(t, err, errs.ErrNotOpen)
}

func TestCloseShift_Ownership(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")

	shift, err := OpenShift(ctx, database, zap.NewNop(), alice, "Alpha", gps, t0)
	require.NoError(t, err)

	_, err = CloseShift(ctx, database, zap.NewNop(), bob, shift.ID, gps, t0.Add(time.Hour))
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = CloseShift(ctx, database, zap.NewNop(), admin, shift.ID, gps, t0.Add(time.Hour))
	assert.NoError(t, err)
}

func TestCloseShift_Errors(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")

	_, err := CloseShift(ctx, database, zap.NewNop(), alice, "404", gps, t0)
	assert.ErrorIs(t, err, errs.ErrUnknownEntity)

	shift, err := OpenShift(ctx, database, zap.NewNop(), alice, "Alpha", gps, t0)
	require.NoError(t, err)

	_, err = CloseShift(ctx, database, zap.NewNop(), alice, shift.ID, nil, t0.Add(time.Hour))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = CloseShift(ctx, database, zap.NewNop(), alice, shift.ID, gps, t0.Add(-time.Hour))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestComputeHours(t *testing.T) {
	end := t0.Add(8*time.Hour + 30*time.Minute)
	hours, ok := ComputeHours(db.Shift{StartTime: t0, EndTime: &end})
	assert.True(t, ok)
	assert.Equal(t, 8.5, hours)

	third := t0.Add(20 * time.Minute)
	hours, ok = ComputeHours(db.Shift{StartTime: t0, EndTime: &third})
	assert.True(t, ok)
	assert.Equal(t, 0.33, hours)

	_, ok = ComputeHours(db.Shift{StartTime: t0})
	assert.False(t, ok)
}

func TestFilterLogs(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	rows := []db.Shift{
		{Username: "alice", SiteName: "Alpha", StartTime: t0, StartLat: 45, StartLon: 9, Unseen: true},
		{Username: "alice", SiteName: "Beta", StartTime: t0.Add(24 * time.Hour), StartLat: 45, StartLon: 9, Unseen: true},
		{Username: "bob", SiteName: "Alpha", StartTime: t0.Add(time.Hour), StartLat: 45, StartLon: 9, Unseen: true},
		{Username: "bob", SiteName: "Alpha", StartTime: t0.Add(2 * time.Hour), Unseen: true},
	}
	for i := range rows {
		require.NoError(t, database.InsertShift(ctx, &rows[i]))
	}
	// a missing start_lat column and a blank spreadsheet cell both count as no fix
	for _, rec := range []db.Record{
		{"username": "carol", "site_name": "Alpha", "start_time": t0, "unseen": true},
		{"username": "carol", "site_name": "Alpha", "start_time": t0, "start_lat": "", "start_lon": "", "unseen": true},
	} {
		_, err := database.Records().Insert(ctx, db.Shifts, rec)
		require.NoError(t, err)
	}

	all, err := FilterLogs(ctx, database, zap.NewNop(), admin, LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3, "rows without a GPS fix are left out")
	assert.Equal(t, "Beta", all[0].SiteName)
	assert.Equal(t, "bob", all[1].Username)
	assert.True(t, all[0].Unseen, "returned rows keep the state they were read with")

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	filtered, err := FilterLogs(ctx, database, zap.NewNop(), admin, LogFilter{Username: "ALICE", Date: &day})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Alpha", filtered[0].SiteName)
	assert.False(t, filtered[0].Unseen)

	badges, err := Badges(ctx, database, zap.NewNop(), admin)
	require.NoError(t, err)
	assert.Equal(t, 0, badges.Shifts)

	_, err = FilterLogs(ctx, database, zap.NewNop(), alice, LogFilter{})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestDeleteShift(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")

	shift, err := OpenShift(ctx, database, zap.NewNop(), alice, "Alpha", gps, t0)
	require.NoError(t, err)

	err = DeleteShift(ctx, database, zap.NewNop(), alice, shift.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	require.NoError(t, DeleteShift(ctx, database, zap.NewNop(), admin, shift.ID))

	active, err := ActiveShift(ctx, database, "alice")
	require.NoError(t, err)
	assert.Nil(t, active)

	err = DeleteShift(ctx, database, zap.NewNop(), admin, shift.ID)
	assert.ErrorIs(t, err, errs.ErrUnknownEntity)
}
