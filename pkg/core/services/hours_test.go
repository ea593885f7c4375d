package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/db"
)

func closedShift(username, site string, start time.Time, d time.Duration, lat float64) db.Shift {
	end := start.Add(d)
	return db.Shift{Username: username, SiteName: site, StartTime: start, EndTime: &end, StartLat: lat, StartLon: lat}
}

func insertShifts(t *testing.T, database *db.DB, shifts ...db.Shift) {
	t.Helper()
	for i := range shifts {
		require.NoError(t, database.InsertShift(context.Background(), &shifts[i]))
	}
}

func TestAggregateByDay(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	insertShifts(t, database,
		closedShift("alice", "Alpha", t0, 4*time.Hour, 45),
		closedShift("alice", "Alpha", t0.Add(5*time.Hour), 2*time.Hour+30*time.Minute, 45),
		closedShift("alice", "Beta", t0.Add(24*time.Hour), 6*time.Hour, 0),
		closedShift("alice", "Alpha", t0.AddDate(0, 1, 0), 8*time.Hour, 45),
		closedShift("bob", "Alpha", t0, 8*time.Hour, 45),
		db.Shift{Username: "alice", SiteName: "Alpha", StartTime: t0.Add(48 * time.Hour), StartLat: 45},
	)

	pivot, err := AggregateByDay(ctx, database, zap.NewNop(), alice, "alice", "", t0)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 11}, pivot.Days)
	require.Len(t, pivot.Rows, 2)

	assert.Equal(t, "Alpha", pivot.Rows[0].Site)
	assert.Equal(t, map[int]float64{10: 6.5}, pivot.Rows[0].Hours, "same-day shifts add up")
	assert.Equal(t, 6.5, pivot.Rows[0].Total)

	assert.Equal(t, "Beta", pivot.Rows[1].Site)
	assert.Equal(t, 6.0, pivot.Rows[1].Hours[11])
	assert.Equal(t, 12.5, pivot.Total)

	onlyBeta, err := AggregateByDay(ctx, database, zap.NewNop(), admin, "alice", "Beta", t0)
	require.NoError(t, err)
	require.Len(t, onlyBeta.Rows, 1)
	assert.Equal(t, 6.0, onlyBeta.Total)
}

func TestAggregateByDay_UsesMonthLocation(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	rome := time.FixedZone("CEST", 2*60*60)

	// 23:30 UTC on the 31st is already the 1st in Rome
	insertShifts(t, database,
		closedShift("alice", "Alpha", time.Date(2026, 3, 31, 23, 30, 0, 0, time.UTC), 2*time.Hour, 45),
	)

	april, err := AggregateByDay(ctx, database, zap.NewNop(), alice, "alice", "", time.Date(2026, 4, 15, 0, 0, 0, 0, rome))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, april.Days)
	assert.Equal(t, 2.0, april.Total)

	march, err := AggregateByDay(ctx, database, zap.NewNop(), alice, "alice", "", time.Date(2026, 3, 15, 0, 0, 0, 0, rome))
	require.NoError(t, err)
	assert.Empty(t, march.Rows)
}

func TestAggregateByDay_OtherWorkerForbidden(t *testing.T) {
	_, err := AggregateByDay(context.Background(), newTestDB(t), zap.NewNop(), bob, "alice", "", t0)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestHoursReport(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	insertShifts(t, database,
		closedShift("alice", "Alpha", t0, 4*time.Hour, 45),
		closedShift("alice", "Beta", t0.Add(24*time.Hour), 6*time.Hour, 0),
		closedShift("alice", "Alpha", t0.AddDate(0, 1, 0), 8*time.Hour, 45),
		closedShift("bob", "Alpha", t0, 3*time.Hour, 45),
	)

	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := HoursReport(ctx, database, zap.NewNop(), alice, HoursFilter{Username: "alice", Month: &month})
	require.NoError(t, err)
	require.Len(t, report.Entries, 2, "shifts without GPS still count for hours")
	assert.Equal(t, "Beta", report.Entries[0].Shift.SiteName)
	assert.Equal(t, 10.0, report.Total)

	day := t0
	byDay, err := HoursReport(ctx, database, zap.NewNop(), admin, HoursFilter{Day: &day})
	require.NoError(t, err)
	assert.Len(t, byDay.Entries, 2)
	assert.Equal(t, 7.0, byDay.Total)

	everything, err := HoursReport(ctx, database, zap.NewNop(), admin, HoursFilter{SiteName: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 15.0, everything.Total)

	_, err = HoursReport(ctx, database, zap.NewNop(), alice, HoursFilter{})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}
