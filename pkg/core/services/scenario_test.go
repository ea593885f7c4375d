package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/model"
)

func TestWorkdayScenario(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()
	seedSites(t, database, "alice", "Alpha")

	shift, err := OpenShift(ctx, database, logger, alice, "Alpha", &model.Coordinates{Lat: 45.0, Lon: 9.0}, t0)
	require.NoError(t, err)

	issue, err := ReportIssue(ctx, database, logger, alice, "scaffold loose", nil, t0.Add(time.Hour))
	require.NoError(t, err)

	badges, err := Badges(ctx, database, logger, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, badges.Issues)
	assert.Equal(t, 1, badges.Shifts)

	_, err = ListIssues(ctx, database, logger, admin, IssueFilter{})
	require.NoError(t, err)

	_, err = ResolveIssue(ctx, database, logger, admin, issue.ID, t0.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = CloseShift(ctx, database, logger, alice, shift.ID, &model.Coordinates{Lat: 45.0, Lon: 9.0}, t0.Add(6*time.Hour))
	require.NoError(t, err)

	pivot, err := AggregateByDay(ctx, database, logger, admin, "alice", "", t0)
	require.NoError(t, err)
	require.Len(t, pivot.Rows, 1)
	assert.Equal(t, "Alpha", pivot.Rows[0].Site)
	assert.Equal(t, 6.0, pivot.Rows[0].Hours[t0.Day()])
	assert.Equal(t, 6.0, pivot.Rows[0].Total)

	badges, err = Badges(ctx, database, logger, admin)
	require.NoError(t, err)
	assert.Equal(t, 0, badges.Issues)
	assert.Equal(t, 1, badges.Shifts, "clock-out raises the shift badge")
}
