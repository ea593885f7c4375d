package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/errs"
)

func TestSetAssignments_ReplacesWholeSet(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()
	seedSites(t, database, "", "Alpha", "Beta")

	saved, err := SetAssignments(ctx, database, logger, admin, "alice", []string{"Beta", "alpha", " Alpha ", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, saved)

	_, err = SetAssignments(ctx, database, logger, admin, "alice", []string{"Beta"})
	require.NoError(t, err)

	sites, err := SitesFor(ctx, database, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta"}, sites)

	_, err = OpenShift(ctx, database, logger, alice, "Alpha", gps, t0)
	assert.ErrorIs(t, err, errs.ErrNotAssignedToSite)

	_, err = OpenShift(ctx, database, logger, alice, "Beta", gps, t0)
	assert.NoError(t, err)
}

func TestSetAssignments_Errors(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()
	seedSites(t, database, "alice", "Alpha")

	_, err := SetAssignments(ctx, database, logger, alice, "alice", []string{"Alpha"})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = SetAssignments(ctx, database, logger, admin, "alice", []string{"Nowhere"})
	assert.ErrorIs(t, err, errs.ErrUnknownEntity)

	// a rejected save leaves the previous set alone
	sites, err := SitesFor(ctx, database, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, sites)

	saved, err := SetAssignments(ctx, database, logger, admin, "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestWorkersFor(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "bob", "Alpha")
	seedSites(t, database, "alice", "Alpha", "Beta")

	workers, err := WorkersFor(ctx, database, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, workers)

	workers, err = WorkersFor(ctx, database, "Beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, workers)
}
