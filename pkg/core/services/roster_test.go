package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/core/model"
)

var testPolicy = RosterPolicy{InitialPassword: "1234", BcryptCost: bcrypt.MinCost}

func TestWorkerOnboarding(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()
	seedSites(t, database, "", "Alpha")

	w, err := CreateWorker(ctx, database, logger, admin, testPolicy, " Carla ", "Carla Rossi", "")
	require.NoError(t, err)
	assert.Equal(t, "carla", w.Username)
	assert.Equal(t, model.RoleWorker, w.Role)
	assert.True(t, w.MustChangePassword)
	assert.NotEqual(t, "1234", w.PasswordHash)

	_, err = CreateWorker(ctx, database, logger, admin, testPolicy, "CARLA", "", model.RoleWorker)
	assert.ErrorIs(t, err, errs.ErrConflict)

	_, err = Authenticate(ctx, database, logger, "carla", "wrong")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
	_, err = Authenticate(ctx, database, logger, "nobody", "1234")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	carla, err := Authenticate(ctx, database, logger, "Carla", "1234")
	require.NoError(t, err)
	assert.True(t, carla.MustChangePassword)

	_, err = SetAssignments(ctx, database, logger, admin, "carla", []string{"Alpha"})
	require.NoError(t, err)

	_, err = OpenShift(ctx, database, logger, carla, "Alpha", gps, t0)
	assert.ErrorIs(t, err, errs.ErrPasswordChangeRequired)

	_, err = ChangePassword(ctx, database, logger, carla, testPolicy, "1234")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	carla, err = ChangePassword(ctx, database, logger, carla, testPolicy, "s3cret")
	require.NoError(t, err)
	assert.False(t, carla.MustChangePassword)

	_, err = OpenShift(ctx, database, logger, carla, "Alpha", gps, t0)
	require.NoError(t, err)

	again, err := Authenticate(ctx, database, logger, "carla", "s3cret")
	require.NoError(t, err)
	assert.False(t, again.MustChangePassword)

	require.NoError(t, ResetPassword(ctx, database, logger, admin, testPolicy, "carla"))
	reset, err := Authenticate(ctx, database, logger, "carla", "1234")
	require.NoError(t, err)
	assert.True(t, reset.MustChangePassword)
}

func TestCreateWorker_Validation(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()

	_, err := CreateWorker(ctx, database, logger, alice, testPolicy, "dan", "", "")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = CreateWorker(ctx, database, logger, admin, testPolicy, "all", "", "")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = CreateWorker(ctx, database, logger, admin, testPolicy, "a,b", "", "")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = CreateWorker(ctx, database, logger, admin, testPolicy, "dan", "", "owner")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestRemoveWorker_KeepsHistory(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()

	_, err := CreateWorker(ctx, database, logger, admin, testPolicy, "alice", "Alice", "")
	require.NoError(t, err)
	seedSites(t, database, "alice", "Alpha", "Beta")

	_, err = OpenShift(ctx, database, logger, alice, "Alpha", gps, t0)
	require.NoError(t, err)

	err = RemoveWorker(ctx, database, logger, admin, "boss")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	require.NoError(t, RemoveWorker(ctx, database, logger, admin, "alice"))

	sites, err := SitesFor(ctx, database, "alice")
	require.NoError(t, err)
	assert.Empty(t, sites)

	shifts, err := database.GetShifts(ctx)
	require.NoError(t, err)
	assert.Len(t, shifts, 1)

	workers, err := ListWorkers(ctx, database, logger, admin)
	require.NoError(t, err)
	assert.Empty(t, workers)

	err = RemoveWorker(ctx, database, logger, admin, "alice")
	assert.ErrorIs(t, err, errs.ErrUnknownEntity)
}

func TestSites(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()

	seedSites(t, database, "alice", "Alpha", "Beta")
	seedSites(t, database, "bob", "Alpha")

	_, err := CreateSite(ctx, database, logger, admin, "alpha")
	assert.ErrorIs(t, err, errs.ErrConflict)

	unassigned, err := DeactivateSite(ctx, database, logger, admin, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, unassigned)

	sites, err := SitesFor(ctx, database, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta"}, sites)

	active, err := ListSites(ctx, database, logger, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Beta", active[0].Name)

	all, err := ListSites(ctx, database, logger, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = SetAssignments(ctx, database, logger, admin, "alice", []string{"Alpha"})
	assert.ErrorIs(t, err, errs.ErrSiteInactive)

	site, err := CreateSite(ctx, database, logger, admin, "ALPHA")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", site.Name)
	assert.True(t, site.Active)

	all, err = ListSites(ctx, database, logger, true)
	require.NoError(t, err)
	assert.Len(t, all, 2, "recreating a site reactivates it")
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()

	first, err := BootstrapAdmin(ctx, database, logger, testPolicy, "Boss")
	require.NoError(t, err)
	assert.Equal(t, "boss", first.Username)
	assert.Equal(t, model.RoleAdmin, first.Role)
	assert.True(t, first.MustChangePassword)

	_, err = BootstrapAdmin(ctx, database, logger, testPolicy, "other")
	assert.ErrorIs(t, err, errs.ErrConflict)

	actor, err := Authenticate(ctx, database, logger, "boss", "1234")
	require.NoError(t, err)
	assert.True(t, actor.IsAdmin())
}
