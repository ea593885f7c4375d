package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/core/model"
)

func TestReportIssue_NeedsOpenShift(t *testing.T) {
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")

	_, err := ReportIssue(context.Background(), database, zap.NewNop(), alice, "broken ladder", nil, t0)
	assert.ErrorIs(t, err, errs.ErrNotOpen)
}

func TestReportIssue(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	seedSites(t, database, "alice", "Alpha")

	_, err := OpenShift(ctx, database, zap.NewNop(), alice, "Alpha", gps, t0)
	require.NoError(t, err)

	issue, err := ReportIssue(ctx, database, zap.NewNop(), alice, "broken ladder", nil, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Alpha", issue.SiteName, "site comes from the open shift")
	assert.Equal(t, model.StatusOpen, issue.Status)
	assert.Nil(t, issue.ImageRef)

	photo := "uploads/ladder.jpg"
	withPhoto, err := ReportIssue(ctx, database, zap.NewNop(), alice, "", &photo, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, withPhoto.ImageRef)

	blank := " "
	_, err = ReportIssue(ctx, database, zap.NewNop(), alice, "", &blank, t0)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	issues, err := database.GetIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Nil(t, issues[0].ImageRef)
	require.NotNil(t, issues[1].ImageRef)
	assert.Equal(t, photo, *issues[1].ImageRef)
}

func TestIssueLifecycle(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()
	seedSites(t, database, "alice", "Alpha")

	_, err := OpenShift(ctx, database, logger, alice, "Alpha", gps, t0)
	require.NoError(t, err)
	issue, err := ReportIssue(ctx, database, logger, alice, "leak", nil, t0)
	require.NoError(t, err)

	err = DeleteIssue(ctx, database, logger, admin, issue.ID)
	assert.ErrorIs(t, err, errs.ErrNotArchivable)

	_, err = TransitionIssue(ctx, database, logger, admin, issue.ID, "bogus", t0)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	resolved, err := ResolveIssue(ctx, database, logger, admin, issue.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, resolved.Status)
	assert.Equal(t, "leak", resolved.Description)

	_, err = TransitionIssue(ctx, database, logger, admin, issue.ID, model.StatusOpen, t0)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	require.NoError(t, DeleteIssue(ctx, database, logger, admin, issue.ID))

	_, err = ResolveIssue(ctx, database, logger, admin, issue.ID, t0)
	assert.ErrorIs(t, err, errs.ErrUnknownEntity)
}

func TestListIssues_Filters(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	logger := zap.NewNop()
	seedSites(t, database, "alice", "Alpha")
	seedSites(t, database, "bob", "Beta")

	_, err := OpenShift(ctx, database, logger, alice, "Alpha", gps, t0)
	require.NoError(t, err)
	_, err = OpenShift(ctx, database, logger, bob, "Beta", gps, t0)
	require.NoError(t, err)

	first, err := ReportIssue(ctx, database, logger, alice, "one", nil, t0)
	require.NoError(t, err)
	_, err = ReportIssue(ctx, database, logger, bob, "two", nil, t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = ResolveIssue(ctx, database, logger, admin, first.ID, t0)
	require.NoError(t, err)

	badges, err := Badges(ctx, database, logger, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, badges.Issues, "resolved issues do not count")

	open, err := ListIssues(ctx, database, logger, admin, IssueFilter{Status: model.StatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "two", open[0].Description)

	alpha, err := ListIssues(ctx, database, logger, admin, IssueFilter{SiteName: "Alpha"})
	require.NoError(t, err)
	require.Len(t, alpha, 1)
	assert.Equal(t, "one", alpha[0].Description)

	badges, err = Badges(ctx, database, logger, admin)
	require.NoError(t, err)
	assert.Equal(t, 0, badges.Issues)
}
