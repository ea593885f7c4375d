package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/model"
	"github.com/chemifol/fieldops/pkg/core/workflow"
	"github.com/chemifol/fieldops/pkg/db"
)

// BadgeCounts are the unseen counters shown next to the admin views
type BadgeCounts struct {
	Shifts    int
	Issues    int
	Materials int
}

// Badges counts unseen rows straight from the store. The counts are a
// snapshot; another admin may acknowledge the rows right after.
func Badges(ctx context.Context, database db.RecordSource, logger *zap.Logger, actor model.Actor) (*BadgeCounts, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	store := database.Records()

	shifts, err := workflow.CountUnseen(ctx, store, db.Shifts, nil)
	if err != nil {
		return nil, err
	}
	issues, err := IssueFlow.UnseenCount(ctx, store)
	if err != nil {
		return nil, err
	}
	materials, err := MaterialFlow.UnseenCount(ctx, store)
	if err != nil {
		return nil, err
	}

	logger.Debug("Computed badges",
		zap.Int("shifts", shifts),
		zap.Int("issues", issues),
		zap.Int("materials", materials))

	return &BadgeCounts{Shifts: shifts, Issues: issues, Materials: materials}, nil
}
