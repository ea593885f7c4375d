package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/core/model"
	"github.com/chemifol/fieldops/pkg/core/workflow"
	"github.com/chemifol/fieldops/pkg/db"
)

// MaterialFlow is the PENDING to ARCHIVED workflow of material requests.
// Archiving appends a fulfillment line to the item list.
var MaterialFlow = workflow.Definition{
	Collection: db.MaterialRequests,
	Initial:    model.StatusPending,
	Terminal:   model.StatusArchived,
	Annotate: func(rec db.Record, at time.Time) db.Record {
		return db.Record{"item_list": AnnotateFulfilled(db.FormatValue(rec["item_list"]), at)}
	},
}

// AnnotateFulfilled appends the fulfillment stamp to an item list
func AnnotateFulfilled(items string, at time.Time) string {
	return fmt.Sprintf("%s\n[fulfilled %s]", strings.TrimRight(items, "\n"), at.Format("2006-01-02 15:04 MST"))
}

// SubmitMaterialRequest records a worker's material requisition for one of
// their assigned sites
func SubmitMaterialRequest(ctx context.Context, database db.RequestStore, logger *zap.Logger, actor model.Actor, siteName, items string, now time.Time) (*db.MaterialRequest, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	items = strings.TrimSpace(items)
	if items == "" {
		return nil, fmt.Errorf("item list is empty: %w", errs.ErrInvalidInput)
	}

	username := normalizeUsername(actor.Username)
	siteName = strings.TrimSpace(siteName)

	sites, err := SitesFor(ctx, database, username)
	if err != nil {
		return nil, err
	}
	siteName, ok := findFold(sites, siteName)
	if !ok {
		return nil, fmt.Errorf("%s at %s: %w", username, siteName, errs.ErrNotAssignedToSite)
	}

	req := &db.MaterialRequest{
		Username:    username,
		SiteName:    siteName,
		ItemList:    items,
		RequestDate: now,
		Status:      model.StatusPending,
		Unseen:      true,
	}
	if err := database.InsertMaterialRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to insert material request: %w", err)
	}

	logger.Info("Material request submitted",
		zap.String("id", req.ID),
		zap.String("username", username),
		zap.String("site", siteName))

	return req, nil
}

// MaterialFilter narrows the admin request list. Empty fields match everything.
type MaterialFilter struct {
	Status   string
	SiteName string
}

// ListMaterialRequests returns requests newest first and acknowledges them
func ListMaterialRequests(ctx context.Context, database db.RequestStore, logger *zap.Logger, actor model.Actor, filter MaterialFilter) ([]db.MaterialRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	requests, err := database.GetMaterialRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch material requests: %w", err)
	}

	var out []db.MaterialRequest
	for _, r := range requests {
		if filter.Status != "" && !strings.EqualFold(r.Status, filter.Status) {
			continue
		}
		if filter.SiteName != "" && !strings.EqualFold(r.SiteName, filter.SiteName) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestDate.After(out[j].RequestDate)
	})

	seen, err := MaterialFlow.MarkSeen(ctx, database.Records())
	if err != nil {
		return nil, err
	}
	logger.Debug("Listed material requests", zap.Int("count", len(out)), zap.Int("marked_seen", seen))

	return out, nil
}

// RecentMaterialRequests returns the actor's own latest requests, newest first
func RecentMaterialRequests(ctx context.Context, database db.MaterialRequestStore, logger *zap.Logger, actor model.Actor, limit int) ([]db.MaterialRequest, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	requests, err := database.GetMaterialRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch material requests: %w", err)
	}

	var out []db.MaterialRequest
	for _, r := range requests {
		if strings.EqualFold(r.Username, actor.Username) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestDate.After(out[j].RequestDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FulfillMaterialRequest archives a pending request
func FulfillMaterialRequest(ctx context.Context, database db.RecordSource, logger *zap.Logger, actor model.Actor, id string, now time.Time) (*db.MaterialRequest, error) {
	return TransitionMaterialRequest(ctx, database, logger, actor, id, model.StatusArchived, now)
}

// TransitionMaterialRequest moves a request to target.
// Only PENDING to ARCHIVED is allowed.
func TransitionMaterialRequest(ctx context.Context, database db.RecordSource, logger *zap.Logger, actor model.Actor, id, target string, now time.Time) (*db.MaterialRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	rec, err := MaterialFlow.Transition(ctx, database.Records(), id, strings.ToUpper(target), now)
	if err != nil {
		return nil, err
	}
	req, err := db.FromRecord[db.MaterialRequest](rec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode material request %s: %w", id, err)
	}

	logger.Info("Material request transitioned", zap.String("id", id), zap.String("status", req.Status))
	return &req, nil
}

// DeleteMaterialRequest removes an archived request
func DeleteMaterialRequest(ctx context.Context, database db.RecordSource, logger *zap.Logger, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := MaterialFlow.ArchiveDelete(ctx, database.Records(), id); err != nil {
		return err
	}
	logger.Info("Material request deleted", zap.String("id", id))
	return nil
}
