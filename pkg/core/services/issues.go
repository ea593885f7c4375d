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

// IssueFlow is the OPEN to RESOLVED workflow of incident reports
var IssueFlow = workflow.Definition{
	Collection: db.Issues,
	Initial:    model.StatusOpen,
	Terminal:   model.StatusResolved,
}

// ReportIssue files an incident at the site of the actor's open shift.
// Either a description or an image reference is needed; the image is optional.
func ReportIssue(ctx context.Context, database db.IssueWorkflowStore, logger *zap.Logger, actor model.Actor, description string, imageRef *string, now time.Time) (*db.Issue, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	description = strings.TrimSpace(description)
	if imageRef != nil && strings.TrimSpace(*imageRef) == "" {
		imageRef = nil
	}
	if description == "" && imageRef == nil {
		return nil, fmt.Errorf("issue needs a description or an image: %w", errs.ErrInvalidInput)
	}

	username := normalizeUsername(actor.Username)
	shift, err := ActiveShift(ctx, database, username)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, fmt.Errorf("%s has no open shift: %w", username, errs.ErrNotOpen)
	}

	issue := &db.Issue{
		Username:    username,
		Description: description,
		SiteName:    shift.SiteName,
		ReportedAt:  now,
		Status:      model.StatusOpen,
		ImageRef:    imageRef,
		Unseen:      true,
	}
	if err := database.InsertIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("failed to insert issue: %w", err)
	}

	logger.Info("Issue reported",
		zap.String("id", issue.ID),
		zap.String("username", username),
		zap.String("site", issue.SiteName),
		zap.Bool("has_image", imageRef != nil))

	return issue, nil
}

// IssueFilter narrows the admin issue list. Empty fields match everything.
type IssueFilter struct {
	Status   string
	SiteName string
}

// ListIssues returns issues newest first and acknowledges them
func ListIssues(ctx context.Context, database db.IssueWorkflowStore, logger *zap.Logger, actor model.Actor, filter IssueFilter) ([]db.Issue, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	issues, err := database.GetIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issues: %w", err)
	}

	var out []db.Issue
	for _, i := range issues {
		if filter.Status != "" && !strings.EqualFold(i.Status, filter.Status) {
			continue
		}
		if filter.SiteName != "" && !strings.EqualFold(i.SiteName, filter.SiteName) {
			continue
		}
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].ReportedAt.After(out[b].ReportedAt)
	})

	seen, err := IssueFlow.MarkSeen(ctx, database.Records())
	if err != nil {
		return nil, err
	}
	logger.Debug("Listed issues", zap.Int("count", len(out)), zap.Int("marked_seen", seen))

	return out, nil
}

// ResolveIssue marks an open issue resolved
func ResolveIssue(ctx context.Context, database db.RecordSource, logger *zap.Logger, actor model.Actor, id string, now time.Time) (*db.Issue, error) {
	return TransitionIssue(ctx, database, logger, actor, id, model.StatusResolved, now)
}

// TransitionIssue moves an issue to target. Only OPEN to RESOLVED is allowed.
func TransitionIssue(ctx context.Context, database db.RecordSource, logger *zap.Logger, actor model.Actor, id, target string, now time.Time) (*db.Issue, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	rec, err := IssueFlow.Transition(ctx, database.Records(), id, strings.ToUpper(target), now)
	if err != nil {
		return nil, err
	}
	issue, err := db.FromRecord[db.Issue](rec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode issue %s: %w", id, err)
	}

	logger.Info("Issue transitioned", zap.String("id", id), zap.String("status", issue.Status))
	return &issue, nil
}

// DeleteIssue removes a resolved issue
func DeleteIssue(ctx context.Context, database db.RecordSource, logger *zap.Logger, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := IssueFlow.ArchiveDelete(ctx, database.Records(), id); err != nil {
		return err
	}
	logger.Info("Issue deleted", zap.String("id", id))
	return nil
}
