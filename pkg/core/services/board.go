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
	"github.com/chemifol/fieldops/pkg/db"
)

// DefaultMaxDurationDays caps how long an announcement may stay on the board
const DefaultMaxDurationDays = 60

// AnnouncementInput is what an admin fills in to publish on the board
type AnnouncementInput struct {
	Title   string
	Message string
	// Recipients holds model.RecipientsAll or usernames. Unknown usernames
	// are stored as given and simply never match a viewer.
	Recipients   []string
	DurationDays int
}

// Publish posts an announcement that expires durationDays after now.
// maxDays <= 0 falls back to DefaultMaxDurationDays.
func Publish(ctx context.Context, database db.AnnouncementStore, logger *zap.Logger, actor model.Actor, input AnnouncementInput, maxDays int, now time.Time) (*db.Announcement, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxDurationDays
	}

	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, fmt.Errorf("title and message are required: %w", errs.ErrInvalidInput)
	}
	if input.DurationDays < 1 || input.DurationDays > maxDays {
		return nil, fmt.Errorf("duration %d days outside 1..%d: %w", input.DurationDays, maxDays, errs.ErrInvalidInput)
	}
	recipients := model.FormatRecipients(input.Recipients)
	if recipients == "" {
		return nil, fmt.Errorf("no recipients: %w", errs.ErrInvalidInput)
	}

	a := &db.Announcement{
		Title:       title,
		Message:     message,
		Recipients:  recipients,
		PublishedAt: now,
		ExpiresAt:   now.AddDate(0, 0, input.DurationDays),
	}
	if err := database.InsertAnnouncement(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to insert announcement: %w", err)
	}

	logger.Info("Announcement published",
		zap.String("id", a.ID),
		zap.String("recipients", recipients),
		zap.Time("expires_at", a.ExpiresAt))

	return a, nil
}

// VisibleFor returns the unexpired announcements addressed to username,
// most recent first
func VisibleFor(ctx context.Context, database db.AnnouncementStore, logger *zap.Logger, username string, now time.Time) ([]db.Announcement, error) {
	return activeAnnouncements(ctx, database, logger, func(a db.Announcement) bool {
		return model.RecipientsInclude(a.Recipients, username)
	}, now)
}

// ActiveAnnouncements returns every unexpired announcement for the admin board
func ActiveAnnouncements(ctx context.Context, database db.AnnouncementStore, logger *zap.Logger, actor model.Actor, now time.Time) ([]db.Announcement, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return activeAnnouncements(ctx, database, logger, func(db.Announcement) bool { return true }, now)
}

func activeAnnouncements(ctx context.Context, database db.AnnouncementStore, logger *zap.Logger, include func(db.Announcement) bool, now time.Time) ([]db.Announcement, error) {
	all, err := database.GetAnnouncements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch announcements: %w", err)
	}

	var out []db.Announcement
	for _, a := range all {
		if a.ExpiresAt.After(now) && include(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})

	logger.Debug("Filtered announcements", zap.Int("total", len(all)), zap.Int("visible", len(out)))
	return out, nil
}

// DeleteAnnouncement removes an announcement whatever its expiry
func DeleteAnnouncement(ctx context.Context, database db.AnnouncementStore, logger *zap.Logger, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := database.DeleteAnnouncement(ctx, id); err != nil {
		return err
	}
	logger.Info("Announcement deleted", zap.String("id", id))
	return nil
}
