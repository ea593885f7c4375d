package services

import (
	"context"
	"errors"
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

// OpenShift clocks the actor in at siteName.
// The open-shift check runs again after the insert so that two clock-ins
// racing each other keep only the earliest row.
func OpenShift(ctx context.Context, database db.LedgerStore, logger *zap.Logger, actor model.Actor, siteName string, coords *model.Coordinates, now time.Time) (*db.Shift, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if coords == nil {
		return nil, fmt.Errorf("clock-in requires a GPS fix: %w", errs.ErrInvalidInput)
	}

	username := normalizeUsername(actor.Username)
	siteName = strings.TrimSpace(siteName)

	logger.Debug("Opening shift", zap.String("username", username), zap.String("site", siteName))

	// Only assigned sites, matched case-insensitively
	sites, err := SitesFor(ctx, database, username)
	if err != nil {
		return nil, err
	}
	siteName, ok := findFold(sites, siteName)
	if !ok {
		return nil, fmt.Errorf("%s at %s: %w", username, siteName, errs.ErrNotAssignedToSite)
	}

	// Check for an existing open shift
	active, err := ActiveShift(ctx, database, username)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("%s has shift %s open: %w", username, active.ID, errs.ErrAlreadyClockedIn)
	}

	// Insert the open shift
	shift := &db.Shift{
		Username:  username,
		SiteName:  siteName,
		StartTime: now,
		StartLat:  coords.Lat,
		StartLon:  coords.Lon,
		Unseen:    true,
	}
	if err := database.InsertShift(ctx, shift); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", username, errs.ErrAlreadyClockedIn)
		}
		return nil, fmt.Errorf("failed to insert shift: %w", err)
	}

	// Re-check now that our row is visible to rivals
	rival, err := earlierOpenShift(ctx, database, shift)
	if err != nil {
		if delErr := database.DeleteShift(ctx, shift.ID); delErr != nil {
			logger.Error("Failed to withdraw shift after failed re-check",
				zap.String("shift_id", shift.ID), zap.Error(delErr))
			return nil, fmt.Errorf("%w (shift %s left open: %v)", err, shift.ID, delErr)
		}
		return nil, err
	}
	if rival != nil {
		logger.Info("Concurrent clock-in detected, withdrawing shift",
			zap.String("username", username),
			zap.String("shift_id", shift.ID),
			zap.String("kept_shift_id", rival.ID))
		if err := database.DeleteShift(ctx, shift.ID); err != nil {
			return nil, fmt.Errorf("failed to withdraw duplicate shift %s: %w", shift.ID, err)
		}
		return nil, fmt.Errorf("%s has shift %s open: %w", username, rival.ID, errs.ErrAlreadyClockedIn)
	}

	logger.Info("Shift opened",
		zap.String("shift_id", shift.ID),
		zap.String("username", username),
		zap.String("site", siteName),
		zap.Time("start", now))

	return shift, nil
}

// earlierOpenShift returns another open shift of the same worker that wins
// over mine: earlier start, or the lower id when the starts are equal.
func earlierOpenShift(ctx context.Context, database db.ShiftStore, mine *db.Shift) (*db.Shift, error) {
	shifts, err := database.GetShifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shifts: %w", err)
	}

	for i := range shifts {
		s := shifts[i]
		if s.ID == mine.ID || !s.IsOpen() || !strings.EqualFold(s.Username, mine.Username) {
			continue
		}
		if s.StartTime.Before(mine.StartTime) || (s.StartTime.Equal(mine.StartTime) && idLess(s.ID, mine.ID)) {
			return &s, nil
		}
	}
	return nil, nil
}

// CloseShift clocks a shift out. Workers may only close their own shifts.
func CloseShift(ctx context.Context, database db.ShiftStore, logger *zap.Logger, actor model.Actor, shiftID string, coords *model.Coordinates, now time.Time) (*db.Shift, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if coords == nil {
		return nil, fmt.Errorf("clock-out requires a GPS fix: %w", errs.ErrInvalidInput)
	}

	shift, err := findShift(ctx, database, shiftID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, shift.Username); err != nil {
		return nil, err
	}
	if !shift.IsOpen() {
		return nil, fmt.Errorf("shift %s closed at %s: %w", shift.ID, shift.EndTime.Format(time.RFC3339), errs.ErrNotOpen)
	}
	if now.Before(shift.StartTime) {
		return nil, fmt.Errorf("clock-out %s precedes clock-in %s: %w",
			now.Format(time.RFC3339), shift.StartTime.Format(time.RFC3339), errs.ErrInvalidInput)
	}

	logger.Debug("Closing shift", zap.String("shift_id", shift.ID), zap.String("username", shift.Username))

	patch := db.Record{
		"end_time": now.UTC(),
		"end_lat":  coords.Lat,
		"end_lon":  coords.Lon,
		"unseen":   true,
	}
	if err := database.UpdateShift(ctx, shift.ID, patch); err != nil {
		return nil, fmt.Errorf("failed to close shift: %w", err)
	}

	end, lat, lon := now, coords.Lat, coords.Lon
	shift.EndTime = &end
	shift.EndLat = &lat
	shift.EndLon = &lon
	shift.Unseen = true

	hours, _ := ComputeHours(*shift)
	logger.Info("Shift closed",
		zap.String("shift_id", shift.ID),
		zap.String("username", shift.Username),
		zap.Float64("hours", hours))

	return shift, nil
}

// ActiveShift returns the worker's open shift, or nil when clocked out
func ActiveShift(ctx context.Context, database db.ShiftStore, username string) (*db.Shift, error) {
	shifts, err := database.GetShifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shifts: %w", err)
	}

	var active *db.Shift
	for i := range shifts {
		s := shifts[i]
		if !s.IsOpen() || !strings.EqualFold(s.Username, username) {
			continue
		}
		if active == nil || s.StartTime.Before(active.StartTime) {
			active = &s
		}
	}
	return active, nil
}

// DeleteShift purges a shift row. Shifts have no cancel transition, so this
// is the only way to undo an erroneous clock-in.
func DeleteShift(ctx context.Context, database db.ShiftStore, logger *zap.Logger, actor model.Actor, shiftID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := database.DeleteShift(ctx, shiftID); err != nil {
		return err
	}
	logger.Info("Shift deleted", zap.String("shift_id", shiftID), zap.String("by", actor.Username))
	return nil
}

// LogFilter narrows the location view. Empty fields match everything.
type LogFilter struct {
	Username string
	SiteName string
	// Date matches shifts started on that calendar day in Date's location
	Date *time.Time
}

// FilterLogs returns shifts that carry a start GPS fix, newest first.
// StartLat is a plain float, so a missing fix decodes to 0 and is dropped
// along with an explicit 0; a nullable StartLat must keep dropping nil.
// Viewing the logs acknowledges them: every shift is marked seen afterwards,
// while the returned rows keep the unseen state they were read with.
func FilterLogs(ctx context.Context, database db.LedgerStore, logger *zap.Logger, actor model.Actor, filter LogFilter) ([]db.Shift, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	shifts, err := database.GetShifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shifts: %w", err)
	}

	var out []db.Shift
	for _, s := range shifts {
		if s.StartLat == 0 {
			continue
		}
		if filter.Username != "" && !strings.EqualFold(s.Username, filter.Username) {
			continue
		}
		if filter.SiteName != "" && !strings.EqualFold(s.SiteName, filter.SiteName) {
			continue
		}
		if filter.Date != nil && !sameDay(s.StartTime, *filter.Date) {
			continue
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})

	seen, err := workflow.MarkSeen(ctx, database.Records(), db.Shifts)
	if err != nil {
		return nil, err
	}

	logger.Debug("Filtered shift logs",
		zap.Int("total", len(shifts)),
		zap.Int("matched", len(out)),
		zap.Int("marked_seen", seen))

	return out, nil
}

func findShift(ctx context.Context, database db.ShiftStore, id string) (*db.Shift, error) {
	shifts, err := database.GetShifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shifts: %w", err)
	}
	for i := range shifts {
		if shifts[i].ID == id {
			return &shifts[i], nil
		}
	}
	return nil, fmt.Errorf("shift %s: %w", id, errs.ErrUnknownEntity)
}

// sameDay compares calendar days in ref's location
func sameDay(t, ref time.Time) bool {
	ty, tm, td := t.In(ref.Location()).Date()
	ry, rm, rd := ref.Date()
	return ty == ry && tm == rm && td == rd
}

// findFold returns the stored spelling of v
func findFold(values []string, v string) (string, bool) {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return s, true
		}
	}
	return v, false
}
