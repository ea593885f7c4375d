package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/core/model"
	"github.com/chemifol/fieldops/pkg/db"
)

// SetAssignments replaces the worker's whole site set: every existing
// assignment is deleted and then the new set inserted. A reader running
// between the two steps sees the worker with no sites.
func SetAssignments(ctx context.Context, database db.DirectoryStore, logger *zap.Logger, actor model.Actor, username string, siteNames []string) ([]string, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	username = normalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", errs.ErrInvalidInput)
	}

	sites, err := database.GetSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sites: %w", err)
	}
	// Index sites by lowercased name
	byName := make(map[string]db.Site, len(sites))
	for _, s := range sites {
		byName[strings.ToLower(s.Name)] = s
	}

	// Resolve the requested names, skipping blanks and duplicates
	wanted := make([]string, 0, len(siteNames))
	seen := make(map[string]bool)
	for _, name := range siteNames {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		site, ok := byName[key]
		if !ok {
			return nil, fmt.Errorf("site %q: %w", name, errs.ErrUnknownEntity)
		}
		if !site.Active {
			return nil, fmt.Errorf("site %q: %w", site.Name, errs.ErrSiteInactive)
		}
		seen[key] = true
		wanted = append(wanted, site.Name)
	}
	sort.Strings(wanted)

	// Drop the old set, then insert the new one
	removed, err := removeAssignments(ctx, database, func(a db.Assignment) bool {
		return strings.EqualFold(a.Username, username)
	})
	if err != nil {
		return nil, err
	}

	rows := make([]db.Assignment, 0, len(wanted))
	for _, name := range wanted {
		rows = append(rows, db.Assignment{Username: username, SiteName: name})
	}
	if err := database.InsertAssignments(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to insert assignments: %w", err)
	}

	logger.Info("Assignments saved",
		zap.String("username", username),
		zap.Strings("sites", wanted),
		zap.Int("replaced", removed))

	return wanted, nil
}

// SitesFor returns the sorted set of sites the worker is assigned to
func SitesFor(ctx context.Context, database db.AssignmentStore, username string) ([]string, error) {
	return assignedValues(ctx, database, func(a db.Assignment) (string, bool) {
		return a.SiteName, strings.EqualFold(a.Username, username)
	})
}

// WorkersFor returns the sorted set of usernames assigned to the site
func WorkersFor(ctx context.Context, database db.AssignmentStore, siteName string) ([]string, error) {
	return assignedValues(ctx, database, func(a db.Assignment) (string, bool) {
		return normalizeUsername(a.Username), strings.EqualFold(a.SiteName, siteName)
	})
}

func assignedValues(ctx context.Context, database db.AssignmentStore, pick func(db.Assignment) (string, bool)) ([]string, error) {
	assignments, err := database.GetAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	seen := make(map[string]bool)
	out := []string{}
	for _, a := range assignments {
		v, ok := pick(a)
		if !ok || v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// removeAssignments deletes every assignment matching the predicate, one store
// call per row, and returns how many were deleted
func removeAssignments(ctx context.Context, database db.AssignmentStore, match func(db.Assignment) bool) (int, error) {
	assignments, err := database.GetAssignments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	n := 0
	for _, a := range assignments {
		if !match(a) {
			continue
		}
		if err := database.DeleteAssignment(ctx, a.ID); err != nil {
			return n, fmt.Errorf("failed to delete assignment %s: %w", a.ID, err)
		}
		n++
	}
	return n, nil
}
