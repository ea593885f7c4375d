package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/core/model"
	"github.com/chemifol/fieldops/pkg/db"
)

// DefaultInitialPassword is handed to new and reset workers
const DefaultInitialPassword = "1234"

// RosterPolicy controls credentials issued by the roster
type RosterPolicy struct {
	InitialPassword string
	BcryptCost      int
}

func (p RosterPolicy) initialPassword() string {
	if p.InitialPassword == "" {
		return DefaultInitialPassword
	}
	return p.InitialPassword
}

func (p RosterPolicy) hash(password string) (string, error) {
	cost := p.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CreateWorker adds a worker holding the initial password. The worker must
// change it before doing anything else.
func CreateWorker(ctx context.Context, database db.WorkerStore, logger *zap.Logger, actor model.Actor, policy RosterPolicy, username, displayName string, role model.Role) (*db.Worker, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	username = normalizeUsername(username)
	if username == "" || strings.ContainsAny(username, ", ") {
		return nil, fmt.Errorf("invalid username %q: %w", username, errs.ErrInvalidInput)
	}
	if strings.EqualFold(username, model.RecipientsAll) {
		return nil, fmt.Errorf("username %q is reserved: %w", username, errs.ErrInvalidInput)
	}
	if role == "" {
		role = model.RoleWorker
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q: %w", role, errs.ErrInvalidInput)
	}

	existing, err := findWorker(ctx, database, username)
	if err != nil && !errors.Is(err, errs.ErrUnknownEntity) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("worker %s exists: %w", username, errs.ErrConflict)
	}

	hash, err := policy.hash(policy.initialPassword())
	if err != nil {
		return nil, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	worker := &db.Worker{
		Username:           username,
		PasswordHash:       hash,
		Role:               role,
		DisplayName:        displayName,
		MustChangePassword: true,
	}
	if err := database.InsertWorker(ctx, worker); err != nil {
		return nil, fmt.Errorf("failed to insert worker: %w", err)
	}

	logger.Info("Worker created", zap.String("username", username), zap.String("role", string(role)))
	return worker, nil
}

// BootstrapAdmin creates the first admin of an empty roster. It refuses to
// run once any worker exists.
func BootstrapAdmin(ctx context.Context, database db.WorkerStore, logger *zap.Logger, policy RosterPolicy, username string) (*db.Worker, error) {
	workers, err := database.GetWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workers: %w", err)
	}
	if len(workers) > 0 {
		return nil, fmt.Errorf("roster already has %d workers: %w", len(workers), errs.ErrConflict)
	}

	system := model.Actor{Username: username, Role: model.RoleAdmin}
	return CreateWorker(ctx, database, logger, system, policy, username, "", model.RoleAdmin)
}

// RemoveWorker deletes a worker and their assignments. Shifts, requests and
// issues they filed stay for reporting.
func RemoveWorker(ctx context.Context, database db.RosterStore, logger *zap.Logger, actor model.Actor, username string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	username = normalizeUsername(username)
	if strings.EqualFold(username, actor.Username) {
		return fmt.Errorf("cannot remove yourself: %w", errs.ErrForbidden)
	}

	worker, err := findWorker(ctx, database, username)
	if err != nil {
		return err
	}

	removed, err := removeAssignments(ctx, database, func(a db.Assignment) bool {
		return strings.EqualFold(a.Username, username)
	})
	if err != nil {
		return err
	}
	if err := database.DeleteWorker(ctx, worker.ID); err != nil {
		return fmt.Errorf("failed to delete worker: %w", err)
	}

	logger.Info("Worker removed", zap.String("username", username), zap.Int("assignments_removed", removed))
	return nil
}

// ListWorkers returns every worker sorted by username
func ListWorkers(ctx context.Context, database db.WorkerStore, logger *zap.Logger, actor model.Actor) ([]db.Worker, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	workers, err := database.GetWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workers: %w", err)
	}
	sort.Slice(workers, func(i, j int) bool {
		return workers[i].Username < workers[j].Username
	})
	return workers, nil
}

// Authenticate checks a password and returns the identity to act as.
// Unknown usernames and wrong passwords fail the same way.
func Authenticate(ctx context.Context, database db.WorkerStore, logger *zap.Logger, username, password string) (model.Actor, error) {
	worker, err := findWorker(ctx, database, username)
	if errors.Is(err, errs.ErrUnknownEntity) {
		return model.Actor{}, errs.ErrInvalidCredentials
	}
	if err != nil {
		return model.Actor{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(worker.PasswordHash), []byte(password)); err != nil {
		logger.Debug("Password mismatch", zap.String("username", worker.Username))
		return model.Actor{}, errs.ErrInvalidCredentials
	}
	return worker.Actor(), nil
}

// ChangePassword replaces the actor's password and clears the change flag.
// It is the one operation allowed while the flag is set.
func ChangePassword(ctx context.Context, database db.WorkerStore, logger *zap.Logger, actor model.Actor, policy RosterPolicy, newPassword string) (model.Actor, error) {
	if strings.TrimSpace(actor.Username) == "" {
		return actor, fmt.Errorf("no identity: %w", errs.ErrForbidden)
	}
	if strings.TrimSpace(newPassword) == "" {
		return actor, fmt.Errorf("password is empty: %w", errs.ErrInvalidInput)
	}
	if newPassword == policy.initialPassword() {
		return actor, fmt.Errorf("password must differ from the initial one: %w", errs.ErrInvalidInput)
	}

	worker, err := findWorker(ctx, database, actor.Username)
	if err != nil {
		return actor, err
	}
	hash, err := policy.hash(newPassword)
	if err != nil {
		return actor, err
	}

	patch := db.Record{"password_hash": hash, "must_change_password": false}
	if err := database.UpdateWorker(ctx, worker.ID, patch); err != nil {
		return actor, fmt.Errorf("failed to update password: %w", err)
	}

	logger.Info("Password changed", zap.String("username", worker.Username))
	worker.MustChangePassword = false
	return worker.Actor(), nil
}

// ResetPassword puts a worker back on the initial password
func ResetPassword(ctx context.Context, database db.WorkerStore, logger *zap.Logger, actor model.Actor, policy RosterPolicy, username string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	worker, err := findWorker(ctx, database, username)
	if err != nil {
		return err
	}
	hash, err := policy.hash(policy.initialPassword())
	if err != nil {
		return err
	}

	patch := db.Record{"password_hash": hash, "must_change_password": true}
	if err := database.UpdateWorker(ctx, worker.ID, patch); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	logger.Info("Password reset", zap.String("username", worker.Username), zap.String("by", actor.Username))
	return nil
}

// CreateSite adds an active site. Recreating a deactivated site reactivates it.
func CreateSite(ctx context.Context, database db.SiteStore, logger *zap.Logger, actor model.Actor, name string) (*db.Site, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("site name is empty: %w", errs.ErrInvalidInput)
	}

	existing, err := findSite(ctx, database, name)
	if err != nil && !errors.Is(err, errs.ErrUnknownEntity) {
		return nil, err
	}
	if existing != nil {
		if existing.Active {
			return nil, fmt.Errorf("site %s exists: %w", existing.Name, errs.ErrConflict)
		}
		if err := database.UpdateSite(ctx, existing.ID, db.Record{"active": true}); err != nil {
			return nil, fmt.Errorf("failed to reactivate site: %w", err)
		}
		existing.Active = true
		logger.Info("Site reactivated", zap.String("site", existing.Name))
		return existing, nil
	}

	site := &db.Site{Name: name, Active: true}
	if err := database.InsertSite(ctx, site); err != nil {
		return nil, fmt.Errorf("failed to insert site: %w", err)
	}
	logger.Info("Site created", zap.String("site", name))
	return site, nil
}

// DeactivateSite soft-deletes a site and drops every assignment to it.
// Historical shifts keep referring to it by name.
func DeactivateSite(ctx context.Context, database db.DirectoryStore, logger *zap.Logger, actor model.Actor, name string) ([]string, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	site, err := findSite(ctx, database, name)
	if err != nil {
		return nil, err
	}

	if err := database.UpdateSite(ctx, site.ID, db.Record{"active": false}); err != nil {
		return nil, fmt.Errorf("failed to deactivate site: %w", err)
	}

	workers, err := WorkersFor(ctx, database, site.Name)
	if err != nil {
		return nil, err
	}
	if _, err := removeAssignments(ctx, database, func(a db.Assignment) bool {
		return strings.EqualFold(a.SiteName, site.Name)
	}); err != nil {
		return nil, err
	}

	logger.Info("Site deactivated", zap.String("site", site.Name), zap.Strings("unassigned", workers))
	return workers, nil
}

// ListSites returns sites sorted by name
func ListSites(ctx context.Context, database db.SiteStore, logger *zap.Logger, activeOnly bool) ([]db.Site, error) {
	sites, err := database.GetSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sites: %w", err)
	}

	out := make([]db.Site, 0, len(sites))
	for _, s := range sites {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	logger.Debug("Listed sites", zap.Int("count", len(out)), zap.Bool("active_only", activeOnly))
	return out, nil
}

func findWorker(ctx context.Context, database db.WorkerStore, username string) (*db.Worker, error) {
	workers, err := database.GetWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workers: %w", err)
	}
	for i := range workers {
		if strings.EqualFold(workers[i].Username, strings.TrimSpace(username)) {
			return &workers[i], nil
		}
	}
	return nil, fmt.Errorf("worker %s: %w", username, errs.ErrUnknownEntity)
}

func findSite(ctx context.Context, database db.SiteStore, name string) (*db.Site, error) {
	sites, err := database.GetSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sites: %w", err)
	}
	for i := range sites {
		if strings.EqualFold(sites[i].Name, strings.TrimSpace(name)) {
			return &sites[i], nil
		}
	}
	return nil, fmt.Errorf("site %s: %w", name, errs.ErrUnknownEntity)
}
