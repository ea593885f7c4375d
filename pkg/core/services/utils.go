package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/core/model"
)

// requireActive rejects callers that have not yet replaced their initial password
func requireActive(actor model.Actor) error {
	if strings.TrimSpace(actor.Username) == "" || !actor.Role.IsValid() {
		return fmt.Errorf("no identity: %w", errs.ErrForbidden)
	}
	if actor.MustChangePassword {
		return fmt.Errorf("%s: %w", actor.Username, errs.ErrPasswordChangeRequired)
	}
	return nil
}

func requireAdmin(actor model.Actor) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%s is not an admin: %w", actor.Username, errs.ErrForbidden)
	}
	return nil
}

// requireSelfOrAdmin allows admins to act on anyone and workers only on themselves
func requireSelfOrAdmin(actor model.Actor, username string) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() && !strings.EqualFold(actor.Username, username) {
		return fmt.Errorf("%s cannot act for %s: %w", actor.Username, username, errs.ErrForbidden)
	}
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// idLess orders store ids numerically when both are numbers
func idLess(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}
