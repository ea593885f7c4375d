package model

import (
	"sort"
	"strings"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleWorker
}

// Actor is the identity a caller acts as. It is passed explicitly into every
// service call instead of living in a session.
type Actor struct {
	Username           string
	DisplayName        string
	Role               Role
	MustChangePassword bool
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Coordinates is a resolved GPS fix
type Coordinates struct {
	Lat float64
	Lon float64
}

// Material request states
const (
	StatusPending  = "PENDING"
	StatusArchived = "ARCHIVED"
)

// Issue states
const (
	StatusOpen     = "OPEN"
	StatusResolved = "RESOLVED"
)

// RecipientsAll addresses an announcement to every worker
const RecipientsAll = "ALL"

// FormatRecipients encodes a recipient list for storage. Any list containing
// RecipientsAll collapses to it.
func FormatRecipients(usernames []string) string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		u = strings.ToLower(strings.TrimSpace(u))
		if u == "" || seen[u] {
			continue
		}
		if strings.EqualFold(u, RecipientsAll) {
			return RecipientsAll
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// ParseRecipients decodes a stored recipient list
func ParseRecipients(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RecipientsInclude reports whether a stored recipient list addresses username
func RecipientsInclude(stored, username string) bool {
	for _, r := range ParseRecipients(stored) {
		if r == RecipientsAll || strings.EqualFold(r, username) {
			return true
		}
	}
	return false
}
