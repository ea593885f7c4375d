package db

import (
	"time"

	"github.com/chemifol/fieldops/pkg/core/model"
)

// Worker represents a database worker record
type Worker struct {
	ID                 string     `ssql_header:"id" ssql_type:"id"`
	Username           string     `ssql_header:"username" ssql_type:"text"`
	PasswordHash       string     `ssql_header:"password_hash" ssql_type:"text"`
	Role               model.Role `ssql_header:"role" ssql_type:"text"`
	DisplayName        string     `ssql_header:"display_name" ssql_type:"text"`
	MustChangePassword bool       `ssql_header:"must_change_password" ssql_type:"bool"`
}

func (Worker) TableName() string { return string(Workers) }

// Actor returns the identity this worker acts as
func (w Worker) Actor() model.Actor {
	return model.Actor{
		Username:           w.Username,
		DisplayName:        w.DisplayName,
		Role:               w.Role,
		MustChangePassword: w.MustChangePassword,
	}
}

// Site represents a database work location record
type Site struct {
	ID     string `ssql_header:"id" ssql_type:"id"`
	Name   string `ssql_header:"name" ssql_type:"text"`
	Active bool   `ssql_header:"active" ssql_type:"bool"`
}

func (Site) TableName() string { return string(Sites) }

// Assignment represents a database worker/site assignment record
type Assignment struct {
	ID       string `ssql_header:"id" ssql_type:"id"`
	Username string `ssql_header:"username" ssql_type:"text"`
	SiteName string `ssql_header:"site_name" ssql_type:"text"`
}

func (Assignment) TableName() string { return string(Assignments) }

// Shift represents a database clock-in/clock-out record.
// EndTime is nil while the shift is open.
type Shift struct {
	ID        string     `ssql_header:"id" ssql_type:"id"`
	Username  string     `ssql_header:"username" ssql_type:"text"`
	SiteName  string     `ssql_header:"site_name" ssql_type:"text"`
	StartTime time.Time  `ssql_header:"start_time" ssql_type:"datetime"`
	EndTime   *time.Time `ssql_header:"end_time" ssql_type:"datetime"`
	StartLat  float64    `ssql_header:"start_lat" ssql_type:"float"`
	StartLon  float64    `ssql_header:"start_lon" ssql_type:"float"`
	EndLat    *float64   `ssql_header:"end_lat" ssql_type:"float"`
	EndLon    *float64   `ssql_header:"end_lon" ssql_type:"float"`
	Unseen    bool       `ssql_header:"unseen" ssql_type:"bool"`
}

func (Shift) TableName() string { return string(Shifts) }

// IsOpen reports whether the shift has not been clocked out
func (s Shift) IsOpen() bool {
	return s.EndTime == nil
}

// MaterialRequest represents a database material requisition record
type MaterialRequest struct {
	ID          string    `ssql_header:"id" ssql_type:"id"`
	Username    string    `ssql_header:"username" ssql_type:"text"`
	SiteName    string    `ssql_header:"site_name" ssql_type:"text"`
	ItemList    string    `ssql_header:"item_list" ssql_type:"text"`
	RequestDate time.Time `ssql_header:"request_date" ssql_type:"datetime"`
	Status      string    `ssql_header:"status" ssql_type:"text"`
	Unseen      bool      `ssql_header:"unseen" ssql_type:"bool"`
}

func (MaterialRequest) TableName() string { return string(MaterialRequests) }

// Issue represents a database incident report record
type Issue struct {
	ID          string    `ssql_header:"id" ssql_type:"id"`
	Username    string    `ssql_header:"username" ssql_type:"text"`
	Description string    `ssql_header:"description" ssql_type:"text"`
	SiteName    string    `ssql_header:"site_name" ssql_type:"text"`
	ReportedAt  time.Time `ssql_header:"reported_at" ssql_type:"datetime"`
	Status      string    `ssql_header:"status" ssql_type:"text"`
	ImageRef    *string   `ssql_header:"image_ref" ssql_type:"text"`
	Unseen      bool      `ssql_header:"unseen" ssql_type:"bool"`
}

func (Issue) TableName() string { return string(Issues) }

// Announcement represents a database board message record.
// Recipients holds model.RecipientsAll or a comma separated username list.
type Announcement struct {
	ID          string    `ssql_header:"id" ssql_type:"id"`
	Title       string    `ssql_header:"title" ssql_type:"text"`
	Message     string    `ssql_header:"message" ssql_type:"text"`
	Recipients  string    `ssql_header:"recipients" ssql_type:"text"`
	PublishedAt time.Time `ssql_header:"published_at" ssql_type:"datetime"`
	ExpiresAt   time.Time `ssql_header:"expires_at" ssql_type:"datetime"`
}

func (Announcement) TableName() string { return string(Announcements) }

// Models returns one zero value per collection, in schema order
func Models() []interface{} {
	return []interface{}{
		Worker{},
		Site{},
		Assignment{},
		Shift{},
		MaterialRequest{},
		Issue{},
		Announcement{},
	}
}
