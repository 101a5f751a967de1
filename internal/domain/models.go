// Package domain defines the persistence models for the wedding invitation
// backend: RSVPs, guestbook entries, guest photos and Q&A questions. These
// types are mapped with GORM and are also the wire shapes returned by the
// HTTP API and decoded by the guest-side workflow in internal/invite.
package domain

import (
	"time"
)

// Attendance is the guest's answer to the invitation.
type Attendance string

const (
	// Attending means the guest will come. Stored as "yes".
	Attending Attendance = "yes"
	// NotAttending means the guest declined. Stored as "no".
	NotAttending Attendance = "no"
)

// Valid reports whether a is one of the two known answers.
func (a Attendance) Valid() bool {
	return a == Attending || a == NotAttending
}

// Table names used by the store, the change feed and the client.
const (
	TableRSVPs     = "rsvps"
	TableGuestbook = "guestbook"
	TablePhotos    = "photos"
	TableQuestions = "questions"
)

// Tables lists every table that publishes on the change feed.
var Tables = []string{TableRSVPs, TableGuestbook, TablePhotos, TableQuestions}

// KnownTable reports whether name is one of Tables.
func KnownTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

// RSVP is a single attendance response.
//
// Fields:
//   - ID: store-assigned UUID (char(36)).
//   - Name: guest name, NFC-normalized and trimmed.
//   - Attending: "yes" or "no" (enforced by DB constraint).
//   - GuestCount / ChildCount: non-negative; zero when not attending.
//   - Message: optional note to the couple.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type RSVP struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	Name       string     `json:"name"        gorm:"type:varchar(100);not null"`
	Attending  Attendance `json:"attending"   gorm:"type:varchar(8);not null;index;check:attending IN ('yes','no')"`
	GuestCount int        `json:"guest_count" gorm:"not null;check:guest_count >= 0"`
	ChildCount int        `json:"child_count" gorm:"not null;check:child_count >= 0"`
	Message    *string    `json:"message,omitempty" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"  gorm:"index:idx_rsvps_created"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for RSVP.
func (RSVP) TableName() string { return TableRSVPs }

// Key returns the record identity.
func (r RSVP) Key() string { return r.ID }

// GuestbookEntry is a public congratulation message. The secret chosen by the
// author is stored only as a bcrypt hash and is never serialized.
type GuestbookEntry struct {
	ID         string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name       string    `json:"name"       gorm:"type:varchar(100);not null"`
	Message    string    `json:"message"    gorm:"type:text;not null"`
	SecretHash string    `json:"-"          gorm:"column:secret_hash;type:varchar(100);not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_guestbook_created"`
}

// TableName returns the database table name for GuestbookEntry.
func (GuestbookEntry) TableName() string { return TableGuestbook }

// Key returns the record identity.
func (g GuestbookEntry) Key() string { return g.ID }

// GuestPhoto is an uploaded picture. FilePath is the object key inside the
// blob bucket and URL is its public address.
type GuestPhoto struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	FilePath   string    `json:"file_path"   gorm:"type:varchar(255);not null;uniqueIndex"`
	URL        string    `json:"file_url"    gorm:"column:file_url;type:varchar(512);not null"`
	UploadedBy string    `json:"uploaded_by" gorm:"type:varchar(100);not null"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Bytes      int64     `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_photos_created"`
}

// TableName returns the database table name for GuestPhoto.
func (GuestPhoto) TableName() string { return TablePhotos }

// Key returns the record identity.
func (p GuestPhoto) Key() string { return p.ID }

// Question is a guest question for the couple. New questions are hidden
// until approved; either partner may answer.
type Question struct {
	ID          string    `json:"id"                     gorm:"type:char(36);primaryKey"`
	Question    string    `json:"question"               gorm:"type:text;not null"`
	AskerName   string    `json:"asker_name"             gorm:"type:varchar(100);not null"`
	GroomAnswer *string   `json:"groom_answer,omitempty" gorm:"type:text"`
	BrideAnswer *string   `json:"bride_answer,omitempty" gorm:"type:text"`
	Approved    bool      `json:"is_approved"            gorm:"column:is_approved;not null;index"`
	CreatedAt   time.Time `json:"created_at"             gorm:"index:idx_questions_created"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Question.
func (Question) TableName() string { return TableQuestions }

// Key returns the record identity.
func (q Question) Key() string { return q.ID }

// RSVPStats summarizes responses for the admin dashboard.
type RSVPStats struct {
	TotalResponses int64 `json:"total_responses"`
	Attending      int64 `json:"attending"`
	NotAttending   int64 `json:"not_attending"`
	TotalAdults    int64 `json:"total_adults"`
	TotalChildren  int64 `json:"total_children"`
}
