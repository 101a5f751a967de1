package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Field limits shared by the guest workflow and the backend services.
const (
	MinSecretLen   = 4
	MaxNameLen     = 50
	MaxMessageLen  = 1000
	MaxSecretLen   = 72 // bcrypt ignores bytes beyond 72
	MaxQuestionLen = 500
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// CleanText trims surrounding whitespace and NFC-normalizes s so that
// composed and decomposed Hangul compare and count the same.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// RSVPInput is the form a guest fills in to answer the invitation.
type RSVPInput struct {
	Name       string     `json:"name"        example:"홍길동"`
	Attending  Attendance `json:"attending"   example:"yes"`
	GuestCount int        `json:"guest_count" example:"2"`
	ChildCount int        `json:"child_count" example:"1"`
	Message    string     `json:"message"     example:"축하합니다"`
}

// DefaultRSVPInput is the state of a freshly opened RSVP form.
func DefaultRSVPInput() RSVPInput {
	return RSVPInput{Attending: Attending, GuestCount: 1}
}

// Normalize cleans text fields and zeroes the head counts of a guest who
// is not attending.
func (in RSVPInput) Normalize() RSVPInput {
	in.Name = CleanText(in.Name)
	in.Message = CleanText(in.Message)
	in.Attending = Attendance(strings.ToLower(strings.TrimSpace(string(in.Attending))))
	if in.Attending == NotAttending {
		in.GuestCount = 0
		in.ChildCount = 0
	}
	return in
}

// Validate checks a normalized input.
func (in RSVPInput) Validate() error {
	switch {
	case in.Name == "":
		return invalid("name", "is required")
	case utf8.RuneCountInString(in.Name) > MaxNameLen:
		return invalid("name", fmt.Sprintf("must be at most %d characters", MaxNameLen))
	case !in.Attending.Valid():
		return invalid("attending", "must be yes or no")
	case in.GuestCount < 0:
		return invalid("guest_count", "must not be negative")
	case in.ChildCount < 0:
		return invalid("child_count", "must not be negative")
	case utf8.RuneCountInString(in.Message) > MaxMessageLen:
		return invalid("message", fmt.Sprintf("must be at most %d characters", MaxMessageLen))
	}
	return nil
}

// GuestbookInput is a new guestbook entry including its deletion secret.
type GuestbookInput struct {
	Name    string `json:"name"    example:"김철수"`
	Message string `json:"message" example:"결혼 축하해!"`
	Secret  string `json:"secret"  example:"1234"`
}

// Normalize cleans the text fields. The secret is left byte-exact.
func (in GuestbookInput) Normalize() GuestbookInput {
	in.Name = CleanText(in.Name)
	in.Message = CleanText(in.Message)
	return in
}

// Validate checks a normalized input.
func (in GuestbookInput) Validate() error {
	switch {
	case in.Name == "":
		return invalid("name", "is required")
	case utf8.RuneCountInString(in.Name) > MaxNameLen:
		return invalid("name", fmt.Sprintf("must be at most %d characters", MaxNameLen))
	case in.Message == "":
		return invalid("message", "is required")
	case utf8.RuneCountInString(in.Message) > MaxMessageLen:
		return invalid("message", fmt.Sprintf("must be at most %d characters", MaxMessageLen))
	case strings.TrimSpace(in.Secret) == "":
		return invalid("secret", "is required")
	case utf8.RuneCountInString(in.Secret) < MinSecretLen:
		return invalid("secret", fmt.Sprintf("must be at least %d characters", MinSecretLen))
	case len(in.Secret) > MaxSecretLen:
		return invalid("secret", fmt.Sprintf("must be at most %d bytes", MaxSecretLen))
	}
	return nil
}

// QuestionInput is a question submitted to the couple.
type QuestionInput struct {
	Question  string `json:"question"   example:"두 분은 어떻게 만나셨나요?"`
	AskerName string `json:"asker_name" example:"이영희"`
}

// Normalize cleans the text fields.
func (in QuestionInput) Normalize() QuestionInput {
	in.Question = CleanText(in.Question)
	in.AskerName = CleanText(in.AskerName)
	return in
}

// Validate checks a normalized input.
func (in QuestionInput) Validate() error {
	switch {
	case in.Question == "":
		return invalid("question", "is required")
	case utf8.RuneCountInString(in.Question) > MaxQuestionLen:
		return invalid("question", fmt.Sprintf("must be at most %d characters", MaxQuestionLen))
	case in.AskerName == "":
		return invalid("asker_name", "is required")
	case utf8.RuneCountInString(in.AskerName) > MaxNameLen:
		return invalid("asker_name", fmt.Sprintf("must be at most %d characters", MaxNameLen))
	}
	return nil
}

// QuestionPatch is an admin edit of a question. Nil fields are left as is;
// an empty answer string clears that answer.
type QuestionPatch struct {
	Approved    *bool   `json:"is_approved,omitempty"`
	GroomAnswer *string `json:"groom_answer,omitempty"`
	BrideAnswer *string `json:"bride_answer,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p QuestionPatch) Empty() bool {
	return p.Approved == nil && p.GroomAnswer == nil && p.BrideAnswer == nil
}
