package domain

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestRSVPInput_NormalizeAndValidate(t *testing.T) {
	tests := []struct {
		name      string
		in        RSVPInput
		wantField string
	}{
		{"ok attending", RSVPInput{Name: "홍길동", Attending: Attending, GuestCount: 2, ChildCount: 1, Message: "축하합니다"}, ""},
		{"ok declined", RSVPInput{Name: "홍길동", Attending: NotAttending}, ""},
		{"blank name", RSVPInput{Name: "   ", Attending: Attending, GuestCount: 1}, "name"},
		{"long name", RSVPInput{Name: strings.Repeat("가", MaxNameLen+1), Attending: Attending}, "name"},
		{"bad attending", RSVPInput{Name: "a", Attending: "maybe"}, "attending"},
		{"negative guests", RSVPInput{Name: "a", Attending: Attending, GuestCount: -1}, "guest_count"},
		{"negative children", RSVPInput{Name: "a", Attending: Attending, ChildCount: -2}, "child_count"},
		{"long message", RSVPInput{Name: "a", Attending: Attending, Message: strings.Repeat("x", MaxMessageLen+1)}, "message"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Normalize().Validate()
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.wantField {
				t.Fatalf("field = %q; want %q", ve.Field, tc.wantField)
			}
		})
	}
}

func TestRSVPInput_NormalizeZeroesCountsWhenDeclined(t *testing.T) {
	in := RSVPInput{Name: " 홍길동 ", Attending: "NO", GuestCount: 3, ChildCount: 2}.Normalize()
	if in.Attending != NotAttending || in.GuestCount != 0 || in.ChildCount != 0 {
		t.Fatalf("declined counts not zeroed: %+v", in)
	}
	if in.Name != "홍길동" {
		t.Fatalf("name not trimmed: %q", in.Name)
	}
}

func TestDefaultRSVPInput(t *testing.T) {
	d := DefaultRSVPInput()
	want := RSVPInput{Name: "", Attending: Attending, GuestCount: 1, ChildCount: 0, Message: ""}
	if d != want {
		t.Fatalf("defaults = %+v; want %+v", d, want)
	}
}

func TestGuestbookInput_Validate(t *testing.T) {
	tests := []struct {
		in        GuestbookInput
		wantField string
	}{
		{GuestbookInput{Name: "a", Message: "b", Secret: "1234"}, ""},
		{GuestbookInput{Name: "", Message: "b", Secret: "1234"}, "name"},
		{GuestbookInput{Name: "a", Message: " ", Secret: "1234"}, "message"},
		{GuestbookInput{Name: "a", Message: "b", Secret: ""}, "secret"},
		{GuestbookInput{Name: "a", Message: "b", Secret: "12"}, "secret"},
		{GuestbookInput{Name: "a", Message: "b", Secret: strings.Repeat("s", MaxSecretLen+1)}, "secret"},
	}
	for _, tc := range tests {
		err := tc.in.Normalize().Validate()
		if tc.wantField == "" {
			if err != nil {
				t.Fatalf("%+v: unexpected error %v", tc.in, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.wantField {
			t.Fatalf("%+v: want field %q, got %v", tc.in, tc.wantField, err)
		}
	}
}

func TestGuestbookInput_SecretKeptVerbatim(t *testing.T) {
	in := GuestbookInput{Name: "a", Message: "b", Secret: " pw  "}.Normalize()
	if in.Secret != " pw  " {
		t.Fatalf("secret must not be trimmed, got %q", in.Secret)
	}
}

func TestQuestionInput_Validate(t *testing.T) {
	if err := (QuestionInput{Question: "q?", AskerName: "a"}).Normalize().Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	var ve *ValidationError
	if err := (QuestionInput{Question: "", AskerName: "a"}).Validate(); !errors.As(err, &ve) || ve.Field != "question" {
		t.Fatalf("want question error, got %v", err)
	}
	if err := (QuestionInput{Question: "q", AskerName: ""}).Validate(); !errors.As(err, &ve) || ve.Field != "asker_name" {
		t.Fatalf("want asker_name error, got %v", err)
	}
}

func TestCleanText_NFC(t *testing.T) {
	decomposed := norm.NFD.String("한글")
	if decomposed == "한글" {
		t.Skip("NFD produced identical bytes")
	}
	if got := CleanText("  " + decomposed + "\n"); got != "한글" {
		t.Fatalf("CleanText did not compose: %q", got)
	}
}
