package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

// printJSON writes v indented.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes rows as aligned columns under header.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func short(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func printRSVPs(w io.Writer, items []domain.RSVP) error {
	if flagJSON {
		return printJSON(w, items)
	}
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, []string{r.ID, r.Name, string(r.Attending),
			fmt.Sprint(r.GuestCount), fmt.Sprint(r.ChildCount), short(deref(r.Message), 40), when(r.CreatedAt)})
	}
	return table(w, []string{"ID", "NAME", "ATTENDING", "GUESTS", "CHILDREN", "MESSAGE", "CREATED"}, rows)
}

func printGuestbook(w io.Writer, items []domain.GuestbookEntry) error {
	if flagJSON {
		return printJSON(w, items)
	}
	rows := make([][]string, 0, len(items))
	for _, g := range items {
		rows = append(rows, []string{g.ID, g.Name, short(g.Message, 60), when(g.CreatedAt)})
	}
	return table(w, []string{"ID", "NAME", "MESSAGE", "CREATED"}, rows)
}

func printPhotos(w io.Writer, items []domain.GuestPhoto) error {
	if flagJSON {
		return printJSON(w, items)
	}
	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{p.ID, p.UploadedBy, fmt.Sprintf("%dx%d", p.Width, p.Height), p.URL, when(p.CreatedAt)})
	}
	return table(w, []string{"ID", "BY", "SIZE", "URL", "CREATED"}, rows)
}

func printQuestions(w io.Writer, items []domain.Question) error {
	if flagJSON {
		return printJSON(w, items)
	}
	rows := make([][]string, 0, len(items))
	for _, q := range items {
		rows = append(rows, []string{q.ID, q.AskerName, short(q.Question, 40),
			short(deref(q.GroomAnswer), 30), short(deref(q.BrideAnswer), 30)})
	}
	return table(w, []string{"ID", "ASKER", "QUESTION", "GROOM", "BRIDE"}, rows)
}
