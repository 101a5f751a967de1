package invite

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

func entry(id, msg string) domain.GuestbookEntry {
	return domain.GuestbookEntry{ID: id, Name: "n-" + id, Message: msg}
}

func ids(items []domain.GuestbookEntry) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestReduce_PrependsNewRecords(t *testing.T) {
	var items []domain.GuestbookEntry
	items = Reduce(items, ListEvent[domain.GuestbookEntry]{Kind: FeedObserved, Record: entry("a", "1")})
	items = Reduce(items, ListEvent[domain.GuestbookEntry]{Kind: LocalSubmitted, Record: entry("b", "2")})

	assert.Equal(t, []string{"b", "a"}, ids(items))
}

func TestReduce_LocalThenFeedAppearsOnce(t *testing.T) {
	items := []domain.GuestbookEntry{entry("old", "x")}
	items = Reduce(items, ListEvent[domain.GuestbookEntry]{Kind: LocalSubmitted, Record: entry("g1", "hi")})
	items = Reduce(items, ListEvent[domain.GuestbookEntry]{Kind: FeedObserved, Record: entry("g1", "hi")})

	assert.Equal(t, []string{"g1", "old"}, ids(items))

	// and the other way round
	items = Reduce(items, ListEvent[domain.GuestbookEntry]{Kind: FeedObserved, Record: entry("g2", "yo")})
	items = Reduce(items, ListEvent[domain.GuestbookEntry]{Kind: LocalSubmitted, Record: entry("g2", "yo")})
	assert.Equal(t, []string{"g2", "g1", "old"}, ids(items))
}

func TestReduce_ReplacesInPlace(t *testing.T) {
	q := func(id, answer string) domain.Question {
		a := answer
		return domain.Question{ID: id, Question: "?", GroomAnswer: &a}
	}
	items := []domain.Question{q("q2", ""), q("q1", "")}
	items = Reduce(items, ListEvent[domain.Question]{Kind: FeedObserved, Record: q("q1", "yes")})

	require.Len(t, items, 2)
	assert.Equal(t, "q1", items[1].ID)
	assert.Equal(t, "yes", *items[1].GroomAnswer)
}

func TestOrderedList_QuestionsAppendNewRecords(t *testing.T) {
	q := func(id string) domain.Question { return domain.Question{ID: id, Question: "?"} }
	l := NewOrderedList[domain.Question](OrderOf(domain.TableQuestions))
	l.Apply(ListEvent[domain.Question]{Kind: FeedObserved, Record: q("q3")})

	l.Seed([]domain.Question{q("q1"), q("q2")})
	assert.Equal(t, []string{"q1", "q2", "q3"}, questionIDs(l.Items()))

	// a question approved later arrives as an update it has never seen
	l.Apply(ListEvent[domain.Question]{Kind: FeedObserved, Record: q("q4")})
	l.Apply(ListEvent[domain.Question]{Kind: FeedObserved, Record: q("q1")})
	assert.Equal(t, []string{"q1", "q2", "q3", "q4"}, questionIDs(l.Items()))

	assert.Equal(t, NewestFirst, OrderOf(domain.TableGuestbook))
}

func questionIDs(items []domain.Question) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestReduce_DeleteRemovesOnlyTarget(t *testing.T) {
	items := []domain.GuestbookEntry{entry("c", ""), entry("b", ""), entry("a", "")}
	out := Reduce(items, ListEvent[domain.GuestbookEntry]{Kind: Deleted, ID: "b"})

	assert.Equal(t, []string{"c", "a"}, ids(out))
	assert.Equal(t, []string{"c", "b", "a"}, ids(items), "input must not be modified")

	same := Reduce(out, ListEvent[domain.GuestbookEntry]{Kind: Deleted, ID: "zzz"})
	assert.Equal(t, []string{"c", "a"}, ids(same))
}

func TestReduce_IgnoresRecordsWithoutIdentity(t *testing.T) {
	items := Reduce(nil, ListEvent[domain.GuestbookEntry]{Kind: FeedObserved, Record: entry("", "x")})
	assert.Empty(t, items)
}

func TestList_ConcurrentProducersLoseNothing(t *testing.T) {
	l := NewList[domain.GuestbookEntry]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := fmt.Sprintf("e%02d", i)
		go func() {
			defer wg.Done()
			l.Apply(ListEvent[domain.GuestbookEntry]{Kind: LocalSubmitted, Record: entry(id, "")})
		}()
		go func() {
			defer wg.Done()
			l.Apply(ListEvent[domain.GuestbookEntry]{Kind: FeedObserved, Record: entry(id, "")})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, l.Len())
}

func TestList_SeedKeepsRecordsObservedEarlier(t *testing.T) {
	l := NewList[domain.GuestbookEntry]()
	l.Apply(ListEvent[domain.GuestbookEntry]{Kind: LocalSubmitted, Record: entry("new", "")})
	l.Apply(ListEvent[domain.GuestbookEntry]{Kind: FeedObserved, Record: entry("b", "")})

	l.Seed([]domain.GuestbookEntry{entry("b", ""), entry("a", "")})
	assert.Equal(t, []string{"new", "b", "a"}, ids(l.Items()))
}

func TestList_SeedDropsRepeatedRecords(t *testing.T) {
	l := NewList[domain.GuestbookEntry]()
	// page 2 was fetched after an insert shifted "c" across the boundary
	l.Seed([]domain.GuestbookEntry{entry("d", ""), entry("c", ""), entry("c", "stale"), entry("b", "")})

	assert.Equal(t, []string{"d", "c", "b"}, ids(l.Items()))
	assert.Equal(t, "", l.Items()[1].Message)
}

func TestList_OnChangeOnlyForEffectiveEvents(t *testing.T) {
	l := NewList[domain.GuestbookEntry]()
	var kinds []EventKind
	l.OnChange(func(ev ListEvent[domain.GuestbookEntry], items []domain.GuestbookEntry) {
		kinds = append(kinds, ev.Kind)
	})

	l.Apply(ListEvent[domain.GuestbookEntry]{Kind: LocalSubmitted, Record: entry("a", "")})
	l.Apply(ListEvent[domain.GuestbookEntry]{Kind: Deleted, ID: "missing"})
	l.Apply(ListEvent[domain.GuestbookEntry]{Kind: Deleted, ID: "a"})

	assert.Equal(t, []EventKind{LocalSubmitted, Deleted}, kinds)
	assert.Equal(t, "deleted", Deleted.String())
}
