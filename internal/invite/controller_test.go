package invite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

func seqKeys() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("key-%d", n)
	}
}

func fillRSVP(rec domain.RSVP) func(mock.Arguments) {
	return func(args mock.Arguments) {
		in := args.Get(2).(domain.RSVPInput)
		rec.Name, rec.Attending, rec.GuestCount, rec.ChildCount = in.Name, in.Attending, in.GuestCount, in.ChildCount
		if in.Message != "" {
			m := in.Message
			rec.Message = &m
		}
		*args.Get(4).(*domain.RSVP) = rec
	}
}

func TestRSVPController_SubmitExampleScenario(t *testing.T) {
	store := new(MockStore)
	want := domain.RSVPInput{Name: "홍길동", Attending: domain.Attending, GuestCount: 2, ChildCount: 1, Message: "축하합니다"}
	store.On("Insert", mock.Anything, domain.TableRSVPs, want, "key-1", mock.AnythingOfType("*domain.RSVP")).
		Run(fillRSVP(domain.RSVP{ID: "r1"})).
		Return(nil).Once()

	c := NewRSVPController(store, nil, WithKeyFunc(seqKeys()))
	c.SetForm(want)

	rec, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)

	items := c.List().Items()
	require.Len(t, items, 1)
	assert.Equal(t, "홍길동", items[0].Name)
	assert.Equal(t, 2, items[0].GuestCount)
	assert.Equal(t, 1, items[0].ChildCount)
	require.NotNil(t, items[0].Message)
	assert.Equal(t, "축하합니다", *items[0].Message)

	assert.Equal(t, domain.RSVPInput{Name: "", Attending: domain.Attending, GuestCount: 1, ChildCount: 0, Message: ""}, c.Form())
	store.AssertExpectations(t)
}

func TestRSVPController_EmptyNameNeverCallsStore(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		store := new(MockStore)
		c := NewRSVPController(store, nil)
		form := c.Form()
		form.Name = name
		c.SetForm(form)

		_, err := c.Submit(context.Background())

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "name", ve.Field)
		assert.False(t, Retryable(err))
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, form, c.Form(), "form must be kept")
	}
}

func TestRSVPController_NotAttendingSendsZeroCounts(t *testing.T) {
	store := new(MockStore)
	sent := domain.RSVPInput{Name: "김철수", Attending: domain.NotAttending}
	store.On("Insert", mock.Anything, domain.TableRSVPs, sent, mock.Anything, mock.Anything).
		Run(fillRSVP(domain.RSVP{ID: "r2"})).Return(nil)

	c := NewRSVPController(store, nil)
	c.SetForm(domain.RSVPInput{Name: " 김철수 ", Attending: domain.NotAttending, GuestCount: 3, ChildCount: 2})

	rec, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rec.GuestCount)
	assert.Zero(t, rec.ChildCount)
	store.AssertExpectations(t)
}

func TestRSVPController_StoreFailureKeepsFormAndKey(t *testing.T) {
	store := new(MockStore)
	boom := errors.New("connection reset")
	store.On("Insert", mock.Anything, domain.TableRSVPs, mock.Anything, "key-1", mock.Anything).Return(boom).Once()
	store.On("Insert", mock.Anything, domain.TableRSVPs, mock.Anything, "key-1", mock.Anything).
		Run(fillRSVP(domain.RSVP{ID: "r3"})).Return(nil).Once()

	c := NewRSVPController(store, nil, WithKeyFunc(seqKeys()))
	form := domain.RSVPInput{Name: "이영희", Attending: domain.Attending, GuestCount: 1}
	c.SetForm(form)

	_, err := c.Submit(context.Background())
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)
	assert.True(t, Retryable(err))
	assert.Equal(t, form, c.Form())
	assert.Zero(t, c.List().Len())

	// explicit retry reuses the idempotency key
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.List().Len())
	store.AssertExpectations(t)
}

func TestRSVPController_EditingFormStartsNewKey(t *testing.T) {
	store := new(MockStore)
	store.On("Insert", mock.Anything, domain.TableRSVPs, mock.Anything, "key-1", mock.Anything).Return(errors.New("down")).Once()
	store.On("Insert", mock.Anything, domain.TableRSVPs, mock.Anything, "key-2", mock.Anything).
		Run(fillRSVP(domain.RSVP{ID: "r4"})).Return(nil).Once()

	c := NewRSVPController(store, nil, WithKeyFunc(seqKeys()))
	c.SetForm(domain.RSVPInput{Name: "a", Attending: domain.Attending, GuestCount: 1})
	_, err := c.Submit(context.Background())
	require.Error(t, err)

	c.SetForm(domain.RSVPInput{Name: "a", Attending: domain.Attending, GuestCount: 2})
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRSVPController_RejectsConcurrentSubmit(t *testing.T) {
	store := new(MockStore)
	entered := make(chan struct{})
	release := make(chan struct{})
	store.On("Insert", mock.Anything, domain.TableRSVPs, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
			fillRSVP(domain.RSVP{ID: "r5"})(args)
		}).Return(nil).Once()

	c := NewRSVPController(store, nil)
	c.SetForm(domain.RSVPInput{Name: "a", Attending: domain.Attending, GuestCount: 1})

	errc := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		errc <- err
	}()
	<-entered

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, 1, c.List().Len())
}

func TestRSVPController_Prefill(t *testing.T) {
	c := NewRSVPController(new(MockStore), nil)
	c.Prefill("  박민수 ")
	assert.Equal(t, "박민수", c.Form().Name)
	assert.Equal(t, 1, c.Form().GuestCount)

	c.Prefill("")
	assert.Equal(t, "박민수", c.Form().Name)
}

func TestRSVPController_BackendValidationPassesThrough(t *testing.T) {
	store := new(MockStore)
	store.On("Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.ValidationError{Field: "message", Reason: "too long"})

	c := NewRSVPController(store, nil)
	c.SetForm(domain.RSVPInput{Name: "a", Attending: domain.Attending, GuestCount: 1})
	_, err := c.Submit(context.Background())

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "message", ve.Field)
	assert.False(t, Retryable(err))
}

func TestGuestbookController_ShortSecretRejectedLocally(t *testing.T) {
	store := new(MockStore)
	c := NewGuestbookController(store, nil)
	c.SetForm(domain.GuestbookInput{Name: "하객", Message: "축하해요", Secret: "12"})

	_, err := c.Submit(context.Background())
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "secret", ve.Field)
	assert.Contains(t, ve.Reason, "at least 4")
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGuestbookController_RequiredFields(t *testing.T) {
	cases := []struct {
		form  domain.GuestbookInput
		field string
	}{
		{domain.GuestbookInput{Message: "m", Secret: "1234"}, "name"},
		{domain.GuestbookInput{Name: "n", Message: "  ", Secret: "1234"}, "message"},
		{domain.GuestbookInput{Name: "n", Message: "m"}, "secret"},
	}
	for _, tc := range cases {
		store := new(MockStore)
		c := NewGuestbookController(store, nil)
		c.SetForm(tc.form)
		_, err := c.Submit(context.Background())
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tc.field, ve.Field)
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestGuestbookController_SubmitResetsForm(t *testing.T) {
	store := new(MockStore)
	store.On("Insert", mock.Anything, domain.TableGuestbook, mock.AnythingOfType("domain.GuestbookInput"), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			in := args.Get(2).(domain.GuestbookInput)
			*args.Get(4).(*domain.GuestbookEntry) = domain.GuestbookEntry{ID: "g1", Name: in.Name, Message: in.Message}
		}).Return(nil)

	c := NewGuestbookController(store, nil)
	c.SetForm(domain.GuestbookInput{Name: "하객", Message: "축하해요", Secret: "1234"})
	rec, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "g1", rec.ID)
	assert.Equal(t, domain.GuestbookInput{}, c.Form())
	assert.Equal(t, []string{"g1"}, ids(c.List().Items()))
}

func seededGuestbook(store Store) *GuestbookController {
	list := NewList[domain.GuestbookEntry]()
	list.Seed([]domain.GuestbookEntry{entry("c", ""), entry("b", ""), entry("a", "")})
	return NewGuestbookController(store, list)
}

func TestGuestbookController_DeleteWithCorrectSecret(t *testing.T) {
	store := new(MockStore)
	store.On("DeleteGuestbook", mock.Anything, "b", "1234").Return(nil).Once()

	c := seededGuestbook(store)
	require.NoError(t, c.Delete(context.Background(), "b", "1234"))
	assert.Equal(t, []string{"c", "a"}, ids(c.List().Items()))
	store.AssertExpectations(t)
}

func TestGuestbookController_DeleteRefusals(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		want    error
		isStore bool
	}{
		{"mismatch", ErrSecretMismatch, ErrSecretMismatch, false},
		{"not found", ErrNotFound, ErrNotFound, false},
		{"store", errors.New("503"), nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("DeleteGuestbook", mock.Anything, "b", "wrong").Return(tc.err).Once()

			c := seededGuestbook(store)
			err := c.Delete(context.Background(), "b", "wrong")
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Equal(t, tc.isStore, Retryable(err))
			assert.Equal(t, []string{"c", "b", "a"}, ids(c.List().Items()))
		})
	}
}

func TestGuestbookController_DeleteNeedsIDAndSecret(t *testing.T) {
	store := new(MockStore)
	c := seededGuestbook(store)

	var ve *domain.ValidationError
	require.ErrorAs(t, c.Delete(context.Background(), "", "1234"), &ve)
	assert.Equal(t, "id", ve.Field)
	require.ErrorAs(t, c.Delete(context.Background(), "b", ""), &ve)
	assert.Equal(t, "secret", ve.Field)
	store.AssertNotCalled(t, "DeleteGuestbook", mock.Anything, mock.Anything, mock.Anything)
}
