package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
)

func TestService_LastCopyScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "111", 1)

	r1, err := f.svc.Submit(ctx, f.member.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, r1.Status)
	require.Equal(t, f.member.Name, r1.UserName)
	require.Equal(t, "Title 111", r1.BookTitle)

	f.clock.Advance(time.Second)
	r2, err := f.svc.Submit(ctx, f.other.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, f.librarian.ID, r1.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, approved.Status)
	require.Equal(t, f.librarian.ID, *approved.RespondedByID)
	require.Equal(t, f.librarian.Name, *approved.RespondedByName)
	require.NotNil(t, approved.ResponseDate)

	book, err := f.svc.GetBook(ctx, "111")
	require.NoError(t, err)
	require.Equal(t, 0, book.AvailableCopies)
	require.Equal(t, model.BookCheckedOut, book.Status)

	_, err = f.svc.Approve(ctx, f.librarian.ID, r2.ID)
	require.ErrorIs(t, err, errs.ErrNoneAvailable)

	still, err := f.repo.GetRequest(ctx, r2.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, still.Status)
	require.Nil(t, still.ResponseDate)

	_, err = f.svc.Submit(ctx, f.admin.ID, model.SubmitRequest{UserID: f.librarian.ID, BookISBN: "111"})
	require.ErrorIs(t, err, errs.ErrNoneAvailable, "soft availability check")

	require.Equal(t, []model.EventType{model.EventSubmitted, model.EventSubmitted, model.EventApproved}, f.events.types())
}

func TestService_RejectIsFinal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "111", 2)

	req, err := f.svc.Submit(ctx, f.member.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, f.admin.ID, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusRejected, rejected.Status)

	book, err := f.svc.GetBook(ctx, "111")
	require.NoError(t, err)
	require.Equal(t, 2, book.AvailableCopies)

	_, err = f.svc.Approve(ctx, f.admin.ID, req.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyProcessed)
	_, err = f.svc.Reject(ctx, f.admin.ID, req.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyProcessed)

	_, err = f.svc.Submit(ctx, f.member.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err, "a rejected request does not block a new one")
}

func TestService_SubmitRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "111", 3)

	_, err := f.svc.Submit(ctx, f.member.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   func(f *fixture) string
		req     func(f *fixture) model.SubmitRequest
		wantErr error
	}{
		{
			name:    "duplicate pending",
			actor:   func(f *fixture) string { return f.member.ID },
			req:     func(f *fixture) model.SubmitRequest { return model.SubmitRequest{BookISBN: "111"} },
			wantErr: errs.ErrPendingExists,
		},
		{
			name:    "member for someone else",
			actor:   func(f *fixture) string { return f.member.ID },
			req:     func(f *fixture) model.SubmitRequest { return model.SubmitRequest{UserID: f.other.ID, BookISBN: "111"} },
			wantErr: errs.ErrForbidden,
		},
		{
			name:    "librarian may not borrow",
			actor:   func(f *fixture) string { return f.librarian.ID },
			req:     func(f *fixture) model.SubmitRequest { return model.SubmitRequest{BookISBN: "111"} },
			wantErr: errs.ErrForbidden,
		},
		{
			name:    "unknown book",
			actor:   func(f *fixture) string { return f.other.ID },
			req:     func(f *fixture) model.SubmitRequest { return model.SubmitRequest{BookISBN: "999"} },
			wantErr: errs.ErrNotFound,
		},
		{
			name:    "missing isbn",
			actor:   func(f *fixture) string { return f.other.ID },
			req:     func(f *fixture) model.SubmitRequest { return model.SubmitRequest{} },
			wantErr: errs.ErrValidation,
		},
		{
			name:  "admin on behalf of member",
			actor: func(f *fixture) string { return f.admin.ID },
			req:   func(f *fixture) model.SubmitRequest { return model.SubmitRequest{UserID: f.other.ID, BookISBN: "111"} },
		},
	}
	for _, tt := range tests {
		got, err := f.svc.Submit(ctx, tt.actor(f), tt.req(f))
		if tt.wantErr != nil {
			require.ErrorIs(t, err, tt.wantErr, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		require.Equal(t, tt.req(f).UserID, got.UserID, tt.name)
	}
}

func TestService_ReviewRequiresStaff(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "111", 1)
	req, err := f.svc.Submit(ctx, f.member.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.member.ID, req.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = f.svc.Reject(ctx, f.member.ID, req.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.Approve(ctx, f.librarian.ID, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)

	book, err := f.svc.GetBook(ctx, "111")
	require.NoError(t, err)
	require.Equal(t, 1, book.AvailableCopies)
}

func TestService_ListRequests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "111", 5)
	f.addBook(t, "222", 5)

	first, err := f.svc.Submit(ctx, f.member.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.svc.Submit(ctx, f.member.ID, model.SubmitRequest{BookISBN: "222"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Submit(ctx, f.other.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.librarian.ID, first.ID)
	require.NoError(t, err)

	mine, err := f.svc.ListByUser(ctx, f.member.ID, f.member.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, second.ID, mine[0].ID, "most recent first")

	_, err = f.svc.ListByUser(ctx, f.member.ID, f.other.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)

	theirs, err := f.svc.ListByUser(ctx, f.librarian.ID, f.other.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)

	all, err := f.svc.ListAll(ctx, f.librarian.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	pending, err := f.svc.ListAll(ctx, f.admin.ID, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = f.svc.ListAll(ctx, f.admin.ID, "LOST")
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.ListAll(ctx, f.member.ID, "")
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestService_ConcurrentApprovals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addBook(t, "111", 1)

	r1, err := f.svc.Submit(ctx, f.member.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)
	r2, err := f.svc.Submit(ctx, f.other.ID, model.SubmitRequest{BookISBN: "111"})
	require.NoError(t, err)

	var ok, conflict atomic.Int32
	var winner, loser atomic.Value
	var g errgroup.Group
	for _, id := range []string{r1.ID, r2.ID} {
		id := id
		g.Go(func() error {
			_, err := f.svc.Approve(ctx, f.librarian.ID, id)
			switch {
			case err == nil:
				ok.Add(1)
				winner.Store(id)
			case errors.Is(err, errs.ErrNoneAvailable):
				conflict.Add(1)
				loser.Store(id)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, 1, ok.Load())
	require.EqualValues(t, 1, conflict.Load())

	book, err := f.svc.GetBook(ctx, "111")
	require.NoError(t, err)
	require.Equal(t, 0, book.AvailableCopies)
	require.LessOrEqual(t, book.AvailableCopies, book.TotalCopies)

	won, err := f.repo.GetRequest(ctx, winner.Load().(string))
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, won.Status)

	lost, err := f.repo.GetRequest(ctx, loser.Load().(string))
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, lost.Status)
	require.Nil(t, lost.RespondedByID)
	require.Nil(t, lost.ResponseDate)

	pending, err := f.svc.ListAll(ctx, f.admin.ID, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, lost.ID, pending[0].ID)
}
