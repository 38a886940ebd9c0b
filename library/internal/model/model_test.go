package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestBook_DeriveStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		book Book
		want BookStatus
	}{
		{name: "copies left", book: Book{AvailableCopies: 2, Status: BookCheckedOut}, want: BookAvailable},
		{name: "none left", book: Book{AvailableCopies: 0, Status: BookAvailable}, want: BookCheckedOut},
		{name: "reserved kept", book: Book{AvailableCopies: 3, Status: BookReserved}, want: BookReserved},
		{name: "lost kept", book: Book{AvailableCopies: 0, Status: BookLost}, want: BookLost},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.book.DeriveStatus()
			require.Equal(t, tt.want, tt.book.Status)
		})
	}
}

func TestBookPatch_Apply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		patch         BookPatch
		wantTotal     int
		wantAvailable int
		wantStatus    BookStatus
	}{
		{
			name:          "grow keeps loans",
			patch:         BookPatch{TotalCopies: ptr(5)},
			wantTotal:     5,
			wantAvailable: 4,
			wantStatus:    BookAvailable,
		},
		{
			name:          "shrink to loans",
			patch:         BookPatch{TotalCopies: ptr(2)},
			wantTotal:     2,
			wantAvailable: 1,
			wantStatus:    BookAvailable,
		},
		{
			name:          "pin lost",
			patch:         BookPatch{Status: ptr(BookLost)},
			wantTotal:     3,
			wantAvailable: 2,
			wantStatus:    BookLost,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := Book{TotalCopies: 3, AvailableCopies: 2, Status: BookAvailable}
			tt.patch.Apply(&b)
			require.Equal(t, tt.wantTotal, b.TotalCopies)
			require.Equal(t, tt.wantAvailable, b.AvailableCopies)
			require.Equal(t, 1, b.OnLoan())
			require.Equal(t, tt.wantStatus, b.Status)
		})
	}
}

func TestBookMetadata_Fill(t *testing.T) {
	t.Parallel()
	b := Book{Title: "Dune"}
	changed := BookMetadata{Title: "Dune (1965)", Author: "Frank Herbert"}.Fill(&b)
	require.True(t, changed)
	require.Equal(t, "Dune", b.Title)
	require.Equal(t, "Frank Herbert", b.Author)

	require.False(t, BookMetadata{Title: "x"}.Fill(&b))
	require.True(t, BookMetadata{}.Empty())
}

func TestBookFilter_Match(t *testing.T) {
	t.Parallel()
	b := Book{ISBN: "9780441013593", Title: "Dune", Author: "Frank Herbert", Category: CategorySciFi, AvailableCopies: 0}

	require.True(t, BookFilter{}.Match(b))
	require.True(t, BookFilter{Search: "herb"}.Match(b))
	require.True(t, BookFilter{Search: "0441"}.Match(b))
	require.False(t, BookFilter{Search: "tolkien"}.Match(b))
	require.False(t, BookFilter{Category: CategoryHistory}.Match(b))
	require.False(t, BookFilter{Available: true}.Match(b))
}

func TestResponse_Apply(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := BorrowRequest{ID: "r1", Status: StatusPending}
	Response{Status: StatusApproved, StaffID: "s1", StaffName: "Sam", At: at}.Apply(&r)

	require.Equal(t, StatusApproved, r.Status)
	require.True(t, r.Status.Terminal())
	require.Equal(t, "s1", *r.RespondedByID)
	require.Equal(t, "Sam", *r.RespondedByName)
	require.Equal(t, at, *r.ResponseDate)
	require.False(t, RequestStatus("DONE").Valid())
}

func TestUserPatch_Apply(t *testing.T) {
	t.Parallel()
	u := User{Name: "Ann", Role: RoleMember, Status: AccountActive}
	UserPatch{Role: ptr(RoleLibrarian), Status: ptr(AccountInactive)}.Apply(&u)
	require.Equal(t, "Ann", u.Name)
	require.True(t, u.Role.Staff())
	require.False(t, u.Active())
}
