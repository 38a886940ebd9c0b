// Package memory is an in-process Repository. Multi-step units take keyed locks so that
// concurrent handlers observe the same invariants as the Postgres store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/library/internal/repository"
	"github.com/Astemirdum/libsys/pkg/keylock"
)

var _ repository.Repository = (*Repository)(nil)

type Repository struct {
	mu       sync.RWMutex
	books    map[string]model.Book
	users    map[string]model.User
	requests map[string]model.BorrowRequest

	locks *keylock.KeyLock
	now   func() time.Time
}

type Option func(*Repository)

// WithClock overrides the timestamp source used for updatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

func New(opts ...Option) *Repository {
	r := &Repository{
		books:    make(map[string]model.Book),
		users:    make(map[string]model.User),
		requests: make(map[string]model.BorrowRequest),
		locks:    keylock.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func bookKey(isbn string) string       { return "book:" + isbn }
func requestKey(id string) string      { return "request:" + id }
func pairKey(user, isbn string) string { return "pending:" + user + "/" + isbn }

const usersKey = "users"

func (r *Repository) GetBook(_ context.Context, isbn string) (model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[isbn]
	if !ok {
		return model.Book{}, errs.NotFound("book %q not found", isbn)
	}
	return b, nil
}

func (r *Repository) ListBooks(_ context.Context, filter model.BookFilter) (model.ListBooks, error) {
	r.mu.RLock()
	items := make([]model.Book, 0, len(r.books))
	for _, b := range r.books {
		if filter.Match(b) {
			items = append(items, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ISBN < items[j].ISBN
	})
	total := len(items)
	if filter.Page > 0 && filter.Size > 0 {
		from := total
		if filter.Page-1 <= total/filter.Size {
			from = (filter.Page - 1) * filter.Size
		}
		to := total
		if filter.Size < total-from {
			to = from + filter.Size
		}
		items = items[from:to]
	}
	return model.ListBooks{
		Paging: model.Paging{Page: filter.Page, PageSize: filter.Size, TotalElements: total},
		Items:  items,
	}, nil
}

func (r *Repository) CreateBook(_ context.Context, book model.Book) (model.Book, error) {
	unlock := r.locks.Lock(bookKey(book.ISBN))
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[book.ISBN]; ok {
		return model.Book{}, errs.ErrDuplicateBook
	}
	r.books[book.ISBN] = book
	return book, nil
}

func (r *Repository) UpdateBook(ctx context.Context, isbn string, patch model.BookPatch) (model.Book, error) {
	return r.mutateBook(ctx, isbn, func(b *model.Book) error {
		onLoan := b.OnLoan()
		patch.Apply(b)
		if b.AvailableCopies < 0 {
			return errs.Conflict("total copies below the %d on loan", onLoan)
		}
		return nil
	})
}

func (r *Repository) ApplyMetadata(ctx context.Context, isbn string, meta model.BookMetadata) (model.Book, error) {
	return r.mutateBook(ctx, isbn, func(b *model.Book) error {
		meta.Fill(b)
		return nil
	})
}

func (r *Repository) DecrementAvailability(ctx context.Context, isbn string) (model.Book, error) {
	return r.mutateBook(ctx, isbn, takeCopy)
}

func (r *Repository) IncrementAvailability(ctx context.Context, isbn string) (model.Book, error) {
	return r.mutateBook(ctx, isbn, func(b *model.Book) error {
		if b.AvailableCopies >= b.TotalCopies {
			return errs.ErrAllOnShelf
		}
		b.AvailableCopies++
		b.DeriveStatus()
		return nil
	})
}

func takeCopy(b *model.Book) error {
	if b.AvailableCopies <= 0 {
		return errs.ErrNoneAvailable
	}
	b.AvailableCopies--
	b.DeriveStatus()
	return nil
}

// mutateBook applies fn to a copy of the record under the book lock and stores it on success.
func (r *Repository) mutateBook(_ context.Context, isbn string, fn func(b *model.Book) error) (model.Book, error) {
	unlock := r.locks.Lock(bookKey(isbn))
	defer unlock()
	return r.mutateBookLocked(isbn, fn)
}

func (r *Repository) mutateBookLocked(isbn string, fn func(b *model.Book) error) (model.Book, error) {
	r.mu.RLock()
	b, ok := r.books[isbn]
	r.mu.RUnlock()
	if !ok {
		return model.Book{}, errs.NotFound("book %q not found", isbn)
	}
	if err := fn(&b); err != nil {
		return model.Book{}, err
	}
	b.UpdatedAt = r.now()

	r.mu.Lock()
	r.books[isbn] = b
	r.mu.Unlock()
	return b, nil
}

func (r *Repository) DeleteBook(_ context.Context, isbn string) error {
	unlock := r.locks.Lock(bookKey(isbn))
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[isbn]; !ok {
		return errs.NotFound("book %q not found", isbn)
	}
	delete(r.books, isbn)
	return nil
}

func (r *Repository) GetUser(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, errs.NotFound("user %q not found", id)
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.userByEmailLocked(email); ok {
		return u, nil
	}
	return model.User{}, errs.NotFound("no user with email %q", email)
}

func (r *Repository) userByEmailLocked(email string) (model.User, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if strings.ToLower(u.Email) == email {
			return u, true
		}
	}
	return model.User{}, false
}

func (r *Repository) ListUsers(_ context.Context) ([]model.User, error) {
	r.mu.RLock()
	users := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (r *Repository) CreateUser(_ context.Context, user model.User) (model.User, error) {
	unlock := r.locks.Lock(usersKey)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.userByEmailLocked(user.Email); ok {
		return model.User{}, errs.ErrDuplicateEmail
	}
	if _, ok := r.users[user.ID]; ok {
		return model.User{}, errs.Conflict("user %q already exists", user.ID)
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *Repository) UpdateUser(_ context.Context, id string, patch model.UserPatch) (model.User, error) {
	unlock := r.locks.Lock(usersKey)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, errs.NotFound("user %q not found", id)
	}
	if patch.Email != nil {
		if other, found := r.userByEmailLocked(*patch.Email); found && other.ID != id {
			return model.User{}, errs.ErrDuplicateEmail
		}
	}
	patch.Apply(&u)
	u.UpdatedAt = r.now()
	r.users[id] = u
	return u, nil
}

func (r *Repository) DeleteUser(_ context.Context, id string) error {
	unlock := r.locks.Lock(usersKey)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return errs.NotFound("user %q not found", id)
	}
	delete(r.users, id)
	return nil
}
