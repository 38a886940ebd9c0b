package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/library/internal/repository/memory"
	"github.com/Astemirdum/libsys/pkg/auth"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []model.BorrowEvent
}

func (r *recorder) Publish(_ context.Context, ev model.BorrowEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type queue struct {
	mu    sync.Mutex
	isbns []string
}

func (q *queue) Enqueue(isbn string) bool {
	q.mu.Lock()
	q.isbns = append(q.isbns, isbn)
	q.mu.Unlock()
	return true
}

const testPassword = "secret-pass"

type fixture struct {
	svc    *Service
	repo   *memory.Repository
	clock  *clock
	events *recorder
	queue  *queue
	tokens *auth.TokenManager

	admin, librarian, member, other model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   memory.New(),
		clock:  &clock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		events: &recorder{},
		queue:  &queue{},
		tokens: auth.NewTokenManager(auth.Config{Secret: "test", TokenTTL: time.Hour}),
	}
	f.svc = NewService(f.repo, f.tokens, zap.NewNop(),
		WithClock(f.clock.Now),
		WithPublisher(f.events),
		WithEnricher(f.queue),
		WithHashCost(bcrypt.MinCost),
	)
	f.admin = f.addUser(t, "Ada", "admin@lib.io", model.RoleAdmin)
	f.librarian = f.addUser(t, "Lee", "lib@lib.io", model.RoleLibrarian)
	f.member = f.addUser(t, "Max", "max@lib.io", model.RoleMember)
	f.other = f.addUser(t, "Oli", "oli@lib.io", model.RoleMember)
	return f
}

func (f *fixture) addUser(t *testing.T, name, email string, role model.Role) model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := f.repo.CreateUser(context.Background(), model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       model.AccountActive,
		CreatedAt:    f.clock.Now(),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) addBook(t *testing.T, isbn string, copies int) model.Book {
	t.Helper()
	b, err := f.svc.CreateBook(context.Background(), f.librarian.ID, model.CreateBookRequest{
		ISBN: isbn, Title: "Title " + isbn, Author: "Author", Category: model.CategoryFiction,
		TotalCopies: &copies, CoverURL: "https://covers/" + isbn + ".jpg",
	})
	require.NoError(t, err)
	return b
}

func ptr[T any](v T) *T {
	return &v
}
