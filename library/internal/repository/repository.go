package repository

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/model"
)

type CatalogRepository interface {
	GetBook(ctx context.Context, isbn string) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, isbn string, patch model.BookPatch) (model.Book, error)
	DeleteBook(ctx context.Context, isbn string) error
	DecrementAvailability(ctx context.Context, isbn string) (model.Book, error)
	IncrementAvailability(ctx context.Context, isbn string) (model.Book, error)
	ApplyMetadata(ctx context.Context, isbn string, meta model.BookMetadata) (model.Book, error)
}

type IdentityRepository interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	UpdateUser(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// LedgerRepository owns borrow requests. Approve couples the status transition with the
// catalog decrement: both apply or neither does.
type LedgerRepository interface {
	CreateRequest(ctx context.Context, req model.BorrowRequest) (model.BorrowRequest, error)
	GetRequest(ctx context.Context, id string) (model.BorrowRequest, error)
	ListRequests(ctx context.Context, filter model.RequestFilter) ([]model.BorrowRequest, error)
	Approve(ctx context.Context, id string, resp model.Response) (model.BorrowRequest, error)
	Reject(ctx context.Context, id string, resp model.Response) (model.BorrowRequest, error)
}

type Repository interface {
	CatalogRepository
	IdentityRepository
	LedgerRepository
}

type repository struct {
	db   *sqlx.DB
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ Repository = (*repository)(nil)

func NewRepository(db *sqlx.DB, pool *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	if db == nil || pool == nil {
		return nil, errors.New("repository: nil database handle")
	}
	return &repository{
		db:   db,
		pool: pool,
		log:  log.Named("repo"),
	}, nil
}

const (
	booksTableName    = `books`
	usersTableName    = `users`
	requestsTableName = `borrow_requests`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
