package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
)

var bookColumns = []string{
	"isbn", "title", "author", "category", "total_copies", "available_copies",
	"status", "cover_url", "created_at", "updated_at",
}

// statusExpr re-derives the status after an availability change; pinned statuses are kept.
const statusExpr = `case when status in ('Reserved', 'Lost') then status
	when %s > 0 then 'Available' else 'CheckedOut' end`

var (
	decrementQuery = fmt.Sprintf(`update %s
	set available_copies = available_copies - 1,
	    status = %s,
	    updated_at = now()
	where isbn = $1 and available_copies > 0
	returning %s`, booksTableName, fmt.Sprintf(statusExpr, "available_copies - 1"), joinColumns(bookColumns))

	incrementQuery = fmt.Sprintf(`update %s
	set available_copies = available_copies + 1,
	    status = %s,
	    updated_at = now()
	where isbn = $1 and available_copies < total_copies
	returning %s`, booksTableName, fmt.Sprintf(statusExpr, "available_copies + 1"), joinColumns(bookColumns))
)

func (r *repository) GetBook(ctx context.Context, isbn string) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"isbn": isbn}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, errs.Storage(err, "build query")
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if isNoRows(err) {
			return model.Book{}, errs.NotFound("book %q not found", isbn)
		}
		r.log.Error("GetBook", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return model.Book{}, errs.Storage(err, "get book")
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	where := sq.And{}
	if filter.Category != "" {
		where = append(where, sq.Eq{"category": filter.Category})
	}
	if filter.Available {
		where = append(where, sq.Gt{"available_copies": 0})
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
			sq.Like{"isbn": pattern},
		})
	}

	countQuery, countArgs, err := qb.Select("count(*)").From(booksTableName).Where(where).ToSql()
	if err != nil {
		return model.ListBooks{}, errs.Storage(err, "build query")
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return model.ListBooks{}, errs.Storage(err, "count books")
	}

	q := qb.Select(bookColumns...).
		From(booksTableName).
		Where(where).
		OrderBy("title", "isbn")
	if filter.Page > 0 && filter.Size > 0 {
		q = q.Limit(uint64(filter.Size)).Offset(uint64((filter.Page - 1) * filter.Size))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.ListBooks{}, errs.Storage(err, "build query")
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return model.ListBooks{}, errs.Storage(err, "list books")
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          filter.Page,
			PageSize:      filter.Size,
			TotalElements: total,
		},
		Items: books,
	}, nil
}

func (r *repository) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns(bookColumns...).
		Values(book.ISBN, book.Title, book.Author, book.Category, book.TotalCopies, book.AvailableCopies,
			book.Status, book.CoverURL, book.CreatedAt, book.UpdatedAt).
		Suffix("returning " + joinColumns(bookColumns)).
		ToSql()
	if err != nil {
		return model.Book{}, errs.Storage(err, "build query")
	}

	var created model.Book
	if err := r.db.GetContext(ctx, &created, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Book{}, errs.ErrDuplicateBook
		}
		r.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return model.Book{}, errs.Storage(err, "create book")
	}
	return created, nil
}

func (r *repository) UpdateBook(ctx context.Context, isbn string, patch model.BookPatch) (model.Book, error) {
	return r.mutateBook(ctx, isbn, func(b *model.Book) error {
		onLoan := b.OnLoan()
		patch.Apply(b)
		if b.AvailableCopies < 0 {
			return errs.Conflict("total copies below the %d on loan", onLoan)
		}
		return nil
	})
}

func (r *repository) ApplyMetadata(ctx context.Context, isbn string, meta model.BookMetadata) (model.Book, error) {
	return r.mutateBook(ctx, isbn, func(b *model.Book) error {
		meta.Fill(b)
		return nil
	})
}

// mutateBook runs a read-modify-write on one row under SELECT ... FOR UPDATE.
func (r *repository) mutateBook(ctx context.Context, isbn string, fn func(b *model.Book) error) (book model.Book, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Book{}, errs.Storage(err, "begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"isbn": isbn}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.Book{}, errs.Storage(err, "build query")
	}
	if err = tx.GetContext(ctx, &book, query, args...); err != nil {
		if isNoRows(err) {
			return model.Book{}, errs.NotFound("book %q not found", isbn)
		}
		return model.Book{}, errs.Storage(err, "lock book")
	}

	if err = fn(&book); err != nil {
		return model.Book{}, err
	}
	if err = updateBookTx(ctx, tx, book); err != nil {
		return model.Book{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Book{}, errs.Storage(err, "commit")
	}
	return r.GetBook(ctx, isbn)
}

func updateBookTx(ctx context.Context, tx *sqlx.Tx, b model.Book) error {
	query, args, err := qb.Update(booksTableName).
		SetMap(map[string]interface{}{
			"title":            b.Title,
			"author":           b.Author,
			"category":         b.Category,
			"total_copies":     b.TotalCopies,
			"available_copies": b.AvailableCopies,
			"status":           b.Status,
			"cover_url":        b.CoverURL,
			"updated_at":       sq.Expr("now()"),
		}).
		Where(sq.Eq{"isbn": b.ISBN}).
		ToSql()
	if err != nil {
		return errs.Storage(err, "build query")
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errs.Storage(err, "update book")
	}
	return nil
}

func (r *repository) DeleteBook(ctx context.Context, isbn string) error {
	query, args, err := qb.Delete(booksTableName).Where(sq.Eq{"isbn": isbn}).ToSql()
	if err != nil {
		return errs.Storage(err, "build query")
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errs.Storage(err, "delete book")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Storage(err, "delete book")
	}
	if n == 0 {
		return errs.NotFound("book %q not found", isbn)
	}
	return nil
}

func (r *repository) DecrementAvailability(ctx context.Context, isbn string) (model.Book, error) {
	return r.shiftAvailability(ctx, decrementQuery, isbn, errs.ErrNoneAvailable)
}

func (r *repository) IncrementAvailability(ctx context.Context, isbn string) (model.Book, error) {
	return r.shiftAvailability(ctx, incrementQuery, isbn, errs.ErrAllOnShelf)
}

// shiftAvailability runs a guarded single-statement update; the row lock taken by UPDATE
// linearizes concurrent callers on the same book.
func (r *repository) shiftAvailability(ctx context.Context, query, isbn string, exhausted error) (model.Book, error) {
	var book model.Book
	err := r.db.GetContext(ctx, &book, query, isbn)
	if err == nil {
		return book, nil
	}
	if !isNoRows(err) {
		return model.Book{}, errs.Storage(err, "update availability")
	}
	if _, err := r.GetBook(ctx, isbn); err != nil {
		return model.Book{}, err
	}
	return model.Book{}, exhausted
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
