package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
)

var requestColumns = []string{
	"id", "user_id", "user_name", "user_email", "book_isbn", "book_title",
	"status", "requested_at", "responded_by_id", "responded_by_name", "responded_at",
}

var (
	selectRequestForUpdate = fmt.Sprintf(`select %s from %s where id = @id for update`,
		joinColumns(requestColumns), requestsTableName)

	respondQuery = fmt.Sprintf(`update %s
	set status = @status,
	    responded_by_id = @staff_id,
	    responded_by_name = @staff_name,
	    responded_at = @at
	where id = @id and status = 'PENDING'
	returning %s`, requestsTableName, joinColumns(requestColumns))
)

func (r *repository) CreateRequest(ctx context.Context, req model.BorrowRequest) (model.BorrowRequest, error) {
	query := fmt.Sprintf(`insert into %s (%s)
	values (@id, @user_id, @user_name, @user_email, @book_isbn, @book_title, @status, @requested_at, null, null, null)
	returning %s`, requestsTableName, joinColumns(requestColumns), joinColumns(requestColumns))
	args := pgx.NamedArgs{
		"id":           req.ID,
		"user_id":      req.UserID,
		"user_name":    req.UserName,
		"user_email":   req.UserEmail,
		"book_isbn":    req.BookISBN,
		"book_title":   req.BookTitle,
		"status":       req.Status,
		"requested_at": req.RequestDate,
	}
	rows, err := r.pool.Query(ctx, query, args)
	if err != nil {
		return model.BorrowRequest{}, errs.Storage(err, "create request")
	}
	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BorrowRequest])
	if err != nil {
		if isUniqueViolation(err) {
			return model.BorrowRequest{}, errs.ErrPendingExists
		}
		r.log.Error("CreateRequest", zap.Error(err))
		return model.BorrowRequest{}, errs.Storage(err, "create request")
	}
	return created, nil
}

func (r *repository) GetRequest(ctx context.Context, id string) (model.BorrowRequest, error) {
	query := fmt.Sprintf(`select %s from %s where id = @id`, joinColumns(requestColumns), requestsTableName)
	rows, err := r.pool.Query(ctx, query, pgx.NamedArgs{"id": id})
	if err != nil {
		return model.BorrowRequest{}, errs.Storage(err, "get request")
	}
	req, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BorrowRequest])
	if err != nil {
		if isNoRows(err) {
			return model.BorrowRequest{}, errs.NotFound("request %q not found", id)
		}
		return model.BorrowRequest{}, errs.Storage(err, "get request")
	}
	return req, nil
}

func (r *repository) ListRequests(ctx context.Context, filter model.RequestFilter) ([]model.BorrowRequest, error) {
	where := sq.Eq{}
	if filter.UserID != "" {
		where["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	query, args, err := qb.Select(requestColumns...).
		From(requestsTableName).
		Where(where).
		OrderBy("requested_at desc", "id desc").
		ToSql()
	if err != nil {
		return nil, errs.Storage(err, "build query")
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Storage(err, "list requests")
	}
	reqs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.BorrowRequest])
	if err != nil {
		return nil, errs.Storage(err, "list requests")
	}
	if reqs == nil {
		reqs = make([]model.BorrowRequest, 0)
	}
	return reqs, nil
}

// Approve locks the request row, takes one copy of the book and records the decision in a
// single transaction.
func (r *repository) Approve(ctx context.Context, id string, resp model.Response) (approved model.BorrowRequest, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return model.BorrowRequest{}, errs.Storage(err, "begin tx")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.log.Warn("Approve rollback", zap.Error(rbErr))
			}
		}
	}()

	rows, err := tx.Query(ctx, selectRequestForUpdate, pgx.NamedArgs{"id": id})
	if err != nil {
		return model.BorrowRequest{}, errs.Storage(err, "lock request")
	}
	req, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BorrowRequest])
	if err != nil {
		if isNoRows(err) {
			return model.BorrowRequest{}, errs.NotFound("request %q not found", id)
		}
		return model.BorrowRequest{}, errs.Storage(err, "lock request")
	}
	if req.Status != model.StatusPending {
		return model.BorrowRequest{}, errs.ErrAlreadyProcessed
	}

	tag, err := tx.Exec(ctx, decrementQuery, req.BookISBN)
	if err != nil {
		return model.BorrowRequest{}, errs.Storage(err, "take copy")
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err = tx.QueryRow(ctx, `select exists(select 1 from books where isbn = $1)`, req.BookISBN).Scan(&exists); err != nil {
			return model.BorrowRequest{}, errs.Storage(err, "take copy")
		}
		if !exists {
			return model.BorrowRequest{}, errs.NotFound("book %q not found", req.BookISBN)
		}
		return model.BorrowRequest{}, errs.ErrNoneAvailable
	}

	if approved, err = respondTx(ctx, tx, id, resp); err != nil {
		return model.BorrowRequest{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return model.BorrowRequest{}, errs.Storage(err, "commit")
	}
	return approved, nil
}

func (r *repository) Reject(ctx context.Context, id string, resp model.Response) (model.BorrowRequest, error) {
	rows, err := r.pool.Query(ctx, respondQuery, respondArgs(id, resp))
	if err != nil {
		return model.BorrowRequest{}, errs.Storage(err, "reject request")
	}
	rejected, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BorrowRequest])
	if err == nil {
		return rejected, nil
	}
	if !isNoRows(err) {
		return model.BorrowRequest{}, errs.Storage(err, "reject request")
	}
	if _, err := r.GetRequest(ctx, id); err != nil {
		return model.BorrowRequest{}, err
	}
	return model.BorrowRequest{}, errs.ErrAlreadyProcessed
}

func respondTx(ctx context.Context, tx pgx.Tx, id string, resp model.Response) (model.BorrowRequest, error) {
	rows, err := tx.Query(ctx, respondQuery, respondArgs(id, resp))
	if err != nil {
		return model.BorrowRequest{}, errs.Storage(err, "respond")
	}
	req, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BorrowRequest])
	if err != nil {
		if isNoRows(err) {
			return model.BorrowRequest{}, errs.ErrAlreadyProcessed
		}
		return model.BorrowRequest{}, errs.Storage(err, "respond")
	}
	return req, nil
}

func respondArgs(id string, resp model.Response) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":         id,
		"status":     resp.Status,
		"staff_id":   resp.StaffID,
		"staff_name": resp.StaffName,
		"at":         resp.At,
	}
}
