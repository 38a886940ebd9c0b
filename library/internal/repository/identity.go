package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
)

var userColumns = []string{"id", "name", "email", "password_hash", "role", "status", "created_at", "updated_at"}

func (r *repository) GetUser(ctx context.Context, id string) (model.User, error) {
	return r.getUser(ctx, sq.Eq{"id": id}, "user %q not found", id)
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getUser(ctx, sq.Eq{"lower(email)": normalizeEmail(email)}, "no user with email %q", email)
}

func (r *repository) getUser(ctx context.Context, where sq.Sqlizer, notFound string, arg string) (model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, errs.Storage(err, "build query")
	}
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if isNoRows(err) {
			return model.User{}, errs.NotFound(notFound, arg)
		}
		r.log.Error("getUser", zap.String("q", query), zap.Error(err))
		return model.User{}, errs.Storage(err, "get user")
	}
	return user, nil
}

func (r *repository) ListUsers(ctx context.Context) ([]model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, errs.Storage(err, "build query")
	}
	users := make([]model.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, errs.Storage(err, "list users")
	}
	return users, nil
}

func (r *repository) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	query, args, err := qb.Insert(usersTableName).
		Columns(userColumns...).
		Values(user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Status, user.CreatedAt, user.UpdatedAt).
		Suffix("returning " + joinColumns(userColumns)).
		ToSql()
	if err != nil {
		return model.User{}, errs.Storage(err, "build query")
	}
	var created model.User
	if err := r.db.GetContext(ctx, &created, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.User{}, errs.ErrDuplicateEmail
		}
		r.log.Error("CreateUser", zap.String("q", query), zap.Error(err))
		return model.User{}, errs.Storage(err, "create user")
	}
	return created, nil
}

func (r *repository) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	set := map[string]interface{}{"updated_at": sq.Expr("now()")}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.PasswordHash != nil {
		set["password_hash"] = *patch.PasswordHash
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}

	query, args, err := qb.Update(usersTableName).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("returning " + joinColumns(userColumns)).
		ToSql()
	if err != nil {
		return model.User{}, errs.Storage(err, "build query")
	}
	var updated model.User
	if err := r.db.GetContext(ctx, &updated, query, args...); err != nil {
		switch {
		case isNoRows(err):
			return model.User{}, errs.NotFound("user %q not found", id)
		case isUniqueViolation(err):
			return model.User{}, errs.ErrDuplicateEmail
		}
		return model.User{}, errs.Storage(err, "update user")
	}
	return updated, nil
}

func (r *repository) DeleteUser(ctx context.Context, id string) error {
	query, args, err := qb.Delete(usersTableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errs.Storage(err, "build query")
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errs.Storage(err, "delete user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errs.Storage(err, "delete user")
	} else if n == 0 {
		return errs.NotFound("user %q not found", id)
	}
	return nil
}
