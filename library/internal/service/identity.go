package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/library/internal/policy"
)

// dummyHash keeps the cost of a failed lookup close to that of a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("libsys-dummy-password"), bcrypt.DefaultCost)

// Authenticate checks credentials and issues an access token. Unknown email and wrong password
// are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validate(req); err != nil {
		return model.LoginResponse{}, err
	}
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return model.LoginResponse{}, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return model.LoginResponse{}, errs.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Debug("bad password", zap.String("user", user.ID))
		return model.LoginResponse{}, errs.ErrInvalidCredentials
	}
	if !user.Active() {
		return model.LoginResponse{}, errs.ErrAccountInactive
	}

	token, _, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return model.LoginResponse{}, errs.Storage(err, "issue token")
	}
	s.log.Info("login", zap.String("user", user.ID))
	return model.LoginResponse{
		Success:     true,
		User:        user,
		AccessToken: token,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

func (s *Service) GetUser(ctx context.Context, actorID, id string) (model.User, error) {
	if _, err := s.authorize(ctx, actorID, policy.ReadUser, policy.Owned(id)); err != nil {
		return model.User{}, err
	}
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, actorID string) ([]model.User, error) {
	if _, err := s.authorize(ctx, actorID, policy.ManageUsers, policy.Any); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) CreateUser(ctx context.Context, actorID string, req model.CreateUserRequest) (model.User, error) {
	actor, err := s.authorize(ctx, actorID, policy.ManageUsers, policy.Any)
	if err != nil {
		return model.User{}, err
	}
	user, err := s.createUser(ctx, req)
	if err != nil {
		return model.User{}, err
	}
	s.log.Info("user created", zap.String("user", user.ID), zap.String("role", string(user.Role)), zap.String("by", actor.ID))
	return user, nil
}

func (s *Service) createUser(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate(req); err != nil {
		return model.User{}, err
	}
	if req.Role == "" {
		req.Role = model.RoleMember
	}
	if req.Status == "" {
		req.Status = model.AccountActive
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return model.User{}, errs.Validation("unusable password")
	}
	now := s.now().UTC()
	return s.repo.CreateUser(ctx, model.User{
		ID:           s.newUserID(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Status:       req.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *Service) UpdateUser(ctx context.Context, actorID, id string, patch model.UserPatch) (model.User, error) {
	actor, err := s.authorize(ctx, actorID, policy.ManageUsers, policy.Any)
	if err != nil {
		return model.User{}, err
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}
	patch.PasswordHash = nil
	if err := s.validate(patch); err != nil {
		return model.User{}, err
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.hashCost)
		if err != nil {
			return model.User{}, errs.Validation("unusable password")
		}
		h := string(hash)
		patch.PasswordHash = &h
	}
	user, err := s.repo.UpdateUser(ctx, id, patch)
	if err != nil {
		return model.User{}, err
	}
	s.log.Info("user updated", zap.String("user", id), zap.String("by", actor.ID))
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, actorID, id string) error {
	actor, err := s.authorize(ctx, actorID, policy.ManageUsers, policy.Any)
	if err != nil {
		return err
	}
	if actor.ID == id {
		return errs.Conflict("cannot delete own account")
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user", id), zap.String("by", actor.ID))
	return nil
}

// SeedAdmin makes sure the configured administrator exists. An existing account with that
// email is left untouched.
func (s *Service) SeedAdmin(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	existing, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, errs.ErrNotFound):
		return model.User{}, err
	}
	req.Role = model.RoleAdmin
	req.Status = model.AccountActive
	admin, err := s.createUser(ctx, req)
	if err != nil {
		return model.User{}, err
	}
	s.log.Info("admin seeded", zap.String("user", admin.ID), zap.String("email", admin.Email))
	return admin, nil
}
