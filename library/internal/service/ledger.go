package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/library/internal/policy"
)

// Submit files a PENDING request. The availability check here is advisory; the copy is only
// taken on approval.
func (s *Service) Submit(ctx context.Context, actorID string, req model.SubmitRequest) (model.BorrowRequest, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return model.BorrowRequest{}, err
	}
	req.BookISBN = strings.TrimSpace(req.BookISBN)
	if req.UserID == "" {
		req.UserID = actor.ID
	}
	if err := s.gate.Check(actor, policy.SubmitRequest, policy.Owned(req.UserID)); err != nil {
		return model.BorrowRequest{}, err
	}
	if err := s.validate(req); err != nil {
		return model.BorrowRequest{}, err
	}

	borrower := actor
	if req.UserID != actor.ID {
		if borrower, err = s.repo.GetUser(ctx, req.UserID); err != nil {
			return model.BorrowRequest{}, err
		}
		if !borrower.Active() {
			return model.BorrowRequest{}, errs.Conflict("user %q is inactive", borrower.ID)
		}
	}
	book, err := s.repo.GetBook(ctx, req.BookISBN)
	if err != nil {
		return model.BorrowRequest{}, err
	}
	if book.AvailableCopies <= 0 {
		return model.BorrowRequest{}, errs.ErrNoneAvailable
	}

	now := s.now().UTC()
	created, err := s.repo.CreateRequest(ctx, model.BorrowRequest{
		ID:          s.newRequestID(now),
		UserID:      borrower.ID,
		UserName:    borrower.Name,
		UserEmail:   borrower.Email,
		BookISBN:    book.ISBN,
		BookTitle:   book.Title,
		Status:      model.StatusPending,
		RequestDate: now,
	})
	if err != nil {
		return model.BorrowRequest{}, err
	}
	s.log.Info("request submitted",
		zap.String("id", created.ID),
		zap.String("user", created.UserID),
		zap.String("isbn", created.BookISBN))
	s.publish(ctx, model.EventSubmitted, created, actor.ID)
	return created, nil
}

func (s *Service) Approve(ctx context.Context, actorID, id string) (model.BorrowRequest, error) {
	return s.respond(ctx, actorID, id, model.StatusApproved)
}

func (s *Service) Reject(ctx context.Context, actorID, id string) (model.BorrowRequest, error) {
	return s.respond(ctx, actorID, id, model.StatusRejected)
}

func (s *Service) respond(ctx context.Context, actorID, id string, status model.RequestStatus) (model.BorrowRequest, error) {
	staff, err := s.authorize(ctx, actorID, policy.ReviewRequest, policy.Any)
	if err != nil {
		return model.BorrowRequest{}, err
	}
	resp := model.Response{Status: status, StaffID: staff.ID, StaffName: staff.Name, At: s.now().UTC()}

	var (
		req model.BorrowRequest
		ev  model.EventType
	)
	if status == model.StatusApproved {
		req, err = s.repo.Approve(ctx, id, resp)
		ev = model.EventApproved
	} else {
		req, err = s.repo.Reject(ctx, id, resp)
		ev = model.EventRejected
	}
	if err != nil {
		s.log.Warn("respond failed", zap.String("id", id), zap.String("status", string(status)), zap.Error(err))
		return model.BorrowRequest{}, err
	}
	s.log.Info("request "+strings.ToLower(string(status)), zap.String("id", id), zap.String("by", staff.ID))
	s.publish(ctx, ev, req, staff.ID)
	return req, nil
}

func (s *Service) ListByUser(ctx context.Context, actorID, userID string) ([]model.BorrowRequest, error) {
	if _, err := s.authorize(ctx, actorID, policy.ReadRequests, policy.Owned(userID)); err != nil {
		return nil, err
	}
	return s.repo.ListRequests(ctx, model.RequestFilter{UserID: userID})
}

func (s *Service) ListAll(ctx context.Context, actorID string, status model.RequestStatus) ([]model.BorrowRequest, error) {
	if _, err := s.authorize(ctx, actorID, policy.ReadLedger, policy.Any); err != nil {
		return nil, err
	}
	status = model.RequestStatus(strings.ToUpper(string(status)))
	if status != "" && !status.Valid() {
		return nil, errs.Validation("unknown status %q", status)
	}
	return s.repo.ListRequests(ctx, model.RequestFilter{Status: status})
}

// publish is fire-and-forget: the transition is already committed.
func (s *Service) publish(ctx context.Context, t model.EventType, req model.BorrowRequest, actorID string) {
	if err := s.events.Publish(ctx, model.NewBorrowEvent(t, req, actorID, s.now().UTC())); err != nil {
		s.log.Warn("publish event", zap.String("type", string(t)), zap.String("id", req.ID), zap.Error(err))
	}
}
