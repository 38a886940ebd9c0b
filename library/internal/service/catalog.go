package service

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/library/internal/policy"
)

const (
	defaultTotalCopies = 1
	maxPageSize        = 100
)

func (s *Service) GetBook(ctx context.Context, isbn string) (model.Book, error) {
	return s.repo.GetBook(ctx, strings.TrimSpace(isbn))
}

func (s *Service) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	if strings.EqualFold(string(filter.Category), "all") {
		filter.Category = ""
	}
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Page < 0 || filter.Size < 0 {
		return model.ListBooks{}, errs.Validation("page and size must not be negative")
	}
	if filter.Size > maxPageSize {
		return model.ListBooks{}, errs.Validation("size must not exceed %d", maxPageSize)
	}
	if filter.Size > 0 && filter.Page > math.MaxInt32/filter.Size {
		return model.ListBooks{}, errs.Validation("page out of range")
	}
	return s.repo.ListBooks(ctx, filter)
}

func (s *Service) CreateBook(ctx context.Context, actorID string, req model.CreateBookRequest) (model.Book, error) {
	actor, err := s.authorize(ctx, actorID, policy.ManageBooks, policy.Any)
	if err != nil {
		return model.Book{}, err
	}
	req.ISBN = strings.TrimSpace(req.ISBN)
	if err := s.validate(req); err != nil {
		return model.Book{}, err
	}

	total := defaultTotalCopies
	if req.TotalCopies != nil {
		total = *req.TotalCopies
	}
	now := s.now().UTC()
	book := model.Book{
		ISBN:            req.ISBN,
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		Category:        req.Category,
		TotalCopies:     total,
		AvailableCopies: total,
		Status:          req.Status,
		CoverURL:        req.CoverURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	book.DeriveStatus()

	created, err := s.repo.CreateBook(ctx, book)
	if err != nil {
		return model.Book{}, err
	}
	s.log.Info("book created", zap.String("isbn", created.ISBN), zap.String("by", actor.ID))

	if s.enricher != nil && (created.Title == "" || created.Author == "" || created.CoverURL == "") {
		s.enricher.Enqueue(created.ISBN)
	}
	return created, nil
}

func (s *Service) UpdateBook(ctx context.Context, actorID, isbn string, patch model.BookPatch) (model.Book, error) {
	actor, err := s.authorize(ctx, actorID, policy.ManageBooks, policy.Any)
	if err != nil {
		return model.Book{}, err
	}
	if err := s.validate(patch); err != nil {
		return model.Book{}, err
	}
	isbn = strings.TrimSpace(isbn)
	book, err := s.repo.UpdateBook(ctx, isbn, patch)
	if err != nil {
		return model.Book{}, err
	}
	s.log.Info("book updated", zap.String("isbn", isbn), zap.String("by", actor.ID))
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, actorID, isbn string) error {
	actor, err := s.authorize(ctx, actorID, policy.ManageBooks, policy.Any)
	if err != nil {
		return err
	}
	isbn = strings.TrimSpace(isbn)
	if err := s.repo.DeleteBook(ctx, isbn); err != nil {
		return err
	}
	s.log.Info("book deleted", zap.String("isbn", isbn), zap.String("by", actor.ID))
	return nil
}
