package handler

import (
	"context"

	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/library/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	GetBook(ctx context.Context, isbn string) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	CreateBook(ctx context.Context, actorID string, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, actorID, isbn string, patch model.BookPatch) (model.Book, error)
	DeleteBook(ctx context.Context, actorID, isbn string) error

	Authenticate(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error)
	GetUser(ctx context.Context, actorID, id string) (model.User, error)
	ListUsers(ctx context.Context, actorID string) ([]model.User, error)
	CreateUser(ctx context.Context, actorID string, req model.CreateUserRequest) (model.User, error)
	UpdateUser(ctx context.Context, actorID, id string, patch model.UserPatch) (model.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error

	Submit(ctx context.Context, actorID string, req model.SubmitRequest) (model.BorrowRequest, error)
	Approve(ctx context.Context, actorID, id string) (model.BorrowRequest, error)
	Reject(ctx context.Context, actorID, id string) (model.BorrowRequest, error)
	ListByUser(ctx context.Context, actorID, userID string) ([]model.BorrowRequest, error)
	ListAll(ctx context.Context, actorID string, status model.RequestStatus) ([]model.BorrowRequest, error)
}

var _ LibraryService = (*service.Service)(nil)
