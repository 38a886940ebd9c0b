package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/handler"
	service_mocks "github.com/Astemirdum/libsys/library/internal/handler/mocks"
	"github.com/Astemirdum/libsys/library/internal/model"
	"github.com/Astemirdum/libsys/pkg/auth"
)

const (
	memberID = "5a1e9a54-3b8b-4f0e-9e53-2d1c7e0b8a11"
	staffID  = "0c9d7b1e-6f3a-4a55-8f2e-7b9c1d2e3f40"

	zeroTime = `"0001-01-01T00:00:00Z"`
	duneJSON = `{"isbn":"111","title":"Dune","author":"Frank Herbert","category":"Sci-Fi","totalCopies":1,"availableCopies":1,"status":"Available","coverUrl":"","createdAt":` + zeroTime + `,"updatedAt":` + zeroTime + `}`
)

var dune = model.Book{
	ISBN: "111", Title: "Dune", Author: "Frank Herbert", Category: model.CategorySciFi,
	TotalCopies: 1, AvailableCopies: 1, Status: model.BookAvailable,
}

type request struct {
	method string
	target string
	body   string
	token  string
}

type response struct {
	expectedCode int
	expectedBody string
}

type mockBehavior func(r *service_mocks.MockLibraryService)

type testCase struct {
	name         string
	mockBehavior mockBehavior
	request      request
	response     response
}

var tokens = auth.NewTokenManager(auth.Config{Secret: "handler-test", TokenTTL: time.Hour})

func bearer(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	token, _, err := tokens.Issue(userID, string(role))
	require.NoError(t, err)
	return "Bearer " + token
}

func run(t *testing.T, tests []testCase) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, tokens, zap.NewExample().Named("test"))
			e := h.NewRouter()

			r := httptest.NewRequest(tt.request.method, "/api/v1"+tt.request.target, strings.NewReader(tt.request.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tt.request.token != "" {
				r.Header.Set("Authorization", tt.request.token)
			}
			w := httptest.NewRecorder()

			tt.mockBehavior(svc)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ListBooks(gomock.Any(), model.BookFilter{Category: "Sci-Fi", Search: "dune", Available: true, Page: 1, Size: 10}).
					Return(model.ListBooks{
						Paging: model.Paging{Page: 1, PageSize: 10, TotalElements: 1},
						Items:  []model.Book{dune},
					}, nil)
			},
			request: request{method: http.MethodGet, target: "/books?category=Sci-Fi&search=dune&available=true&page=1&size=10"},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"page":1,"pageSize":10,"totalElements":1,"items":[` + duneJSON + `]}`,
			},
		},
		{
			name:         "err. page invalid",
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			request:      request{method: http.MethodGet, target: "/books?page=one"},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"kind":"VALIDATION_ERROR","message":"page is invalid"}`,
			},
		},
		{
			name: "err. internal",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ListBooks(gomock.Any(), model.BookFilter{}).
					Return(model.ListBooks{}, errs.Storage(errors.New("db internal"), "list books"))
			},
			request: request{method: http.MethodGet, target: "/books"},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"kind":"STORAGE_ERROR","message":"internal error"}`,
			},
		},
	})
}

func TestHandler_GetBook(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().GetBook(gomock.Any(), "111").Return(dune, nil)
			},
			request:  request{method: http.MethodGet, target: "/books/111"},
			response: response{expectedCode: http.StatusOK, expectedBody: duneJSON},
		},
		{
			name: "err. not found",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().GetBook(gomock.Any(), "999").Return(model.Book{}, errs.NotFound("book %s not found", "999"))
			},
			request: request{method: http.MethodGet, target: "/books/999"},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"kind":"NOT_FOUND","message":"book 999 not found"}`,
			},
		},
	})
}

func TestHandler_CreateBook(t *testing.T) {
	t.Parallel()
	copies := 1
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBook(gomock.Any(), staffID, model.CreateBookRequest{ISBN: "111", Title: "Dune", TotalCopies: &copies}).
					Return(dune, nil)
			},
			request: request{
				method: http.MethodPost, target: "/books",
				body:  `{"isbn":"111","title":"Dune","totalCopies":1}`,
				token: bearer(t, staffID, model.RoleLibrarian),
			},
			response: response{expectedCode: http.StatusCreated, expectedBody: duneJSON},
		},
		{
			name:         "err. no token",
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			request:      request{method: http.MethodPost, target: "/books", body: `{"isbn":"111"}`},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"kind":"UNAUTHENTICATED","message":"no Authorization header"}`,
			},
		},
		{
			name:         "err. bad token",
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			request:      request{method: http.MethodPost, target: "/books", body: `{"isbn":"111"}`, token: "Bearer garbage"},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"kind":"UNAUTHENTICATED","message":"token is invalid"}`,
			},
		},
		{
			name: "err. duplicate",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBook(gomock.Any(), staffID, model.CreateBookRequest{ISBN: "111"}).
					Return(model.Book{}, errs.ErrDuplicateBook)
			},
			request: request{
				method: http.MethodPost, target: "/books",
				body:  `{"isbn":"111"}`,
				token: bearer(t, staffID, model.RoleLibrarian),
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"kind":"CONFLICT","message":"book already exists"}`,
			},
		},
		{
			name:         "err. malformed body",
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			request: request{
				method: http.MethodPost, target: "/books",
				body:  `{"isbn":`,
				token: bearer(t, staffID, model.RoleLibrarian),
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"kind":"VALIDATION_ERROR","message":"malformed request body"}`,
			},
		},
	})
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()
	user := model.User{ID: memberID, Name: "Max", Email: "max@lib.io", PasswordHash: "hash", Role: model.RoleMember, Status: model.AccountActive}
	userJSON := `{"id":"` + memberID + `","name":"Max","email":"max@lib.io","role":"Member","status":"Active","createdAt":` + zeroTime + `,"updatedAt":` + zeroTime + `}`
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Authenticate(gomock.Any(), model.LoginRequest{Email: "max@lib.io", Password: "secret"}).
					Return(model.LoginResponse{Success: true, User: user, AccessToken: "tok", ExpiresIn: 3600}, nil)
			},
			request: request{method: http.MethodPost, target: "/users/login", body: `{"email":"max@lib.io","password":"secret"}`},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"success":true,"user":` + userJSON + `,"accessToken":"tok","expiresIn":3600}`,
			},
		},
		{
			name: "err. invalid credentials",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Authenticate(gomock.Any(), model.LoginRequest{Email: "max@lib.io", Password: "nope"}).
					Return(model.LoginResponse{}, errs.ErrInvalidCredentials)
			},
			request: request{method: http.MethodPost, target: "/users/login", body: `{"email":"max@lib.io","password":"nope"}`},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"kind":"INVALID_CREDENTIALS","message":"invalid credentials"}`,
			},
		},
		{
			name: "err. inactive",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Authenticate(gomock.Any(), gomock.Any()).
					Return(model.LoginResponse{}, errs.ErrAccountInactive)
			},
			request: request{method: http.MethodPost, target: "/users/login", body: `{"email":"old@lib.io","password":"secret"}`},
			response: response{
				expectedCode: http.StatusForbidden,
				expectedBody: `{"kind":"FORBIDDEN","message":"account inactive"}`,
			},
		},
	})
}

func TestHandler_BorrowRequests(t *testing.T) {
	t.Parallel()
	pending := model.BorrowRequest{ID: "01HX", UserID: memberID, BookISBN: "111", Status: model.StatusPending}
	pendingJSON := `{"id":"01HX","userId":"` + memberID + `","userName":"","userEmail":"","bookIsbn":"111","bookTitle":"","status":"PENDING","requestDate":` + zeroTime + `}`
	run(t, []testCase{
		{
			name: "submit ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Submit(gomock.Any(), memberID, model.SubmitRequest{BookISBN: "111"}).
					Return(pending, nil)
			},
			request: request{
				method: http.MethodPost, target: "/borrow-requests",
				body:  `{"bookIsbn":"111"}`,
				token: bearer(t, memberID, model.RoleMember),
			},
			response: response{expectedCode: http.StatusCreated, expectedBody: pendingJSON},
		},
		{
			name: "submit pending exists",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Submit(gomock.Any(), memberID, model.SubmitRequest{BookISBN: "111"}).
					Return(model.BorrowRequest{}, errs.ErrPendingExists)
			},
			request: request{
				method: http.MethodPost, target: "/borrow-requests",
				body:  `{"bookIsbn":"111"}`,
				token: bearer(t, memberID, model.RoleMember),
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"kind":"CONFLICT","message":"pending request already exists"}`,
			},
		},
		{
			name: "approve by member",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Approve(gomock.Any(), memberID, "01HX").
					Return(model.BorrowRequest{}, errs.Forbidden("%s may not %s", model.RoleMember, "requests:review"))
			},
			request: request{method: http.MethodPost, target: "/borrow-requests/01HX/approve", token: bearer(t, memberID, model.RoleMember)},
			response: response{
				expectedCode: http.StatusForbidden,
				expectedBody: `{"kind":"FORBIDDEN","message":"Member may not requests:review"}`,
			},
		},
		{
			name: "approve none available",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().Approve(gomock.Any(), staffID, "01HX").Return(model.BorrowRequest{}, errs.ErrNoneAvailable)
			},
			request: request{method: http.MethodPost, target: "/borrow-requests/01HX/approve", token: bearer(t, staffID, model.RoleLibrarian)},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"kind":"CONFLICT","message":"none available"}`,
			},
		},
		{
			name: "reject already processed",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().Reject(gomock.Any(), staffID, "01HX").Return(model.BorrowRequest{}, errs.ErrAlreadyProcessed)
			},
			request: request{method: http.MethodPost, target: "/borrow-requests/01HX/reject", token: bearer(t, staffID, model.RoleLibrarian)},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"kind":"CONFLICT","message":"already processed"}`,
			},
		},
		{
			name: "list by user",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListByUser(gomock.Any(), memberID, memberID).Return([]model.BorrowRequest{pending}, nil)
			},
			request:  request{method: http.MethodGet, target: "/borrow-requests/user/" + memberID, token: bearer(t, memberID, model.RoleMember)},
			response: response{expectedCode: http.StatusOK, expectedBody: `[` + pendingJSON + `]`},
		},
		{
			name: "list all with status",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListAll(gomock.Any(), staffID, model.StatusPending).Return([]model.BorrowRequest{}, nil)
			},
			request:  request{method: http.MethodGet, target: "/borrow-requests/all?status=PENDING", token: bearer(t, staffID, model.RoleLibrarian)},
			response: response{expectedCode: http.StatusOK, expectedBody: `[]`},
		},
	})
}

func TestHandler_Users(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "delete",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().DeleteUser(gomock.Any(), staffID, memberID).Return(nil)
			},
			request:  request{method: http.MethodDelete, target: "/users/" + memberID, token: bearer(t, staffID, model.RoleAdmin)},
			response: response{expectedCode: http.StatusNoContent},
		},
		{
			name: "delete self",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().DeleteUser(gomock.Any(), staffID, staffID).Return(errs.Conflict("cannot delete own account"))
			},
			request: request{method: http.MethodDelete, target: "/users/" + staffID, token: bearer(t, staffID, model.RoleAdmin)},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"kind":"CONFLICT","message":"cannot delete own account"}`,
			},
		},
		{
			name: "list forbidden",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListUsers(gomock.Any(), memberID).Return(nil, errs.Forbidden("%s may not %s", model.RoleMember, "users:manage"))
			},
			request: request{method: http.MethodGet, target: "/users", token: bearer(t, memberID, model.RoleMember)},
			response: response{
				expectedCode: http.StatusForbidden,
				expectedBody: `{"kind":"FORBIDDEN","message":"Member may not users:manage"}`,
			},
		},
	})
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	h := handler.New(service_mocks.NewMockLibraryService(c), tokens, zap.NewNop())
	w := httptest.NewRecorder()
	h.NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manage/health", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}
