package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/pkg/auth"
	md "github.com/Astemirdum/libsys/pkg/middleware"
	"github.com/Astemirdum/libsys/pkg/serializer"
	"github.com/Astemirdum/libsys/pkg/validate"
	_ "github.com/Astemirdum/libsys/swagger"
)

type Handler struct {
	svc    LibraryService
	tokens *auth.TokenManager
	log    *zap.Logger
}

func New(svc LibraryService, tokens *auth.TokenManager, log *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		tokens: tokens,
		log:    log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, md.AuthorizationHeader},
		AllowCredentials: true,
	}))
	e.JSONSerializer = serializer.JSONSerializer{}
	e.Validator = validate.NewCustomValidator()

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}),
		md.NewRateLimiter(apiRPS),
	)
	h.register(api)
	return e
}

// register mounts the API routes on g; tests use it without the global middleware.
func (h *Handler) register(g *echo.Group) {
	g.GET("/books", h.ListBooks)
	g.GET("/books/:isbn", h.GetBook)
	g.POST("/users/login", h.Login)

	authed := g.Group("", md.JwtAuthentication(h.tokens))

	authed.POST("/books", h.CreateBook)
	authed.PUT("/books/:isbn", h.UpdateBook)
	authed.DELETE("/books/:isbn", h.DeleteBook)

	authed.GET("/users", h.ListUsers)
	authed.GET("/users/:id", h.GetUser)
	authed.POST("/users", h.CreateUser)
	authed.PUT("/users/:id", h.UpdateUser)
	authed.DELETE("/users/:id", h.DeleteUser)

	authed.POST("/borrow-requests", h.SubmitRequest)
	authed.GET("/borrow-requests/user/:userId", h.ListUserRequests)
	authed.GET("/borrow-requests/all", h.ListAllRequests)
	authed.POST("/borrow-requests/:id/approve", h.ApproveRequest)
	authed.POST("/borrow-requests/:id/reject", h.RejectRequest)
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var statusByKind = map[errs.Kind]int{
	errs.KindNotFound:           http.StatusNotFound,
	errs.KindConflict:           http.StatusConflict,
	errs.KindForbidden:          http.StatusForbidden,
	errs.KindInvalidCredentials: http.StatusUnauthorized,
	errs.KindValidation:         http.StatusBadRequest,
	errs.KindStorage:            http.StatusInternalServerError,
}

// fail renders a domain error. Storage details stay in the log.
func (h *Handler) fail(err error) error {
	kind := errs.KindOf(err)
	code, ok := statusByKind[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	msg := errs.Message(err)
	if kind == errs.KindStorage {
		h.log.Error("storage failure", zap.Error(err))
		msg = "internal error"
	}
	return echo.NewHTTPError(code, ErrorResponse{Kind: string(kind), Message: msg}).SetInternal(err)
}

func (h *Handler) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return h.fail(errs.Validation("malformed request body"))
	}
	return nil
}

func actorID(c echo.Context) (string, error) {
	id, err := auth.UserID(c.Request().Context())
	if err != nil {
		return "", echo.NewHTTPError(http.StatusUnauthorized, ErrorResponse{Kind: "UNAUTHENTICATED", Message: err.Error()})
	}
	return id, nil
}
