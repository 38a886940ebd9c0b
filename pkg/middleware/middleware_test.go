package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Astemirdum/libsys/pkg/auth"
	md "github.com/Astemirdum/libsys/pkg/middleware"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestJwtAuthentication(t *testing.T) {
	t.Parallel()
	tokens := auth.NewTokenManager(auth.Config{Secret: "secret", TokenTTL: time.Hour})
	valid, _, err := tokens.Issue("u-1", "Member")
	require.NoError(t, err)

	tests := []struct {
		name         string
		header       string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "ok",
			header:       "Bearer " + valid,
			expectedCode: http.StatusOK,
			expectedBody: "u-1",
		},
		{
			name:         "no header",
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"kind":"UNAUTHENTICATED","message":"no Authorization header"}`,
		},
		{
			name:         "not bearer",
			header:       "Basic abc",
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"kind":"UNAUTHENTICATED","message":"invalid Authorization header"}`,
		},
		{
			name:         "bad token",
			header:       "Bearer abc",
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"kind":"UNAUTHENTICATED","message":"token is invalid"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			e.GET("/me", func(c echo.Context) error {
				id, err := auth.UserID(c.Request().Context())
				if err != nil {
					return err
				}
				return c.String(http.StatusOK, id)
			}, md.JwtAuthentication(tokens))

			r := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
			if tt.header != "" {
				r.Header.Set(md.AuthorizationHeader, tt.header)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}
