package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"example.com/fieldactivity/internal/domain"
	memstore "example.com/fieldactivity/internal/storage/memory"
)

var testConfig = Config{Secret: "test-secret", Issuer: "field-activity"}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseValidToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := sign(t, testConfig.Secret, jwt.MapClaims{"sub": "user-1", "iss": testConfig.Issuer, "role": "Admin", "exp": exp.Unix()})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, domain.RoleAdmin, claims.Role)
	require.True(t, exp.Equal(claims.ExpiresAt))
	require.Equal(t, domain.Principal{UserID: "user-1", Role: domain.RoleAdmin}, claims.Principal())
}

func TestParseDefaultsToUserRole(t *testing.T) {
	token := sign(t, testConfig.Secret, jwt.MapClaims{"sub": "user-1", "iss": testConfig.Issuer, "role": "superuser"})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, claims.Role)
	require.True(t, claims.ExpiresAt.IsZero())
}

func TestParseRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"wrong secret": sign(t, "other", jwt.MapClaims{"sub": "u", "iss": testConfig.Issuer}),
		"wrong issuer": sign(t, testConfig.Secret, jwt.MapClaims{"sub": "u", "iss": "someone-else"}),
		"expired":      sign(t, testConfig.Secret, jwt.MapClaims{"sub": "u", "iss": testConfig.Issuer, "exp": time.Now().Add(-time.Minute).Unix()}),
		"missing sub":  sign(t, testConfig.Secret, jwt.MapClaims{"iss": testConfig.Issuer}),
		"not a jwt":    "garbage",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, testConfig)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddleware(t *testing.T) {
	var seen domain.Principal
	handler := NewMiddleware(testConfig).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/activities", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"type":"unauthorized","detail":"missing bearer token"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, testConfig.Secret, jwt.MapClaims{"sub": "user-9", "iss": testConfig.Issuer}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, domain.Principal{UserID: "user-9", Role: domain.RoleUser}, seen)
}

func TestPublicPrefixServesAttachmentsWithoutToken(t *testing.T) {
	files := memstore.NewStore("http://localhost:8080/files")
	obj, err := files.Store(context.Background(), domain.Upload{Name: "photo.txt", Body: strings.NewReader("site photo")})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle("GET /files/{path...}", files)
	mux.HandleFunc("GET /v1/activities", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig, "/files/").Wrap(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, obj.URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "site photo", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/activities", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/filesystem", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
