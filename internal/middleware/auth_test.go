package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, _ := PrincipalFromContext(r.Context())
		_, _ = w.Write([]byte(name))
	})
}

func newAuthHandler(t *testing.T) http.Handler {
	t.Helper()
	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)
	return Authenticate(v)(principalEcho())
}

func TestAuthenticate_ValidToken(t *testing.T) {
	t.Parallel()
	token, err := SignHS256(testSecret, "alice", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newAuthHandler(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestAuthenticate_EmailFallback(t *testing.T) {
	t.Parallel()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "ops@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	newAuthHandler(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@example.com", rec.Body.String())
}

func TestAuthenticate_Rejects(t *testing.T) {
	t.Parallel()

	expired, err := SignHS256(testSecret, "alice", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := SignHS256("other-secret", "alice", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": "x"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "alice"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"basic auth", "Basic YWxpY2U6c2VjcmV0"},
		{"empty bearer", "Bearer "},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"no subject", "Bearer " + noSubject},
		{"wrong algorithm", "Bearer " + hs512},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			newAuthHandler(t).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.InDelta(t, float64(401), body["code"], 0.001)
		})
	}
}

func TestHS256Validator_Claims(t *testing.T) {
	t.Parallel()
	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)

	token, err := SignHS256(testSecret, "bob", time.Hour)
	require.NoError(t, err)
	claims, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Subject)
	assert.Equal(t, "asyncq", claims.Issuer)
	assert.Nil(t, claims.Email)

	_, err = NewHS256Validator("")
	require.Error(t, err)
	_, err = SignHS256("", "bob", time.Hour)
	require.Error(t, err)
}

func TestPrincipalFromContext_Missing(t *testing.T) {
	t.Parallel()
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
