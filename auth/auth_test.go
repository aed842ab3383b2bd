package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "carbon-tracker", TTL: time.Hour}

func TestIssueAndParse(t *testing.T) {
	token, expires, err := Issue(42, true, testConfig, time.Now())
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)

	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.True(t, claims.IsAdmin)
	assert.WithinDuration(t, expires, claims.ExpiresAt, time.Second)
}

func TestParseRejects(t *testing.T) {
	valid, _, err := Issue(1, false, testConfig, time.Now())
	require.NoError(t, err)
	expired, _, err := Issue(1, false, testConfig, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	otherIssuer, _, err := Issue(1, false, Config{Secret: testConfig.Secret, Issuer: "someone-else", TTL: time.Hour}, time.Now())
	require.NoError(t, err)
	zeroUser, _, err := Issue(0, false, testConfig, time.Now())
	require.NoError(t, err)

	testCases := []struct {
		name     string
		token    string
		cfg      Config
		expected error
	}{
		{name: "Empty token", token: "  ", cfg: testConfig, expected: ErrMissingToken},
		{name: "Garbage", token: "not.a.jwt", cfg: testConfig, expected: ErrInvalidToken},
		{name: "Wrong secret", token: valid, cfg: Config{Secret: "other", Issuer: testConfig.Issuer}, expected: ErrInvalidToken},
		{name: "Expired", token: expired, cfg: testConfig, expected: ErrInvalidToken},
		{name: "Wrong issuer", token: otherIssuer, cfg: testConfig, expected: ErrInvalidToken},
		{name: "Zero subject", token: zeroUser, cfg: testConfig, expected: ErrInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.token, tc.cfg)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestMiddleware(t *testing.T) {
	token, _, err := Issue(7, false, testConfig, time.Now())
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]uint{"user_id": id})
	})
	mw := NewMiddleware(testConfig, func(r *http.Request) bool { return r.URL.Path == "/healthz" })
	handler := mw.Wrap(next)

	testCases := []struct {
		name               string
		path               string
		header             string
		expectedStatusCode int
		expectedBody       string
	}{
		{name: "Valid bearer token", path: "/api/me", header: "Bearer " + token, expectedStatusCode: http.StatusOK, expectedBody: `{"user_id":7}`},
		{name: "Lowercase scheme", path: "/api/me", header: "bearer " + token, expectedStatusCode: http.StatusOK, expectedBody: `{"user_id":7}`},
		{name: "Missing header", path: "/api/me", expectedStatusCode: http.StatusUnauthorized, expectedBody: `{"error":"authentication required"}`},
		{name: "Wrong scheme", path: "/api/me", header: "Basic abc", expectedStatusCode: http.StatusUnauthorized},
		{name: "Skipped path", path: "/healthz", expectedStatusCode: http.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestFromContextWithoutClaims(t *testing.T) {
	_, ok := UserID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
