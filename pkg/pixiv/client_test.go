package pixiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pxfollow/internal/testutil"
	"pxfollow/pkg/config"
	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string, log logger.Logger) *Client {
	t.Helper()
	cfg := config.DefaultConfig().Pixiv
	cfg.BaseURL = baseURL
	cfg.SessionCookie = "123_secret"
	cfg.RequestTimeout = 5 * time.Second
	return NewClient(cfg, log)
}

func TestNewClient(t *testing.T) {
	log := logger.NewTestLogger()
	client := newTestClient(t, "http://example.test/", log)

	assert.Equal(t, "http://example.test", client.BaseURL())
	assert.Equal(t, "en", client.Language())
	assert.Contains(t, client.headers["User-Agent"], "Mozilla")
	assert.Equal(t, log, client.logger)
	assert.NotNil(t, client.retry)

	client.SetHeader("X-Custom", "1")
	assert.Equal(t, "1", client.headers["X-Custom"])
}

func TestFollowingSendsExpectedRequest(t *testing.T) {
	mock := testutil.NewMockPixiv("42", "tok")
	defer mock.Close()
	mock.RequireCookie("123_secret")
	mock.AddPublicFollows(1, 3)

	client := newTestClient(t, mock.URL(), logger.NewNopLogger())
	body, err := client.Following(context.Background(), "42", 0, 100, Public)
	require.NoError(t, err)

	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Users, 3)
	assert.Equal(t, ID("1"), body.Users[0].UserID)
	assert.Equal(t, "user1", body.Users[0].UserName)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/ajax/user/42/following", reqs[0].Path)
	assert.Equal(t, "42", reqs[0].Header.Get("x-user-id"))
	assert.Equal(t, map[string]string{"offset": "0", "limit": "100", "rest": "show", "lang": "en"}, reqs[0].Query)
}

func TestFollowingErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType errs.ErrorType
		wantCode int
		wantMsg  string
	}{
		{
			name: "api error envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":true,"message":"Invalid user","body":[]}`))
			},
			wantType: errs.ErrorTypeAPI,
			wantCode: http.StatusOK,
			wantMsg:  "Invalid user",
		},
		{
			name: "api error envelope with object body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":true,"message":"","body":{}}`))
			},
			wantType: errs.ErrorTypeAPI,
			wantCode: http.StatusOK,
		},
		{
			name: "page body of the wrong shape",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":false,"message":"","body":[]}`))
			},
			wantType: errs.ErrorTypeParsing,
			wantCode: http.StatusOK,
		},
		{
			name: "unauthorized with envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":true,"message":"Login required","body":[]}`))
			},
			wantType: errs.ErrorTypeAuth,
			wantCode: http.StatusUnauthorized,
			wantMsg:  "Login required",
		},
		{
			name: "server error with html body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("<html>bad gateway</html>"))
			},
			wantType: errs.ErrorTypeServerError,
			wantCode: http.StatusBadGateway,
			wantMsg:  "unexpected status code: 502",
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantType: errs.ErrorTypeRateLimit,
			wantCode: http.StatusTooManyRequests,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":false,"body":`))
			},
			wantType: errs.ErrorTypeParsing,
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newTestClient(t, server.URL, logger.NewTestLogger())
			_, err := client.Following(context.Background(), "42", 0, 100, Private)
			require.Error(t, err)

			var typed *errs.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, tt.wantType, typed.Type)
			assert.Equal(t, tt.wantCode, typed.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, typed.Message)
			}
		})
	}
}

func TestFollowingNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	log := logger.NewTestLogger()
	client := newTestClient(t, url, log)
	_, err := client.Following(context.Background(), "42", 0, 100, Public)

	assert.True(t, errs.HasType(err, errs.ErrorTypeNetwork))
	assert.True(t, log.HasMessage("error", "HTTP request failed"))
}

func TestSetRestrict(t *testing.T) {
	mock := testutil.NewMockPixiv("42", "csrf-token")
	defer mock.Close()
	mock.AddPublicFollows(7, 1)

	client := newTestClient(t, mock.URL(), logger.NewNopLogger())
	session := Session{Token: "csrf-token", UserID: "42"}

	require.NoError(t, client.SetRestrict(context.Background(), session, "7", Private))
	assert.True(t, mock.Restricted("7"))

	// setting the same value again is not an error
	require.NoError(t, client.SetRestrict(context.Background(), session, "7", Private))
	assert.True(t, mock.Restricted("7"))

	require.NoError(t, client.SetRestrict(context.Background(), session, "7", Public))
	assert.False(t, mock.Restricted("7"))

	req := mock.Requests()[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/ajax/following/user/restrict_change", req.Path)
	assert.Equal(t, map[string]string{"user_id": "7", "restrict": "1"}, req.Form)
	assert.Equal(t, "csrf-token", req.Header.Get("x-csrf-token"))
	assert.Equal(t, "application/x-www-form-urlencoded; charset=utf-8", req.Header.Get("Content-Type"))
	assert.Equal(t, mock.URL()+"/en/users/42/following", req.Header.Get("Referer"))
}

func TestSetRestrictFailures(t *testing.T) {
	mock := testutil.NewMockPixiv("42", "csrf-token")
	defer mock.Close()
	mock.AddPublicFollows(1, 3)
	mock.RejectUser("2", "Rate limited")
	mock.DropUser("3")

	client := newTestClient(t, mock.URL(), logger.NewNopLogger())
	session := Session{Token: "csrf-token", UserID: "42"}

	err := client.SetRestrict(context.Background(), session, "2", Private)
	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeAPI, typed.Type)
	assert.Equal(t, "Rate limited", typed.Message)

	err = client.SetRestrict(context.Background(), session, "3", Private)
	assert.True(t, errs.HasType(err, errs.ErrorTypeNetwork))

	err = client.SetRestrict(context.Background(), Session{Token: "stale", UserID: "42"}, "1", Private)
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeAPI, typed.Type)
	assert.Equal(t, http.StatusBadRequest, typed.Code)
	assert.Equal(t, "Invalid CSRF token", typed.Message)

	assert.Zero(t, mock.CountRestricted())
}

func TestSetRestrictNonJSONRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, logger.NewNopLogger())
	err := client.SetRestrict(context.Background(), Session{Token: "t", UserID: "1"}, "2", Public)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeAPI, typed.Type)
	assert.Equal(t, "HTTP 403", typed.Message)
}
