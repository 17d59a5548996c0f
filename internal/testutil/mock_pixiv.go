// Package testutil provides an in-process fake of the Pixiv endpoints
// pxfollow talks to.
package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockUser is one account the subject follows
type MockUser struct {
	ID         string
	Name       string
	Restricted bool
}

// RecordedRequest is what the mock saw for one request
type RecordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Form   map[string]string
}

// MockPixiv is a configurable fake of Pixiv's session page, following list
// and restrict_change endpoints. Follows keep their order and their
// visibility changes persist across requests.
type MockPixiv struct {
	server *httptest.Server

	mu            sync.Mutex
	userID        string
	token         string
	sessionCookie string
	users         []*MockUser

	sessionStatus  int
	sessionHTML    string
	declaredTotal  *int
	pageSizeCap    int
	failPage       map[int]int
	rejectUser     map[string]string
	dropUser       map[string]bool
	requests       []RecordedRequest
	followingCalls int
	mutationCalls  int
}

// NewMockPixiv starts a fake for subject userID whose CSRF token is token
func NewMockPixiv(userID, token string) *MockPixiv {
	m := &MockPixiv{
		userID:     userID,
		token:      token,
		failPage:   make(map[int]int),
		rejectUser: make(map[string]string),
		dropUser:   make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", m.handleSessionPage)
	mux.HandleFunc("GET /{lang}/{$}", m.handleSessionPage)
	mux.HandleFunc("GET /ajax/user/{id}/following", m.handleFollowing)
	mux.HandleFunc("POST /ajax/following/user/restrict_change", m.handleRestrictChange)

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		mux.ServeHTTP(w, r)
	}))
	return m
}

// URL returns the mock server origin
func (m *MockPixiv) URL() string {
	return m.server.URL
}

// Close shuts down the mock server
func (m *MockPixiv) Close() {
	m.server.Close()
}

// RequireCookie makes every endpoint answer 401 unless PHPSESSID matches
func (m *MockPixiv) RequireCookie(cookie string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCookie = cookie
}

// AddFollows appends followed accounts in list order
func (m *MockPixiv) AddFollows(users ...MockUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range users {
		u := users[i]
		m.users = append(m.users, &u)
	}
}

// AddPublicFollows appends n public follows with IDs start..start+n-1
func (m *MockPixiv) AddPublicFollows(start, n int) {
	for i := start; i < start+n; i++ {
		m.AddFollows(MockUser{ID: strconv.Itoa(i), Name: fmt.Sprintf("user%d", i)})
	}
}

// SetSessionPage replaces the landing page response
func (m *MockPixiv) SetSessionPage(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionStatus = status
	m.sessionHTML = body
}

// SetDeclaredTotal makes the following endpoint report total instead of the
// real count, reproducing Pixiv's inconsistent totals
func (m *MockPixiv) SetDeclaredTotal(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.declaredTotal = &total
}

// CapPageSize makes the following endpoint return at most n users per page
// regardless of the requested limit
func (m *MockPixiv) CapPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSizeCap = n
}

// FailPageAt makes the following request at offset answer with status
func (m *MockPixiv) FailPageAt(offset, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPage[offset] = status
}

// RejectUser makes restrict_change for id answer error:true with message
func (m *MockPixiv) RejectUser(id, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectUser[id] = message
}

// DropUser makes restrict_change for id close the connection without answering
func (m *MockPixiv) DropUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropUser[id] = true
}

// Restricted reports whether the follow id is currently private
func (m *MockPixiv) Restricted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u.Restricted
		}
	}
	return false
}

// CountRestricted returns how many follows are private
func (m *MockPixiv) CountRestricted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Restricted {
			n++
		}
	}
	return n
}

// Requests returns a copy of every recorded request
func (m *MockPixiv) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// FollowingCalls returns how many list pages were requested
func (m *MockPixiv) FollowingCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.followingCalls
}

// MutationCalls returns how many restrict_change requests arrived
func (m *MockPixiv) MutationCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutationCalls
}

func (m *MockPixiv) record(r *http.Request) {
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		query[k] = v[0]
	}
	form := make(map[string]string)
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			for k, v := range r.PostForm {
				form[k] = v[0]
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  query,
		Header: r.Header.Clone(),
		Form:   form,
	})
}

func (m *MockPixiv) authorized(r *http.Request) bool {
	m.mu.Lock()
	want := m.sessionCookie
	m.mu.Unlock()
	if want == "" {
		return true
	}
	c, err := r.Cookie("PHPSESSID")
	return err == nil && c.Value == want
}

func writeEnvelope(w http.ResponseWriter, status int, isError bool, message string, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   isError,
		"message": message,
		"body":    body,
	})
}

func (m *MockPixiv) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	status, body := m.sessionStatus, m.sessionHTML
	userID, token := m.userID, m.token
	m.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}
	if !m.authorized(r) {
		// logged-out pages still render, just without a session
		userID, token = "", ""
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(NextDataPage(token, userID)))
}

func (m *MockPixiv) handleFollowing(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		writeEnvelope(w, http.StatusUnauthorized, true, "Unauthorized", []interface{}{})
		return
	}

	id := r.PathValue("id")
	if r.Header.Get("x-user-id") != id {
		writeEnvelope(w, http.StatusForbidden, true, "x-user-id mismatch", []interface{}{})
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	restricted := r.URL.Query().Get("rest") == "hide"

	m.mu.Lock()
	defer m.mu.Unlock()
	m.followingCalls++

	if status, ok := m.failPage[offset]; ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("upstream failure"))
		return
	}
	if id != m.userID {
		writeEnvelope(w, http.StatusOK, true, "User not found", []interface{}{})
		return
	}

	var filtered []*MockUser
	for _, u := range m.users {
		if u.Restricted == restricted {
			filtered = append(filtered, u)
		}
	}

	if m.pageSizeCap > 0 && limit > m.pageSizeCap {
		limit = m.pageSizeCap
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	page := []map[string]string{}
	for i := offset; i < end; i++ {
		page = append(page, map[string]string{"userId": filtered[i].ID, "userName": filtered[i].Name})
	}

	total := len(filtered)
	if m.declaredTotal != nil {
		total = *m.declaredTotal
	}

	writeEnvelope(w, http.StatusOK, false, "", map[string]interface{}{
		"users": page,
		"total": total,
	})
}

func (m *MockPixiv) handleRestrictChange(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		writeEnvelope(w, http.StatusUnauthorized, true, "Unauthorized", []interface{}{})
		return
	}

	userID := r.PostForm.Get("user_id")
	restrict := r.PostForm.Get("restrict")

	m.mu.Lock()
	m.mutationCalls++
	drop := m.dropUser[userID]
	rejection, rejected := m.rejectUser[userID]
	token := m.token
	m.mu.Unlock()

	if drop {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if r.Header.Get("x-csrf-token") != token {
		writeEnvelope(w, http.StatusBadRequest, true, "Invalid CSRF token", []interface{}{})
		return
	}
	if rejected {
		writeEnvelope(w, http.StatusOK, true, rejection, []interface{}{})
		return
	}
	if restrict != "0" && restrict != "1" {
		writeEnvelope(w, http.StatusBadRequest, true, "Invalid restrict value", []interface{}{})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			// setting, not toggling: repeated calls leave the state unchanged
			u.Restricted = restrict == "1"
			writeEnvelope(w, http.StatusOK, false, "", []interface{}{})
			return
		}
	}
	writeEnvelope(w, http.StatusOK, true, "User not followed", []interface{}{})
}

// NextDataPage renders a minimal Pixiv page whose __NEXT_DATA__ carries token
// and userID the way the real site embeds them
func NextDataPage(token, userID string) string {
	state := map[string]interface{}{
		"api": map[string]interface{}{"token": token},
		"userData": map[string]interface{}{
			"self": map[string]interface{}{"id": userID, "name": "subject"},
		},
	}
	serialized, _ := json.Marshal(state)

	next := map[string]interface{}{
		"props": map[string]interface{}{
			"pageProps": map[string]interface{}{
				"serverSerializedPreloadedState": string(serialized),
			},
		},
		"page": "/[lang]",
	}
	nextJSON, _ := json.Marshal(next)

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en"><head><title>%s</title></head>
<body><div id="__next"></div>
<script id="__NEXT_DATA__" type="application/json">%s</script>
</body></html>`, html.EscapeString("pixiv"), nextJSON)
}
