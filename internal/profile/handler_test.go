package profile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bkovacic/fitlog/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func authedRequest(method, target, body string, userID int) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func TestHandler_Get(t *testing.T) {
	repo := newRepoMock()
	repo.Emails[1] = "miya@fitlog.test"
	repo.Profiles[1] = Profile{
		UserID: 1,
		Name:   strPtr("Miya"),
		Age:    intPtr(30),
		Weight: floatPtr(62.5),
	}
	handler := NewHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleGet(rr, authedRequest("GET", "/profile", "", 1))
	require.Equal(t, http.StatusOK, rr.Code)

	var profile Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "miya@fitlog.test", profile.Email)
	require.NotNil(t, profile.Name)
	assert.Equal(t, "Miya", *profile.Name)
	require.NotNil(t, profile.Weight)
	assert.Equal(t, 62.5, *profile.Weight)
	// never saved, stays null
	assert.Nil(t, profile.Height)
	assert.Nil(t, profile.Gender)
}

func TestHandler_Get_profileNotSavedYet(t *testing.T) {
	repo := newRepoMock()
	repo.Emails[1] = "miya@fitlog.test"
	handler := NewHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleGet(rr, authedRequest("GET", "/profile", "", 1))
	require.Equal(t, http.StatusOK, rr.Code)

	var profile Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, 1, profile.UserID)
	assert.Nil(t, profile.Name)
}

func TestHandler_Get_unknownUser(t *testing.T) {
	handler := NewHandler(newRepoMock())

	rr := httptest.NewRecorder()
	handler.HandleGet(rr, authedRequest("GET", "/profile", "", 55))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Get_noUser(t *testing.T) {
	handler := NewHandler(newRepoMock())

	rr := httptest.NewRecorder()
	handler.HandleGet(rr, httptest.NewRequest("GET", "/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_Save(t *testing.T) {
	repo := newRepoMock()
	repo.Emails[1] = "miya@fitlog.test"
	handler := NewHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleSave(rr, authedRequest(
		"POST", "/profile",
		`{"name":"Miya","age":30,"weight":62.5,"height":168,"gender":"female"}`,
		1,
	))
	require.Equal(t, http.StatusOK, rr.Code)

	saved := repo.Profiles[1]
	assert.Equal(t, 1, saved.UserID)
	require.NotNil(t, saved.Height)
	assert.Equal(t, float64(168), *saved.Height)

	// a partial save overwrites the whole row, dropped fields go null
	rr = httptest.NewRecorder()
	handler.HandleSave(rr, authedRequest("POST", "/profile", `{"name":"Miya"}`, 1))
	require.Equal(t, http.StatusOK, rr.Code)

	saved = repo.Profiles[1]
	require.NotNil(t, saved.Name)
	assert.Nil(t, saved.Height)
	assert.Nil(t, saved.Age)
}

func TestHandler_Save_userIdFromSessionNotBody(t *testing.T) {
	repo := newRepoMock()
	repo.Emails[1] = "miya@fitlog.test"
	handler := NewHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleSave(rr, authedRequest("POST", "/profile", `{"userId":99,"name":"Miya"}`, 1))
	require.Equal(t, http.StatusOK, rr.Code)

	_, hijacked := repo.Profiles[99]
	assert.False(t, hijacked)
	assert.Contains(t, repo.Profiles, 1)
}

func TestHandler_Save_invalidRequests(t *testing.T) {
	handler := NewHandler(newRepoMock())

	// wrong content type
	req := httptest.NewRequest("POST", "/profile", strings.NewReader(`{"name":"Miya"}`))
	req = req.WithContext(auth.WithUserID(req.Context(), 1))
	rr := httptest.NewRecorder()
	handler.HandleSave(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// broken json
	rr = httptest.NewRecorder()
	handler.HandleSave(rr, authedRequest("POST", "/profile", `{"name":`, 1))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// no session user
	req = httptest.NewRequest("POST", "/profile", strings.NewReader(`{"name":"Miya"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	handler.HandleSave(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
