package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupLoginMeScenario(t *testing.T) {
	r, _ := newTestRouter(t)

	tok := signupAndLogin(t, r, "A", "a@x.com")

	w := doJSON(t, r, http.MethodGet, "/users/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile ProfileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "A", profile.Name)
	assert.Equal(t, "a@x.com", profile.Email)
	// 未提供讲解等级时默认是 2
	assert.Equal(t, 2, profile.ExplanationLevel)
}

func TestSignupDuplicateEmail(t *testing.T) {
	r, _ := newTestRouter(t)
	signupAndLogin(t, r, "A", "a@x.com")

	w := doJSON(t, r, http.MethodPost, "/users/signup", "", gin.H{
		"name":     "B",
		"email":    "a@x.com",
		"password": "password456",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email already registered")
}

func TestSignupValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	// 缺少密码
	w := doJSON(t, r, http.MethodPost, "/users/signup", "", gin.H{
		"name":  "A",
		"email": "a@x.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	r, _ := newTestRouter(t)
	signupAndLogin(t, r, "A", "a@x.com")

	w := doJSON(t, r, http.MethodPost, "/users/login", "", gin.H{
		"email":    "a@x.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeRequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/users/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	r, _ := newTestRouter(t)
	tok := signupAndLogin(t, r, "A", "a@x.com")

	w := doJSON(t, r, http.MethodPut, "/users/me", tok, gin.H{
		"bio":               "loves geometry",
		"explanation_level": 3,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var profile ProfileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "loves geometry", profile.Bio)
	assert.Equal(t, 3, profile.ExplanationLevel)
	// 未提供的字段保持不变
	assert.Equal(t, "A", profile.Name)
}

func TestRefreshToken(t *testing.T) {
	r, _ := newTestRouter(t)
	signupAndLogin(t, r, "A", "a@x.com")

	w := doJSON(t, r, http.MethodPost, "/users/login", "", gin.H{
		"email":    "a@x.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var loginResp struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))

	w = doJSON(t, r, http.MethodPost, "/auth/refreshToken", "", gin.H{
		"refresh_token": loginResp.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")

	w = doJSON(t, r, http.MethodPost, "/auth/refreshToken", "", gin.H{
		"refresh_token": "bogus",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
