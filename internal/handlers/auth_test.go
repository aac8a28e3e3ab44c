package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/yukikurage/kanban-sync/internal/dto"
	apierrors "github.com/yukikurage/kanban-sync/internal/errors"
	"github.com/yukikurage/kanban-sync/internal/services"
)

func (s *HandlerTestSuite) TestRegister() {
	w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "newuser",
		"email":    "new@example.com",
		"password": "password123",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp dto.AuthResponse
	s.decode(w, &resp)
	s.Equal("newuser", resp.User.Username)
	s.False(resp.User.IsAdmin)
	s.NotEmpty(resp.Token)
	s.NotEmpty(w.Result().Cookies(), "expected session cookie to be set")

	me := s.do(http.MethodGet, "/api/auth/me", nil, resp.Token)
	s.Equal(http.StatusOK, me.Code)
}

func (s *HandlerTestSuite) TestRegister_Duplicate() {
	w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "member",
		"email":    "fresh@example.com",
		"password": "password123",
	}, "")
	s.Equal(http.StatusConflict, w.Code)

	var apiErr apierrors.APIError
	s.decode(w, &apiErr)
	s.Equal(apierrors.ErrCodeAlreadyExists, apiErr.Code)
}

func (s *HandlerTestSuite) TestRegister_ShortPassword() {
	w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "shorty",
		"email":    "shorty@example.com",
		"password": "123",
	}, "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestLoginLogoutWithSessionCookie() {
	_, err := s.deps.AuthService.Register(context.Background(), registerInput("carol"))
	s.Require().NoError(err)

	login := s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": "password123",
	}, "")
	s.Require().Equal(http.StatusOK, login.Code, login.Body.String())
	cookies := login.Result().Cookies()
	s.Require().NotEmpty(cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)

	var me dto.UserDTO
	s.decode(w, &me)
	s.Equal("carol", me.Username)

	bad := s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": "wrong-password",
	}, "")
	s.Equal(http.StatusUnauthorized, bad.Code)

	logout := s.do(http.MethodPost, "/api/auth/logout", nil, "")
	s.Equal(http.StatusOK, logout.Code)
}

func (s *HandlerTestSuite) TestMe_Unauthenticated() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", nil, "").Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", nil, "not-a-token").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", strings.NewReader(""))
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func registerInput(username string) services.RegisterInput {
	return services.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	}
}
