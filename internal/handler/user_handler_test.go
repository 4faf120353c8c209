package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"usercrud/internal/auth"
	apperrors "usercrud/internal/errors"
	"usercrud/internal/model"
)

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) PatchUser(ctx context.Context, id uint, email, password *string) (*model.User, error) {
	args := m.Called(ctx, id, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id uint) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (auth.Result, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.Result), args.Error(1)
}

func newContext(method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	return c, rec
}

func requireHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	assert.Equal(t, status, he.Code)
	body, ok := he.Message.(apperrors.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, code, body.Code)
}

func TestUserHandler_ListUsers(t *testing.T) {
	svc := new(MockUserService)
	svc.On("ListUsers", mock.Anything).Return([]model.User{
		{ID: 1, Email: "user1@email.com", Password: "123456"},
		{ID: 2, Email: "user2@email.com", Password: "password"},
	}, nil)

	c, rec := newContext(http.MethodGet, "/users", "")
	require.NoError(t, NewUserHandler(svc).ListUsers(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"email":"user1@email.com"},{"id":2,"email":"user2@email.com"}]`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUserHandler_CreateUser(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CreateUser", mock.Anything, "user3@email.com", "123").
		Return(&model.User{ID: 3, Email: "user3@email.com", Password: "123"}, nil)

	c, rec := newContext(http.MethodPost, "/users", `{"email":"user3@email.com","password":"123"}`)
	require.NoError(t, NewUserHandler(svc).CreateUser(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":3,"email":"user3@email.com"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestUserHandler_CreateUserMissingFieldsAccepted(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CreateUser", mock.Anything, "", "").Return(&model.User{ID: 4}, nil)

	c, rec := newContext(http.MethodPost, "/users", `{}`)
	require.NoError(t, NewUserHandler(svc).CreateUser(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_CreateUserMalformedBody(t *testing.T) {
	svc := new(MockUserService)

	c, _ := newContext(http.MethodPost, "/users", `{"email":`)
	err := NewUserHandler(svc).CreateUser(c)

	requireHTTPError(t, err, http.StatusBadRequest, "INVALID_REQUEST")
	svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserHandler_GetUser(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		setupMock  func(*MockUserService)
		wantStatus int
		wantCode   string
		wantBody   string
	}{
		{
			name: "found",
			id:   "2",
			setupMock: func(m *MockUserService) {
				m.On("GetUser", mock.Anything, uint(2)).Return(&model.User{ID: 2, Email: "user2@email.com", Password: "password"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":2,"email":"user2@email.com"}`,
		},
		{
			name: "not found",
			id:   "9",
			setupMock: func(m *MockUserService) {
				m.On("GetUser", mock.Anything, uint(9)).Return(nil, apperrors.ErrUserNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "USER_NOT_FOUND",
		},
		{
			name:       "invalid id",
			id:         "abc",
			setupMock:  func(m *MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ID",
		},
		{
			name:       "negative id",
			id:         "-1",
			setupMock:  func(m *MockUserService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			tt.setupMock(svc)

			c, rec := newContext(http.MethodGet, "/users/"+tt.id, "", "id", tt.id)
			err := NewUserHandler(svc).GetUser(c)

			if tt.wantCode != "" {
				requireHTTPError(t, err, tt.wantStatus, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestUserHandler_PatchUserEmailOnly(t *testing.T) {
	svc := new(MockUserService)
	svc.On("PatchUser", mock.Anything, uint(2),
		mock.MatchedBy(func(p *string) bool { return p != nil && *p == "patched@email.com" }),
		(*string)(nil),
	).Return(&model.User{ID: 2, Email: "patched@email.com", Password: "password"}, nil)

	c, rec := newContext(http.MethodPatch, "/users/2", `{"email":"patched@email.com"}`, "id", "2")
	require.NoError(t, NewUserHandler(svc).PatchUser(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"email":"patched@email.com"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestUserHandler_PatchUserPasswordOnly(t *testing.T) {
	svc := new(MockUserService)
	svc.On("PatchUser", mock.Anything, uint(2),
		(*string)(nil),
		mock.MatchedBy(func(p *string) bool { return p != nil && *p == "newPassword" }),
	).Return(&model.User{ID: 2, Email: "user2@email.com", Password: "newPassword"}, nil)

	c, rec := newContext(http.MethodPatch, "/users/2", `{"password":"newPassword","email":null}`, "id", "2")
	require.NoError(t, NewUserHandler(svc).PatchUser(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "newPassword")
	svc.AssertExpectations(t)
}

func TestUserHandler_PatchUserNotFound(t *testing.T) {
	svc := new(MockUserService)
	svc.On("PatchUser", mock.Anything, uint(9), mock.Anything, mock.Anything).Return(nil, apperrors.ErrUserNotFound)

	c, _ := newContext(http.MethodPatch, "/users/9", `{"email":"x@email.com"}`, "id", "9")
	err := NewUserHandler(svc).PatchUser(c)

	requireHTTPError(t, err, http.StatusNotFound, "USER_NOT_FOUND")
}

func TestUserHandler_DeleteUser(t *testing.T) {
	svc := new(MockUserService)
	svc.On("DeleteUser", mock.Anything, uint(2)).Return(int64(1), nil)

	c, rec := newContext(http.MethodDelete, "/users/2", "", "id", "2")
	require.NoError(t, NewUserHandler(svc).DeleteUser(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func TestUserHandler_DeleteUserNotFound(t *testing.T) {
	svc := new(MockUserService)
	svc.On("DeleteUser", mock.Anything, uint(5)).Return(int64(0), apperrors.ErrUserNotFound)

	c, _ := newContext(http.MethodDelete, "/users/5", "", "id", "5")
	err := NewUserHandler(svc).DeleteUser(c)

	requireHTTPError(t, err, http.StatusNotFound, "USER_NOT_FOUND")
}

func TestUserHandler_AuthenticateUser(t *testing.T) {
	user := &model.User{ID: 1, Email: "user1@email.com", Password: "123456"}

	tests := []struct {
		name     string
		body     string
		password string
		result   auth.Result
		wantBody string
	}{
		{
			name:     "match",
			body:     `{"email":"user1@email.com","password":"123456"}`,
			password: "123456",
			result:   auth.Result{Authenticated: true, User: user},
			wantBody: `{"authenticated":true,"user":{"id":1,"email":"user1@email.com"}}`,
		},
		{
			name:     "mismatch",
			body:     `{"email":"user1@email.com","password":"password"}`,
			password: "password",
			result:   auth.Result{Authenticated: false},
			wantBody: `{"authenticated":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			svc.On("Authenticate", mock.Anything, "user1@email.com", tt.password).Return(tt.result, nil)

			c, rec := newContext(http.MethodPost, "/users/authenticate", tt.body)
			require.NoError(t, NewUserHandler(svc).AuthenticateUser(c))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestUserHandler_AuthenticateUnknownEmail(t *testing.T) {
	svc := new(MockUserService)
	svc.On("Authenticate", mock.Anything, "ghost@email.com", "x").Return(auth.Result{}, apperrors.ErrUserNotFound)

	c, _ := newContext(http.MethodPost, "/users/authenticate", `{"email":"ghost@email.com","password":"x"}`)
	err := NewUserHandler(svc).AuthenticateUser(c)

	requireHTTPError(t, err, http.StatusNotFound, "USER_NOT_FOUND")
}
