package api

import (
	"context"
	"net/http"
)

// Credentials is the login request body
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the sign-up request body
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// TokenPair is returned by the login and refresh endpoints. Refresh is only present
// when the backend rotates refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// RegisterResponse is the body of a successful registration
type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// AuthAPI groups the authentication endpoints. None of them is retried on 401.
type AuthAPI struct {
	client *Client
}

func (a *AuthAPI) Login(ctx context.Context, creds Credentials) (*TokenPair, error) {
	data, err := a.client.do(ctx, http.MethodPost, RouteAuthToken, creds)
	if err != nil {
		return nil, err
	}
	pair, err := decode[TokenPair](data)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (a *AuthAPI) Register(ctx context.Context, reg Registration) (*RegisterResponse, error) {
	data, err := a.client.do(ctx, http.MethodPost, RouteAuthRegister, reg)
	if err != nil {
		return nil, err
	}
	resp, err := decode[RegisterResponse](data)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	data, err := a.client.do(ctx, http.MethodPost, RouteAuthRefresh, refreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, err
	}
	pair, err := decode[TokenPair](data)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}
