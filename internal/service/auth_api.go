// Package service contains the stateful application services: the session
// store, the typed API operations and the small stores around them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/medistore/medistore/internal/adapter/outbound/httpapi"
	"github.com/medistore/medistore/internal/ctxkey"
	"github.com/medistore/medistore/internal/domain/auth"
	"github.com/medistore/medistore/internal/domain/session"
	"github.com/medistore/medistore/internal/domain/storage"
)

// Endpoint paths, relative to the API base URL.
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathLogout         = "/auth/logout"
	PathRefreshToken   = "/auth/refresh-token"
	PathProfile        = "/auth/profile"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"
	PathVerifyOTP      = "/auth/verify-otp"
	PathPushToken      = "/auth/fcm-token"
)

// loggerFromContext retrieves the enriched logger from context.
// Returns nil if no logger is in context, allowing caller to fall back.
func loggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return nil
}

// AuthAPI is the typed layer over the authentication endpoints. Operations
// that establish or change credentials persist them on success.
type AuthAPI struct {
	client *httpapi.Client
	store  storage.Store
	logger *slog.Logger
}

// NewAuthAPI creates the auth API service.
func NewAuthAPI(client *httpapi.Client, store storage.Store, logger *slog.Logger) *AuthAPI {
	return &AuthAPI{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Login signs in. A successful envelope's token and user are persisted
// before it is returned. An envelope with success=false is returned without
// error; callers inspect Success.
func (a *AuthAPI) Login(ctx context.Context, creds auth.Credentials) (*httpapi.Envelope[auth.Payload], error) {
	if err := validate(http.MethodPost, PathLogin, creds); err != nil {
		return nil, err
	}
	env, err := httpapi.Call[auth.Payload](ctx, a.client, httpapi.Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body:   creds,
		Public: true,
	})
	if err != nil {
		return nil, err
	}
	if err := a.persistPayload(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Register creates an account and, on success, persists its credentials
// like Login.
func (a *AuthAPI) Register(ctx context.Context, req auth.RegisterRequest) (*httpapi.Envelope[auth.Payload], error) {
	if err := validate(http.MethodPost, PathRegister, req); err != nil {
		return nil, err
	}
	env, err := httpapi.Call[auth.Payload](ctx, a.client, httpapi.Request{
		Method: http.MethodPost,
		Path:   PathRegister,
		Body:   req,
		Public: true,
	})
	if err != nil {
		return nil, err
	}
	if err := a.persistPayload(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Logout tells the server the session ended, then clears the stored token,
// refresh token and user whatever the outcome. The remote error, if any, is
// returned after the local clear so callers can report it.
func (a *AuthAPI) Logout(ctx context.Context) (err error) {
	defer func() {
		if cerr := storage.RemoveAll(a.store, storage.KeyAuthToken, storage.KeyUserData, storage.KeyRefreshToken); cerr != nil {
			err = errors.Join(err, fmt.Errorf("clear credentials: %w", cerr))
		}
	}()

	if !a.IsAuthenticated() {
		return nil
	}
	if _, err := httpapi.Call[auth.MessageData](ctx, a.client, httpapi.Request{
		Method: http.MethodPost,
		Path:   PathLogout,
	}); err != nil {
		a.loggerFor(ctx).Warn("logout request failed, clearing local data", "error", err)
		return err
	}
	return nil
}

// GetProfile fetches the signed-in user's profile.
func (a *AuthAPI) GetProfile(ctx context.Context) (*httpapi.Envelope[session.User], error) {
	return httpapi.Call[session.User](ctx, a.client, httpapi.Request{
		Method: http.MethodGet,
		Path:   PathProfile,
	})
}

// UpdateProfile changes profile fields and persists the returned user.
func (a *AuthAPI) UpdateProfile(ctx context.Context, req auth.UpdateProfileRequest) (*httpapi.Envelope[session.User], error) {
	if err := validate(http.MethodPut, PathProfile, req); err != nil {
		return nil, err
	}
	env, err := httpapi.Call[session.User](ctx, a.client, httpapi.Request{
		Method: http.MethodPut,
		Path:   PathProfile,
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	if env.Success && env.Data != nil {
		if err := storage.SetObject(a.store, storage.KeyUserData, env.Data); err != nil {
			return nil, fmt.Errorf("persist user: %w", err)
		}
	}
	return env, nil
}

// ForgotPassword requests a password reset OTP by email.
func (a *AuthAPI) ForgotPassword(ctx context.Context, req auth.ForgotPasswordRequest) (*httpapi.Envelope[auth.MessageData], error) {
	if err := validate(http.MethodPost, PathForgotPassword, req); err != nil {
		return nil, err
	}
	return httpapi.Call[auth.MessageData](ctx, a.client, httpapi.Request{
		Method: http.MethodPost,
		Path:   PathForgotPassword,
		Body:   req,
		Public: true,
	})
}

// ResetPassword sets a new password with an OTP.
func (a *AuthAPI) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) (*httpapi.Envelope[auth.MessageData], error) {
	if err := validate(http.MethodPost, PathResetPassword, req); err != nil {
		return nil, err
	}
	return httpapi.Call[auth.MessageData](ctx, a.client, httpapi.Request{
		Method: http.MethodPost,
		Path:   PathResetPassword,
		Body:   req,
		Public: true,
	})
}

// VerifyOTP checks an OTP sent to email.
func (a *AuthAPI) VerifyOTP(ctx context.Context, email, otp string) (*httpapi.Envelope[auth.VerifyOTPData], error) {
	req := auth.VerifyOTPRequest{Email: email, OTP: otp}
	if err := validate(http.MethodPost, PathVerifyOTP, req); err != nil {
		return nil, err
	}
	return httpapi.Call[auth.VerifyOTPData](ctx, a.client, httpapi.Request{
		Method: http.MethodPost,
		Path:   PathVerifyOTP,
		Body:   req,
		Public: true,
	})
}

// UpdatePushToken registers the device's push notification token.
func (a *AuthAPI) UpdatePushToken(ctx context.Context, token string) (*httpapi.Envelope[auth.MessageData], error) {
	req := auth.PushTokenRequest{FCMToken: token}
	if err := validate(http.MethodPut, PathPushToken, req); err != nil {
		return nil, err
	}
	return httpapi.Call[auth.MessageData](ctx, a.client, httpapi.Request{
		Method: http.MethodPut,
		Path:   PathPushToken,
		Body:   req,
	})
}

// RefreshSession exchanges the stored refresh token for a new access token
// and persists the result. It returns httpapi.ErrNoRefreshToken when there
// is nothing to exchange.
func (a *AuthAPI) RefreshSession(ctx context.Context) (string, error) {
	rt := storage.GetStringOrEmpty(a.store, storage.KeyRefreshToken)
	if rt == "" {
		return "", httpapi.ErrNoRefreshToken
	}
	payload, err := httpapi.Data[auth.Payload](ctx, a.client, httpapi.Request{
		Method: http.MethodPost,
		Path:   PathRefreshToken,
		Body:   auth.RefreshRequest{RefreshToken: rt},
		Public: true,
	})
	if err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", errors.New("refresh response carried no token")
	}
	if err := a.persistCredentials(*payload); err != nil {
		return "", err
	}
	return payload.Token, nil
}

// Refresh implements httpapi.Refresher.
func (a *AuthAPI) Refresh(ctx context.Context) (string, error) {
	return a.RefreshSession(ctx)
}

// StoredUser returns the persisted user without a network call, or nil.
func (a *AuthAPI) StoredUser() *session.User {
	u, ok := storage.GetObject[session.User](a.store, storage.KeyUserData)
	if !ok {
		return nil
	}
	return &u
}

// IsAuthenticated reports whether a token is stored, without a network call.
func (a *AuthAPI) IsAuthenticated() bool {
	return storage.GetStringOrEmpty(a.store, storage.KeyAuthToken) != ""
}

// StoredToken returns the persisted access token, or "".
func (a *AuthAPI) StoredToken() string {
	return storage.GetStringOrEmpty(a.store, storage.KeyAuthToken)
}

func (a *AuthAPI) persistPayload(env *httpapi.Envelope[auth.Payload]) error {
	if !env.Success || env.Data == nil || env.Data.Token == "" {
		return nil
	}
	return a.persistCredentials(*env.Data)
}

// persistCredentials writes the token first so that a stored user never
// exists without one.
func (a *AuthAPI) persistCredentials(p auth.Payload) error {
	if err := a.store.SetString(storage.KeyAuthToken, p.Token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if p.RefreshToken != "" {
		if err := a.store.SetString(storage.KeyRefreshToken, p.RefreshToken); err != nil {
			return fmt.Errorf("persist refresh token: %w", err)
		}
	}
	if p.User.ID != "" {
		if err := storage.SetObject(a.store, storage.KeyUserData, p.User); err != nil {
			return fmt.Errorf("persist user: %w", err)
		}
	}
	return nil
}

func (a *AuthAPI) loggerFor(ctx context.Context) *slog.Logger {
	if l := loggerFromContext(ctx); l != nil {
		return l
	}
	return a.logger
}

// validate runs local request validation and reports failures in the same
// shape as a server-side rejection.
func validate(method, path string, req any) error {
	err := auth.Validate(req)
	if err == nil {
		return nil
	}
	var verr *auth.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return &httpapi.ClassifiedError{
		Kind:    httpapi.KindValidation,
		Message: verr.First(),
		Fields:  verr.Fields,
		Method:  method,
		Path:    path,
		Cause:   verr,
	}
}
