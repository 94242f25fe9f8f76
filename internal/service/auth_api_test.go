package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/medistore/medistore/internal/adapter/outbound/httpapi"
	"github.com/medistore/medistore/internal/domain/auth"
	"github.com/medistore/medistore/internal/domain/session"
	"github.com/medistore/medistore/internal/domain/storage"
)

func TestAuthAPI_LoginPersistsCredentials(t *testing.T) {
	h := newHarness(t)
	var got auth.Credentials
	h.srv.handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		reply(w, http.StatusOK, success(map[string]any{"user": testUser, "token": "tok123", "refreshToken": "r1"}))
	})

	env, err := h.api.Login(context.Background(), validCreds)
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if !env.Success || env.Data.Token != "tok123" {
		t.Errorf("envelope = %+v", env)
	}
	if got != validCreds {
		t.Errorf("request body = %+v", got)
	}
	if h.storedToken() != "tok123" {
		t.Errorf("token = %q", h.storedToken())
	}
	if rt := storage.GetStringOrEmpty(h.store, storage.KeyRefreshToken); rt != "r1" {
		t.Errorf("refresh token = %q", rt)
	}
	if u := h.api.StoredUser(); u == nil || u.ID != "u1" {
		t.Errorf("StoredUser() = %+v", u)
	}
	if !h.api.IsAuthenticated() {
		t.Error("IsAuthenticated() = false")
	}
}

func TestAuthAPI_LoginFailureEnvelopePersistsNothing(t *testing.T) {
	h := newHarness(t)
	h.srv.handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, failure("Account locked"))
	})

	env, err := h.api.Login(context.Background(), validCreds)
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if env.Success || env.Message != "Account locked" {
		t.Errorf("envelope = %+v", env)
	}
	if h.api.IsAuthenticated() {
		t.Error("token stored for failed login")
	}
}

func TestAuthAPI_RegisterValidatesFirst(t *testing.T) {
	h := newHarness(t)

	_, err := h.api.Register(context.Background(), auth.RegisterRequest{
		Name:      "Asha",
		Email:     "a@b.com",
		Phone:     "12345",
		Password:  "secret123",
		StoreName: "Rao Medicals",
	})

	if !errors.Is(err, httpapi.ErrValidation) || !errors.Is(err, auth.ErrInvalidRequest) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var ce *httpapi.ClassifiedError
	if errors.As(err, &ce) && len(ce.Fields["phone"]) == 0 {
		t.Errorf("Fields = %v, want phone", ce.Fields)
	}
	if h.srv.total() != 0 {
		t.Errorf("server hits = %d, want 0", h.srv.total())
	}
}

func TestAuthAPI_LogoutAlwaysClears(t *testing.T) {
	h := newHarness(t)
	h.srv.handle("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusBadGateway, failure("upstream down"))
	})
	h.seedSession(t, "tok123")
	_ = h.store.SetString(storage.KeyRefreshToken, "r1")

	err := h.api.Logout(context.Background())

	if !errors.Is(err, httpapi.ErrServer) {
		t.Errorf("Logout() error = %v, want server error", err)
	}
	for _, k := range []string{storage.KeyAuthToken, storage.KeyUserData, storage.KeyRefreshToken} {
		if ok, _ := h.store.Contains(k); ok {
			t.Errorf("%s not cleared", k)
		}
	}
}

func TestAuthAPI_LogoutWithoutTokenSkipsRequest(t *testing.T) {
	h := newHarness(t)

	if err := h.api.Logout(context.Background()); err != nil {
		t.Errorf("Logout() error: %v", err)
	}
	if h.srv.total() != 0 {
		t.Errorf("server hits = %d, want 0", h.srv.total())
	}
}

func TestAuthAPI_UpdateProfilePersistsUser(t *testing.T) {
	h := newHarness(t)
	h.seedSession(t, "tok123")
	h.srv.handle("PUT /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		var req auth.UpdateProfileRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		u := testUser
		u.Name = req.Name
		reply(w, http.StatusOK, success(u))
	})

	env, err := h.api.UpdateProfile(context.Background(), auth.UpdateProfileRequest{Name: "Asha R."})
	if err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if env.Data.Name != "Asha R." {
		t.Errorf("returned user = %+v", env.Data)
	}
	if u := h.api.StoredUser(); u == nil || u.Name != "Asha R." {
		t.Errorf("stored user = %+v", u)
	}
}

func TestAuthAPI_PasswordAndOTPEndpoints(t *testing.T) {
	h := newHarness(t)
	bodies := map[string]map[string]any{}
	record := func(name string, data any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var m map[string]any
			_ = json.NewDecoder(r.Body).Decode(&m)
			bodies[name] = m
			reply(w, http.StatusOK, success(data))
		}
	}
	h.srv.handle("POST /auth/forgot-password", record("forgot", map[string]string{"message": "OTP sent"}))
	h.srv.handle("POST /auth/reset-password", record("reset", map[string]string{"message": "Password updated"}))
	h.srv.handle("POST /auth/verify-otp", record("verify", map[string]bool{"verified": true}))
	h.srv.handle("PUT /auth/fcm-token", record("push", map[string]string{"message": "ok"}))
	h.seedSession(t, "tok123")
	ctx := context.Background()

	forgot, err := h.api.ForgotPassword(ctx, auth.ForgotPasswordRequest{Email: "a@b.com"})
	if err != nil || forgot.Data.Message != "OTP sent" {
		t.Errorf("ForgotPassword() = %+v, %v", forgot, err)
	}
	if _, err := h.api.ResetPassword(ctx, auth.ResetPasswordRequest{Email: "a@b.com", OTP: "123456", NewPassword: "newpass99"}); err != nil {
		t.Errorf("ResetPassword() error: %v", err)
	}
	verified, err := h.api.VerifyOTP(ctx, "a@b.com", "123456")
	if err != nil || !verified.Data.Verified {
		t.Errorf("VerifyOTP() = %+v, %v", verified, err)
	}
	if _, err := h.api.UpdatePushToken(ctx, "fcm-abc"); err != nil {
		t.Errorf("UpdatePushToken() error: %v", err)
	}

	if bodies["reset"]["newPassword"] != "newpass99" {
		t.Errorf("reset body = %v", bodies["reset"])
	}
	if bodies["verify"]["otp"] != "123456" {
		t.Errorf("verify body = %v", bodies["verify"])
	}
	if bodies["push"]["fcmToken"] != "fcm-abc" {
		t.Errorf("push body = %v", bodies["push"])
	}
}

func TestAuthAPI_VerifyOTPRejectsMalformedCode(t *testing.T) {
	h := newHarness(t)

	_, err := h.api.VerifyOTP(context.Background(), "a@b.com", "12ab")

	if httpapi.KindOf(err) != httpapi.KindValidation {
		t.Errorf("KindOf() = %s, want validation", httpapi.KindOf(err))
	}
}

func TestAuthAPI_RefreshSession(t *testing.T) {
	h := newHarness(t)

	if _, err := h.api.RefreshSession(context.Background()); !errors.Is(err, httpapi.ErrNoRefreshToken) {
		t.Fatalf("RefreshSession() without token = %v, want ErrNoRefreshToken", err)
	}

	var sent auth.RefreshRequest
	h.srv.handle("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		if r.Header.Get("Authorization") != "" {
			t.Errorf("refresh carried Authorization %q", r.Header.Get("Authorization"))
		}
		reply(w, http.StatusOK, success(map[string]any{"token": "tok456", "refreshToken": "r2", "user": testUser}))
	})
	h.seedSession(t, "tok123")
	_ = h.store.SetString(storage.KeyRefreshToken, "r1")

	token, err := h.api.RefreshSession(context.Background())
	if err != nil {
		t.Fatalf("RefreshSession() error: %v", err)
	}
	if token != "tok456" || h.storedToken() != "tok456" {
		t.Errorf("token = %q, stored = %q", token, h.storedToken())
	}
	if sent.RefreshToken != "r1" {
		t.Errorf("sent refresh token = %q", sent.RefreshToken)
	}
	if rt := storage.GetStringOrEmpty(h.store, storage.KeyRefreshToken); rt != "r2" {
		t.Errorf("refresh token = %q, want rotated r2", rt)
	}
}

func TestAuthAPI_StoredUserCorrupt(t *testing.T) {
	h := newHarness(t)
	_ = h.store.SetString(storage.KeyUserData, "{not json")

	if u := h.api.StoredUser(); u != nil {
		t.Errorf("StoredUser() = %+v, want nil", u)
	}
}

func TestAuthAPI_GetProfile(t *testing.T) {
	h := newHarness(t)
	h.seedSession(t, "tok123")
	h.srv.handle("GET /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, success(session.User{ID: "u1", Name: "Asha Rao"}))
	})

	env, err := h.api.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if env.Data.Name != "Asha Rao" {
		t.Errorf("profile = %+v", env.Data)
	}
}
