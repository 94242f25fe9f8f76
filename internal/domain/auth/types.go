// Package auth defines the request and response payloads of the
// authentication endpoints.
package auth

import "github.com/medistore/medistore/internal/domain/session"

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a store owner account.
type RegisterRequest struct {
	Name                string `json:"name" validate:"required"`
	Email               string `json:"email" validate:"required,email"`
	Phone               string `json:"phone" validate:"required,mobile_in"`
	Password            string `json:"password" validate:"required,strong_password"`
	StoreName           string `json:"storeName" validate:"required"`
	StoreType           string `json:"storeType,omitempty" validate:"omitempty,oneof=Retail Wholesale Both"`
	GSTNumber           string `json:"gstNumber,omitempty" validate:"omitempty,gstin"`
	PharmacistRegNumber string `json:"pharmacistRegNumber,omitempty"`
	Address             string `json:"address,omitempty"`
	City                string `json:"city,omitempty"`
	State               string `json:"state,omitempty"`
	Pincode             string `json:"pincode,omitempty" validate:"omitempty,pincode_in"`
}

// Payload is the data of a successful login, register or refresh.
type Payload struct {
	User         session.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken,omitempty"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ForgotPasswordRequest asks for a password reset OTP.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest sets a new password using an OTP.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,numeric,len=6"`
	NewPassword string `json:"newPassword" validate:"required,strong_password"`
}

// VerifyOTPRequest checks an OTP.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric,len=6"`
}

// UpdateProfileRequest changes profile fields. Empty fields are omitted.
type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,mobile_in"`
}

// PushTokenRequest registers the device push notification token.
type PushTokenRequest struct {
	FCMToken string `json:"fcmToken" validate:"required"`
}

// MessageData is the data of endpoints that only return a message.
type MessageData struct {
	Message string `json:"message"`
}

// VerifyOTPData is the data of the OTP verification endpoint.
type VerifyOTPData struct {
	Verified bool `json:"verified"`
}
