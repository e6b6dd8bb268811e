package domain

import "time"

// User is the durable account record. The verification attributes are grouped
// per code scope and are only ever written through the verification repo.
type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	Phone          *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	Role           string    `json:"role" dynamodbav:"role"`
	FirstName      string    `json:"first_name" dynamodbav:"first_name"`
	LastName       string    `json:"last_name" dynamodbav:"last_name"`
	EmailConfirmed bool      `json:"email_confirmed" dynamodbav:"email_confirmed"`
	Enable         int       `json:"enable" dynamodbav:"enable"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`

	EmailVerificationTokenHash     string `json:"-" dynamodbav:"email_verification_token_hash,omitempty"`
	EmailVerificationCode          string `json:"-" dynamodbav:"email_verification_code,omitempty"`
	EmailVerificationCodeExpiresAt int64  `json:"-" dynamodbav:"email_verification_code_expires_at,omitempty"`
	PasswordResetTokenHash         string `json:"-" dynamodbav:"password_reset_token_hash,omitempty"`
	PasswordResetCode              string `json:"-" dynamodbav:"password_reset_code,omitempty"`
	PasswordResetCodeExpiresAt     int64  `json:"-" dynamodbav:"password_reset_code_expires_at,omitempty"`
}

// Verification returns the fallback record the user holds for the given purpose's code scope.
func (u *User) Verification(p Purpose) VerificationRecord {
	rec := VerificationRecord{UserID: u.UserID}
	switch p.CodeScope() {
	case PurposeEmailVerification:
		rec.TokenHash = u.EmailVerificationTokenHash
		rec.Code = u.EmailVerificationCode
		rec.ExpiresAt = unixOrZero(u.EmailVerificationCodeExpiresAt)
	case PurposePasswordReset:
		rec.TokenHash = u.PasswordResetTokenHash
		rec.Code = u.PasswordResetCode
		rec.ExpiresAt = unixOrZero(u.PasswordResetCodeExpiresAt)
	}
	return rec
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	Phone     *string `json:"phone" validate:"omitempty,e164"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,verifycode"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,verifycode"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}
