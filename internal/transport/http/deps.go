package http

import (
	"context"

	"github.com/go-verify-api/internal/domain"
	jwtinfra "github.com/go-verify-api/internal/infrastructure/jwt"
	"github.com/go-verify-api/internal/infrastructure/smtp"
	"github.com/go-verify-api/internal/infrastructure/sns"
)

// UserRepository is the minimal interface the router requires from a user store,
// including the per-scope verification fallback fields.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	GetVerification(ctx context.Context, email string, p domain.Purpose) (domain.VerificationRecord, error)
	SaveVerification(ctx context.Context, userID string, p domain.Purpose, rec domain.VerificationRecord) error
	ClearVerification(ctx context.Context, userID string, p domain.Purpose) error
	ConsumeVerification(ctx context.Context, userID string, p domain.Purpose, code string) error
}

// CodeCache is the volatile code tier.
type CodeCache interface {
	Set(ctx context.Context, p domain.Purpose, identifier, code string) domain.CacheResult
	VerifyAndConsume(ctx context.Context, p domain.Purpose, identifier, supplied string) domain.ConsumeResult
}

// CooldownStore gates issuance per (purpose, identifier).
type CooldownStore interface {
	Check(ctx context.Context, p domain.Purpose, identifier string) domain.CooldownStatus
	Set(ctx context.Context, p domain.Purpose, identifier string)
	Clear(ctx context.Context, p domain.Purpose, identifier string)
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Users       UserRepository
	Codes       CodeCache
	Cooldowns   CooldownStore
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}
