package dynamo

import "github.com/go-verify-api/internal/domain"

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEmail          = "email"
	fieldEnable         = "enable"
	fieldEmailConfirmed = "email_confirmed"
	fieldPasswordHash   = "password_hash"
	fieldUpdatedAt      = "updated_at"
)

var updatableFields = map[string]bool{
	fieldEnable:         true,
	fieldEmailConfirmed: true,
	fieldPasswordHash:   true,
}

// verificationFields are the per-scope fallback attributes on a user item.
type verificationFields struct {
	TokenHash string
	Code      string
	ExpiresAt string
}

func fieldsFor(p domain.Purpose) verificationFields {
	scope := p.CodeScope().String()
	return verificationFields{
		TokenHash: scope + "_token_hash",
		Code:      scope + "_code",
		ExpiresAt: scope + "_code_expires_at",
	}
}
